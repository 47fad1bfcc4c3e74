package hmac

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/net/http/httpguts"
)

var (
	// ErrKey indicates that the MAC could not be initialized with the supplied secret
	ErrKey = errors.New("failed to initialize hmac")

	// ErrEncoding indicates that a rendered signature is not usable as an HTTP header
	// value
	ErrEncoding = errors.New("attempted to construct invalid header")
)

// Signature is a rendered x-rook-signature-256 header value: "sha256=" followed by 64
// lowercase hex characters
type Signature string

func (s Signature) String() string {
	return string(s)
}

// Signer computes signatures over webhook bodies
type Signer interface {
	Sign(secret, body []byte) (Signature, error)
}

func NewSigner() Signer {
	return &signer{
		newMAC:           newMAC,
		validHeaderValue: httpguts.ValidHeaderFieldValue,
	}
}

// Sign computes the signature of body using the default Signer
func Sign(secret, body []byte) (Signature, error) {
	return NewSigner().Sign(secret, body)
}

// newMAC initializes an HMAC-SHA256 keyed with the given secret. Any key length is
// accepted, so this never fails
func newMAC(secret []byte) (hash.Hash, error) {
	return hmac.New(sha256.New, secret), nil
}

type signer struct {
	newMAC           func(secret []byte) (hash.Hash, error)
	validHeaderValue func(v string) bool
}

func (s *signer) Sign(secret, body []byte) (Signature, error) {
	mac, err := s.newMAC(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrKey, err)
	}
	if _, err := mac.Write(body); err != nil {
		return "", fmt.Errorf("failed to write request body to hash: %w", err)
	}

	var digest [DigestSize]byte
	if n := copy(digest[:], mac.Sum(nil)); n != DigestSize {
		return "", fmt.Errorf("%w: expected a %d-byte digest; got %d bytes", ErrKey, DigestSize, n)
	}

	var buf [SignatureLength]byte
	copy(buf[:], SignaturePrefix)
	encodeHexLower(buf[len(SignaturePrefix):], digest[:])

	value := string(buf[:])
	if !s.validHeaderValue(value) {
		return "", ErrEncoding
	}
	return Signature(value), nil
}

var _ Signer = (*signer)(nil)
