package hmac

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrVerificationFailed = errors.New("verification failed")
	ErrMalformedSignature = errors.New("malformed signature")
)

// ParseSignature checks that s is exactly "sha256=" followed by 64 lowercase hex
// characters, with no surrounding whitespace
func ParseSignature(s string) (Signature, error) {
	if len(s) != SignatureLength {
		return "", fmt.Errorf("%w: expected %d bytes; got %d", ErrMalformedSignature, SignatureLength, len(s))
	}
	if !strings.HasPrefix(s, SignaturePrefix) {
		return "", fmt.Errorf("%w: missing %q prefix", ErrMalformedSignature, SignaturePrefix)
	}
	var digest [DigestSize]byte
	if !decodeHexLower(digest[:], []byte(s[len(SignaturePrefix):])) {
		return "", fmt.Errorf("%w: digest is not lowercase hex", ErrMalformedSignature)
	}
	return Signature(s), nil
}

// DecodeDigest returns the raw HMAC digest carried by a signature
func DecodeDigest(sig Signature) ([DigestSize]byte, error) {
	var digest [DigestSize]byte
	if _, err := ParseSignature(string(sig)); err != nil {
		return digest, err
	}
	decodeHexLower(digest[:], []byte(sig[len(SignaturePrefix):]))
	return digest, nil
}

type Verifier interface {
	Verify(body []byte, header string) error
}

func NewVerifier(secret []byte) Verifier {
	return &verifier{
		secret: secret,
		signer: NewSigner(),
	}
}

type verifier struct {
	secret []byte
	signer Signer
}

func (v *verifier) Verify(body []byte, header string) error {
	if header == "" {
		return ErrVerificationFailed
	}
	received, err := ParseSignature(header)
	if err != nil {
		return ErrVerificationFailed
	}

	computed, err := v.signer.Sign(v.secret, body)
	if err != nil {
		return fmt.Errorf("failed to compute signature: %w", err)
	}

	if !hmac.Equal([]byte(received), []byte(computed)) {
		return ErrVerificationFailed
	}
	return nil
}

var _ Verifier = (*verifier)(nil)

// VerifyRequest reads the full body of req and checks it against the request's
// x-rook-signature-256 header, returning the body if the signature is valid
func VerifyRequest(v Verifier, req *http.Request) ([]byte, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if err := v.Verify(body, SignatureHeader(req.Header)); err != nil {
		return nil, err
	}
	return body, nil
}

// SignatureHeader returns the x-rook-signature-256 value from h, looking the header up
// by its literal lowercase name before falling back to the canonical form
func SignatureHeader(h http.Header) string {
	if values, ok := h[HeaderSignature]; ok && len(values) > 0 {
		return values[0]
	}
	return h.Get(HeaderSignature)
}
