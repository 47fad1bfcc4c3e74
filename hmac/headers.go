package hmac

const (
	// HeaderSignature is the name of the header that carries the HMAC signature of the
	// request body. Receivers may compare header names literally, so it must be sent
	// in exactly this casing
	HeaderSignature = "x-rook-signature-256"

	// HeaderRequestId is the name of the header that carries a unique ID generated for
	// each delivery
	HeaderRequestId = "x-request-id"

	// SignaturePrefix identifies the digest algorithm used to compute a signature
	SignaturePrefix = "sha256="

	// DigestSize is the number of bytes in an HMAC-SHA256 digest
	DigestSize = 32

	// SignatureLength is the exact length of a rendered signature: the prefix followed
	// by two hex characters per digest byte
	SignatureLength = len(SignaturePrefix) + 2*DigestSize
)
