// Package hmac implements the signing scheme used for outbound rook webhooks: the
// sender and the receiver share a secret, and every delivery carries an
// x-rook-signature-256 header whose value is "sha256=" followed by the lowercase hex
// HMAC-SHA256 of the exact request body. The sender uses hmac.Sign() to produce that
// value; a receiver uses a Verifier, configured with the same secret, to prove that a
// delivery was produced by a holder of the secret without the secret itself ever
// crossing the wire.
package hmac
