// Package receiver implements a small HTTP service that accepts rook webhook
// deliveries, verifies their x-rook-signature-256 header against a shared secret, and
// makes every verified delivery available as a Server-Sent Events stream. It's intended
// for testing a CI pipeline's webhook step end-to-end without a production receiver.
//
// Routes:
//
//	POST /            accept a delivery: 204 if verified, 401 otherwise
//	GET  /deliveries  stream verified deliveries as text/event-stream
package receiver
