// Package dispatch delivers a signed webhook body to its endpoint and reports what
// happened as a single Outcome. Exactly one POST request is made per call to
// Dispatcher.Send: there are no retries, and a transport-level error is reported as a
// TransportFailure rather than being returned as an error, so that callers (typically
// a CI step) can decide how to exit from a single value.
//
// Example usage:
//
//	sig, err := hmac.Sign(secret, body)
//	if err != nil {
//		app.Fail("Failed to sign body", err)
//	}
//	d := dispatch.NewDispatcher(dispatch.NewClient(), app.Log())
//	outcome := d.Send(ctx, endpoint, sig, body)
//	if err := outcome.Err(); err != nil {
//		app.Fail("Webhook delivery failed", err)
//	}
package dispatch
