// Package entry implements the entry-point logic shared by the rook-webhook binaries:
// a signal-aware application context, a structured logger whose default output format
// is understood by GitHub Actions, and a single place where failures are turned into a
// non-zero exit code. It also carries the HTTP server plumbing used by the receiver.
//
// Example usage:
//
//	func main() {
//		app := entry.NewApplication("rook-webhook", entry.WithLogFormat(entry.FormatActions, false))
//		defer app.Stop()
//
//		if err := doSomething(app.Context()); err != nil {
//			app.Fail("Something failed", err)
//		}
//	}
package entry
