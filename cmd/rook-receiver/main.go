// Command rook-receiver runs an HTTP server that verifies rook webhook deliveries
// signed with RECEIVER_SECRET and streams the verified ones from GET /deliveries. It
// listens on RECEIVER_BIND_ADDR:RECEIVER_PORT (default port 8080).
package main

import (
	"github.com/rook-ci/webhook-action/config"
	"github.com/rook-ci/webhook-action/entry"
	"github.com/rook-ci/webhook-action/hmac"
	"github.com/rook-ci/webhook-action/receiver"
)

func main() {
	cfg, err := config.LoadReceiver()
	if err != nil {
		entry.NewApplication("rook-receiver").Fail("Failed to load configuration", err)
		return
	}

	app := entry.NewApplication("rook-receiver", entry.WithLogFormat(cfg.LogFormat, cfg.Debug))
	defer app.Stop()

	h := receiver.NewHandler(app.Context(), hmac.NewVerifier(cfg.Secret), cfg.HistorySize)
	entry.RunServer(app, h, cfg.BindAddr, cfg.Port)
}
