// Command rook-webhook sends one signed webhook delivery and exits non-zero unless the
// endpoint accepted it. It's configured through the environment, as a GitHub Actions
// container action:
//
//	INPUT_ENDPOINT         URL to POST to (required)
//	INPUT_SECRET           shared HMAC secret (required, may be empty)
//	INPUT_BODY             request body, sent verbatim (required, may be empty)
//	INPUT_TIMEOUT          optional delivery timeout, e.g. 30s
//	INPUT_LOG_FORMAT       actions (default), json or text
//	INPUT_AMQP_URL         optional RabbitMQ URI to publish the outcome to
//	INPUT_PUSHGATEWAY_URL  optional Prometheus Pushgateway to push metrics to
package main

import (
	"github.com/rook-ci/webhook-action/action"
	"github.com/rook-ci/webhook-action/config"
	"github.com/rook-ci/webhook-action/dispatch"
	"github.com/rook-ci/webhook-action/entry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		entry.NewApplication("rook-webhook").Fail("Failed to load configuration", err)
		return
	}

	app := entry.NewApplication("rook-webhook", entry.WithLogFormat(cfg.LogFormat, cfg.Debug))
	defer app.Stop()
	app.Log().Debug("Loaded configuration", "config", cfg)

	outcome, err := action.Run(app.Context(), cfg, app.Log(), dispatch.NewClient())
	clear(cfg.Secret)
	if err != nil {
		app.Fail("Failed to sign webhook body", err)
		return
	}
	if err := outcome.Err(); err != nil {
		app.Fail("Webhook delivery failed", err)
	}
}
