// Package action runs a single rook webhook delivery from loaded configuration: it
// signs the body, sends it, and reports the outcome to any configured sinks. Deciding
// how the process exits is left to the caller.
package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rook-ci/webhook-action/config"
	"github.com/rook-ci/webhook-action/dispatch"
	"github.com/rook-ci/webhook-action/hmac"
	"github.com/rook-ci/webhook-action/metrics"
	"github.com/rook-ci/webhook-action/rmq"
)

// sign is replaced in tests to simulate a signer that rejects its key
var sign = hmac.Sign

// Run delivers cfg.Body to cfg.Endpoint. A non-nil error means the body could not be
// signed and nothing was sent; otherwise the returned Outcome describes the delivery.
// Failures to publish the outcome or push metrics are logged and otherwise ignored
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, client dispatch.HTTPClient) (dispatch.Outcome, error) {
	sig, err := sign(cfg.Secret, cfg.Body)
	if err != nil {
		return dispatch.Outcome{}, fmt.Errorf("failed to sign body: %w", err)
	}

	opts := []dispatch.Option{dispatch.WithTimeout(cfg.Timeout)}
	if cfg.UserAgent != "" {
		opts = append(opts, dispatch.WithUserAgent(cfg.UserAgent))
	}
	outcome := dispatch.NewDispatcher(client, logger, opts...).Send(ctx, cfg.Endpoint, sig, cfg.Body)
	if outcome.Ok() {
		logger.Info("Webhook delivered", "status", outcome.Status)
	}

	report(ctx, cfg, logger, outcome)
	return outcome, nil
}

func report(ctx context.Context, cfg *config.Config, logger *slog.Logger, outcome dispatch.Outcome) {
	if cfg.AMQP.URL != "" {
		if err := rmq.Publish(ctx, cfg.AMQP.URL, cfg.AMQP.Exchange, outcome); err != nil {
			logger.Warn("Failed to publish delivery outcome", "error", err, "exchange", cfg.AMQP.Exchange)
		} else {
			logger.Debug("Published delivery outcome", "exchange", cfg.AMQP.Exchange)
		}
	}

	if cfg.Pushgateway.URL != "" {
		r := metrics.NewRecorder()
		r.Observe(outcome)
		if err := r.Push(ctx, cfg.Pushgateway.URL, cfg.Pushgateway.Job); err != nil {
			logger.Warn("Failed to push delivery metrics", "error", err)
		} else {
			logger.Debug("Pushed delivery metrics", "job", cfg.Pushgateway.Job)
		}
	}
}
