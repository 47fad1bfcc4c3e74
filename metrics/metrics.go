// Package metrics records the outcome of a webhook delivery as Prometheus metrics and
// pushes them to a Pushgateway. The action runs once and exits, so there's nothing for
// Prometheus to scrape: the Pushgateway holds the last delivery's metrics instead.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rook-ci/webhook-action/dispatch"
)

var outcomeKinds = []dispatch.Kind{
	dispatch.Success,
	dispatch.ClientError,
	dispatch.ServerError,
	dispatch.TransportFailure,
}

// Recorder holds the metrics for a single delivery in its own registry
type Recorder struct {
	registry *prometheus.Registry

	deliveries    *prometheus.CounterVec
	duration      prometheus.Histogram
	status        prometheus.Gauge
	responseBytes prometheus.Gauge
	lastDelivery  prometheus.Gauge
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	r := &Recorder{
		registry: registry,
		deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rook_webhook_deliveries_total",
				Help: "Number of webhook deliveries, by outcome",
			},
			[]string{"outcome"},
		),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rook_webhook_delivery_duration_seconds",
			Help:    "Time from sending a webhook until its response body was read",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		status: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rook_webhook_response_status",
			Help: "HTTP status code of the last delivery's response; 0 if no response was received",
		}),
		responseBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rook_webhook_response_bytes",
			Help: "Size of the last delivery's response body",
		}),
		lastDelivery: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rook_webhook_last_delivery_timestamp_seconds",
			Help: "Unix time at which the last delivery finished",
		}),
	}

	// Start every outcome at zero so each push carries the full set of series
	for _, kind := range outcomeKinds {
		r.deliveries.WithLabelValues(kind.String())
	}
	return r
}

// Observe records a delivery outcome
func (r *Recorder) Observe(o dispatch.Outcome) {
	r.deliveries.WithLabelValues(o.Kind.String()).Inc()
	r.duration.Observe(o.Elapsed.Seconds())
	r.status.Set(float64(o.StatusCode))
	r.responseBytes.Set(float64(o.ResponseBytes))
	r.lastDelivery.SetToCurrentTime()
}

// Push replaces the metrics held by the Pushgateway at url for the given job
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
