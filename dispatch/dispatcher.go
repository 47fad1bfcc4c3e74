package dispatch

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rook-ci/webhook-action/hmac"
)

// HTTPClient is the subset of *http.Client used to send deliveries
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewClient returns an http.Client suitable for webhook delivery: redirects are not
// followed, so a 3xx response is the final answer, and no timeout is imposed
func NewClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type Option func(d *Dispatcher)

// WithTimeout bounds each delivery, from connecting until the response body has been
// read. A zero duration means no timeout
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

func WithUserAgent(userAgent string) Option {
	return func(d *Dispatcher) {
		d.userAgent = userAgent
	}
}

// Dispatcher sends signed webhook bodies
type Dispatcher struct {
	client    HTTPClient
	logger    *slog.Logger
	timeout   time.Duration
	userAgent string
	newId     func() string
}

func NewDispatcher(client HTTPClient, logger *slog.Logger, opts ...Option) *Dispatcher {
	if client == nil {
		client = NewClient()
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		client: client,
		logger: logger,
		newId:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send POSTs body to endpoint with the given signature attached, blocking until a
// response has been read in full or the request has failed
func (d *Dispatcher) Send(ctx context.Context, endpoint string, sig hmac.Signature, body []byte) Outcome {
	outcome := Outcome{DeliveryId: d.newId()}
	logger := d.logger.With("deliveryId", outcome.DeliveryId)

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return outcome.transportFailure(logger, err)
	}

	// Assign the signature header directly so that its name isn't canonicalized
	req.Header[hmac.HeaderSignature] = []string{string(sig)}
	req.Header.Set(hmac.HeaderRequestId, outcome.DeliveryId)
	if d.userAgent != "" {
		req.Header.Set("user-agent", d.userAgent)
	}

	logger.Debug("Sending webhook",
		"method", req.Method,
		"endpoint", endpoint,
		hmac.HeaderSignature, string(sig),
		"bodyBytes", len(body),
	)

	start := time.Now()
	res, err := d.client.Do(req)
	if err != nil {
		outcome.Elapsed = time.Since(start)
		return outcome.transportFailure(logger, err)
	}
	defer res.Body.Close()

	outcome.Kind = Classify(res.StatusCode)
	outcome.StatusCode = res.StatusCode
	outcome.Status = res.Status
	logger.Info("Received response", "status", res.Status)

	// Drain the body so the connection is released; its contents are only of
	// diagnostic interest
	data, err := io.ReadAll(res.Body)
	outcome.Elapsed = time.Since(start)
	outcome.ResponseBytes = len(data)
	switch {
	case err != nil:
		outcome.DecodeError = err.Error()
		logger.Debug("Error decoding response body", "error", err)
	case !utf8.Valid(data):
		outcome.DecodeError = "response body is not valid UTF-8"
		logger.Debug("Error decoding response body", "error", outcome.DecodeError, "responseBytes", len(data))
	case len(data) == 0:
		logger.Debug("Response has no body")
	default:
		logger.Debug("Response has body", "responseBytes", len(data))
	}

	logger.Debug("Delivery finished", "outcome", outcome.Kind, "elapsedNanoseconds", outcome.Elapsed.Nanoseconds())
	return outcome
}

func (o Outcome) transportFailure(logger *slog.Logger, err error) Outcome {
	o.Kind = TransportFailure
	o.Message = err.Error()
	logger.Debug("Request failed", "error", err)
	return o
}
