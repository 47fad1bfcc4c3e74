package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rook-ci/webhook-action/entry"
	"github.com/rook-ci/webhook-action/hmac"
)

const (
	keepaliveInterval = 30 * time.Second

	// Larger deliveries are refused with a 413
	maxDeliveryBytes = 25 << 20
)

type Handler struct {
	ctx      context.Context
	verifier hmac.Verifier
	history  *history
	mux      *http.ServeMux

	keepalive    time.Duration
	maxBodyBytes int64
	now          func() time.Time
}

// NewHandler returns a receiver that verifies deliveries with v and remembers the last
// historySize verified deliveries. Open event streams are closed once ctx is done
func NewHandler(ctx context.Context, v hmac.Verifier, historySize int) *Handler {
	h := &Handler{
		ctx:          ctx,
		verifier:     v,
		history:      newHistory(historySize),
		mux:          http.NewServeMux(),
		keepalive:    keepaliveInterval,
		maxBodyBytes: maxDeliveryBytes,
		now:          time.Now,
	}
	h.mux.HandleFunc("POST /{$}", h.handleDelivery)
	h.mux.HandleFunc("GET /deliveries", h.handleStream)
	return h
}

func (h *Handler) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	h.mux.ServeHTTP(res, req)
}

// Deliveries returns the buffered verified deliveries, oldest first
func (h *Handler) Deliveries() []Delivery {
	return h.history.list()
}

func (h *Handler) handleDelivery(res http.ResponseWriter, req *http.Request) {
	logger := entry.Log(req)

	// Cap the body before it's read in full for verification
	req.Body = http.MaxBytesReader(res, req.Body, h.maxBodyBytes)
	body, err := hmac.VerifyRequest(h.verifier, req)
	if err != nil {
		if errors.Is(err, hmac.ErrVerificationFailed) {
			logger.Warn("Rejected delivery with invalid signature")
			http.Error(res, "invalid signature", http.StatusUnauthorized)
			return
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("Rejected oversized delivery", "limitBytes", tooLarge.Limit)
			http.Error(res, "delivery too large", http.StatusRequestEntityTooLarge)
			return
		}
		logger.Error("Failed to verify delivery", "error", err)
		http.Error(res, "failed to read delivery", http.StatusBadRequest)
		return
	}

	id := entry.RequestId(req)
	if id == "" {
		id = uuid.NewString()
	}
	d := Delivery{
		Id:         id,
		ReceivedAt: h.now().UTC(),
		Signature:  hmac.SignatureHeader(req.Header),
		BodyBytes:  len(body),
		Body:       string(body),
	}
	h.history.add(d)
	logger.Info("Accepted delivery", "bodyBytes", d.BodyBytes)
	res.WriteHeader(http.StatusNoContent)
}

// handleStream opens a long-lived text/event-stream response, first replaying any
// buffered deliveries the client hasn't seen (per Last-Event-ID), then writing each new
// delivery as it's verified
func (h *Handler) handleStream(res http.ResponseWriter, req *http.Request) {
	logger := entry.Log(req)

	accept := req.Header.Get("accept")
	if accept != "" && accept != "*/*" && !strings.HasPrefix(accept, "text/event-stream") {
		http.Error(res, fmt.Sprintf("content-type %s is not supported", accept), http.StatusNotAcceptable)
		return
	}
	flusher, ok := res.(http.Flusher)
	if !ok {
		http.Error(res, "streaming is not supported", http.StatusInternalServerError)
		return
	}

	backlog, ch := h.history.subscribe(req.Header.Get("last-event-id"))
	defer h.history.unsubscribe(ch)

	res.Header().Set("content-type", "text/event-stream")
	res.Header().Set("cache-control", "no-cache")
	res.Header().Set("connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	// Without a backlog, send a comment so the client sees the stream open right away
	if len(backlog) > 0 {
		writeEvents(res, logger, backlog...)
	} else {
		res.Write([]byte(":\n\n"))
	}
	flusher.Flush()

	logger.Info("Opened delivery stream")
	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			res.Write([]byte(":\n\n"))
			flusher.Flush()
		case d := <-ch:
			writeEvents(res, logger, d)
			flusher.Flush()
		case <-h.ctx.Done():
			logger.Info("Server is shutting down; closing delivery stream")
			return
		case <-req.Context().Done():
			logger.Info("Closed delivery stream")
			return
		}
	}
}

func writeEvents(res http.ResponseWriter, logger *slog.Logger, deliveries ...Delivery) {
	for _, d := range deliveries {
		data, err := json.Marshal(d)
		if err != nil {
			logger.Error("Failed to serialize delivery as JSON", "error", err)
			continue
		}
		fmt.Fprintf(res, "id: %s\nevent: delivery\ndata: %s\n\n", d.Id, data)
	}
}
