package receiver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rook-ci/webhook-action/dispatch"
	"github.com/rook-ci/webhook-action/entry"
	"github.com/rook-ci/webhook-action/hmac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("my-secret")

func Test_Handler_Delivery(t *testing.T) {
	t.Run("correctly signed delivery is accepted and recorded", func(t *testing.T) {
		h := NewHandler(context.Background(), hmac.NewVerifier(secret), 10)
		srv := entry.Middleware(discardLogger())(h)

		body := []byte(`{"ref":"refs/heads/main"}`)
		req := signedRequest(t, body)
		req.Header.Set("x-request-id", "d6c6a6d0-bb4e-4ff2-8188-4dda238f9223")
		res := httptest.NewRecorder()
		srv.ServeHTTP(res, req)

		assert.Equal(t, http.StatusNoContent, res.Code)
		deliveries := h.Deliveries()
		require.Len(t, deliveries, 1)
		assert.Equal(t, "d6c6a6d0-bb4e-4ff2-8188-4dda238f9223", deliveries[0].Id)
		assert.Equal(t, string(body), deliveries[0].Body)
		assert.Equal(t, len(body), deliveries[0].BodyBytes)
		assert.True(t, strings.HasPrefix(deliveries[0].Signature, hmac.SignaturePrefix))
	})

	t.Run("delivery with a bad signature is rejected", func(t *testing.T) {
		h := NewHandler(context.Background(), hmac.NewVerifier(secret), 10)

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello world"))
		req.Header.Set(hmac.HeaderSignature, "sha256="+strings.Repeat("00", 32))
		res := httptest.NewRecorder()
		h.ServeHTTP(res, req)

		assert.Equal(t, http.StatusUnauthorized, res.Code)
		assert.Empty(t, h.Deliveries())
	})

	t.Run("delivery without a signature is rejected", func(t *testing.T) {
		h := NewHandler(context.Background(), hmac.NewVerifier(secret), 10)
		res := httptest.NewRecorder()
		h.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello world")))
		assert.Equal(t, http.StatusUnauthorized, res.Code)
	})

	t.Run("non-POST requests are not allowed", func(t *testing.T) {
		h := NewHandler(context.Background(), hmac.NewVerifier(secret), 10)
		res := httptest.NewRecorder()
		h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, res.Code)
	})

	t.Run("oversized delivery is refused without being recorded", func(t *testing.T) {
		h := NewHandler(context.Background(), hmac.NewVerifier(secret), 10)
		h.maxBodyBytes = 16

		res := httptest.NewRecorder()
		h.ServeHTTP(res, signedRequest(t, bytes.Repeat([]byte("x"), 17)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, res.Code)
		assert.Empty(t, h.Deliveries())

		res = httptest.NewRecorder()
		h.ServeHTTP(res, signedRequest(t, bytes.Repeat([]byte("x"), 16)))
		assert.Equal(t, http.StatusNoContent, res.Code)
		assert.Len(t, h.Deliveries(), 1)
	})

	t.Run("history is bounded", func(t *testing.T) {
		h := NewHandler(context.Background(), hmac.NewVerifier(secret), 2)
		for _, body := range []string{"one", "two", "three"} {
			res := httptest.NewRecorder()
			h.ServeHTTP(res, signedRequest(t, []byte(body)))
			assert.Equal(t, http.StatusNoContent, res.Code)
		}
		deliveries := h.Deliveries()
		require.Len(t, deliveries, 2)
		assert.Equal(t, "two", deliveries[0].Body)
		assert.Equal(t, "three", deliveries[1].Body)
	})
}

func Test_Handler_Stream(t *testing.T) {
	t.Run("deliveries sent by the dispatcher appear on the stream", func(t *testing.T) {
		h := NewHandler(context.Background(), hmac.NewVerifier(secret), 10)
		srv := httptest.NewServer(entry.Middleware(discardLogger())(h))
		t.Cleanup(srv.Close)

		events := openStream(t, srv.URL, "")
		assert.Equal(t, ":", readEvent(t, events))

		body := []byte(`{"status":"deployed"}`)
		sig, err := hmac.Sign(secret, body)
		require.NoError(t, err)
		outcome := dispatch.NewDispatcher(nil, discardLogger()).Send(context.Background(), srv.URL, sig, body)
		require.Equal(t, dispatch.Success, outcome.Kind)
		assert.Equal(t, http.StatusNoContent, outcome.StatusCode)

		event := readEvent(t, events)
		lines := strings.Split(event, "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "id: "+outcome.DeliveryId, lines[0])
		assert.Equal(t, "event: delivery", lines[1])

		var d Delivery
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[2], "data: ")), &d))
		assert.Equal(t, outcome.DeliveryId, d.Id)
		assert.Equal(t, string(body), d.Body)
		assert.Equal(t, string(sig), d.Signature)
	})

	t.Run("deliveries after Last-Event-ID are replayed on connect", func(t *testing.T) {
		h := NewHandler(context.Background(), hmac.NewVerifier(secret), 10)
		for _, id := range []string{"101", "201", "301"} {
			h.history.add(Delivery{Id: id, Body: "body-" + id})
		}
		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)

		events := openStream(t, srv.URL, "201")
		assert.True(t, strings.HasPrefix(readEvent(t, events), "id: 301\n"))

		h.history.add(Delivery{Id: "401"})
		assert.True(t, strings.HasPrefix(readEvent(t, events), "id: 401\n"))
	})

	t.Run("unsupported accept header is refused", func(t *testing.T) {
		h := NewHandler(context.Background(), hmac.NewVerifier(secret), 10)
		req := httptest.NewRequest(http.MethodGet, "/deliveries", nil)
		req.Header.Set("accept", "application/json")
		res := httptest.NewRecorder()
		h.ServeHTTP(res, req)
		assert.Equal(t, http.StatusNotAcceptable, res.Code)
	})

	t.Run("canceling the handler's context closes open streams", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h := NewHandler(ctx, hmac.NewVerifier(secret), 10)
		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)

		events := openStream(t, srv.URL, "")
		assert.Equal(t, ":", readEvent(t, events))
		assert.Equal(t, 1, h.history.numSubscribers())

		cancel()
		_, err := io.ReadAll(events)
		assert.NoError(t, err)
		assert.Eventually(t, func() bool { return h.history.numSubscribers() == 0 }, time.Second, time.Millisecond)
	})

	t.Run("idle streams receive keepalive comments", func(t *testing.T) {
		h := NewHandler(context.Background(), hmac.NewVerifier(secret), 10)
		h.keepalive = 10 * time.Millisecond
		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)

		events := openStream(t, srv.URL, "")
		assert.Equal(t, ":", readEvent(t, events))
		assert.Equal(t, ":", readEvent(t, events))
	})
}

func signedRequest(t *testing.T, body []byte) *http.Request {
	sig, err := hmac.Sign(secret, body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header[hmac.HeaderSignature] = []string{string(sig)}
	return req
}

// openStream connects to the delivery stream, returning a reader over the response
// body that's closed when the test finishes. Servers must be closed with t.Cleanup
// rather than defer, so that the body is closed first and Close doesn't block
func openStream(t *testing.T, baseURL, lastEventId string) *bufio.Reader {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/deliveries", nil)
	require.NoError(t, err)
	req.Header.Set("accept", "text/event-stream")
	if lastEventId != "" {
		req.Header.Set("last-event-id", lastEventId)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("content-type"))
	return bufio.NewReader(res.Body)
}

// readEvent reads lines up to the next blank line, returning them without the
// trailing newlines
func readEvent(t *testing.T, r *bufio.Reader) string {
	var lines []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			return strings.Join(lines, "\n")
		}
		lines = append(lines, line)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
