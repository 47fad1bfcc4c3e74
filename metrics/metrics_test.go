package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rook-ci/webhook-action/dispatch"
	"github.com/stretchr/testify/assert"
)

func Test_Recorder(t *testing.T) {
	t.Run("outcomes are counted by kind", func(t *testing.T) {
		r := NewRecorder()
		r.Observe(dispatch.Outcome{Kind: dispatch.ClientError, StatusCode: 404, ResponseBytes: 9, Elapsed: 30 * time.Millisecond})

		assert.Equal(t, float64(1), testutil.ToFloat64(r.deliveries.WithLabelValues("client_error")))
		assert.Equal(t, float64(0), testutil.ToFloat64(r.deliveries.WithLabelValues("success")))
		assert.Equal(t, float64(404), testutil.ToFloat64(r.status))
		assert.Equal(t, float64(9), testutil.ToFloat64(r.responseBytes))
		assert.Equal(t, 4, testutil.CollectAndCount(r.deliveries))
	})

	t.Run("transport failures record a zero status", func(t *testing.T) {
		r := NewRecorder()
		r.Observe(dispatch.Outcome{Kind: dispatch.TransportFailure, Message: "connection refused"})
		assert.Equal(t, float64(1), testutil.ToFloat64(r.deliveries.WithLabelValues("transport_failure")))
		assert.Equal(t, float64(0), testutil.ToFloat64(r.status))
	})

	t.Run("metrics are pushed to the gateway under the job name", func(t *testing.T) {
		var (
			gotMethod string
			gotPath   string
		)
		gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
		}))
		defer gateway.Close()

		r := NewRecorder()
		r.Observe(dispatch.Outcome{Kind: dispatch.Success, StatusCode: 200})
		err := r.Push(context.Background(), gateway.URL, "ci-webhook")
		assert.NoError(t, err)
		assert.Equal(t, http.MethodPut, gotMethod)
		assert.Equal(t, "/metrics/job/ci-webhook", gotPath)
	})

	t.Run("gateway errors are reported", func(t *testing.T) {
		gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer gateway.Close()

		err := NewRecorder().Push(context.Background(), gateway.URL, "ci-webhook")
		assert.Error(t, err)
	})
}
