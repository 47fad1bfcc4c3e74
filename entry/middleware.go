package entry

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type contextKey int

const (
	requestIdKey contextKey = iota
	loggerKey
)

// Middleware tags every incoming request with an x-request-id (reusing the one the
// sender supplied, if any), stores a request-scoped logger in the request context for
// retrieval via Log(), and logs each request once it's finished
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Generate a unique ID for this request, if the sender didn't supply one
			requestId := r.Header.Get("x-request-id")
			if requestId == "" {
				requestId = uuid.NewString()
			}

			// Prepare a logger with the relevant details of this request
			reqLogger := logger.With(
				"requestId", requestId,
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr,
			)
			reqLogger.Debug("Handling request")

			// Inject the request ID and logger into the request context, so that HTTP
			// handler functions can pull them out with RequestId() and Log()
			ctx := context.WithValue(r.Context(), requestIdKey, requestId)
			ctx = context.WithValue(ctx, loggerKey, reqLogger)
			r = r.WithContext(ctx)

			// Preemptively set the x-request-id response header, so that the request ID
			// is carried end-to-end
			w.Header().Set("x-request-id", requestId)

			// Wrap our ResponseWriter in a struct that will capture the response code
			// written by the HTTP handler
			recorder := &statusRecorder{ResponseWriter: w}

			// Handle the request, measuring how long it takes to execute
			start := time.Now()
			next.ServeHTTP(recorder, r)
			elapsed := time.Since(start)

			// A handler that never writes anything still gets an implicit 200
			if recorder.status == 0 {
				recorder.status = http.StatusOK
			}

			// Write a final log message indicating that the request is finished
			level := slog.LevelInfo
			if recorder.status >= 500 {
				level = slog.LevelError
			}
			reqLogger.Log(r.Context(), level,
				"Request finished",
				"elapsedNanoseconds", elapsed.Nanoseconds(),
				"status", recorder.status,
			)
		})
	}
}

// Log returns the request-scoped logger installed by Middleware, or the default logger
func Log(r *http.Request) *slog.Logger {
	if logger, ok := r.Context().Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// RequestId returns the request ID assigned by Middleware
func RequestId(r *http.Request) string {
	requestId, _ := r.Context().Value(requestIdKey).(string)
	return requestId
}

// statusRecorder wraps an http.ResponseWriter in order to intercept and store the HTTP
// status code for the response to a request. It passes Flush through so that event
// streams still work behind Middleware
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(data)
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
