package entry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// RunServer blocks while an HTTP server runs, shutting it down once the application's
// context is done
func RunServer(a Application, handler http.Handler, bindAddr string, listenPort int) {
	// Prepare an http.Server with reasonable default config, using our provided handler
	addr := fmt.Sprintf("%s:%d", bindAddr, listenPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           Middleware(a.Log())(handler),
		ErrorLog:          NewErrorLog(a.Log()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Kick off a goroutine which calls server.ListenAndServe(); if it fails to start,
	// the group's context is canceled along with it
	a.Log().Info("Now listening", "bindAddr", bindAddr, "listenPort", listenPort)
	g, ctx := errgroup.WithContext(a.Context())
	g.Go(server.ListenAndServe)

	// Once our application-level context is closed (or the listener has failed), shut
	// the server down, giving in-flight requests a few seconds to finish
	g.Go(func() error {
		<-ctx.Done()
		a.Log().Info("Closing server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	// Block until both goroutines return: ErrServerClosed is the expected result of a
	// graceful shutdown, and anything else is fatal
	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.Fail("Error running server", err)
		return
	}
	a.Log().Info("Server closed")
}

// NewErrorLog adapts an slog.Logger to the log.Logger used by http.Server's ErrorLog
// field
func NewErrorLog(logger *slog.Logger) *log.Logger {
	return log.New(errorLogWriter{logger}, "", 0)
}

// errorLogWriter is an implementation of io.Writer that handles http server errors by
// writing them to an underlying slog.Logger
type errorLogWriter struct {
	logger *slog.Logger
}

func (w errorLogWriter) Write(data []byte) (int, error) {
	w.logger.Error("http.Server error", "error", string(data))
	return len(data), nil
}
