package entry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

type Application interface {
	Context() context.Context
	Log() *slog.Logger
	Fail(message string, err error)
	Stop()
}

type Option func(o *options)

type options struct {
	format string
	debug  bool
	out    io.Writer
	exit   func(code int)
}

// WithLogFormat selects one of FormatActions, FormatJSON or FormatText for the
// application's logger
func WithLogFormat(format string, debug bool) Option {
	return func(o *options) {
		o.format = format
		o.debug = debug
	}
}

// WithOutput redirects log output, which otherwise goes to stdout
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

func withExitFunc(exit func(code int)) Option {
	return func(o *options) {
		o.exit = exit
	}
}

func NewApplication(name string, opts ...Option) Application {
	o := options{
		format: FormatActions,
		out:    os.Stdout,
		exit:   os.Exit,
	}
	for _, opt := range opts {
		opt(&o)
	}

	// GitHub Actions runners collect stdout, so that's where log lines go by default
	logger := NewLogger(o.format, o.out, o.debug)
	if o.format != FormatActions {
		logger = logger.With("app", name, "pid", os.Getpid())
	}
	logger.Debug("Process starting", "app", name)

	// Shut down cleanly on signal
	ctx, close := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &application{
		ctx:      ctx,
		closeCtx: close,
		logger:   logger,
		exit:     o.exit,
	}
}

type application struct {
	ctx      context.Context
	closeCtx context.CancelFunc
	logger   *slog.Logger
	exit     func(code int)
}

func (a *application) Context() context.Context {
	return a.ctx
}

func (a *application) Log() *slog.Logger {
	return a.logger
}

func (a *application) Fail(message string, err error) {
	if err != nil {
		a.logger.Error(message, "error", err)
	} else {
		a.logger.Error(message)
	}
	a.closeCtx()
	a.exit(1)
}

func (a *application) Stop() {
	a.logger.Debug("Process stopping")
	a.closeCtx()
}
