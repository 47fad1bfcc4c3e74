package entry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	// FormatActions renders log records as GitHub Actions workflow commands
	FormatActions = "actions"

	// FormatJSON renders log records as JSON objects, one per line
	FormatJSON = "json"

	// FormatText renders log records as logfmt-style key=value lines
	FormatText = "text"
)

// NewLogger returns a logger writing to w in the given format. Debug-level records are
// emitted when debug is set; in the actions format they're always emitted, since the
// runner hides ::debug:: lines unless step debugging is enabled
func NewLogger(format string, w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	switch format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	case FormatText:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(NewWorkflowHandler(w, slog.LevelDebug))
}

// WorkflowHandler is a slog.Handler that writes each record as a single GitHub Actions
// workflow command: ::debug::, ::warning:: or ::error:: depending on level, or a plain
// line for info-level records. An "error" attribute is appended to the message as
// ": <error>"; all other attributes follow as key=value pairs
type WorkflowHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	prefix string
	attrs  string
	errStr string
}

func NewWorkflowHandler(w io.Writer, level slog.Leveler) *WorkflowHandler {
	return &WorkflowHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
	}
}

func (h *WorkflowHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *WorkflowHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	errStr := h.errStr
	attrs := h.attrs
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "error" && h.prefix == "" {
			errStr = a.Value.String()
			return true
		}
		attrs += formatAttr(h.prefix, a)
		return true
	})
	if errStr != "" {
		b.WriteString(": ")
		b.WriteString(errStr)
	}
	b.WriteString(attrs)

	line := b.String()
	command := workflowCommand(r.Level)
	if command != "" {
		line = "::" + command + "::" + escapeData(line)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line+"\n")
	return err
}

func (h *WorkflowHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	for _, a := range attrs {
		if a.Key == "error" && h.prefix == "" {
			clone.errStr = a.Value.String()
			continue
		}
		clone.attrs += formatAttr(h.prefix, a)
	}
	return &clone
}

func (h *WorkflowHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

var _ slog.Handler = (*WorkflowHandler)(nil)

func workflowCommand(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warning"
	case level < slog.LevelInfo:
		return "debug"
	}
	return ""
}

func formatAttr(prefix string, a slog.Attr) string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return ""
	}
	if a.Value.Kind() == slog.KindGroup {
		s := ""
		for _, ga := range a.Value.Group() {
			s += formatAttr(prefix+a.Key+".", ga)
		}
		return s
	}
	value := a.Value.String()
	if value == "" || strings.ContainsAny(value, " \t\"=") {
		value = fmt.Sprintf("%q", value)
	}
	return " " + prefix + a.Key + "=" + value
}

// escapeData applies the escaping that workflow commands require for their message
// part, so a multi-line message stays a single annotation
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}
