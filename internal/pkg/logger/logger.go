// Package logger wraps log/slog with the request and component tagging used
// throughout tattva.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type requestIDKey struct{}

// Logger is a *slog.Logger whose With helpers keep returning *Logger.
type Logger struct {
	*slog.Logger
}

// New creates a logger on stdout. format is "json" or anything else for text.
func New(level, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a logger that writes to w.
func NewWithWriter(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: maskSecrets,
	}
	if strings.EqualFold(format, "json") {
		return &Logger{Logger: slog.New(slog.NewJSONHandler(w, opts))}
	}
	return &Logger{Logger: slog.New(slog.NewTextHandler(w, opts))}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// Default returns an info-level text logger on stdout.
func Default() *Logger {
	return New("info", "text")
}

// ContextWithRequestID stores a request ID for later use by WithContext.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// WithContext tags the logger with the request ID in ctx. Without one the
// receiver is returned unchanged.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	id, ok := RequestID(ctx)
	if !ok {
		return l
	}
	return l.with("request_id", id)
}

// WithComponent tags the logger with the emitting component.
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithError tags the logger with err's message.
func (l *Logger) WithError(err error) *Logger {
	return l.with("error", err.Error())
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// secretKeys are attribute keys whose values never reach the output.
var secretKeys = map[string]bool{
	"password": true,
	"secret":   true,
	"token":    true,
}

func maskSecrets(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "xxxxx")
	}
	return a
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
