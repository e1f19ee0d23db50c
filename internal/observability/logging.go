// Package observability provides logging and metrics.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	GlobalLogger = New(os.Stdout, "info", "json")
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

const (
	CorrelationID LogContextKey = "correlation_id"
	SessionID     LogContextKey = "session_id"
)

// New builds a logger. format is "json" or "text".
func New(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(h)}
}

// Init replaces the global logger.
func Init(level, format string) {
	GlobalLogger = New(os.Stdout, level, format)
	slog.SetDefault(GlobalLogger.Logger)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// WithSessionID tags the context with the gateway session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionID, id)
}

// FromContext returns the global logger enriched with ids found in ctx.
func FromContext(ctx context.Context) *Logger {
	l := GlobalLogger
	if ctx == nil {
		return l
	}
	var attrs []any
	if id, ok := ctx.Value(CorrelationID).(string); ok && id != "" {
		attrs = append(attrs, slog.String(string(CorrelationID), id))
	}
	if id, ok := ctx.Value(SessionID).(string); ok && id != "" {
		attrs = append(attrs, slog.String(string(SessionID), id))
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.With(attrs...)}
}
