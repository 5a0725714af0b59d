// Package logger configures the process-wide slog logger and carries the
// request id through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type requestIDKey struct{}

// Setup installs the default logger for service, writing to stderr so that
// stdout stays free for batch output.
func Setup(service, level, format string) {
	SetupWriter(os.Stderr, service, level, format)
}

// SetupWriter is Setup with an explicit destination. format is "json" or
// anything else for logfmt-style text. Every record carries the service
// attribute when service is non-empty.
func SetupWriter(w io.Writer, service, level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	l := slog.New(h)
	if service != "" {
		l = l.With("service", service)
	}
	slog.SetDefault(l)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromContext returns the default logger, tagged with the request id of ctx
// if there is one.
func FromContext(ctx context.Context) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return slog.Default().With("request_id", id)
	}
	return slog.Default()
}

func parseLevel(level string) slog.Level {
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
