package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process-wide slog.Logger. Level and format come
// from configuration; format "json" suits log collectors, anything else
// falls back to human-readable text.
func NewLogger(level, format string) *slog.Logger {
	return newLogger(os.Stderr, level, format)
}

// NewDiscardLogger returns a logger that drops everything, for tests.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
