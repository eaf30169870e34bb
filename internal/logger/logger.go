// Package logger builds the process-wide slog logger for dispatchd: JSON to
// stdout, optionally buffered through a worker pool, with correlation ids
// copied from the request context onto every record.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/config"
)

// New creates a *slog.Logger from the given Logging config. Callers that
// enable async logging should use NewWithCloser instead so buffered records
// are flushed at shutdown.
func New(cfg config.Logging) *slog.Logger {
	l, _ := NewWithCloser(cfg)
	return l
}

// NewWithCloser creates the logger plus a Closer that flushes buffered
// records. With async logging disabled the Closer is a no-op. Close before
// process exit or tail-of-run records may be lost.
func NewWithCloser(cfg config.Logging) (*slog.Logger, Closer) {
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	closer := Closer(nopCloser{})
	if cfg.Async {
		q := NewQueueHandler(handler, cfg.BufferSize, cfg.Workers)
		handler = q
		closer = q
	}

	// Context enrichment wraps the async boundary so attrs are attached
	// while the emitting context is still live.
	handler = &ctxHandler{next: handler}

	return slog.New(handler).With("service", cfg.Service), closer
}

// parseLevel converts a config log level to slog.Level. Unknown levels fall
// back to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
