// Package logger provides structured logging setup for arenasync.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/agentarena/arenasync/internal/config"
)

// New creates a *slog.Logger from the given Logging config along with a
// Closer that flushes buffered records in async mode. Output is JSON to
// stderr with a "service" attribute on every record; stdout stays free
// for CLI output.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	level := parseLevel(cfg.Level)

	var handler slog.Handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	closer := Closer(nopCloser{})
	if cfg.Async {
		async := NewAsyncHandler(handler, cfg.Buffer, cfg.Workers)
		handler = async
		closer = async
	}

	return slog.New(handler).With("service", cfg.Service), closer
}

// parseLevel converts a string log level to slog.Level.
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
