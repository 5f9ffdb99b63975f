// Package log configures the process-wide slog logger shared by the
// onboardflow services.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the default logger. Every record carries the service
// name so logs from co-deployed onboardflow binaries stay attributable.
func Setup(service, logLevel string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	slog.SetDefault(logger.With("service", service))
}

func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
