// Package logging provides the process-wide leveled sink every service
// constructs once at startup and passes down explicitly. There is no
// package-level singleton: each service owns its own *Logger.
package logging

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger. slog's handlers are already safe for
// concurrent use by multiple goroutines, so no extra locking is added
// here; the wrapper exists to fix the field-naming and level-parsing
// conventions used across all three services.
type Logger struct {
	*slog.Logger
}

// Config selects level and output format.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "text" or "json"
}

// New builds a Logger writing to stdout per cfg.
func New(cfg Config) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a Logger with the given fields attached to every entry,
// used at construction time to tag a component ("component", "bus").
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

