// Package logging builds the application's structured logger
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// EnvDev selects the coloured console handler
const EnvDev = "dev"

// New returns a logger writing to stderr. In the dev environment records are
// rendered by tint for the terminal, everywhere else as JSON lines.
func New(env string, level slog.Level, version string) *slog.Logger {
	return NewWithWriter(os.Stderr, env, level, version)
}

// NewWithWriter is New with an explicit destination
func NewWithWriter(w io.Writer, env string, level slog.Level, version string) *slog.Logger {
	if env == EnvDev || env == "" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", "control-tray")
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With(
		"app", "control-tray",
		"version", version,
		"env", env,
	)
}

// ParseLevel converts a textual level into a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (allowed: debug, info, warn, error)", s)
	}
}

// Discard returns a logger that drops every record, for tests
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
