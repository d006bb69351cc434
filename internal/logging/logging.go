// Package logging builds the slog logger shared by the CLI, the MCP server and
// the workspace engine.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the destination, level and encoding of log output.
type Config struct {
	// Level is one of debug, info, warn or error. Empty means warn.
	Level string
	// Format is "text" or "json". Empty means text.
	Format string
	// Output defaults to stderr so stdout stays clean for command results.
	Output io.Writer
}

// ParseLevel maps a level name to its slog value.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level: %s (valid values: debug, info, warn, error)", name)
	}
}

// New returns a logger for cfg. An unknown level falls back to warn and is
// reported through the returned logger itself.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level, levelErr := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler).With(slog.String("service", "wsctl"))
	if levelErr != nil {
		logger.Warn("falling back to warn level", "error", levelErr)
	}
	return logger
}

// Discard returns a logger that drops everything. Tests use it to keep output
// quiet.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
