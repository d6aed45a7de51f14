// Package logging provides JSON-lines structured logging for habitd.
// Log lines look like:
//
//	{"ts":"2026-08-29T10:30:00Z","level":"info","msg":"analysis complete","patterns":8}
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Config configures the structured logger.
type Config struct {
	// Output is the writer for log output (default: os.Stderr).
	Output io.Writer

	// Level is the minimum log level (default: LevelInfo).
	Level slog.Level

	// Debug enables debug level logging (overrides Level).
	Debug bool
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: os.Stderr,
		Level:  slog.LevelInfo,
	}
}

// New creates a new JSON-lines structured logger.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	level := cfg.Level
	if cfg.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	}

	return slog.New(slog.NewJSONHandler(output, opts))
}

// NewFromEnv creates a logger configured from environment variables.
// HABITD_DEBUG=1 enables debug logging.
func NewFromEnv() *slog.Logger {
	cfg := DefaultConfig()
	if os.Getenv("HABITD_DEBUG") == "1" {
		cfg.Debug = true
	}
	return New(cfg)
}
