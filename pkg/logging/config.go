// Package logging provides structured logging for the automation service.
package logging

import (
	"io"
	"os"
	"strings"

	"log/slog"
)

// Config holds the logging configuration.
type Config struct {
	// Level sets the minimum log level: debug, info, warn, error
	Level string

	// Format specifies the output format: json or text
	Format string

	// Output specifies the output destination: stdout, stderr, or a file path
	Output string

	// AddSource adds source file and line number to log entries
	AddSource bool
}

// DefaultConfig returns sensible defaults for logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// ParseLevel converts a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
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

// GetOutput resolves the configured output to a writer. Unknown file paths
// fall back to stdout rather than failing startup.
func (c Config) GetOutput() io.Writer {
	switch c.Output {
	case "stdout", "":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		f, err := os.OpenFile(c.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return os.Stdout
		}
		return f
	}
}
