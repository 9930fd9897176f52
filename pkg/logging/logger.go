package logging

import (
	"io"
	"log/slog"
)

// Logger wraps slog.Logger with component helpers.
type Logger struct {
	*slog.Logger
	config Config
}

// New creates a Logger with the given configuration.
func New(config Config) *Logger {
	return NewWithWriter(config, config.GetOutput())
}

// NewWithWriter creates a Logger writing to w. Used by tests to capture
// output.
func NewWithWriter(config Config, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(config.Level),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		config: config,
	}
}

// Component returns a logger tagged with a component name.
func (l *Logger) Component(name string) *slog.Logger {
	return l.With(slog.String("component", name))
}

// SetAsDefault installs this logger as the process-wide slog default.
func (l *Logger) SetAsDefault() {
	slog.SetDefault(l.Logger)
}
