// Package logger provides a standardized logging approach for walletsync
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger levels
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

type contextKey struct{}

// New creates a new structured logger with the given options
func New(opts ...Option) *slog.Logger {
	config := defaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	handlerOpts := &slog.HandlerOptions{
		Level: config.level,
	}

	var handler slog.Handler
	if config.text {
		handler = slog.NewTextHandler(config.output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(config.output, handlerOpts)
	}

	return slog.New(handler)
}

// Config holds the logger configuration
type config struct {
	level  slog.Level
	output io.Writer
	text   bool
}

func defaultConfig() *config {
	return &config{
		level:  LevelInfo,
		output: os.Stdout,
	}
}

// Option configures the logger
type Option func(*config)

// WithLevel sets the minimum log level
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithOutput sets the output writer
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.output = w
	}
}

// WithText switches to the human readable key=value handler
func WithText() Option {
	return func(c *config) {
		c.text = true
	}
}

// ParseLevel maps a LOG_LEVEL style string to a level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// WithContext returns a copy of ctx carrying logger
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default()
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}
