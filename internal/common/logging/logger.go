// Package logging provides structured logging using zap
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
)

// NewDefaultLogger creates a logger with default configuration using zap
func NewDefaultLogger() Logger {
	logger, err := NewZapLogger(DefaultLogConfig())
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default zap logger: %v", err))
	}
	return logger
}

// Options are the settings InitGlobalLogger reads, usually from config
type Options struct {
	Level  string
	Format string
	File   string
}

// InitGlobalLogger initializes the global logger. An empty File logs to stdout.
// The returned closer releases the log file, if one was opened.
func InitGlobalLogger(opts Options) (io.Closer, error) {
	level := ParseLevel(opts.Level)

	var (
		output io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		output = file
		closer = file
	}

	logger, err := NewZapLogger(LogConfig{
		Level:  level,
		Format: ParseFormat(opts.Format),
		Output: output,
	})
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	SetGlobalLogger(logger)

	logger.Info("Logger initialized",
		String("level", level.String()),
		String("format", string(ParseFormat(opts.Format))),
		String("log_file", opts.File),
	)

	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// MustSync flushes any buffered log entries for zap loggers
// This should be called before application exit
func MustSync() {
	logger := GetGlobalLogger()
	if zapLogger, ok := logger.(*ZapAdapter); ok {
		_ = zapLogger.Sync()
	}
}

// WithContext is a convenience function to add context to the global logger
func WithContext(ctx context.Context) Logger {
	return GetGlobalLogger().WithContext(ctx)
}

// WithFields is a convenience function to add fields to the global logger
func WithFields(fields ...Field) Logger {
	return GetGlobalLogger().WithFields(fields...)
}

// Err creates an error field with key "error"
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}
