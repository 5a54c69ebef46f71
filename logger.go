package vecforge

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vecforge-specific helpers so conversion and
// write operations log with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))}
}

// LogConvert logs a GPU to CPU conversion.
func (l *Logger) LogConvert(ctx context.Context, dtype DataType, count int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "conversion failed",
			"dtype", dtype.String(),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "conversion completed",
			"dtype", dtype.String(),
			"vectors", count,
		)
	}
}

// LogWrite logs an index file write.
func (l *Logger) LogWrite(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index write failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index written",
			"path", path,
		)
	}
}

// LogUpload logs an object-store upload.
func (l *Logger) LogUpload(ctx context.Context, key string, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upload failed",
			"key", key,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "upload completed",
			"key", key,
			"bytes", size,
		)
	}
}
