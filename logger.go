package vptree

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vptree-specific context.
// This provides structured logging with consistent field names.
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
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogRebuild logs a rebuild operation.
func (l *Logger) LogRebuild(ctx context.Context, itemCount int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "rebuild failed",
			"items", itemCount,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "rebuild completed",
			"items", itemCount,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, op string, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"op", op,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"op", op,
			"results", resultsFound,
		)
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, count int) {
	l.DebugContext(ctx, "insert completed",
		"count", count,
	)
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(ctx context.Context, removed bool) {
	l.DebugContext(ctx, "remove completed",
		"removed", removed,
	)
}
