package proximity

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/proximity/model"
)

// Logger wraps slog.Logger with cache-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithID adds an entry ID field to the logger.
func (l *Logger) WithID(id model.EntryID) *Logger {
	return &Logger{
		Logger: l.Logger.With("entry_id", uint64(id)),
	}
}

// LogAnswer logs the outcome of a single lookup.
func (l *Logger) LogAnswer(ctx context.Context, hit bool, id model.EntryID, latency time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "answer failed",
			"hit", hit,
			"latency", latency,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "answer completed",
		"hit", hit,
		"entry_id", uint64(id),
		"latency", latency,
	)
}

// LogEviction logs the removal of an entry.
func (l *Logger) LogEviction(ctx context.Context, id model.EntryID, reason RemovalReason) {
	l.DebugContext(ctx, "entry removed",
		"entry_id", uint64(id),
		"reason", string(reason),
	)
}

// LogInvalidate logs an invalidation request.
func (l *Logger) LogInvalidate(ctx context.Context, scope string, removed int) {
	l.InfoContext(ctx, "invalidation applied",
		"scope", scope,
		"removed", removed,
	)
}

// LogExpire logs a confidence sweep.
func (l *Logger) LogExpire(ctx context.Context, expired, remaining int) {
	if expired == 0 {
		return
	}
	l.InfoContext(ctx, "expired entries swept",
		"expired", expired,
		"remaining", remaining,
	)
}

// LogFault logs the transition into the faulted state.
func (l *Logger) LogFault(ctx context.Context, err error) {
	l.ErrorContext(ctx, "cache faulted",
		"error", err,
	)
}
