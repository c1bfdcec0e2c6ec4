package vektor

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with helpers for collection operations.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a logger backed by the given handler.
func NewLogger(handler slog.Handler) *Logger {
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a logger that writes JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a logger that writes text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a logger that discards everything.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // above every level in use
	}))
}

// LogInsert logs a single-vector insertion.
func (l *Logger) LogInsert(ctx context.Context, id string, node NodeID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	l.DebugContext(ctx, "insert",
		slog.String("id", id),
		slog.Uint64("node", uint64(node)),
	)
}

// LogBatchInsert logs a batch insertion.
func (l *Logger) LogBatchInsert(ctx context.Context, count int, bulk bool, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch insert failed",
			slog.Int("count", count),
			slog.String("error", err.Error()),
		)
		return
	}
	l.InfoContext(ctx, "batch insert",
		slog.Int("count", count),
		slog.Bool("bulk", bulk),
		slog.Duration("elapsed", elapsed),
	)
}

// LogSearch logs a query.
func (l *Logger) LogSearch(ctx context.Context, k, found int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			slog.Int("k", k),
			slog.String("error", err.Error()),
		)
		return
	}
	l.DebugContext(ctx, "search",
		slog.Int("k", k),
		slog.Int("found", found),
		slog.Duration("elapsed", elapsed),
	)
}

// LogMigration logs the flat-to-graph migration.
func (l *Logger) LogMigration(ctx context.Context, count int, elapsed time.Duration) {
	l.InfoContext(ctx, "migrated to graph index",
		slog.Int("count", count),
		slog.Duration("elapsed", elapsed),
	)
}

// LogBulkBuild logs a segmented bulk build.
func (l *Logger) LogBulkBuild(ctx context.Context, count, segments int, elapsed time.Duration) {
	l.InfoContext(ctx, "bulk build",
		slog.Int("count", count),
		slog.Int("segments", segments),
		slog.Duration("elapsed", elapsed),
	)
}
