package blockcache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with cache-specific helpers.
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
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithPartitions adds a partitions field to the logger.
func (l *Logger) WithPartitions(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("partitions", n),
	}
}

// LogCorruption logs a value that failed verification and was force-deleted.
func (l *Logger) LogCorruption(ctx context.Context, key string, err error) {
	l.WarnContext(ctx, "corrupted cache entry evicted",
		"key", key,
		"error", err,
	)
}

// LogRejected logs a value that could not be stored.
func (l *Logger) LogRejected(ctx context.Context, key string, size, blocks int) {
	l.DebugContext(ctx, "value rejected",
		"key", key,
		"size", size,
		"blocks", blocks,
	)
}

// LogEviction logs one eviction round.
func (l *Logger) LogEviction(ctx context.Context, candidates, evicted int) {
	l.DebugContext(ctx, "eviction round",
		"candidates", candidates,
		"evicted", evicted,
	)
}

// LogOpen logs the construction of a cache.
func (l *Logger) LogOpen(ctx context.Context, dir string, totalBlocks, blockSize int) {
	l.InfoContext(ctx, "cache opened",
		"dir", dir,
		"total_blocks", totalBlocks,
		"block_size", blockSize,
	)
}

// LogRecovery logs the result of rebuilding the index from partition files.
func (l *Logger) LogRecovery(ctx context.Context, r RecoveryReport, err error) {
	if err != nil {
		l.ErrorContext(ctx, "cache recovery failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "cache recovery completed",
		"entries", r.Entries,
		"dropped_chains", r.DroppedChains,
		"freed_blocks", r.FreedBlocks,
		"duration", r.Duration,
	)
}

// LogScrub logs a completed or aborted scrub pass.
func (l *Logger) LogScrub(ctx context.Context, r ScrubReport, elapsed time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "scrub aborted",
			"checked", r.Checked,
			"corrupt", r.Corrupt,
			"error", err,
		)
		return
	}
	level := slog.LevelInfo
	if r.Corrupt > 0 {
		level = slog.LevelWarn
	}
	l.Log(ctx, level, "scrub completed",
		"checked", r.Checked,
		"corrupt", r.Corrupt,
		"skipped", r.Skipped,
		"bytes", r.Bytes,
		"duration", elapsed,
	)
}
