// Package ctxlog threads a slog.Logger through context.Context so request
// handlers, workers and loaders can log without carrying a logger field.
package ctxlog

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithLogger embeds logger in the returned context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger embedded in ctx, falling back to the
// process default when none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// With returns a context whose logger carries the extra key/value attrs.
// Useful for scoping a worker or run id over a whole call tree.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}
