package logger

import (
	"context"

	"go.uber.org/zap"
)

// ctxKey keys the logger stored in a context.
type ctxKey struct{}

// ToContext returns a context carrying l. The package helpers and every
// component downstream log through it from then on.
func ToContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the context's logger, or the global one when the
// context carries none.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok {
		return l
	}

	return global
}

// WithName appends a segment to the logger name. Each binary names its
// root context after itself ("dial-daemon", "dial-ctl"), nested
// components extend the name dot-separated.
func WithName(ctx context.Context, name string) context.Context {
	return ToContext(ctx, FromContext(ctx).Named(name))
}

// WithKV stamps a key-value pair on every line logged through the
// returned context.
func WithKV(ctx context.Context, key string, value any) context.Context {
	return ToContext(ctx, FromContext(ctx).With(key, value))
}

// WithFields stamps strongly typed fields on every line logged through
// the returned context.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return ToContext(ctx, FromContext(ctx).Desugar().With(fields...).Sugar())
}
