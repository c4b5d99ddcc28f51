package logger

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// New returns a development logger for the "dev" env and a production JSON logger otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "dev" || env == "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// AddFields adds fields to the logger in context and returns the new context.
func AddFields(ctx context.Context, fields ...zap.Field) context.Context {
	l := ctxzap.Extract(ctx)
	return ctxzap.ToContext(ctx, l.With(fields...))
}

// WithAction tags the context logger with the flow being executed.
func WithAction(ctx context.Context, action string) context.Context {
	return AddFields(ctx, zap.String("action", action))
}

// Detach copies the request logger onto a background context for work that outlives the request.
func Detach(ctx context.Context) context.Context {
	return ctxzap.ToContext(context.Background(), ctxzap.Extract(ctx))
}
