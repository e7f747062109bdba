package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey uint

const ctxKeyFields ctxKey = iota

// CtxWithFields returns a context carrying the given fields in addition to the ones already there.
func CtxWithFields(ctx context.Context, fields ...zap.Field) context.Context {
	existing := CtxGetFields(ctx)
	merged := make([]zap.Field, 0, len(existing)+len(fields))
	merged = append(merged, existing...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, ctxKeyFields, merged)
}

func CtxGetFields(ctx context.Context) (fields []zap.Field) {
	if v, ok := ctx.Value(ctxKeyFields).([]zap.Field); ok {
		return v
	}
	return
}

type CtxLogger struct {
	*zap.Logger
	name string
}

func (cl CtxLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	cl.Logger.Debug(msg, append(CtxGetFields(ctx), fields...)...)
}

func (cl CtxLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	cl.Logger.Info(msg, append(CtxGetFields(ctx), fields...)...)
}

func (cl CtxLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	cl.Logger.Warn(msg, append(CtxGetFields(ctx), fields...)...)
}

func (cl CtxLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	cl.Logger.Error(msg, append(CtxGetFields(ctx), fields...)...)
}

func (cl CtxLogger) With(fields ...zap.Field) CtxLogger {
	return CtxLogger{cl.Logger.With(fields...), cl.name}
}

func (cl CtxLogger) Name() string {
	return cl.name
}
