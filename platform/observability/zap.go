package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TraceID возвращает trace_id активного span; пустая строка, если span нет
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// TraceFields возвращает поля для корреляции логов с трейсом или nil
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
		zap.Bool("trace_sampled", sc.IsSampled()),
	}
}

// L добавляет к base trace поля из ctx: observability.L(ctx, logger).Info(...)
func L(ctx context.Context, base *zap.Logger) *zap.Logger {
	if fields := TraceFields(ctx); len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}
