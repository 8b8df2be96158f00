package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// TraceElasticsearchCall creates a span for discussion index operations
func TraceElasticsearchCall(ctx context.Context, operation, index, query string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("elasticsearch").Start(ctx, "es."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("es.operation", operation),
			attribute.String("es.index", index),
		),
	)
	if query != "" {
		span.SetAttributes(attribute.String("es.query", truncate(query, 200)))
	}
	return ctx, span
}

// TraceS3Call creates a span for object storage operations
func TraceS3Call(ctx context.Context, operation, bucket, key string) (context.Context, trace.Span) {
	return otel.Tracer("s3").Start(ctx, "s3."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("s3.operation", operation),
			attribute.String("s3.bucket", bucket),
			attribute.String("s3.key", key),
		),
	)
}

// TraceSESCall creates a span for outgoing email
func TraceSESCall(ctx context.Context, template string) (context.Context, trace.Span) {
	return otel.Tracer("ses").Start(ctx, "ses.send_email",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("email.template", template)),
	)
}

// TraceCacheCall creates a span for Redis operations
func TraceCacheCall(ctx context.Context, operation, key string) (context.Context, trace.Span) {
	return otel.Tracer("cache").Start(ctx, "cache."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.operation", operation),
			attribute.String("cache.key", truncate(key, 120)),
		),
	)
}

// RecordServiceError records a service error in the current span
func RecordServiceError(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err, trace.WithStackTrace(true))
		span.SetAttributes(attribute.String("error.type", "service_error"))
	}
}

// RecordServiceSuccess marks a span successful with an optional result size
func RecordServiceSuccess(span trace.Span, itemCount int) {
	if itemCount > 0 {
		span.SetAttributes(attribute.Int("result.item_count", itemCount))
	}
	span.SetStatus(codes.Ok, "")
}

// SetUserContext tags a span with the acting user
func SetUserContext(span trace.Span, userID string) {
	if userID != "" {
		span.SetAttributes(attribute.String("user.id", userID))
	}
}
