package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HTTPClientConfig holds configuration for an instrumented HTTP client
type HTTPClientConfig struct {
	ServiceName string // external service, e.g. "ai-analysis"
	Timeout     time.Duration
}

// NewInstrumentedHTTPClient creates an HTTP client whose requests are traced
// and carry W3C trace headers
func NewInstrumentedHTTPClient(cfg HTTPClientConfig) *http.Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: otelhttp.NewTransport(
			http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return fmt.Sprintf("%s %s %s", cfg.ServiceName, r.Method, r.URL.Path)
			}),
			otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
		),
	}
}

// ExternalServiceCallAttrs holds attributes for external service calls
type ExternalServiceCallAttrs struct {
	Service        string
	Operation      string
	ResourceID     string
	RetryCount     int
	RetryableError bool
}

// TraceExternalCall creates a span for an external service call with standard attributes
func TraceExternalCall(ctx context.Context, attrs ExternalServiceCallAttrs) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("external-api").Start(ctx, fmt.Sprintf("%s.%s", attrs.Service, attrs.Operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("external.service", attrs.Service),
			attribute.String("external.operation", attrs.Operation),
		),
	)

	if attrs.ResourceID != "" {
		span.SetAttributes(attribute.String("external.resource_id", attrs.ResourceID))
	}
	if attrs.RetryCount > 0 {
		span.SetAttributes(attribute.Int("external.retry_count", attrs.RetryCount))
	}
	if attrs.RetryableError {
		span.SetAttributes(attribute.Bool("external.error.retryable", true))
	}

	return ctx, span
}

// RecordExternalCallError records error details in a span
func RecordExternalCallError(span trace.Span, err error, statusCode int) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	if statusCode > 0 {
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
		if statusCode >= 500 || statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests {
			span.SetAttributes(attribute.Bool("external.error.retryable", true))
		}
	}
}

// RecordExternalCallSuccess records success metrics in a span
func RecordExternalCallSuccess(span trace.Span, statusCode int, responseSizeBytes int64) {
	span.SetAttributes(attribute.Int("http.status_code", statusCode))
	if responseSizeBytes > 0 {
		span.SetAttributes(attribute.Int64("http.response.size_bytes", responseSizeBytes))
	}
	span.SetStatus(codes.Ok, "")
}
