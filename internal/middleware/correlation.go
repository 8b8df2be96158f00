package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CorrelationMiddleware propagates X-Correlation-ID, falling back to the
// request ID, and stores it in trace baggage so background work queued by
// the request (notifications, search indexing) keeps it.
// Must run after RequestIDMiddleware.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = c.GetString("request_id")
		}

		c.Set("correlation_id", correlationID)
		c.Header("X-Correlation-ID", correlationID)

		if correlationID != "" {
			span := trace.SpanFromContext(c.Request.Context())
			if span.IsRecording() {
				span.SetAttributes(attribute.String("trace.correlation_id", correlationID))
			}
			if member, err := baggage.NewMember("correlation_id", correlationID); err == nil {
				if b, err := baggage.New(member); err == nil {
					c.Request = c.Request.WithContext(baggage.ContextWithBaggage(c.Request.Context(), b))
				}
			}
		}

		c.Next()
	}
}

// SpanEnrichmentMiddleware adds user, route and outcome attributes to the
// request span once the handler has run.
func SpanEnrichmentMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		if userID := c.GetString("user_id"); userID != "" {
			span.SetAttributes(attribute.String("user.id", userID))
		}
		if clientID := c.GetString("client_id"); clientID != "" {
			span.SetAttributes(attribute.String("client.id", clientID))
		}
		for _, param := range []string{"date", "day", "readingId", "id"} {
			if v := c.Param(param); v != "" {
				span.SetAttributes(attribute.String("route."+param, v))
			}
		}

		for _, ginErr := range c.Errors {
			if ginErr.Err != nil {
				span.RecordError(ginErr.Err, trace.WithStackTrace(true))
			}
		}

		statusCode := c.Writer.Status()
		switch {
		case statusCode >= 500:
			span.SetStatus(codes.Error, "server error")
		case statusCode >= 400 && statusCode != 404:
			span.SetStatus(codes.Error, "client error")
		}

		if size := c.Writer.Size(); size > 0 {
			span.SetAttributes(attribute.Int64("http.response.size_bytes", int64(size)))
		}
	}
}

// GetCorrelationIDFromContext extracts the correlation ID from baggage
func GetCorrelationIDFromContext(ctx context.Context) string {
	return baggage.FromContext(ctx).Member("correlation_id").Value()
}
