package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BusinessEvents traces domain operations above the HTTP and DB layers,
// such as a reader finishing a passage or a discussion being created
type BusinessEvents struct {
	tracer trace.Tracer
}

// NewBusinessEvents creates a new business events tracer
func NewBusinessEvents() *BusinessEvents {
	return &BusinessEvents{
		tracer: otel.Tracer("business-events"),
	}
}

// TraceReadingCompleted spans a progress toggle
func (be *BusinessEvents) TraceReadingCompleted(ctx context.Context, userID, planDate string, readingID int, completed bool) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "reading.set_completion",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("plan.date", planDate),
			attribute.Int("plan.reading_id", readingID),
			attribute.Bool("reading.completed", completed),
		),
	)
}

// TraceDiscussionCreated spans discussion creation
func (be *BusinessEvents) TraceDiscussionCreated(ctx context.Context, userID, categoryID string) (context.Context, trace.Span) {
	ctx, span := be.tracer.Start(ctx, "community.create_discussion",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	if categoryID != "" {
		span.SetAttributes(attribute.String("community.category_id", categoryID))
	}
	return ctx, span
}

// TraceCommentCreated spans comment creation
func (be *BusinessEvents) TraceCommentCreated(ctx context.Context, discussionID string, isReply bool) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "community.create_comment",
		trace.WithAttributes(
			attribute.String("community.discussion_id", discussionID),
			attribute.Bool("community.is_reply", isReply),
		),
	)
}

// TraceToggle spans like and bookmark toggles
func (be *BusinessEvents) TraceToggle(ctx context.Context, kind, targetID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "community.toggle_"+kind,
		trace.WithAttributes(attribute.String("community.target_id", targetID)),
	)
}

// TraceAnalysisGenerated spans a passage or verse analysis
func (be *BusinessEvents) TraceAnalysisGenerated(ctx context.Context, analysisType, source string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "analysis.generate",
		trace.WithAttributes(
			attribute.String("analysis.type", analysisType),
			attribute.String("analysis.source", source),
		),
	)
}

// TraceNotificationDelivery spans one delivery attempt
func (be *BusinessEvents) TraceNotificationDelivery(ctx context.Context, notificationID, notificationType string, attempt int) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "notification.deliver",
		trace.WithAttributes(
			attribute.String("notification.id", notificationID),
			attribute.String("notification.type", notificationType),
			attribute.Int("notification.attempt", attempt),
		),
	)
}

// TraceSchedulerRun spans a scheduled batch
func (be *BusinessEvents) TraceSchedulerRun(ctx context.Context, job string, planDay int) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "scheduler."+job,
		trace.WithAttributes(attribute.Int("plan.day", planDay)),
	)
}

var (
	globalBusinessEvents *BusinessEvents
	businessEventsOnce   sync.Once
)

// GetBusinessEvents returns the global business events tracer
func GetBusinessEvents() *BusinessEvents {
	businessEventsOnce.Do(func() {
		globalBusinessEvents = NewBusinessEvents()
	})
	return globalBusinessEvents
}
