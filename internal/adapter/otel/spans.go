package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "dispatchd"

// StartCycleSpan starts a span for one orchestration cycle.
func StartCycleSpan(ctx context.Context, trigger string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "cycle",
		trace.WithAttributes(
			attribute.String("cycle.trigger", trigger),
		),
	)
}

// StartDispatchSpan starts a span for dispatching a single task.
func StartDispatchSpan(ctx context.Context, taskID, agentSlug string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("agent.slug", agentSlug),
		),
	)
}

// StartRegistrySpan starts a span for a task registry call.
func StartRegistrySpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "registry."+operation)
}
