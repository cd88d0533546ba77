package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/clanbot/internal/clan/domain"
)

// Run executes fn inside a span named name. A user-facing error (a
// rejection the user can fix) ends the span OK with a rejected outcome;
// any other error marks the span as failed. A nil tracer runs fn bare.
func Run(ctx context.Context, tracer trace.Tracer, name string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	if tracer == nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	err := fn(ctx)
	Finish(span, err)
	return err
}

// Finish records err on span using the same classification as Run.
func Finish(span trace.Span, err error) {
	switch {
	case err == nil:
		span.SetAttributes(attribute.String(AttrOutcome, OutcomeOK))
		span.SetStatus(codes.Ok, "")
	case isUserFacing(err):
		span.SetAttributes(attribute.String(AttrOutcome, OutcomeRejected))
		span.AddEvent(EventRejected, trace.WithAttributes(attribute.String(AttrErrorType, fmt.Sprintf("%T", err))))
		span.SetStatus(codes.Ok, "")
	default:
		span.SetAttributes(
			attribute.String(AttrOutcome, OutcomeFailed),
			attribute.String(AttrErrorType, fmt.Sprintf("%T", err)),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func isUserFacing(err error) bool {
	_, ok := domain.UserMessage(err)
	return ok
}

// Event adds a named event to the span in ctx, if any.
func Event(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// TraceID returns the trace id of the span in ctx, or "" without one.
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// ClanAttrs is the common attribute set for lifecycle spans.
func ClanAttrs(guildID, clanID, tag, actorID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if guildID != "" {
		attrs = append(attrs, attribute.String(AttrGuildID, guildID))
	}
	if clanID != "" {
		attrs = append(attrs, attribute.String(AttrClanID, clanID))
	}
	if tag != "" {
		attrs = append(attrs, attribute.String(AttrClanTag, tag))
	}
	if actorID != "" {
		attrs = append(attrs, attribute.String(AttrActorID, actorID))
	}
	return attrs
}
