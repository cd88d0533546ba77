package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/clanbot/internal/clan/domain"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return rec, tp
}

func attrValue(span sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestRun_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantOutcome string
		wantStatus  codes.Code
	}{
		{name: "success", err: nil, wantOutcome: OutcomeOK, wantStatus: codes.Ok},
		{name: "user rejection", err: &domain.Rejection{Field: "tag", Value: "WOLF"}, wantOutcome: OutcomeRejected, wantStatus: codes.Ok},
		{name: "wrapped user error", err: errors.Join(errors.New("ctx"), domain.ErrNotLeader), wantOutcome: OutcomeRejected, wantStatus: codes.Ok},
		{name: "external failure", err: &domain.ExternalCallError{Op: "create role", Err: errors.New("503")}, wantOutcome: OutcomeFailed, wantStatus: codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, tp := newRecorder(t)

			attrs := ClanAttrs("g1", "c1", "WOLF", "")
			err := Run(context.Background(), tp.Tracer("test"), SpanCreate, attrs, func(ctx context.Context) error {
				Event(ctx, EventRoleCreated, attribute.String("role", "r1"))
				require.NotEmpty(t, TraceID(ctx))
				return tt.err
			})
			require.Equal(t, tt.err, err)

			spans := rec.Ended()
			require.Len(t, spans, 1)
			span := spans[0]
			require.Equal(t, SpanCreate, span.Name())
			require.Equal(t, tt.wantStatus, span.Status().Code)
			require.Equal(t, tt.wantOutcome, attrValue(span, AttrOutcome))
			require.Equal(t, "g1", attrValue(span, AttrGuildID))
			require.Equal(t, "WOLF", attrValue(span, AttrClanTag))
			require.Equal(t, EventRoleCreated, span.Events()[0].Name)
		})
	}
}

func TestRun_NilTracer(t *testing.T) {
	called := false
	err := Run(context.Background(), nil, SpanJoin, nil, func(ctx context.Context) error {
		called = true
		require.Empty(t, TraceID(ctx))
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}

func TestClanAttrs_SkipsEmpty(t *testing.T) {
	require.Len(t, ClanAttrs("g", "", "", "u"), 2)
	require.Empty(t, ClanAttrs("", "", "", ""))
}
