package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func spanContext() trace.SpanContext {
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03},
		SpanID:     trace.SpanID{0x0a, 0x0b},
		TraceFlags: trace.FlagsSampled,
	})
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}

func TestWithRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ctx, l := WithRequestID(context.Background(), zap.New(core), "req-123")
	l.Info("handled")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Equal(t, "req-123", recorded.All()[0].ContextMap()["request_id"])
	assert.Same(t, l, FromContext(ctx))
}

func TestWithEvent(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ctx, _ := WithEvent(context.Background(), zap.New(core), "evt-1", "product.created")
	L(ctx).Info("syncing")

	assert.Equal(t, "evt-1", GetEventID(ctx))
	assert.Equal(t, "product.created", GetEventType(ctx))
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.Equal(t, "product.created", fields["event_type"])
}

func TestGetters_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetEventID(ctx))
	assert.Empty(t, GetEventType(ctx))
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
}

func TestTraceIDs(t *testing.T) {
	sc := spanContext()
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	assert.Equal(t, sc.TraceID().String(), GetTraceID(ctx))
	assert.Equal(t, sc.SpanID().String(), GetSpanID(ctx))
}

func TestContextLogger_InjectsTrace(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	sc := spanContext()
	ctx := trace.ContextWithSpanContext(WithContext(context.Background(), zap.New(core)), sc)

	L(ctx).With(zap.String("entity", "variant")).Warn("slow cms call")

	entry := recorded.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, sc.TraceID().String(), fields["trace_id"])
	assert.Equal(t, sc.SpanID().String(), fields["span_id"])
	assert.Equal(t, "variant", fields["entity"])
}

func TestContextLogger_NoSpanNoTraceFields(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)

	WithLogger(context.Background(), zap.New(core)).Info("plain")

	_, ok := recorded.All()[0].ContextMap()["trace_id"]
	assert.False(t, ok)
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}
	assert.NotPanics(t, func() { cl.Info("nothing") })
	assert.NotNil(t, cl.Zap())
}
