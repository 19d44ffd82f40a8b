package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return sr
}

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), nil, "", "okrboard", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartEnd(t *testing.T) {
	sr := recordSpans(t)

	_, span := Start(context.Background(), "ok", attribute.String("tenant.id", "t1"))
	End(span, nil)
	_, span = Start(context.Background(), "failed")
	End(span, errors.New("connection reset"))

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ok", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("tenant.id", "t1"))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "connection reset", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
}
