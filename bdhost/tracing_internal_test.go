package bdhost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx/fxtest"
)

func TestNewExporter(t *testing.T) {
	exp, err := newExporter("stdout")
	require.NoError(t, err)
	require.NotNil(t, exp)

	exp, err = newExporter("none")
	require.NoError(t, err)
	require.Nil(t, exp)

	_, err = newExporter("jaeger")
	require.ErrorContains(t, err, `unsupported BD_OTEL_EXPORTER: "jaeger"`)
}

func TestNewTracerProvider(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	tp, err := NewTracerProvider(lc, BaseEnvironment{ServiceName: "svc", OtelExporter: "none"})
	require.NoError(t, err)
	require.IsType(t, noop.TracerProvider{}, tp)

	tp, err = NewTracerProvider(lc, BaseEnvironment{ServiceName: "svc", OtelExporter: "stdout"})
	require.NoError(t, err)
	require.IsType(t, &sdktrace.TracerProvider{}, tp)

	lc.RequireStart().RequireStop()
}

func TestWithTracing(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var sawSpan bool

	handler := withTracing(tp, propagation.TraceContext{}, "svc", "/health")(
		http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			sawSpan = Span(r.Context()).SpanContext().IsValid()
		}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.False(t, sawSpan)
	require.Empty(t, exp.GetSpans())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/items", nil))
	require.True(t, sawSpan)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "POST /items", spans[0].Name)
}
