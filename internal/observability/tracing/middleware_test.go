package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// installRecorder swaps in a provider that records spans synchronously.
func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := NewProvider("research-notify-test", 1, sdktrace.WithSyncer(exporter))
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	shutdown := Install(tp)
	t.Cleanup(func() {
		_ = shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return exporter
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	Middleware(handler).ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_RecordsSpan(t *testing.T) {
	exporter := installRecorder(t)

	rr := serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), httptest.NewRequest(http.MethodGet, "/health/channels", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /health/channels", span.Name)
	assert.Equal(t, codes.Unset, span.Status.Code)

	attrs := map[string]any{}
	for _, kv := range span.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, int64(200), attrs["http.status_code"])
	assert.Equal(t, "GET", attrs["http.method"])
	assert.Equal(t, "/health/channels", attrs["http.path"])

	traceID := rr.Header().Get("X-Trace-Id")
	assert.Len(t, traceID, 32)
	assert.Equal(t, span.SpanContext.TraceID().String(), traceID)
}

func TestMiddleware_JoinsIncomingTrace(t *testing.T) {
	exporter := installRecorder(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent.SpanID().String())
}

func TestMiddleware_ServerErrorStatus(t *testing.T) {
	exporter := installRecorder(t)

	for _, code := range []int{http.StatusNotFound, http.StatusServiceUnavailable} {
		serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	}

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Unset, spans[0].Status.Code, "4xx is not a server fault")
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "Service Unavailable", spans[1].Status.Description)
}

func TestRecordError(t *testing.T) {
	exporter := installRecorder(t)

	_, span := GetTracer().Start(context.Background(), "notify.fire")
	RecordError(span, nil)
	RecordError(span, errors.New("smtp 421: try later"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "smtp 421: try later", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestNewProvider_Sampling(t *testing.T) {
	tp := NewProvider("svc", 0.5)
	defer func() { _ = tp.Shutdown(context.Background()) }()
	assert.NotNil(t, tp.Tracer("x"))
}

func TestInstall_SetsPropagator(t *testing.T) {
	installRecorder(t)
	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
	assert.Contains(t, fields, "baggage")
}
