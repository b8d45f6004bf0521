package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestIDsFromEmptyContext(t *testing.T) {
	if id := TraceIDFromContext(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
	if id := SpanIDFromContext(context.Background()); id != "" {
		t.Errorf("expected empty span id, got %q", id)
	}
}

func TestHTTPMiddlewareRecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	var traceID, spanID string
	handler := HTTPMiddleware("creepyparser")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = TraceIDFromContext(r.Context())
		spanID = SpanIDFromContext(r.Context())
		SetSpanAttributes(r.Context(), attribute.String("test.key", "value"))
		w.WriteHeader(http.StatusNoContent)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "GET /health" {
		t.Errorf("unexpected span name %q", spans[0].Name)
	}
	if traceID != spans[0].SpanContext.TraceID().String() {
		t.Errorf("trace id mismatch: %s vs %s", traceID, spans[0].SpanContext.TraceID())
	}
	if spanID == "" {
		t.Error("expected span id inside handler")
	}

	found := false
	for _, kv := range spans[0].Attributes {
		if kv.Key == "test.key" && kv.Value.AsString() == "value" {
			found = true
		}
	}
	if !found {
		t.Error("custom attribute not recorded")
	}
}

func TestInitTracerWithoutEndpoint(t *testing.T) {
	t.Setenv(EndpointEnv, "")
	tp, err := InitTracer("creepyparser-test")
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	defer func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(noop.NewTracerProvider())
	}()

	_, span := otel.Tracer("test").Start(context.Background(), "startup-check")
	defer span.End()
	if !span.SpanContext().IsValid() {
		t.Error("expected a valid span from the installed provider")
	}
}
