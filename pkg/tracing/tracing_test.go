package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Enabled {
		t.Error("tracing should be disabled by default")
	}
	if cfg.ServiceName != "roomrelay" {
		t.Errorf("expected service name 'roomrelay', got '%s'", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected sample rate 1.0, got %f", cfg.SampleRate)
	}
}

func TestInitDisabled(t *testing.T) {
	tp, err := Init(DefaultConfig())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestTraceRelayEvent(t *testing.T) {
	recorder := useRecorder(t)

	_, span := TraceRelayEvent(context.Background(), "join room", "conn-1")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "relay.join room" {
		t.Errorf("unexpected span name %q", spans[0].Name())
	}

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	if attrs["relay.event"] != "join room" || attrs["relay.connection_id"] != "conn-1" {
		t.Errorf("unexpected attributes %v", attrs)
	}
}

func TestRecordError(t *testing.T) {
	recorder := useRecorder(t)

	ctx, span := StartSpan(context.Background(), "test")
	RecordError(ctx, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status().Code)
	}
	if spans[0].Status().Description != "boom" {
		t.Errorf("unexpected status description %q", spans[0].Status().Description)
	}
}

func TestTraceHTTPRequest(t *testing.T) {
	recorder := useRecorder(t)

	_, span := TraceHTTPRequest(context.Background(), "GET", "/api/v1/rooms/:id")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "http.GET" {
		t.Fatalf("unexpected spans %v", spans)
	}
}
