package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.ServiceName != "gptwork" {
		t.Fatalf("expected service name 'gptwork', got %s", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Fatalf("expected sample rate 1.0, got %f", cfg.SampleRate)
	}
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, &TracingConfig{
		ServiceName: "test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	// Should be no-op, shutdown should succeed
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitTracing_NilConfig(t *testing.T) {
	tp, err := InitTracing(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
}

func TestSamplerFor(t *testing.T) {
	if got := samplerFor(1).Description(); got != sdktrace.AlwaysSample().Description() {
		t.Errorf("rate 1: got %s", got)
	}
	if got := samplerFor(0).Description(); got != sdktrace.NeverSample().Description() {
		t.Errorf("rate 0: got %s", got)
	}
	if got := samplerFor(0.5).Description(); got != sdktrace.TraceIDRatioBased(0.5).Description() {
		t.Errorf("rate 0.5: got %s", got)
	}
}

// withRecorder installs an in-memory span recorder as the global provider.
func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestChatSpanParentsLLMSpan(t *testing.T) {
	rec := withRecorder(t)

	ctx, chat := StartChatSpan(context.Background(), "gpt-4o-mini")
	_, llmSpan := StartLLMSpan(ctx, "openai", "gpt-4o-mini")
	RecordLLMMetrics(llmSpan, 10, 5, 20*time.Millisecond)
	llmSpan.End()
	RecordHTTPStatus(chat, 502)
	chat.End()

	ended := rec.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(ended))
	}
	if ended[0].Name() != "llm.complete" || ended[1].Name() != "proxy.chat" {
		t.Fatalf("unexpected span names %s, %s", ended[0].Name(), ended[1].Name())
	}
	if ended[0].Parent().SpanID() != ended[1].SpanContext().SpanID() {
		t.Fatal("llm span should be a child of the chat span")
	}
	if ended[1].Status().Code != codes.Error {
		t.Fatalf("expected error status on 502, got %v", ended[1].Status().Code)
	}
}

func TestRecordError(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartRunSpan(context.Background(), "field-1", "gpt-4o")
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	if ended[0].Status().Code != codes.Error || ended[0].Status().Description != "boom" {
		t.Fatalf("unexpected status %+v", ended[0].Status())
	}
}
