package tracing

import (
	"bytes"
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

func TestInitDisabledIsNoop(t *testing.T) {
	t.Parallel()

	shutdown, err := Init(context.Background(), Config{}, nil)
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{
		Enabled:     true,
		ServiceName: "tier-engine-test",
		SampleRatio: 1,
		Writer:      &buf,
	}, nil)
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}

	_, span := otelTracer().Start(context.Background(), "tier.recompute")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("tier.recompute")) {
		t.Fatalf("expected exported span, got %q", buf.String())
	}
}

func otelTracer() trace.Tracer {
	return otel.Tracer("tracing_test")
}
