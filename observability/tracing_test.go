package observability

import (
	"context"
	"testing"
)

func TestInitTracing_ConsoleOnly(t *testing.T) {
	tp, err := InitTracing("troupe-test", "", true)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if tp == nil {
		t.Fatal("expected tracer provider")
	}
	t.Cleanup(func() { _ = Shutdown(context.Background()) })

	tracer := GetTracer("troupe.test")
	_, span := tracer.Start(context.Background(), "turn")
	span.End()
}

func TestShutdown_WithoutInit(t *testing.T) {
	globalTracerProvider = nil
	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown without init must be a no-op, got %v", err)
	}
}
