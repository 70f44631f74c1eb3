package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func withTestMeterProvider(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	previous := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { otel.SetMeterProvider(previous) })
	return reader
}

func TestNewTurnMetrics(t *testing.T) {
	withTestMeterProvider(t)

	metrics, err := NewTurnMetrics()
	if err != nil {
		t.Fatalf("NewTurnMetrics: %v", err)
	}
	if metrics == nil {
		t.Fatal("expected instrument set")
	}
}

func TestTurnMetrics_RecordDoesNotPanic(t *testing.T) {
	withTestMeterProvider(t)

	metrics, err := NewTurnMetrics()
	if err != nil {
		t.Fatalf("NewTurnMetrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordTurn(ctx, "Concierge", 1200*time.Millisecond)
	metrics.RecordDelegation(ctx, "weather_reporter")
	metrics.RecordGuardrailRejection(ctx, "length")
	metrics.RecordToolError(ctx, "calculator")
}

func TestTurnMetrics_NilReceiverIsNoOp(t *testing.T) {
	var metrics *TurnMetrics

	ctx := context.Background()
	metrics.RecordTurn(ctx, "Concierge", time.Second)
	metrics.RecordDelegation(ctx, "math_tutor")
	metrics.RecordGuardrailRejection(ctx, "keywords")
	metrics.RecordToolError(ctx, "translator")
}
