package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

var globalMeterProvider *sdkmetric.MeterProvider

// InitMetrics initializes OpenTelemetry metrics with Prometheus export.
// The returned provider is also installed globally.
func InitMetrics(serviceName string) (*sdkmetric.MeterProvider, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	globalMeterProvider = provider
	return provider, nil
}

// GetMeter returns a meter from the current global meter provider.
func GetMeter(name string) metric.Meter {
	return otel.Meter(name)
}

// TurnMetrics records per-turn orchestration measurements: completed
// turns, delegations per specialist, guardrail rejections, textual tool
// errors and turn latency. A nil *TurnMetrics is a no-op receiver so
// callers never need to branch.
type TurnMetrics struct {
	turns               metric.Int64Counter
	delegations         metric.Int64Counter
	guardrailRejections metric.Int64Counter
	toolErrors          metric.Int64Counter
	turnDuration        metric.Float64Histogram
}

// NewTurnMetrics creates the orchestration instrument set.
func NewTurnMetrics() (*TurnMetrics, error) {
	meter := GetMeter("troupe.orchestrator")

	turns, err := meter.Int64Counter(
		"troupe.turns",
		metric.WithDescription("Completed conversation turns"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create turn counter: %w", err)
	}

	delegations, err := meter.Int64Counter(
		"troupe.delegations",
		metric.WithDescription("Specialist delegations issued by the model"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create delegation counter: %w", err)
	}

	guardrailRejections, err := meter.Int64Counter(
		"troupe.guardrail_rejections",
		metric.WithDescription("Turns rejected before any remote call"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guardrail counter: %w", err)
	}

	toolErrors, err := meter.Int64Counter(
		"troupe.tool_errors",
		metric.WithDescription("Tool executions that produced textual errors"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool error counter: %w", err)
	}

	turnDuration, err := meter.Float64Histogram(
		"troupe.turn_duration_seconds",
		metric.WithDescription("Wall-clock duration of a conversation turn"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create turn duration histogram: %w", err)
	}

	return &TurnMetrics{
		turns:               turns,
		delegations:         delegations,
		guardrailRejections: guardrailRejections,
		toolErrors:          toolErrors,
		turnDuration:        turnDuration,
	}, nil
}

// RecordTurn records a completed turn and its duration.
func (m *TurnMetrics) RecordTurn(ctx context.Context, manager string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("manager", manager))
	m.turns.Add(ctx, 1, attrs)
	m.turnDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordDelegation records one delegation to the named specialist.
func (m *TurnMetrics) RecordDelegation(ctx context.Context, specialist string) {
	if m == nil {
		return
	}
	m.delegations.Add(ctx, 1, metric.WithAttributes(attribute.String("specialist", specialist)))
}

// RecordGuardrailRejection records a turn vetoed by the named guardrail.
func (m *TurnMetrics) RecordGuardrailRejection(ctx context.Context, guardrail string) {
	if m == nil {
		return
	}
	m.guardrailRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("guardrail", guardrail)))
}

// RecordToolError records a tool execution that degraded to error text.
func (m *TurnMetrics) RecordToolError(ctx context.Context, tool string) {
	if m == nil {
		return
	}
	m.toolErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}
