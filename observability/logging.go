// Package observability provides logging, tracing, metrics and audit
// support for troupe deployments.
//
// Logging is structured JSON over log/slog with OpenTelemetry trace
// correlation; tracing and metrics export through the OTel SDK.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// TraceContextHandler is a slog.Handler that stamps records with the
// active span's trace and span IDs so logs can be joined with traces.
type TraceContextHandler struct {
	handler slog.Handler
}

// NewTraceContextHandler wraps a handler with trace correlation.
func NewTraceContextHandler(handler slog.Handler) *TraceContextHandler {
	return &TraceContextHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (h *TraceContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle adds trace context and passes to the underlying handler.
func (h *TraceContextHandler) Handle(ctx context.Context, record slog.Record) error {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if spanContext.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", spanContext.TraceID().String()),
			slog.String("span_id", spanContext.SpanID().String()),
		)
	}
	return h.handler.Handle(ctx, record)
}

// WithAttrs returns a new handler with additional attributes.
func (h *TraceContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceContextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a new handler with the given group.
func (h *TraceContextHandler) WithGroup(name string) slog.Handler {
	return &TraceContextHandler{handler: h.handler.WithGroup(name)}
}

// LogConfig controls logger construction.
type LogConfig struct {
	// Level is the minimum level to emit (default slog.LevelInfo).
	Level slog.Level

	// JSON selects JSON output; false selects the text handler.
	JSON bool

	// TraceContext enables trace/span ID stamping.
	TraceContext bool

	// Output is the destination writer (default os.Stdout).
	Output io.Writer
}

// NewLogger builds a component logger. The component name appears on
// every record so multi-agent logs can be filtered per part.
//
// Example:
//
//	logger := observability.NewLogger("orchestrator", observability.LogConfig{
//	    JSON:         true,
//	    TraceContext: true,
//	})
//	logger.Info("delegating", "specialist", "weather_reporter")
func NewLogger(component string, cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	if cfg.TraceContext {
		handler = NewTraceContextHandler(handler)
	}

	return slog.New(handler).With("component", component)
}

// ConfigureLogging installs a process-wide default logger.
func ConfigureLogging(cfg LogConfig) {
	slog.SetDefault(NewLogger("troupe", cfg))
}
