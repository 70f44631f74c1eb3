package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// AuditEventType classifies conversation audit events.
type AuditEventType string

const (
	TurnStarted        AuditEventType = "turn_started"
	TurnCompleted      AuditEventType = "turn_completed"
	TurnFailed         AuditEventType = "turn_failed"
	GuardrailRejection AuditEventType = "guardrail_rejection"
	Delegation         AuditEventType = "delegation"
	ToolError          AuditEventType = "tool_error"
	UnknownSpecialist  AuditEventType = "unknown_specialist"
)

// AuditSeverity represents the severity level of an audit event.
type AuditSeverity string

const (
	SeverityDebug    AuditSeverity = "debug"
	SeverityInfo     AuditSeverity = "info"
	SeverityWarning  AuditSeverity = "warning"
	SeverityError    AuditSeverity = "error"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEvent is one structured entry in the conversation audit trail.
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	Severity  AuditSeverity          `json:"severity"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	UserID    string                 `json:"user_id,omitempty"`
	Manager   string                 `json:"manager,omitempty"`
	Target    string                 `json:"target,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
	SpanID    string                 `json:"span_id,omitempty"`
}

// NewAuditEvent creates an audit event stamped with the active span's
// trace context.
func NewAuditEvent(ctx context.Context, eventType AuditEventType, severity AuditSeverity, message string) *AuditEvent {
	event := &AuditEvent{
		EventType: eventType,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
	}

	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if spanContext.IsValid() {
		event.TraceID = spanContext.TraceID().String()
		event.SpanID = spanContext.SpanID().String()
	}

	return event
}

// AuditAdapter is the interface for audit log sinks.
type AuditAdapter interface {
	LogEvent(event *AuditEvent) error
}

// StructuredAuditAdapter writes audit events as JSON lines.
type StructuredAuditAdapter struct {
	Writer io.Writer
	mu     sync.Mutex
}

// NewStructuredAuditAdapter creates a JSON-lines adapter. A nil writer
// defaults to stdout.
func NewStructuredAuditAdapter(writer io.Writer) *StructuredAuditAdapter {
	if writer == nil {
		writer = os.Stdout
	}
	return &StructuredAuditAdapter{Writer: writer}
}

// LogEvent writes one event as a JSON line.
func (a *StructuredAuditAdapter) LogEvent(event *AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	_, err = fmt.Fprintln(a.Writer, string(data))
	return err
}

// FileAuditAdapter appends JSON-lines audit events to a file.
type FileAuditAdapter struct {
	FilePath string
	file     *os.File
	mu       sync.Mutex
}

// NewFileAuditAdapter opens (or creates) the audit log file.
func NewFileAuditAdapter(filePath string) (*FileAuditAdapter, error) {
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &FileAuditAdapter{FilePath: filePath, file: file}, nil
}

// LogEvent appends one event to the file.
func (a *FileAuditAdapter) LogEvent(event *AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	_, err = fmt.Fprintln(a.file, string(data))
	return err
}

// Close closes the underlying file.
func (a *FileAuditAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// AuditLogger fans audit events out to its adapters. Adapter failures
// are reported to stderr and never break the turn being audited.
type AuditLogger struct {
	adapters []AuditAdapter
	mu       sync.RWMutex
}

// NewAuditLogger creates an audit logger. With no adapters it writes
// JSON lines to stdout.
func NewAuditLogger(adapters ...AuditAdapter) *AuditLogger {
	if len(adapters) == 0 {
		adapters = []AuditAdapter{NewStructuredAuditAdapter(nil)}
	}
	return &AuditLogger{adapters: adapters}
}

// LogEvent sends the event to every adapter.
func (l *AuditLogger) LogEvent(event *AuditEvent) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, adapter := range l.adapters {
		if err := adapter.LogEvent(event); err != nil {
			fmt.Fprintf(os.Stderr, "audit adapter error: %v\n", err)
		}
	}
}

// LogGuardrailRejection records a turn vetoed before any remote call.
func (l *AuditLogger) LogGuardrailRejection(ctx context.Context, userID, guardrail, reason string) {
	event := NewAuditEvent(ctx, GuardrailRejection, SeverityWarning,
		fmt.Sprintf("Input rejected by %s: %s", guardrail, reason))
	event.UserID = userID
	event.Target = guardrail
	l.LogEvent(event)
}

// LogDelegation records one delegation from a manager to a specialist.
func (l *AuditLogger) LogDelegation(ctx context.Context, manager, specialist, task string) {
	event := NewAuditEvent(ctx, Delegation, SeverityInfo,
		fmt.Sprintf("%s delegated to %s", manager, specialist))
	event.Manager = manager
	event.Target = specialist
	event.Metadata["task"] = task
	l.LogEvent(event)
}

// LogUnknownSpecialist records a delegation to a name outside the roster.
func (l *AuditLogger) LogUnknownSpecialist(ctx context.Context, manager, requested string) {
	event := NewAuditEvent(ctx, UnknownSpecialist, SeverityWarning,
		fmt.Sprintf("%s requested unknown specialist %q", manager, requested))
	event.Manager = manager
	event.Target = requested
	l.LogEvent(event)
}

// LogToolError records a tool execution that degraded to error text.
func (l *AuditLogger) LogToolError(ctx context.Context, tool, result string) {
	event := NewAuditEvent(ctx, ToolError, SeverityWarning,
		fmt.Sprintf("Tool %s produced an error result", tool))
	event.Target = tool
	event.Metadata["result"] = result
	l.LogEvent(event)
}

// LogTurnCompleted records a finished turn and its shape.
func (l *AuditLogger) LogTurnCompleted(ctx context.Context, manager, userID string, iterations, delegations int, duration time.Duration) {
	event := NewAuditEvent(ctx, TurnCompleted, SeverityInfo,
		fmt.Sprintf("Turn completed after %d model round trips", iterations))
	event.Manager = manager
	event.UserID = userID
	event.Metadata["iterations"] = iterations
	event.Metadata["delegations"] = delegations
	event.Metadata["duration_ms"] = duration.Milliseconds()
	l.LogEvent(event)
}

// LogTurnFailed records a turn aborted by a transport failure.
func (l *AuditLogger) LogTurnFailed(ctx context.Context, manager, userID string, err error) {
	event := NewAuditEvent(ctx, TurnFailed, SeverityError,
		fmt.Sprintf("Turn failed: %v", err))
	event.Manager = manager
	event.UserID = userID
	l.LogEvent(event)
}
