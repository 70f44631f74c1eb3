// Package orchestrator drives conversations between users, a remote
// chat-completion model and a roster of specialist agents.
//
// Two orchestrators are provided. Manager runs a bounded delegation
// loop: it exposes specialists as callable functions, dispatches the
// tool calls the model issues, feeds results back and repeats until the
// model answers in plain text or the iteration cap is hit. Assistant is
// the single round-trip variant for direct tool use without a loop.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/troupehq/troupe/adapter/llm"
	"github.com/troupehq/troupe/agent"
	"github.com/troupehq/troupe/observability"
	"github.com/troupehq/troupe/troupe"
)

// DefaultMaxIterations caps the delegation loop. Each iteration is one
// model round trip; the cap keeps a confused model from looping
// indefinitely at the caller's expense.
const DefaultMaxIterations = 5

// NoResult is the sentinel returned when a turn produced neither text
// nor a usable tool result.
const NoResult = "No result generated."

// Turn is the outcome of one conversation turn.
type Turn struct {
	// Output is the user-visible reply.
	Output string

	// Log holds the messages appended this turn, in order: the user
	// message, assistant messages and tool results. Callers persist it
	// as thread history.
	Log []troupe.Message

	// Iterations counts model round trips made this turn.
	Iterations int

	// Delegations counts specialist dispatches made this turn.
	Delegations int

	// Rejected is true when a guardrail vetoed the turn before any
	// remote call.
	Rejected bool
}

// Conversationalist is the contract shared by Manager and Assistant:
// given prior history and a user input, produce a turn.
type Conversationalist interface {
	Name() string
	Respond(ctx context.Context, history []troupe.Message, input string) (*Turn, error)
}

// ManagerConfig holds construction parameters for a Manager.
type ManagerConfig struct {
	// Name identifies the manager in logs and audit events.
	Name string

	// Role is the manager's instruction text. The specialist catalog is
	// appended to it automatically.
	Role string

	// Chat is the remote model client. Required.
	Chat llm.Chat

	// Roster holds the delegatable specialists. Required.
	Roster *agent.Roster

	// Guardrails vet user input before any remote call.
	Guardrails []troupe.Guardrail

	// MaxIterations caps model round trips per turn
	// (default DefaultMaxIterations).
	MaxIterations int

	// MaxTokens caps the completion length per model call; zero leaves
	// the provider default in place.
	MaxTokens int

	// Logger narrates the delegation loop (default slog.Default()).
	Logger *slog.Logger

	// Metrics, when set, records turn measurements.
	Metrics *observability.TurnMetrics

	// Audit, when set, receives the conversation audit trail.
	Audit *observability.AuditLogger
}

// Manager orchestrates a turn by looping model round trips and
// specialist dispatches until the model produces a plain-text answer.
type Manager struct {
	name          string
	role          string
	chat          llm.Chat
	roster        *agent.Roster
	guardrails    []troupe.Guardrail
	maxIterations int
	maxTokens     int
	logger        *slog.Logger
	metrics       *observability.TurnMetrics
	audit         *observability.AuditLogger
}

// NewManager creates a manager orchestrator.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Chat == nil {
		return nil, fmt.Errorf("manager requires a chat client")
	}
	if cfg.Roster == nil {
		return nil, fmt.Errorf("manager requires a roster")
	}
	if cfg.Name == "" {
		cfg.Name = "Manager"
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		name:          cfg.Name,
		role:          cfg.Role,
		chat:          cfg.Chat,
		roster:        cfg.Roster,
		guardrails:    cfg.Guardrails,
		maxIterations: cfg.MaxIterations,
		maxTokens:     cfg.MaxTokens,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		audit:         cfg.Audit,
	}, nil
}

// Name returns the manager's display name.
func (m *Manager) Name() string {
	return m.name
}

// Respond runs one conversation turn.
//
// A guardrail rejection returns a Turn carrying the rejection message
// with zero remote calls made. Transport failures are the only errors;
// every in-domain failure (unknown specialist, malformed arguments,
// tool errors) flows back to the model as a textual tool result.
func (m *Manager) Respond(ctx context.Context, history []troupe.Message, input string) (*Turn, error) {
	tracer := observability.GetTracer("troupe.orchestrator")
	ctx, span := tracer.Start(ctx, "manager.turn")
	defer span.End()
	span.SetAttributes(attribute.String("manager", m.name))

	started := time.Now()

	userMessage := troupe.NewMessage(troupe.RoleUser, input)

	for _, g := range m.guardrails {
		if verdict := g.Validate(input); !verdict.Valid {
			m.logger.WarnContext(ctx, "input rejected",
				"manager", m.name, "guardrail", g.Name())
			m.metrics.RecordGuardrailRejection(ctx, g.Name())
			if m.audit != nil {
				m.audit.LogGuardrailRejection(ctx, "", g.Name(), verdict.Message)
			}
			span.SetAttributes(attribute.Bool("rejected", true))
			return &Turn{
				Output:   verdict.Message,
				Log:      []troupe.Message{userMessage},
				Rejected: true,
			}, nil
		}
	}

	specialists := m.roster.Specialists()
	tools := make([]troupe.ToolSpec, 0, len(specialists))
	for _, s := range specialists {
		tools = append(tools, SchemaFor(s))
	}

	messages := make([]troupe.Message, 0, len(history)+2)
	messages = append(messages, troupe.NewMessage(troupe.RoleSystem, BuildInstructions(m.role, specialists)))
	messages = append(messages, history...)
	messages = append(messages, userMessage)

	turn := &Turn{Log: []troupe.Message{userMessage}}
	var lastToolResult string
	var output string
	answered := false

	opts := []llm.CallOption{
		llm.WithTemperature(0),
		llm.WithTools(tools),
		llm.WithToolChoice("auto"),
	}
	if m.maxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(m.maxTokens))
	}

	for turn.Iterations < m.maxIterations {
		response, err := m.chat.Complete(ctx, messages, opts...)
		turn.Iterations++
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if m.audit != nil {
				m.audit.LogTurnFailed(ctx, m.name, "", err)
			}
			return nil, err
		}
		if response == nil {
			// Provider returned no choice; treat as a silent completion.
			m.logger.DebugContext(ctx, "model returned no choice", "manager", m.name)
			break
		}

		messages = append(messages, *response)
		turn.Log = append(turn.Log, *response)

		if len(response.ToolCalls) == 0 {
			output = response.Content
			answered = true
			break
		}

		for _, call := range response.ToolCalls {
			result := m.dispatch(ctx, call)
			lastToolResult = result
			turn.Delegations++

			toolMessage := troupe.NewToolMessage(call.ID, call.Name, result)
			messages = append(messages, toolMessage)
			turn.Log = append(turn.Log, toolMessage)
		}
	}

	if !answered || output == "" {
		if lastToolResult != "" {
			output = lastToolResult
		} else if output == "" {
			output = NoResult
		}
	}
	turn.Output = output

	duration := time.Since(started)
	m.metrics.RecordTurn(ctx, m.name, duration)
	if m.audit != nil {
		m.audit.LogTurnCompleted(ctx, m.name, "", turn.Iterations, turn.Delegations, duration)
	}
	m.logger.InfoContext(ctx, "turn completed",
		"manager", m.name,
		"iterations", turn.Iterations,
		"delegations", turn.Delegations,
		"duration_ms", duration.Milliseconds(),
	)
	span.SetAttributes(
		attribute.Int("iterations", turn.Iterations),
		attribute.Int("delegations", turn.Delegations),
	)
	span.SetStatus(codes.Ok, "")

	return turn, nil
}

// dispatch resolves one tool call to a specialist and executes it. The
// returned string is always a usable tool result; failures are encoded
// as text so the model can react to them.
func (m *Manager) dispatch(ctx context.Context, call troupe.ToolCallRequest) string {
	specialist := m.roster.Resolve(call.Name)
	if specialist == nil {
		m.logger.WarnContext(ctx, "unknown specialist requested",
			"manager", m.name, "requested", call.Name)
		if m.audit != nil {
			m.audit.LogUnknownSpecialist(ctx, m.name, call.Name)
		}
		return fmt.Sprintf("Error: specialist %q not found.", call.Name)
	}

	args, err := call.Arguments()
	if err != nil {
		m.logger.WarnContext(ctx, "malformed tool call arguments",
			"manager", m.name, "specialist", specialist.Name(), "error", err)
	}
	task := TaskFor(specialist, args)

	m.logger.InfoContext(ctx, "delegating",
		"manager", m.name,
		"specialist", specialist.FunctionName(),
		"task", task,
	)
	m.metrics.RecordDelegation(ctx, specialist.FunctionName())
	if m.audit != nil {
		m.audit.LogDelegation(ctx, m.name, specialist.FunctionName(), task)
	}

	result := specialist.Execute(ctx, task)
	if strings.HasPrefix(result, "Error") {
		m.metrics.RecordToolError(ctx, specialist.FunctionName())
		if m.audit != nil {
			m.audit.LogToolError(ctx, specialist.FunctionName(), result)
		}
	}
	return result
}
