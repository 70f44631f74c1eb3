package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/troupehq/troupe/adapter/llm"
	"github.com/troupehq/troupe/troupe"
)

// AssistantConfig holds construction parameters for an Assistant.
type AssistantConfig struct {
	// Name identifies the assistant in logs.
	Name string

	// Role is the assistant's instruction text.
	Role string

	// Chat is the remote model client. Required.
	Chat llm.Chat

	// Tools are exposed to the model directly under their own names.
	Tools []troupe.Tool

	// Context holds standing facts appended to the system prompt as
	// "key: value" lines, in key order ("office_hours": "9am to 6pm").
	Context map[string]string

	// Guardrails vet user input before any remote call.
	Guardrails []troupe.Guardrail

	// MaxTokens caps the completion length; zero leaves the provider
	// default in place.
	MaxTokens int

	// Logger narrates tool execution (default slog.Default()).
	Logger *slog.Logger
}

// Assistant is the single round-trip orchestrator: one model call,
// direct execution of whatever tools the model requested, no follow-up
// round trip. Tool output is surfaced to the user alongside the model's
// text instead of being fed back to the model.
type Assistant struct {
	name       string
	role       string
	chat       llm.Chat
	tools      map[string]troupe.Tool
	order      []string
	context    map[string]string
	guardrails []troupe.Guardrail
	maxTokens  int
	logger     *slog.Logger
}

// NewAssistant creates an assistant orchestrator. Tool names must be
// unique; dispatch is by exact name match.
func NewAssistant(cfg AssistantConfig) (*Assistant, error) {
	if cfg.Chat == nil {
		return nil, fmt.Errorf("assistant requires a chat client")
	}
	if cfg.Name == "" {
		cfg.Name = "Assistant"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	tools := make(map[string]troupe.Tool, len(cfg.Tools))
	order := make([]string, 0, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		if _, exists := tools[tool.Name()]; exists {
			return nil, fmt.Errorf("duplicate tool %q", tool.Name())
		}
		tools[tool.Name()] = tool
		order = append(order, tool.Name())
	}

	return &Assistant{
		name:       cfg.Name,
		role:       cfg.Role,
		chat:       cfg.Chat,
		tools:      tools,
		order:      order,
		context:    cfg.Context,
		guardrails: cfg.Guardrails,
		maxTokens:  cfg.MaxTokens,
		logger:     cfg.Logger,
	}, nil
}

// Name returns the assistant's display name.
func (a *Assistant) Name() string {
	return a.name
}

// Respond runs one turn with exactly one model round trip, regardless
// of how many tool calls the model issues.
func (a *Assistant) Respond(ctx context.Context, history []troupe.Message, input string) (*Turn, error) {
	userMessage := troupe.NewMessage(troupe.RoleUser, input)

	for _, g := range a.guardrails {
		if verdict := g.Validate(input); !verdict.Valid {
			a.logger.WarnContext(ctx, "input rejected",
				"assistant", a.name, "guardrail", g.Name())
			return &Turn{
				Output:   verdict.Message,
				Log:      []troupe.Message{userMessage},
				Rejected: true,
			}, nil
		}
	}

	system := strings.TrimSpace(a.role)
	keys := make([]string, 0, len(a.context))
	for key := range a.context {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		system += "\n[system] " + key + ": " + a.context[key]
	}

	messages := make([]troupe.Message, 0, len(history)+2)
	messages = append(messages, troupe.NewMessage(troupe.RoleSystem, system))
	messages = append(messages, history...)
	messages = append(messages, userMessage)

	specs := make([]troupe.ToolSpec, 0, len(a.order))
	for _, name := range a.order {
		specs = append(specs, a.tools[name].Spec())
	}

	opts := []llm.CallOption{llm.WithTemperature(0)}
	if a.maxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(a.maxTokens))
	}
	if len(specs) > 0 {
		opts = append(opts, llm.WithTools(specs), llm.WithToolChoice("auto"))
	}

	response, err := a.chat.Complete(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}

	turn := &Turn{Log: []troupe.Message{userMessage}, Iterations: 1}
	if response == nil {
		turn.Output = NoResult
		return turn, nil
	}
	turn.Log = append(turn.Log, *response)

	var results []string
	var executed []string
	for _, call := range response.ToolCalls {
		result := a.execute(ctx, call)
		results = append(results, result)
		executed = append(executed, call.Name)

		toolMessage := troupe.NewToolMessage(call.ID, call.Name, result)
		turn.Log = append(turn.Log, toolMessage)
	}

	output := response.Content
	switch {
	case output == "" && len(results) > 0:
		output = strings.Join(results, "\n")
	case output == "":
		output = NoResult
	case len(executed) > 0:
		output += "\n\nExecuted tool calls: " + strings.Join(executed, ", ") + "."
	}
	turn.Output = output

	return turn, nil
}

func (a *Assistant) execute(ctx context.Context, call troupe.ToolCallRequest) string {
	tool, ok := a.tools[call.Name]
	if !ok {
		a.logger.WarnContext(ctx, "unknown tool requested",
			"assistant", a.name, "requested", call.Name)
		return fmt.Sprintf("Error: tool %q not found.", call.Name)
	}

	args, err := call.Arguments()
	if err != nil {
		a.logger.WarnContext(ctx, "malformed tool call arguments",
			"assistant", a.name, "tool", call.Name, "error", err)
	}

	a.logger.InfoContext(ctx, "executing tool", "assistant", a.name, "tool", call.Name)
	result, err := tool.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error executing %s: %v", call.Name, err)
	}
	return result
}
