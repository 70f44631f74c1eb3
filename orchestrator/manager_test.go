package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/troupehq/troupe/adapter/llm"
	"github.com/troupehq/troupe/agent"
	"github.com/troupehq/troupe/guardrail"
	"github.com/troupehq/troupe/tool"
	"github.com/troupehq/troupe/troupe"
)

// ============================================================================
// Mocks
// ============================================================================

// scriptedChat replays a fixed sequence of responses and records every
// request. With repeatLast set, the final response repeats forever.
type scriptedChat struct {
	responses  []*troupe.Message
	repeatLast bool
	err        error

	requests [][]troupe.Message
	lastOpts *llm.CallOptions
}

func (c *scriptedChat) Complete(_ context.Context, messages []troupe.Message, opts ...llm.CallOption) (*troupe.Message, error) {
	snapshot := make([]troupe.Message, len(messages))
	copy(snapshot, messages)
	c.requests = append(c.requests, snapshot)
	c.lastOpts = llm.BuildCallOptions(opts...)

	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return nil, nil
	}
	response := c.responses[0]
	if len(c.responses) > 1 || !c.repeatLast {
		c.responses = c.responses[1:]
	}
	return response, nil
}

func (c *scriptedChat) Provider() string { return "scripted" }
func (c *scriptedChat) Model() string    { return "scripted-model" }

func textMessage(content string) *troupe.Message {
	m := troupe.NewMessage(troupe.RoleAssistant, content)
	return &m
}

func toolCallMessage(id, name, args string) *troupe.Message {
	m := troupe.NewMessage(troupe.RoleAssistant, "")
	m.ToolCalls = []troupe.ToolCallRequest{{ID: id, Name: name, ArgumentsJSON: args}}
	return &m
}

func testRoster(t *testing.T) *agent.Roster {
	t.Helper()

	mathTutor, err := agent.New(agent.Config{
		Name:   "Math Tutor",
		Role:   "Solves arithmetic problems.",
		Domain: agent.DomainMath,
		Tools:  []troupe.Tool{tool.NewCalculator()},
	})
	if err != nil {
		t.Fatal(err)
	}
	weatherReporter, err := agent.New(agent.Config{
		Name:   "Weather Reporter",
		Role:   "Reports current weather.",
		Domain: agent.DomainWeather,
		Tools:  []troupe.Tool{tool.NewWeather()},
	})
	if err != nil {
		t.Fatal(err)
	}

	roster := agent.NewRoster()
	if err := roster.RegisterAll(mathTutor, weatherReporter); err != nil {
		t.Fatal(err)
	}
	return roster
}

func newTestManager(t *testing.T, chat llm.Chat, guardrails ...troupe.Guardrail) *Manager {
	t.Helper()
	m, err := NewManager(ManagerConfig{
		Name:       "Concierge",
		Role:       "You are a helpful concierge.",
		Chat:       chat,
		Roster:     testRoster(t),
		Guardrails: guardrails,
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// ============================================================================
// Delegation Loop
// ============================================================================

func TestManager_DelegatesAndAnswers(t *testing.T) {
	chat := &scriptedChat{responses: []*troupe.Message{
		toolCallMessage("call_1", "math_tutor", `{"expression":"2+2"}`),
		textMessage("The answer is 4."),
	}}
	m := newTestManager(t, chat)

	turn, err := m.Respond(context.Background(), nil, "what is 2+2?")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(chat.requests) != 2 {
		t.Fatalf("expected 2 model round trips, got %d", len(chat.requests))
	}
	if turn.Output != "The answer is 4." {
		t.Errorf("output = %q", turn.Output)
	}
	if turn.Iterations != 2 || turn.Delegations != 1 {
		t.Errorf("turn shape: iterations=%d delegations=%d", turn.Iterations, turn.Delegations)
	}

	// The second request must carry the tool result from the first round.
	second := chat.requests[1]
	last := second[len(second)-1]
	if last.Role != troupe.RoleTool || last.ToolCallID != "call_1" {
		t.Fatalf("tool result not appended before second round trip: %+v", last)
	}
	if !strings.Contains(last.Content, "4") {
		t.Errorf("calculator result not fed back: %q", last.Content)
	}

	// Log: user, assistant(tool call), tool result, assistant(final).
	if len(turn.Log) != 4 {
		t.Errorf("expected 4 log entries, got %d", len(turn.Log))
	}
}

func TestManager_IterationCapReturnsLastToolResult(t *testing.T) {
	chat := &scriptedChat{
		responses:  []*troupe.Message{toolCallMessage("call_n", "math_tutor", `{"expression":"1+1"}`)},
		repeatLast: true,
	}
	m := newTestManager(t, chat)

	turn, err := m.Respond(context.Background(), nil, "keep calculating")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(chat.requests) != DefaultMaxIterations {
		t.Errorf("expected exactly %d round trips at the cap, got %d", DefaultMaxIterations, len(chat.requests))
	}
	if !strings.Contains(turn.Output, "2") {
		t.Errorf("cap must surface the last tool result, got %q", turn.Output)
	}
	if turn.Iterations != DefaultMaxIterations {
		t.Errorf("iterations = %d", turn.Iterations)
	}
}

func TestManager_GuardrailRejectionMakesNoRemoteCalls(t *testing.T) {
	chat := &scriptedChat{responses: []*troupe.Message{textMessage("never reached")}}
	m := newTestManager(t, chat, guardrail.NewLength(10, ""))

	turn, err := m.Respond(context.Background(), nil, "this input is much longer than ten characters")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(chat.requests) != 0 {
		t.Fatalf("guardrail rejection must make zero remote calls, got %d", len(chat.requests))
	}
	if !turn.Rejected {
		t.Error("turn must be marked rejected")
	}
	if !strings.Contains(turn.Output, "10") {
		t.Errorf("rejection message must reach the user: %q", turn.Output)
	}
}

func TestManager_UnknownSpecialistBecomesToolResult(t *testing.T) {
	chat := &scriptedChat{responses: []*troupe.Message{
		toolCallMessage("call_1", "chef", `{"task":"make pasta"}`),
		textMessage("I cannot cook, sorry."),
	}}
	m := newTestManager(t, chat)

	turn, err := m.Respond(context.Background(), nil, "make me pasta")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	second := chat.requests[1]
	last := second[len(second)-1]
	if last.Role != troupe.RoleTool {
		t.Fatalf("expected tool result for unknown specialist, got %+v", last)
	}
	if !strings.Contains(last.Content, "not found") || !strings.Contains(last.Content, "chef") {
		t.Errorf("unknown specialist result = %q", last.Content)
	}
	if turn.Output != "I cannot cook, sorry." {
		t.Errorf("output = %q", turn.Output)
	}
}

func TestManager_MalformedArgumentsDegrade(t *testing.T) {
	chat := &scriptedChat{responses: []*troupe.Message{
		toolCallMessage("call_1", "weather_reporter", `{broken json`),
		textMessage("Here is the weather."),
	}}
	m := newTestManager(t, chat)

	_, err := m.Respond(context.Background(), nil, "weather please")
	if err != nil {
		t.Fatalf("malformed arguments must not fail the turn: %v", err)
	}

	// The weather specialist runs with its fallback location.
	second := chat.requests[1]
	last := second[len(second)-1]
	if !strings.Contains(last.Content, tool.DefaultLocation) {
		t.Errorf("expected fallback-location report, got %q", last.Content)
	}
}

func TestManager_SilentCompletion(t *testing.T) {
	chat := &scriptedChat{}
	m := newTestManager(t, chat)

	turn, err := m.Respond(context.Background(), nil, "hello")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if turn.Output != NoResult {
		t.Errorf("output = %q, want %q", turn.Output, NoResult)
	}
}

func TestManager_EmptyFinalContentBackedByToolResult(t *testing.T) {
	chat := &scriptedChat{responses: []*troupe.Message{
		toolCallMessage("call_1", "math_tutor", `{"expression":"6*7"}`),
		textMessage(""),
	}}
	m := newTestManager(t, chat)

	turn, err := m.Respond(context.Background(), nil, "6*7")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(turn.Output, "42") {
		t.Errorf("empty final content must fall back to the tool result, got %q", turn.Output)
	}
}

func TestManager_TransportErrorIsFatal(t *testing.T) {
	transport := troupe.NewTransportError("openai", errors.New("status 500"))
	chat := &scriptedChat{err: transport}
	m := newTestManager(t, chat)

	_, err := m.Respond(context.Background(), nil, "hello")
	if err == nil {
		t.Fatal("expected transport error to propagate")
	}
	var te *troupe.TransportError
	if !errors.As(err, &te) {
		t.Errorf("error not a TransportError: %v", err)
	}
}

func TestManager_SequentialDispatchOrder(t *testing.T) {
	multi := troupe.NewMessage(troupe.RoleAssistant, "")
	multi.ToolCalls = []troupe.ToolCallRequest{
		{ID: "call_1", Name: "math_tutor", ArgumentsJSON: `{"expression":"1+1"}`},
		{ID: "call_2", Name: "weather_reporter", ArgumentsJSON: `{"location":"Oslo"}`},
	}
	chat := &scriptedChat{responses: []*troupe.Message{&multi, textMessage("done")}}
	m := newTestManager(t, chat)

	turn, err := m.Respond(context.Background(), nil, "two things at once")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if turn.Delegations != 2 {
		t.Errorf("delegations = %d, want 2", turn.Delegations)
	}

	// Results appear in call order: math first, weather second.
	second := chat.requests[1]
	n := len(second)
	if second[n-2].ToolCallID != "call_1" || second[n-1].ToolCallID != "call_2" {
		t.Errorf("tool results out of order: %+v, %+v", second[n-2], second[n-1])
	}
}

func TestManager_ExposesSpecialistSchemas(t *testing.T) {
	chat := &scriptedChat{responses: []*troupe.Message{textMessage("hi")}}
	m := newTestManager(t, chat)

	if _, err := m.Respond(context.Background(), nil, "hello"); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if chat.lastOpts == nil {
		t.Fatal("no options captured")
	}
	if len(chat.lastOpts.Tools) != 2 {
		t.Fatalf("expected 2 exposed tools, got %d", len(chat.lastOpts.Tools))
	}
	if chat.lastOpts.Tools[0].Name != "math_tutor" || chat.lastOpts.Tools[1].Name != "weather_reporter" {
		t.Errorf("tools not in roster order: %v, %v", chat.lastOpts.Tools[0].Name, chat.lastOpts.Tools[1].Name)
	}
	if chat.lastOpts.ToolChoice != "auto" {
		t.Errorf("tool choice = %q, want auto", chat.lastOpts.ToolChoice)
	}
	if chat.lastOpts.Temperature == nil || *chat.lastOpts.Temperature != 0 {
		t.Errorf("temperature must be pinned to 0, got %v", chat.lastOpts.Temperature)
	}
	if chat.lastOpts.MaxTokens != nil {
		t.Errorf("max tokens must stay unset by default, got %v", *chat.lastOpts.MaxTokens)
	}
}

func TestManager_MaxTokensThreadedIntoModelCalls(t *testing.T) {
	chat := &scriptedChat{responses: []*troupe.Message{textMessage("hi")}}
	m, err := NewManager(ManagerConfig{
		Chat:      chat,
		Roster:    testRoster(t),
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Respond(context.Background(), nil, "hello"); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if chat.lastOpts.MaxTokens == nil || *chat.lastOpts.MaxTokens != 256 {
		t.Errorf("max tokens = %v, want 256", chat.lastOpts.MaxTokens)
	}
}

func TestManager_HistoryPrecedesInput(t *testing.T) {
	chat := &scriptedChat{responses: []*troupe.Message{textMessage("hello again")}}
	m := newTestManager(t, chat)

	history := []troupe.Message{
		troupe.NewMessage(troupe.RoleUser, "earlier question"),
		troupe.NewMessage(troupe.RoleAssistant, "earlier answer"),
	}
	if _, err := m.Respond(context.Background(), history, "follow-up"); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	request := chat.requests[0]
	if request[0].Role != troupe.RoleSystem {
		t.Fatalf("system message must come first, got %q", request[0].Role)
	}
	if request[1].Content != "earlier question" || request[2].Content != "earlier answer" {
		t.Errorf("history not preserved: %+v", request[1:3])
	}
	if request[3].Content != "follow-up" {
		t.Errorf("input must come last, got %q", request[3].Content)
	}
}

// ============================================================================
// Instructions
// ============================================================================

func TestBuildInstructions_ListsSpecialists(t *testing.T) {
	roster := testRoster(t)
	instructions := BuildInstructions("You are a concierge.", roster.Specialists())

	if !strings.HasPrefix(instructions, "You are a concierge.") {
		t.Errorf("role text must lead: %q", instructions)
	}
	if !strings.Contains(instructions, "math_tutor") || !strings.Contains(instructions, "weather_reporter") {
		t.Errorf("specialist catalog missing: %q", instructions)
	}
	if !strings.Contains(instructions, "Solves arithmetic problems.") {
		t.Errorf("specialist roles missing: %q", instructions)
	}
}

func TestBuildInstructions_NoSpecialists(t *testing.T) {
	instructions := BuildInstructions("You are on your own.", nil)
	if instructions != "You are on your own." {
		t.Errorf("no catalog expected without specialists: %q", instructions)
	}
}

func TestBuildInstructions_KeepsTrailingPunctuationInRoles(t *testing.T) {
	withColon, err := agent.New(agent.Config{
		Name: "Forecaster",
		Role: "Reports the forecast, including:",
	})
	if err != nil {
		t.Fatal(err)
	}
	roleless, err := agent.New(agent.Config{Name: "Mystery Helper"})
	if err != nil {
		t.Fatal(err)
	}

	instructions := BuildInstructions("You coordinate.", []*agent.Specialist{withColon, roleless})
	if !strings.Contains(instructions, "- forecaster: Reports the forecast, including:\n") {
		t.Errorf("role's own trailing colon must survive: %q", instructions)
	}
	if !strings.Contains(instructions, "- mystery_helper\n") {
		t.Errorf("empty role must list the bare function name: %q", instructions)
	}
}
