// Package troupe provides the core types and contracts for the troupe
// multi-agent concierge framework.
//
// A troupe system is built from three kinds of parts: Tools (named,
// schema-bearing capabilities), Guardrails (pre-flight input vetoes), and
// agents that wire them to a remote chat-completion model. The manager
// orchestrator in package orchestrator drives the delegation loop; this
// package only defines the data that flows through it.
package troupe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Message roles used throughout a conversation log. The ordering of
// messages is significant and append-only within a turn; the system
// message is always first.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a single entry in a conversation log.
//
// Assistant messages may carry ToolCalls when the model decided to
// delegate. Tool messages answer a specific ToolCallRequest and must set
// ToolCallID to the ID of the call they answer.
type Message struct {
	Role       string                 `json:"role"`
	Content    string                 `json:"content"`
	Name       string                 `json:"name,omitempty"`
	ToolCallID string                 `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCallRequest      `json:"tool_calls,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// NewMessage creates a new message with the given role and content.
func NewMessage(role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolMessage creates a tool-result message answering the given call.
func NewToolMessage(callID, name, content string) Message {
	m := NewMessage(RoleTool, content)
	m.ToolCallID = callID
	m.Name = name
	return m
}

// WithMetadata adds metadata to the message and returns it for chaining.
func (m Message) WithMetadata(key string, value interface{}) Message {
	if m.Metadata == nil {
		m.Metadata = make(map[string]interface{})
	}
	m.Metadata[key] = value
	return m
}

// ToolCallRequest is a structured delegation request emitted by the
// remote model. ID is opaque and correlates the request with the tool
// message that answers it.
type ToolCallRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ArgumentsJSON string `json:"arguments"`
}

// Arguments decodes the JSON argument payload into a key/value map.
//
// A malformed payload is a recoverable condition for callers (the
// delegation loop degrades to an empty argument map), so the decoded map
// is always non-nil even when an error is returned.
func (t ToolCallRequest) Arguments() (map[string]interface{}, error) {
	args := make(map[string]interface{})
	if t.ArgumentsJSON == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(t.ArgumentsJSON), &args); err != nil {
		return make(map[string]interface{}), fmt.Errorf("malformed tool call arguments: %w", err)
	}
	return args, nil
}

// Tool represents an executable capability.
//
// Execute must never panic and must never fail for malformed input:
// missing or invalid arguments produce a human-readable "Error: ..."
// result string on the normal return channel. The error return is
// reserved for infrastructure failures (for tool-less delegation, a
// failed remote call); the dispatch boundary converts those into textual
// tool results as well.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	Description() string

	// Spec returns the declared parameter table for this tool.
	Spec() ToolSpec

	// Execute runs the tool with the given arguments and returns a
	// textual result.
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Verdict is the outcome of a guardrail check.
type Verdict struct {
	Valid   bool
	Message string
}

// Accept returns a passing verdict.
func Accept() Verdict {
	return Verdict{Valid: true}
}

// Reject returns a failing verdict carrying the user-visible message.
func Reject(message string) Verdict {
	return Verdict{Valid: false, Message: message}
}

// Guardrail is a named pre-flight input validator. A rejecting verdict
// short-circuits the turn before any remote call is made.
type Guardrail interface {
	Name() string
	Validate(input string) Verdict
}
