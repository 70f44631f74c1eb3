// Package llm provides chat-completion adapters for Troupe.
//
// This package defines the minimal contract the orchestrator needs from
// a remote model: send a conversation, get back one assistant message
// that may carry tool calls. Adapters translate between Troupe messages
// and each provider's wire format so orchestration code never touches a
// provider SDK directly.
package llm

import (
	"context"

	"github.com/troupehq/troupe/troupe"
)

// Chat is the minimal interface for model round trips.
//
// Design principles:
//   - Minimal: one required round-trip method
//   - Flexible: accepts CallOptions for provider-specific knobs
//   - Consistent: works with troupe.Message on both sides
//   - Swappable: change providers without changing orchestrator code
//
// A nil response with a nil error means the provider completed the call
// without producing a choice. Callers treat that as a silent completion,
// never as a failure.
//
// Example:
//
//	chat := llm.NewOpenAI("sk-...", "gpt-4o")
//	messages := []troupe.Message{
//	    troupe.NewMessage(troupe.RoleSystem, "You are helpful."),
//	    troupe.NewMessage(troupe.RoleUser, "Hello!"),
//	}
//	response, err := chat.Complete(ctx, messages, llm.WithTemperature(0))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(response.Content)
//
// Exposing tools:
//
//	response, err := chat.Complete(ctx, messages,
//	    llm.WithTools(specs),
//	    llm.WithToolChoice("auto"),
//	)
//	for _, call := range response.ToolCalls {
//	    // dispatch and append a troupe.NewToolMessage(...)
//	}
type Chat interface {
	// Complete sends the conversation and returns the assistant's reply.
	//
	// The reply carries Content, any ToolCalls the model issued, and
	// provider metadata (model, usage, finish reason). Transport and
	// non-2xx failures come back wrapped in troupe.TransportError;
	// an empty choice list comes back as (nil, nil).
	Complete(ctx context.Context, messages []troupe.Message, opts ...CallOption) (*troupe.Message, error)

	// Provider returns the adapter's provider name ("openai", "bedrock",
	// "gemini"). Used for logging and error attribution.
	Provider() string

	// Model returns the model identifier this adapter is bound to.
	Model() string
}

// CallOptions holds per-call options for model round trips.
type CallOptions struct {
	// Common sampling knobs. Nil means provider default.
	Temperature *float64
	MaxTokens   *int
	TopP        *float64

	// Tools the model may call this turn, in roster order.
	Tools []troupe.ToolSpec

	// ToolChoice controls tool use: "auto", "none", or a tool name to
	// force. Empty defers to the provider default.
	ToolChoice string

	// Extra carries provider-specific options by name.
	Extra map[string]interface{}
}

// CallOption is a functional option for configuring model calls.
type CallOption func(*CallOptions)

// WithTemperature sets the sampling temperature (typically 0.0-2.0).
func WithTemperature(temperature float64) CallOption {
	return func(opts *CallOptions) {
		opts.Temperature = &temperature
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int) CallOption {
	return func(opts *CallOptions) {
		opts.MaxTokens = &maxTokens
	}
}

// WithTopP sets the nucleus sampling parameter.
func WithTopP(topP float64) CallOption {
	return func(opts *CallOptions) {
		opts.TopP = &topP
	}
}

// WithTools exposes tool specs to the model for this call.
func WithTools(tools []troupe.ToolSpec) CallOption {
	return func(opts *CallOptions) {
		opts.Tools = tools
	}
}

// WithToolChoice sets the tool-choice mode ("auto", "none", or a name).
func WithToolChoice(choice string) CallOption {
	return func(opts *CallOptions) {
		opts.ToolChoice = choice
	}
}

// WithExtra adds a provider-specific option.
func WithExtra(key string, value interface{}) CallOption {
	return func(opts *CallOptions) {
		if opts.Extra == nil {
			opts.Extra = make(map[string]interface{})
		}
		opts.Extra[key] = value
	}
}

// BuildCallOptions creates CallOptions from functional options.
func BuildCallOptions(opts ...CallOption) *CallOptions {
	options := &CallOptions{
		Extra: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
