// Package agent provides specialist agents and the roster the manager
// delegates to.
//
// A specialist is a named, single-purpose delegate wrapping at most one
// tool. The manager exposes each non-manager specialist to the remote
// model as a callable function; when the model issues a tool call, the
// roster resolves it back to the specialist and the specialist executes
// the task.
package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/troupehq/troupe/adapter/llm"
	"github.com/troupehq/troupe/troupe"
)

// Domain tags a specialist's area of expertise. The manager keys its
// schema-building and argument-extraction strategies off this tag.
// The tag is set explicitly at construction, never inferred from the
// display name.
type Domain string

const (
	DomainGeneral     Domain = "general"
	DomainWeather     Domain = "weather"
	DomainMath        Domain = "math"
	DomainTranslation Domain = "translation"
	DomainSearch      Domain = "search"
)

var whitespace = regexp.MustCompile(`\s+`)

// FunctionName converts a display name into the identifier exposed to
// the remote model: lowercased, whitespace collapsed to underscores.
// This transform is lossy, so roster registration rejects names that
// collide under it.
func FunctionName(name string) string {
	return strings.ToLower(whitespace.ReplaceAllString(strings.TrimSpace(name), "_"))
}

// ReconstructName rebuilds a display name from a model-chosen function
// identifier (underscores to spaces, words title-cased). The round trip
// is case-insensitive: for any registered name N,
// ReconstructName(FunctionName(N)) equals N up to case.
func ReconstructName(functionName string) string {
	words := strings.Split(functionName, "_")
	for i, word := range words {
		runes := []rune(word)
		if len(runes) > 0 {
			words[i] = strings.ToUpper(string(runes[0])) + string(runes[1:])
		}
	}
	return strings.Join(words, " ")
}

// Config holds the immutable construction parameters for a Specialist.
// There is no process-wide default configuration; everything an agent
// needs is injected here.
type Config struct {
	// Name is the display name, unique within a roster.
	Name string

	// Role is the free-text instruction describing the specialist's job.
	Role string

	// Domain selects the manager-side schema and argument strategies.
	// Empty means DomainGeneral.
	Domain Domain

	// Manager marks the agent as non-delegatable: it is filtered out of
	// the specialist roster exposed to the model.
	Manager bool

	// Tools the specialist wraps. In practice zero or one; only the
	// first is used for direct dispatch.
	Tools []troupe.Tool

	// Chat is the remote model client used by tool-less specialists,
	// which answer tasks directly with Role as their instructions.
	Chat llm.Chat

	// MaxTokens bounds tool-less completions (0 uses the provider default).
	MaxTokens int
}

// Specialist is a named role wrapping zero or more tools. Identity and
// configuration are fixed at construction.
type Specialist struct {
	name      string
	role      string
	domain    Domain
	manager   bool
	tools     []troupe.Tool
	chat      llm.Chat
	maxTokens int
}

// New creates a specialist from the given configuration.
func New(cfg Config) (*Specialist, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("specialist name cannot be empty")
	}
	if cfg.Domain == "" {
		cfg.Domain = DomainGeneral
	}
	return &Specialist{
		name:      cfg.Name,
		role:      cfg.Role,
		domain:    cfg.Domain,
		manager:   cfg.Manager,
		tools:     cfg.Tools,
		chat:      cfg.Chat,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Name returns the specialist's display name.
func (s *Specialist) Name() string {
	return s.name
}

// Role returns the specialist's free-text instructions.
func (s *Specialist) Role() string {
	return s.role
}

// Domain returns the specialist's domain tag.
func (s *Specialist) Domain() Domain {
	return s.domain
}

// IsManager reports whether the agent is excluded from delegation.
func (s *Specialist) IsManager() bool {
	return s.manager
}

// Tools returns the wrapped tools.
func (s *Specialist) Tools() []troupe.Tool {
	return s.tools
}

// FunctionName returns the identifier this specialist is exposed under.
func (s *Specialist) FunctionName() string {
	return FunctionName(s.name)
}

// Execute runs a task and returns a textual result. Errors never
// propagate past this boundary: tool failures, missing configuration and
// remote failures all come back as "Error executing ..." strings so the
// manager can feed them to the model as tool results.
func (s *Specialist) Execute(ctx context.Context, task string) string {
	if len(s.tools) > 0 {
		t := s.tools[0]
		result, err := t.Execute(ctx, map[string]interface{}{"task": task})
		if err != nil {
			return fmt.Sprintf("Error executing %s: %v", t.Name(), err)
		}
		return result
	}

	if s.chat == nil {
		return fmt.Sprintf("Error executing %s: no tool or model configured", s.name)
	}

	messages := []troupe.Message{
		troupe.NewMessage(troupe.RoleSystem, s.role),
		troupe.NewMessage(troupe.RoleUser, task),
	}
	opts := []llm.CallOption{llm.WithTemperature(0)}
	if s.maxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(s.maxTokens))
	}
	response, err := s.chat.Complete(ctx, messages, opts...)
	if err != nil {
		return fmt.Sprintf("Error executing %s: %v", s.name, err)
	}
	if response == nil || response.Content == "" {
		return "No result generated."
	}
	return response.Content
}
