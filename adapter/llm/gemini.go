package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/troupehq/troupe/troupe"
)

// Gemini is a chat adapter for Google's Gemini models.
//
// Wraps the Google GenAI SDK. Tool specs become FunctionDeclarations,
// model tool calls arrive as FunctionCall parts, and tool results go
// back as FunctionResponse parts. Gemini does not assign call IDs, so
// the adapter mints UUIDs and pairs results by function name.
//
// Example:
//
//	chat, err := llm.NewGemini("your-api-key", "gemini-2.0-flash")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	response, err := chat.Complete(ctx, messages, llm.WithTemperature(0))
type Gemini struct {
	client *genai.Client
	model  string

	// callNames maps minted call IDs back to function names so tool
	// results can be encoded as FunctionResponse parts. Guarded by mu;
	// concurrent turns share the one adapter.
	mu        sync.Mutex
	callNames map[string]string
}

// rememberCall records the function name behind a minted call ID.
func (g *Gemini) rememberCall(id, name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callNames[id] = name
}

// callName resolves a minted call ID back to its function name.
func (g *Gemini) callName(id string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.callNames[id]
}

// NewGemini creates a new Gemini chat adapter.
//
// Parameters:
//   - apiKey: Google API key; empty falls back to GEMINI_API_KEY then
//     GOOGLE_API_KEY
//   - model: model identifier; empty defaults to "gemini-2.0-flash"
func NewGemini(apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini api key required: provide apiKey or set GEMINI_API_KEY or GOOGLE_API_KEY")
		}
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		model:     model,
		callNames: make(map[string]string),
	}, nil
}

// Provider returns "gemini".
func (g *Gemini) Provider() string {
	return "gemini"
}

// Model returns the model identifier.
func (g *Gemini) Model() string {
	return g.model
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Complete sends the conversation to Gemini and returns the reply.
// An empty candidate list returns (nil, nil).
func (g *Gemini) Complete(ctx context.Context, messages []troupe.Message, opts ...CallOption) (*troupe.Message, error) {
	options := BuildCallOptions(opts...)

	model := g.client.GenerativeModel(g.model)
	if options.Temperature != nil {
		model.SetTemperature(float32(*options.Temperature))
	}
	if options.MaxTokens != nil {
		model.SetMaxOutputTokens(int32(*options.MaxTokens))
	}
	if options.TopP != nil {
		model.SetTopP(float32(*options.TopP))
	}
	if len(options.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: convertGeminiTools(options.Tools)}}
		switch options.ToolChoice {
		case "", "auto":
			model.ToolConfig = &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingAuto},
			}
		case "none":
			model.ToolConfig = &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingNone},
			}
		default:
			model.ToolConfig = &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{
					Mode:                 genai.FunctionCallingAny,
					AllowedFunctionNames: []string{options.ToolChoice},
				},
			}
		}
	}

	history, last := g.convertMessages(model, messages)
	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, last...)
	if err != nil {
		return nil, troupe.NewTransportError("gemini", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, nil
	}

	candidate := resp.Candidates[0]
	response := troupe.NewMessage(troupe.RoleAssistant, "")
	for _, part := range candidate.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			response.Content += string(v)
		case genai.FunctionCall:
			id := uuid.NewString()
			g.rememberCall(id, v.Name)
			args, err := json.Marshal(v.Args)
			if err != nil {
				args = []byte("{}")
			}
			response.ToolCalls = append(response.ToolCalls, troupe.ToolCallRequest{
				ID:            id,
				Name:          v.Name,
				ArgumentsJSON: string(args),
			})
		}
	}
	response.Metadata = map[string]interface{}{
		"model":         g.model,
		"finish_reason": candidate.FinishReason.String(),
	}
	if resp.UsageMetadata != nil {
		response.Metadata["usage"] = map[string]interface{}{
			"prompt_tokens":     resp.UsageMetadata.PromptTokenCount,
			"completion_tokens": resp.UsageMetadata.CandidatesTokenCount,
			"total_tokens":      resp.UsageMetadata.TotalTokenCount,
		}
	}

	return &response, nil
}

// convertMessages maps troupe messages to Gemini chat history. System
// messages become the model's SystemInstruction; the final message is
// returned separately because SendMessage takes it as an argument.
func (g *Gemini) convertMessages(model *genai.GenerativeModel, messages []troupe.Message) ([]*genai.Content, []genai.Part) {
	var contents []*genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case troupe.RoleSystem:
			model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(msg.Content)}}

		case troupe.RoleTool:
			name := msg.Name
			if name == "" {
				name = g.callName(msg.ToolCallID)
			}
			contents = append(contents, &genai.Content{
				Role: "function",
				Parts: []genai.Part{genai.FunctionResponse{
					Name:     name,
					Response: map[string]interface{}{"result": msg.Content},
				}},
			})

		case troupe.RoleAssistant:
			var parts []genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				args, err := call.Arguments()
				if err != nil {
					args = map[string]interface{}{}
				}
				parts = append(parts, genai.FunctionCall{Name: call.Name, Args: args})
			}
			if len(parts) == 0 {
				parts = append(parts, genai.Text(""))
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})

		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}

	if len(contents) == 0 {
		return nil, []genai.Part{genai.Text("")}
	}
	last := contents[len(contents)-1]
	return contents[:len(contents)-1], last.Parts
}

// convertGeminiTools converts tool specs to function declarations.
func convertGeminiTools(specs []troupe.ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		properties := make(map[string]*genai.Schema, len(spec.Parameters))
		var required []string
		for name, param := range spec.Parameters {
			schema := &genai.Schema{
				Type:        geminiType(param.Type),
				Description: param.Description,
			}
			if len(param.Enum) > 0 {
				schema.Enum = param.Enum
			}
			if param.Items != nil {
				schema.Items = &genai.Schema{Type: geminiType(param.Items.Type)}
			}
			properties[name] = schema
			if param.Required {
				required = append(required, name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   required,
			},
		})
	}
	return decls
}

// geminiType maps a semantic parameter type to the Gemini schema type,
// applying the same normalization JSONSchema uses so "integer" and
// "float" become numbers rather than strings.
func geminiType(t string) genai.Type {
	switch troupe.NormalizeType(t) {
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}
