package llm

import (
	"context"
	"encoding/json"

	"github.com/sashabaranov/go-openai"

	"github.com/troupehq/troupe/troupe"
)

// OpenAI is a chat adapter for OpenAI's GPT models.
//
// Wraps the go-openai SDK and translates tool specs and tool calls both
// ways, so the orchestrator sees only troupe.Message values.
//
// Example:
//
//	chat := llm.NewOpenAI("sk-...", "gpt-4o")
//	messages := []troupe.Message{
//	    troupe.NewMessage(troupe.RoleUser, "Hello!"),
//	}
//	response, err := chat.Complete(ctx, messages)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(response.Content)
//
// Provider-specific options:
//
//	response, err := chat.Complete(
//	    ctx,
//	    messages,
//	    llm.WithTemperature(0),
//	    llm.WithMaxTokens(1024),
//	    llm.WithExtra("frequency_penalty", 0.5),
//	    llm.WithExtra("presence_penalty", 0.5),
//	)
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI chat adapter.
//
// Parameters:
//   - apiKey: OpenAI API key
//   - model: model identifier; empty defaults to "gpt-4o"
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// NewOpenAIWithClient creates an adapter around an existing client.
// Useful for custom base URLs (proxies, compatible endpoints).
func NewOpenAIWithClient(client *openai.Client, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

// Provider returns "openai".
func (o *OpenAI) Provider() string {
	return "openai"
}

// Model returns the model identifier.
func (o *OpenAI) Model() string {
	return o.model
}

// Complete sends the conversation to the chat-completions API and
// returns the first choice as a troupe.Message. An empty choice list
// returns (nil, nil); transport failures return a troupe.TransportError.
func (o *OpenAI) Complete(ctx context.Context, messages []troupe.Message, opts ...CallOption) (*troupe.Message, error) {
	options := BuildCallOptions(opts...)

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: convertToOpenAI(messages),
	}

	if options.Temperature != nil {
		req.Temperature = float32(*options.Temperature)
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}
	if options.TopP != nil {
		req.TopP = float32(*options.TopP)
	}
	if fp, ok := options.Extra["frequency_penalty"].(float64); ok {
		req.FrequencyPenalty = float32(fp)
	}
	if pp, ok := options.Extra["presence_penalty"].(float64); ok {
		req.PresencePenalty = float32(pp)
	}
	if stop, ok := options.Extra["stop"].([]string); ok {
		req.Stop = stop
	}

	if len(options.Tools) > 0 {
		req.Tools = convertToolSpecs(options.Tools)
		switch options.ToolChoice {
		case "", "auto":
			req.ToolChoice = "auto"
		case "none":
			req.ToolChoice = "none"
		default:
			req.ToolChoice = openai.ToolChoice{
				Type:     openai.ToolTypeFunction,
				Function: openai.ToolFunction{Name: options.ToolChoice},
			}
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, troupe.NewTransportError("openai", err)
	}

	if len(resp.Choices) == 0 {
		return nil, nil
	}

	choice := resp.Choices[0]
	response := troupe.NewMessage(troupe.RoleAssistant, choice.Message.Content)
	for _, call := range choice.Message.ToolCalls {
		response.ToolCalls = append(response.ToolCalls, troupe.ToolCallRequest{
			ID:            call.ID,
			Name:          call.Function.Name,
			ArgumentsJSON: call.Function.Arguments,
		})
	}
	response.Metadata = map[string]interface{}{
		"model":         resp.Model,
		"finish_reason": string(choice.FinishReason),
		"usage": map[string]interface{}{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		},
		"id": resp.ID,
	}

	return &response, nil
}

// convertToOpenAI converts troupe messages to the OpenAI wire format.
// Assistant tool calls and tool results keep their IDs so the API can
// pair them up.
func convertToOpenAI(messages []troupe.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		converted := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if msg.Role == troupe.RoleTool {
			converted.ToolCallID = msg.ToolCallID
			converted.Name = msg.Name
		}
		for _, call := range msg.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: call.ArgumentsJSON,
				},
			})
		}
		out = append(out, converted)
	}
	return out
}

// convertToolSpecs converts tool specs to OpenAI function definitions.
func convertToolSpecs(specs []troupe.ToolSpec) []openai.Tool {
	tools := make([]openai.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  json.RawMessage(mustMarshal(spec.JSONSchema())),
			},
		})
	}
	return tools
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// JSONSchema output is built from plain maps and strings.
		return []byte(`{"type":"object","properties":{}}`)
	}
	return data
}
