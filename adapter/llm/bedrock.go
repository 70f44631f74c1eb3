package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/google/uuid"

	"github.com/troupehq/troupe/troupe"
)

// Bedrock is a chat adapter for Amazon Bedrock foundation models, built
// on the Converse API so tool use works the same across model families.
//
// Supports the full AWS credential chain:
//   - Explicit credentials (access key ID, secret access key)
//   - AWS profiles (~/.aws/config)
//   - Environment variables (AWS_ACCESS_KEY_ID, etc.)
//   - IAM roles (EC2, ECS, EKS)
//
// Example:
//
//	// Use IAM role (ECS/EKS/EC2)
//	chat, err := llm.NewBedrock(context.Background(), llm.BedrockConfig{
//	    ModelID: "anthropic.claude-3-5-sonnet-20241022-v2:0",
//	})
//
//	// Use AWS profile
//	chat, err := llm.NewBedrock(context.Background(), llm.BedrockConfig{
//	    ModelID: "anthropic.claude-3-5-sonnet-20241022-v2:0",
//	    Profile: "production",
//	})
type Bedrock struct {
	client  *bedrockruntime.Client
	modelID string
}

// BedrockConfig holds configuration for creating a Bedrock adapter.
type BedrockConfig struct {
	// ModelID is the Bedrock model identifier.
	ModelID string

	// Region is the AWS region (default: us-east-1).
	Region string

	// Profile is the AWS profile name (optional).
	Profile string

	// AccessKeyID is the AWS access key (optional).
	AccessKeyID string

	// SecretAccessKey is the AWS secret key (optional).
	SecretAccessKey string

	// SessionToken is the AWS session token (optional).
	SessionToken string

	// EndpointURL is a custom endpoint URL for VPC endpoints (optional).
	EndpointURL string
}

// NewBedrock creates a new Bedrock chat adapter.
func NewBedrock(ctx context.Context, cfg BedrockConfig) (*Bedrock, error) {
	if cfg.ModelID == "" {
		cfg.ModelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))
	if cfg.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*bedrockruntime.Options)
	if cfg.EndpointURL != "" {
		clientOpts = append(clientOpts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		})
	}

	return &Bedrock{
		client:  bedrockruntime.NewFromConfig(awsConfig, clientOpts...),
		modelID: cfg.ModelID,
	}, nil
}

// Provider returns "bedrock".
func (b *Bedrock) Provider() string {
	return "bedrock"
}

// Model returns the Bedrock model identifier.
func (b *Bedrock) Model() string {
	return b.modelID
}

// Complete sends the conversation through the Converse API. Tool calls
// come back as toolUse content blocks and are converted to
// troupe.ToolCallRequest values; an absent output message returns
// (nil, nil).
func (b *Bedrock) Complete(ctx context.Context, messages []troupe.Message, opts ...CallOption) (*troupe.Message, error) {
	options := BuildCallOptions(opts...)

	system, converseMessages, err := convertToBedrock(messages)
	if err != nil {
		return nil, err
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(b.modelID),
		Messages: converseMessages,
		System:   system,
	}

	inference := &types.InferenceConfiguration{}
	configured := false
	if options.Temperature != nil {
		t := float32(*options.Temperature)
		inference.Temperature = &t
		configured = true
	}
	if options.MaxTokens != nil {
		mt := int32(*options.MaxTokens)
		inference.MaxTokens = &mt
		configured = true
	}
	if options.TopP != nil {
		tp := float32(*options.TopP)
		inference.TopP = &tp
		configured = true
	}
	if configured {
		input.InferenceConfig = inference
	}

	if len(options.Tools) > 0 {
		toolConfig, err := convertBedrockTools(options.Tools, options.ToolChoice)
		if err != nil {
			return nil, err
		}
		if toolConfig != nil {
			input.ToolConfig = toolConfig
		}
	}

	resp, err := b.client.Converse(ctx, input)
	if err != nil {
		return nil, troupe.NewTransportError("bedrock", err)
	}

	output, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, nil
	}

	response := troupe.NewMessage(troupe.RoleAssistant, "")
	for _, block := range output.Value.Content {
		switch v := block.(type) {
		case *types.ContentBlockMemberText:
			response.Content += v.Value
		case *types.ContentBlockMemberToolUse:
			call := troupe.ToolCallRequest{
				ID:   aws.ToString(v.Value.ToolUseId),
				Name: aws.ToString(v.Value.Name),
			}
			if call.ID == "" {
				call.ID = uuid.NewString()
			}
			if v.Value.Input != nil {
				raw, err := v.Value.Input.MarshalSmithyDocument()
				if err == nil {
					call.ArgumentsJSON = string(raw)
				}
			}
			response.ToolCalls = append(response.ToolCalls, call)
		}
	}
	response.Metadata = map[string]interface{}{
		"model":         b.modelID,
		"finish_reason": string(resp.StopReason),
	}
	if resp.Usage != nil {
		response.Metadata["usage"] = map[string]interface{}{
			"prompt_tokens":     aws.ToInt32(resp.Usage.InputTokens),
			"completion_tokens": aws.ToInt32(resp.Usage.OutputTokens),
			"total_tokens":      aws.ToInt32(resp.Usage.TotalTokens),
		}
	}

	return &response, nil
}

// convertToBedrock splits system messages out (Converse takes them
// separately) and converts the rest, pairing tool results with their
// originating toolUse blocks by ID.
func convertToBedrock(messages []troupe.Message) ([]types.SystemContentBlock, []types.Message, error) {
	var system []types.SystemContentBlock
	var out []types.Message

	for _, msg := range messages {
		switch msg.Role {
		case troupe.RoleSystem:
			system = append(system, &types.SystemContentBlockMemberText{Value: msg.Content})

		case troupe.RoleTool:
			out = append(out, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberToolResult{
						Value: types.ToolResultBlock{
							ToolUseId: aws.String(msg.ToolCallID),
							Content: []types.ToolResultContentBlock{
								&types.ToolResultContentBlockMemberText{Value: msg.Content},
							},
						},
					},
				},
			})

		case troupe.RoleAssistant:
			var content []types.ContentBlock
			if msg.Content != "" {
				content = append(content, &types.ContentBlockMemberText{Value: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				var input map[string]interface{}
				if err := json.Unmarshal([]byte(call.ArgumentsJSON), &input); err != nil {
					input = map[string]interface{}{}
				}
				content = append(content, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(call.ID),
						Name:      aws.String(call.Name),
						Input:     document.NewLazyDocument(input),
					},
				})
			}
			if len(content) == 0 {
				content = append(content, &types.ContentBlockMemberText{Value: ""})
			}
			out = append(out, types.Message{Role: types.ConversationRoleAssistant, Content: content})

		default:
			out = append(out, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: msg.Content}},
			})
		}
	}

	return system, out, nil
}

// convertBedrockTools builds a Converse tool configuration from specs.
// Converse has no "none" mode, so that choice returns a nil config and
// the tools are withheld from the request entirely.
func convertBedrockTools(specs []troupe.ToolSpec, choice string) (*types.ToolConfiguration, error) {
	if choice == "none" {
		return nil, nil
	}

	tools := make([]types.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(spec.Name),
				Description: aws.String(spec.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(spec.JSONSchema()),
				},
			},
		})
	}

	config := &types.ToolConfiguration{Tools: tools}
	switch choice {
	case "", "auto":
		config.ToolChoice = &types.ToolChoiceMemberAuto{Value: types.AutoToolChoice{}}
	default:
		config.ToolChoice = &types.ToolChoiceMemberTool{
			Value: types.SpecificToolChoice{Name: aws.String(choice)},
		}
	}
	return config, nil
}
