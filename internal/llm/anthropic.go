package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/jmvallecillo/kakebo-advisor/internal/common"
)

// anthropicClient implements the Client interface on the Anthropic SDK.
type anthropicClient struct {
	client      anthropic.Client
	limiter     *rateLimiter
	model       string
	temperature float64
	maxTokens   int
}

// newAnthropicClient creates a new Anthropic client.
func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return &anthropicClient{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		limiter:     newRateLimiter(cfg.RequestsPerMinute),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Close stops the client's rate limiter.
func (c *anthropicClient) Close() error {
	c.limiter.Close()
	return nil
}

// Chat sends a conversation to the Anthropic Messages API.
func (c *anthropicClient) Chat(ctx context.Context, messages []Message, tools []Tool) (Response, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return Response{}, err
	}

	system, params, err := toAnthropicMessages(messages)
	if err != nil {
		return Response{}, err
	}

	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.maxTokens),
		Temperature: anthropic.Float(c.temperature),
		Messages:    params,
	}
	if system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		req.Tools = toAnthropicTools(tools)
	}

	message, err := c.client.Messages.New(ctx, req)
	if err != nil {
		return Response{}, classifyAnthropicError(err)
	}

	response := Response{
		Usage: Usage{
			InputTokens:  message.Usage.InputTokens,
			OutputTokens: message.Usage.OutputTokens,
		},
	}

	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			response.Text += variant.Text
		case anthropic.ToolUseBlock:
			response.ToolCalls = append(response.ToolCalls, ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: json.RawMessage(variant.JSON.Input.Raw()),
			})
		}
	}

	return response, nil
}

// toAnthropicMessages converts the provider-neutral transcript. System
// messages become the request's system prompt; tool results become user-role
// tool_result blocks, which is how the Messages API expects them.
func toAnthropicMessages(messages []Message) (string, []anthropic.MessageParam, error) {
	var system string
	params := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = msg.Content
		case RoleUser:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, call.Arguments, call.Name))
			}
			params = append(params, anthropic.NewAssistantMessage(blocks...))
		case RoleTool:
			params = append(params, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)))
		default:
			return "", nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}

	return system, params, nil
}

// toAnthropicTools converts tool definitions into the SDK's tool params.
func toAnthropicTools(tools []Tool) []anthropic.ToolUnionParam {
	params := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		var schema struct {
			Properties map[string]any `json:"properties"`
			Required   []string       `json:"required"`
		}
		// The schema is assembled in-process; a malformed one is a
		// programming error and surfaces as a tool with no parameters.
		_ = json.Unmarshal(tool.Parameters, &schema)

		inputSchema := anthropic.ToolInputSchemaParam{Properties: schema.Properties}
		if len(schema.Required) > 0 {
			inputSchema.ExtraFields = map[string]any{"required": schema.Required}
		}

		params = append(params, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: inputSchema,
			},
		})
	}
	return params
}

// classifyAnthropicError maps SDK errors onto the shared error taxonomy so
// retry logic can tell rate limits from hard failures.
func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: anthropic rate limited: %v", common.ErrModelRateLimit, err),
				Retryable: true,
			}
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: anthropic API error: %v", common.ErrModelConnection, err),
				Retryable: true,
			}
		}
		return fmt.Errorf("anthropic API error (status %d): %w", apiErr.StatusCode, err)
	}
	return fmt.Errorf("%w: %v", common.ErrModelConnection, err)
}
