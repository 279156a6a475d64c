package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
)

const (
	defaultMaxTokens = 2048
	// Thinking tokens carved out of the completion budget when reasoning
	// mode is on. The API requires at least 1024.
	thinkingBudget = 1024
)

// ErrNoAPIKey is returned when ANTHROPIC_API_KEY is not set.
var ErrNoAPIKey = errors.New("llm: ANTHROPIC_API_KEY is not set")

// messagesAPI is the slice of the SDK the client uses; *sdk.MessageService
// satisfies it and tests substitute a fake.
type messagesAPI interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient implements Client on the Anthropic Messages API.
type AnthropicClient struct {
	messages      messagesAPI
	model         string
	followUpModel string
	maxTokens     int
	logger        *slog.Logger
}

// NewAnthropicClient builds the client from config. The API key comes from
// the environment, never from YAML.
func NewAnthropicClient(cfg *config.LLMConfig, logger *slog.Logger) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &AnthropicClient{
		messages:      &ac.Messages,
		model:         cfg.Model,
		followUpModel: cfg.FollowUpModel,
		maxTokens:     maxTokens,
		logger:        logger.With("component", "llm"),
	}, nil
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  encodeMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, sdk.ToolUnionParamOfTool(
			sdk.ToolInputSchemaParam{ExtraFields: tool.InputSchema}, tool.Name))
	}
	if req.Reasoning {
		params.Thinking = sdk.ThinkingConfigParamOfEnabled(thinkingBudget)
	}

	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages.new: %w", err)
	}
	return decodeResponse(msg), nil
}

// CompleteText implements Client using the cheap follow-up tier.
func (c *AnthropicClient) CompleteText(ctx context.Context, system, prompt string) (string, error) {
	model := c.followUpModel
	if model == "" {
		model = c.model
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: 256,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}
	return decodeResponse(msg).Text, nil
}

func encodeMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		var blocks []sdk.ContentBlockParamUnion
		if msg.Text != "" {
			blocks = append(blocks, sdk.NewTextBlock(msg.Text))
		}
		for _, call := range msg.ToolCalls {
			blocks = append(blocks, sdk.NewToolUseBlock(call.ID, call.Input, call.Name))
		}
		for _, result := range msg.ToolResults {
			blocks = append(blocks, sdk.NewToolResultBlock(result.ToolCallID, result.Content, result.IsError))
		}
		if len(blocks) == 0 {
			continue
		}
		if msg.Role == RoleAssistant {
			out = append(out, sdk.NewAssistantMessage(blocks...))
		} else {
			out = append(out, sdk.NewUserMessage(blocks...))
		}
	}
	return out
}

func decodeResponse(msg *sdk.Message) *Response {
	resp := &Response{StopReason: string(msg.StopReason)}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if resp.Text != "" {
				resp.Text += "\n"
			}
			resp.Text += block.Text
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	return resp
}
