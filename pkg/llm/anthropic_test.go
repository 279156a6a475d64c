package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessages struct {
	lastParams sdk.MessageNewParams
	response   *sdk.Message
	err        error
}

func (f *fakeMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	f.lastParams = body
	return f.response, f.err
}

func textMessage(text string) *sdk.Message {
	return &sdk.Message{
		StopReason: "end_turn",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: text},
		},
	}
}

func newTestClient(fake *fakeMessages) *AnthropicClient {
	return &AnthropicClient{
		messages:      fake,
		model:         "claude-sonnet-4-20250514",
		followUpModel: "claude-3-5-haiku-20241022",
		maxTokens:     2048,
		logger:        slog.New(slog.DiscardHandler),
	}
}

func TestComplete_TextResponse(t *testing.T) {
	fake := &fakeMessages{response: textMessage("Oi! Como posso ajudar?")}
	client := newTestClient(fake)

	resp, err := client.Complete(context.Background(), Request{
		System:   "Você é a Luna.",
		Messages: []Message{{Role: RoleUser, Text: "oi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Oi! Como posso ajudar?", resp.Text)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, "end_turn", resp.StopReason)

	assert.Equal(t, sdk.Model("claude-sonnet-4-20250514"), fake.lastParams.Model)
	require.Len(t, fake.lastParams.System, 1)
	assert.Equal(t, "Você é a Luna.", fake.lastParams.System[0].Text)
}

func TestComplete_ToolCalls(t *testing.T) {
	fake := &fakeMessages{response: &sdk.Message{
		StopReason: "tool_use",
		Content: []sdk.ContentBlockUnion{
			{Type: "tool_use", ID: "tc1", Name: "update_lead", Input: json.RawMessage(`{"name":"Ana"}`)},
		},
	}}
	client := newTestClient(fake)

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Text: "me chamo Ana"}},
		Tools: []ToolDef{{
			Name:        "update_lead",
			InputSchema: map[string]any{"type": "object"},
		}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "tc1", resp.ToolCalls[0].ID)
	assert.Equal(t, "update_lead", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"name":"Ana"}`, string(resp.ToolCalls[0].Input))
	require.Len(t, fake.lastParams.Tools, 1)
}

func TestComplete_ReasoningEnablesThinking(t *testing.T) {
	fake := &fakeMessages{response: textMessage("resposta pensada")}
	client := newTestClient(fake)

	_, err := client.Complete(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Text: "como funciona?"}},
		Reasoning: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, fake.lastParams.Thinking.OfEnabled)
}

func TestComplete_ToolResultsRoundTrip(t *testing.T) {
	fake := &fakeMessages{response: textMessage("feito")}
	client := newTestClient(fake)

	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: RoleUser, Text: "agenda pra amanhã"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "tc1", Name: "create_meeting", Input: json.RawMessage(`{}`)}}},
			{Role: RoleUser, ToolResults: []ToolResult{{ToolCallID: "tc1", Content: `{"ok":true}`}}},
		},
	})
	require.NoError(t, err)
	assert.Len(t, fake.lastParams.Messages, 3)
}

func TestCompleteText_UsesFollowUpModel(t *testing.T) {
	fake := &fakeMessages{response: textMessage("Oi Ana, conseguiu ver a proposta?")}
	client := newTestClient(fake)

	text, err := client.CompleteText(context.Background(), "persona", "escreva um lembrete")
	require.NoError(t, err)
	assert.Equal(t, "Oi Ana, conseguiu ver a proposta?", text)
	assert.Equal(t, sdk.Model("claude-3-5-haiku-20241022"), fake.lastParams.Model)
	assert.Equal(t, int64(256), fake.lastParams.MaxTokens)
}
