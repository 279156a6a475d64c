// Package llm is the model boundary: a chat-style interface with tool
// calling, implemented on the Anthropic API.
package llm

import (
	"context"
	"encoding/json"
)

// Role of a chat message.
type Role string

// Roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolDef declares one callable tool to the model.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolCall is a tool invocation the model requested.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult feeds a tool's outcome back to the model.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// Message is one chat turn. Assistant turns may carry tool calls; user turns
// may carry tool results.
type Message struct {
	Role        Role
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// Request is one completion call.
type Request struct {
	System    string
	Messages  []Message
	Tools     []ToolDef
	Reasoning bool
	MaxTokens int
}

// Response is the model's reply: natural text, tool calls, or both.
type Response struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// Client is the completion surface the orchestrator and scheduler depend on.
type Client interface {
	// Complete runs one tool-enabled completion with the conversational
	// model.
	Complete(ctx context.Context, req Request) (*Response, error)
	// CompleteText runs a plain completion on the cheap tier. Used for
	// follow-up nudges where latency and cost matter more than depth.
	CompleteText(ctx context.Context, system, prompt string) (string, error)
}
