// Package agent runs the tool-calling loop: it hands the conversation to the
// model, executes the tool calls it asks for under per-class retry and
// deduplication policy, and returns the final reply text.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/cache"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/llm"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/masking"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/tools"
)

// sideEffectTTL bounds how long a side-effect fingerprint suppresses a
// duplicate execution. Long enough to cover webhook redelivery, short enough
// that a legitimate identical message later still goes out.
const sideEffectTTL = 5 * time.Minute

// FallbackReply is sent when the turn cannot produce a real answer. The
// caller delivers it through the humanizer like any other reply.
const FallbackReply = "Desculpa, tive um probleminha aqui do meu lado. Pode me mandar sua mensagem de novo?"

// Input is one conversational turn handed to the orchestrator.
type Input struct {
	Phone     string
	System    string
	Messages  []llm.Message
	Reasoning bool
}

// Agent drives the model/tool loop for one turn at a time. Safe for
// concurrent use across phones.
type Agent struct {
	llm      llm.Client
	registry *tools.Registry
	dedup    cache.Deduper
	cfg      *config.AgentConfig
	logger   *slog.Logger
}

// New creates the orchestrator.
func New(client llm.Client, registry *tools.Registry, dedup cache.Deduper, cfg *config.AgentConfig, logger *slog.Logger) *Agent {
	return &Agent{
		llm:      client,
		registry: registry,
		dedup:    dedup,
		cfg:      cfg,
		logger:   logger.With("component", "agent"),
	}
}

// Run executes the loop until the model answers in plain text or the hop
// budget runs out. On failure the returned reply is still deliverable (the
// fallback apology) alongside the error.
func (a *Agent) Run(ctx context.Context, input Input) (string, error) {
	req := llm.Request{
		System:    input.System,
		Messages:  input.Messages,
		Tools:     a.registry.Defs(),
		Reasoning: input.Reasoning,
	}
	logger := a.logger.With("phone", masking.Phone(input.Phone))

	for hop := 0; hop < a.cfg.MaxToolHops; hop++ {
		resp, err := a.complete(ctx, req)
		if err != nil {
			logger.Error("Completion failed", "hop", hop, "error", err)
			return FallbackReply, fmt.Errorf("completion failed: %w", err)
		}
		if len(resp.ToolCalls) == 0 {
			return extractReply(resp.Text), nil
		}

		logger.Debug("Executing tool batch", "hop", hop, "calls", len(resp.ToolCalls))
		results := a.executeBatch(ctx, input.Phone, resp.ToolCalls)

		req.Messages = append(req.Messages, llm.Message{
			Role:      llm.RoleAssistant,
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		req.Messages = append(req.Messages, llm.Message{
			Role:        llm.RoleUser,
			ToolResults: results,
		})
	}

	logger.Error("Tool hop budget exhausted", "max_hops", a.cfg.MaxToolHops)
	return FallbackReply, fmt.Errorf("tool hop budget exhausted after %d hops", a.cfg.MaxToolHops)
}

func (a *Agent) complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.LLMTimeout())
	defer cancel()
	return a.llm.Complete(callCtx, req)
}

// executeBatch runs the calls concurrently when every call in the batch is
// safe to retry; any call with side effects serializes the whole batch so
// ordering stays deterministic.
func (a *Agent) executeBatch(ctx context.Context, phone string, calls []llm.ToolCall) []llm.ToolResult {
	results := make([]llm.ToolResult, len(calls))

	if len(calls) > 1 && a.allSafeRetry(calls) {
		var wg sync.WaitGroup
		for i, call := range calls {
			wg.Add(1)
			go func(i int, call llm.ToolCall) {
				defer wg.Done()
				results[i] = a.executeCall(ctx, phone, call)
			}(i, call)
		}
		wg.Wait()
		return results
	}

	for i, call := range calls {
		results[i] = a.executeCall(ctx, phone, call)
	}
	return results
}

func (a *Agent) allSafeRetry(calls []llm.ToolCall) bool {
	for _, call := range calls {
		tool, ok := a.registry.Get(call.Name)
		if !ok || tool.Class != tools.SafeRetry {
			return false
		}
	}
	return true
}

func (a *Agent) executeCall(ctx context.Context, phone string, call llm.ToolCall) llm.ToolResult {
	logger := a.logger.With("tool", call.Name, "phone", masking.Phone(phone))

	tool, ok := a.registry.Get(call.Name)
	if !ok {
		logger.Warn("Model requested unknown tool")
		return errorResult(call.ID, fmt.Sprintf("unknown tool %q", call.Name))
	}

	if tool.Class == tools.SideEffectOnce {
		fingerprint := cache.Fingerprint(phone, call.Name+":"+string(call.Input))
		seen, err := a.dedup.CheckAndSet(ctx, fingerprint, sideEffectTTL)
		if err != nil {
			logger.Warn("Fingerprint check failed, executing anyway", "error", err)
		} else if seen {
			logger.Info("Duplicate side-effect call suppressed")
			return llm.ToolResult{ToolCallID: call.ID, Content: `{"deduplicated":true}`}
		}
	}

	content, err := a.invoke(ctx, tool, call)
	if err != nil {
		logger.Warn("Tool call failed", "error", err)
		return errorResult(call.ID, err.Error())
	}
	return llm.ToolResult{ToolCallID: call.ID, Content: content}
}

// invoke runs the tool once, or up to three attempts with backoff when the
// tool is safe to retry and the failure looks transient.
func (a *Agent) invoke(ctx context.Context, tool *tools.Tool, call llm.ToolCall) (string, error) {
	attempts := 1
	if tool.Class == tools.SafeRetry {
		attempts = maxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			a.logger.Debug("Retrying tool call", "tool", tool.Name, "attempt", attempt+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, a.cfg.ToolTimeout())
		content, err := tool.Invoke(callCtx, call.Input)
		cancel()
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return "", lastErr
}

func errorResult(callID, message string) llm.ToolResult {
	return llm.ToolResult{ToolCallID: callID, Content: message, IsError: true}
}
