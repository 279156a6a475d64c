// Package tools defines the agent's tool catalogue: a registry mapping tool
// names to their schema, idempotency class, and invoke function. The
// orchestrator stays agnostic to what each tool does; new tools are added by
// registering them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/llm"
)

// IdempotencyClass drives the orchestrator's retry and fan-out policy.
type IdempotencyClass string

// Idempotency classes.
const (
	// SafeRetry tools may be retried freely and fanned out concurrently.
	SafeRetry IdempotencyClass = "safe_retry"
	// UniqueByKey tools probe the read side first; a conflict upgrades the
	// create to an update.
	UniqueByKey IdempotencyClass = "unique_by_key"
	// SideEffectOnce tools must never be retried past the network boundary.
	SideEffectOnce IdempotencyClass = "side_effect_once"
)

// InvokeFunc executes a tool. The returned string is fed verbatim to the
// model as the tool result, so implementations return compact JSON.
type InvokeFunc func(ctx context.Context, input json.RawMessage) (string, error)

// Tool is one catalogue entry.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Class       IdempotencyClass
	Invoke      InvokeFunc
}

// Registry holds the catalogue. Registration happens at startup; lookups are
// concurrent.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Duplicate names are a programming error.
func (r *Registry) Register(t *Tool) error {
	if t.Name == "" || t.Invoke == nil {
		return fmt.Errorf("tool registration requires a name and an invoke function")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %q is already registered", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Defs returns the catalogue as LLM tool declarations, sorted by name so the
// prompt is stable across runs.
func (r *Registry) Defs() []llm.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.ToolDef, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, llm.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// objectSchema is a shorthand for the JSON-schema shape every tool input
// uses.
func objectSchema(required []string, props map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// jsonResult marshals a tool result, falling back to an error string so the
// model always receives something parseable.
func jsonResult(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}
