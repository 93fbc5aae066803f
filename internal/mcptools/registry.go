// Package mcptools is the single dispatch surface fronting every memory,
// dreaming, scheduler, and opencode operation: a named-tool registry with
// JSON-schema descriptors, argument validation, and uniform error
// envelopes, adapted from the teacher's pkg/agents/tools registry.
package mcptools

import (
	"context"
	"sort"
	"sync"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
)

// ToolFunc executes one tool call against already-validated arguments.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool is a single named, schema-described, asynchronously executed
// operation exposed through the registry.
type Tool struct {
	Name        string
	Description string
	Group       string
	InputSchema map[string]any
	Execute     ToolFunc
}

// ToolDescriptor is the list_tools() wire shape.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Registry holds every tool this server exposes, grouped by name prefix
// (e.g. "memory", "dreaming", "scheduler", "opencode", "llm").
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	groups map[string][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]*Tool{}, groups: map[string][]string{}}
}

// Register adds a tool, overwriting any existing tool of the same name.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
	if t.Group != "" {
		for _, existing := range r.groups[t.Group] {
			if existing == t.Name {
				return
			}
		}
		r.groups[t.Group] = append(r.groups[t.Group], t.Name)
	}
}

// Get resolves a tool by exact name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool as a wire descriptor, sorted by name.
func (r *Registry) List() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, ToolDescriptor{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Groups returns every registered group name, sorted.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.groups))
	for g := range r.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Execute validates arguments against the tool's declared schema and runs
// it. Both "tool not found" and a failed validation surface as apperr
// values so callers can render them through apperr.ToEnvelope uniformly
// with any error the tool body itself returns.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, apperr.NotFound("tool", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := validateArgs(t.InputSchema, args); err != nil {
		return nil, err
	}
	return t.Execute(ctx, args)
}

// validateArgs checks only that every "required" property listed in the
// schema is present; it does not attempt full JSON-schema type checking.
func validateArgs(schema map[string]any, args map[string]any) error {
	if schema == nil {
		return nil
	}
	required, _ := schema["required"].([]string)
	for _, name := range required {
		if _, ok := args[name]; !ok {
			return apperr.Validation("missing required argument", map[string]any{"argument": name})
		}
	}
	return nil
}
