package llm

import (
	"context"
	"sort"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
	"github.com/mojoassistant/mojoassistant/internal/config"
)

// Router selects a provider+model for a task tag ("chat", "dreaming_chunk",
// "dreaming_cluster", "repair_json", ...), mirroring the teacher's
// task-tag-driven provider selection pattern used for heartbeats/subagents.
type Router struct {
	providers map[string]Provider
	routing   map[string]config.TaskRoute
}

// NewRouter builds a Router from a set of named providers and the task-tag
// routing table loaded from llm_config.json.
func NewRouter(providers map[string]Provider, routing map[string]config.TaskRoute) *Router {
	return &Router{providers: providers, routing: routing}
}

// Choose resolves a task tag to a concrete (provider, model) pair.
func (r *Router) Choose(taskTag string) (Provider, string, error) {
	route, ok := r.routing[taskTag]
	if !ok {
		return nil, "", apperr.New(apperr.KindConfig, "no llm_config.json route for task tag", map[string]any{"task_tag": taskTag})
	}
	provider, ok := r.providers[route.Provider]
	if !ok {
		return nil, "", apperr.New(apperr.KindLLM, "configured provider is not available", map[string]any{"provider": route.Provider, "task_tag": taskTag})
	}
	return provider, route.Model, nil
}

// Complete resolves the task tag and performs the call in one step.
func (r *Router) Complete(ctx context.Context, taskTag string, messages []Message, systemPrompt string) (*Response, error) {
	provider, model, err := r.Choose(taskTag)
	if err != nil {
		return nil, err
	}
	return provider.Generate(ctx, Params{
		Model:        model,
		Messages:     messages,
		SystemPrompt: systemPrompt,
	})
}

// Routes returns a copy of the task-tag routing table, for surfacing
// current LLM configuration through tooling.
func (r *Router) Routes() map[string]config.TaskRoute {
	out := make(map[string]config.TaskRoute, len(r.routing))
	for k, v := range r.routing {
		out[k] = v
	}
	return out
}

// ProviderNames returns the names of every provider with credentials
// configured, sorted for stable output.
func (r *Router) ProviderNames() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FromConfig builds a Router with every provider that has credentials
// configured.
func FromConfig(ctx context.Context, cfg *config.Config) (*Router, error) {
	providers := make(map[string]Provider)

	if cfg.LLM.OpenAIAPIKey != "" {
		p, err := NewOpenAIProvider(cfg.LLM.OpenAIAPIKey, "")
		if err != nil {
			return nil, err
		}
		providers["openai"] = p
	}
	if cfg.LLM.AnthropicAPIKey != "" {
		p, err := NewAnthropicProvider(cfg.LLM.AnthropicAPIKey)
		if err != nil {
			return nil, err
		}
		providers["anthropic"] = p
	}
	if cfg.LLM.GoogleAPIKey != "" {
		p, err := NewGeminiProvider(ctx, cfg.LLM.GoogleAPIKey)
		if err != nil {
			return nil, err
		}
		providers["gemini"] = p
	}
	if cfg.LLM.LMStudioBaseURL != "" {
		p, err := NewOpenAIProvider(cfg.LLM.LMStudioAPIKey, cfg.LLM.LMStudioBaseURL)
		if err != nil {
			return nil, err
		}
		providers["local"] = p
	}

	return NewRouter(providers, cfg.LLM.TaskRouting), nil
}
