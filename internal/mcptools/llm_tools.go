package mcptools

import (
	"context"

	"github.com/mojoassistant/mojoassistant/internal/llm"
)

const groupLLM = "llm"

// RegisterLLMTools exposes read-only visibility into the current task-tag
// routing configuration.
func RegisterLLMTools(r *Registry, router *llm.Router) {
	r.Register(&Tool{
		Name:        "llm_get_config",
		Description: "Report configured LLM providers and the task-tag routing table",
		Group:       groupLLM,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{
				"providers": router.ProviderNames(),
				"routing":   router.Routes(),
			}, nil
		},
	})
}
