package dreaming

import (
	"github.com/mojoassistant/mojoassistant/internal/config"
	"github.com/mojoassistant/mojoassistant/internal/llm"
)

// FromConfig builds a Pipeline against the given LLM router, persisting
// archives under the shared memory data directory's "dreams" subtree.
func FromConfig(cfg *config.Config, router *llm.Router) *Pipeline {
	return NewPipeline(router, cfg.Memory.DataDirectory)
}
