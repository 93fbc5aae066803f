package mcptools

import (
	"time"

	"github.com/mojoassistant/mojoassistant/internal/config"
	"github.com/mojoassistant/mojoassistant/internal/dreaming"
	"github.com/mojoassistant/mojoassistant/internal/llm"
	"github.com/mojoassistant/mojoassistant/internal/memory"
	"github.com/mojoassistant/mojoassistant/internal/opencode"
	"github.com/mojoassistant/mojoassistant/internal/scheduler"
)

// Deps bundles every service the tool registry dispatches to.
type Deps struct {
	Memory    *memory.Service
	Dreaming  *dreaming.Pipeline
	Scheduler *scheduler.Scheduler
	OpenCode  *opencode.Manager
	LLM       *llm.Router
	Search    config.SearchConfig

	Version   string
	StartedAt time.Time
	Clock     func() time.Time
}

// New builds a fully-populated Registry from the given services. Dreaming
// may be nil when dreaming is disabled; its tools then respond with a
// disabled-state error rather than being absent, matching the scheduler's
// "always visible, may refuse to run" treatment of the default task.
func New(deps Deps) *Registry {
	r := NewRegistry()
	if deps.Memory != nil {
		RegisterMemoryTools(r, deps.Memory)
	}
	RegisterDreamingTools(r, deps.Dreaming)
	if deps.Scheduler != nil {
		RegisterSchedulerTools(r, deps.Scheduler)
	}
	if deps.OpenCode != nil {
		RegisterOpenCodeTools(r, deps.OpenCode)
	}
	if deps.LLM != nil {
		RegisterLLMTools(r, deps.LLM)
	}
	RegisterSearchTools(r, deps.Search)
	RegisterSystemTools(r, deps.Version, deps.StartedAt, deps.Clock)
	return r
}
