package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/mojoassistant/mojoassistant/internal/config"
	"github.com/mojoassistant/mojoassistant/internal/dreaming"
)

// FromConfig builds a Scheduler wired to the dreaming executor (gated by
// cfg.Dreaming.Enabled per the "DREAMING_ENABLED only gates the executor,
// not task registration" decision recorded in DESIGN.md), the scheduled_cmd
// executor, the reserved agent executor, and an empty custom registry the
// caller can populate after construction.
func FromConfig(cfg *config.Config, pipeline *dreaming.Pipeline, conversations ConversationSource, custom *CustomRegistry, logger zerolog.Logger) *Scheduler {
	s := NewWithLogger(cfg.Memory.DataDirectory, nil, logger)

	var dreamingPipeline *dreaming.Pipeline
	if cfg.Dreaming.Enabled {
		dreamingPipeline = pipeline
	}
	s.RegisterExecutor(TaskDreaming, dreamingExecutor(dreamingPipeline, conversations))
	s.RegisterExecutor(TaskScheduledCmd, scheduledCmdExecutor())
	s.RegisterExecutor(TaskAgent, agentExecutor())
	if custom == nil {
		custom = NewCustomRegistry()
	}
	s.RegisterExecutor(TaskCustom, custom.executor())
	return s
}
