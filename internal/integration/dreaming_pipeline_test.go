// Package integration exercises the Memory Service, Dreaming Pipeline, and
// Scheduler together the way cmd/mojoassistant wires them, instead of each
// package's own unit tests that fake the other two away.
package integration

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mojoassistant/mojoassistant/internal/config"
	"github.com/mojoassistant/mojoassistant/internal/dreaming"
	"github.com/mojoassistant/mojoassistant/internal/llm"
	"github.com/mojoassistant/mojoassistant/internal/memory"
	"github.com/mojoassistant/mojoassistant/internal/scheduler"
)

// scriptedProvider returns a canned Generate() response on every call,
// mirroring the fake used in the dreaming package's own router tests.
type scriptedProvider struct {
	name string
	resp *llm.Response
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Generate(ctx context.Context, params llm.Params) (*llm.Response, error) {
	return p.resp, nil
}

func (p *scriptedProvider) ListModels(ctx context.Context) ([]string, error) {
	return []string{"stub"}, nil
}

const sampleChunkJSON = `{"chunks": [
  {"text": "We discussed the Q3 roadmap.", "topic_label": "roadmap", "entities": ["Q3"]},
  {"text": "Decided to ship the mobile app first.", "topic_label": "roadmap", "entities": ["mobile app"]}
]}`

const sampleClusterJSON = `{"clusters": [
  {"kind": "topic", "summary_text": "Roadmap planning for Q3, prioritizing the mobile app.", "entities": ["Q3", "mobile app"]}
]}`

// newScriptedRouter wires a router whose three task-tagged routes each hit
// a distinct scripted provider, matching how internal/llm.FromConfig wires
// the real chunk/cluster/repair routes from config.Config.LLM.TaskRouting.
func newScriptedRouter() *llm.Router {
	providers := map[string]llm.Provider{
		"chunker": &scriptedProvider{name: "chunker", resp: &llm.Response{Content: sampleChunkJSON}},
		"cluster": &scriptedProvider{name: "cluster", resp: &llm.Response{Content: sampleClusterJSON}},
	}
	routing := map[string]config.TaskRoute{
		"dreaming_chunk":   {Provider: "chunker", Model: "chunk-model"},
		"dreaming_cluster": {Provider: "cluster", Model: "cluster-model"},
	}
	return llm.NewRouter(providers, routing)
}

// TestSchedulerDispatchesDreamingAgainstLiveConversation models the §8
// end-to-end path: a conversation is appended to the Memory Service's
// Working tier, a dreaming task is queued against it, and the Scheduler's
// own Tick dispatches that task through the real dreamingExecutor wiring
// (ConversationSource -> Pipeline.ProcessConversation), instead of a test
// driving the Pipeline directly.
func TestSchedulerDispatchesDreamingAgainstLiveConversation(t *testing.T) {
	ctx := context.Background()

	memCfg := config.MemoryConfig{
		WorkingMaxTokens: 1 << 20,
		ActiveMaxPages:   10,
		DataDirectory:    t.TempDir(),
	}
	mem, err := memory.NewService(memCfg, nil)
	require.NoError(t, err)

	require.NoError(t, mem.AddConversation(ctx, "What's the status of the Q3 roadmap?", "We decided to ship the mobile app first.", nil))

	pipeline := dreaming.NewPipeline(newScriptedRouter(), t.TempDir())

	schedCfg := &config.Config{
		Memory:   config.MemoryConfig{DataDirectory: t.TempDir()},
		Dreaming: config.DreamingConfig{Enabled: true},
	}
	sched := scheduler.FromConfig(schedCfg, pipeline, mem, nil, zerolog.Nop())

	task, err := sched.AddTask(&scheduler.Task{
		Type:     scheduler.TaskDreaming,
		Priority: scheduler.PriorityHigh,
		Schedule: scheduler.Schedule{Immediate: true},
		Config: map[string]any{
			"conversation_id": "conv-roadmap-1",
			"last_n_messages": float64(10),
			"quality_level":   string(dreaming.QualityGood),
		},
	})
	require.NoError(t, err)
	require.Equal(t, scheduler.StatusPending, task.Status)

	sched.Tick(ctx)

	completed, err := sched.GetTask(task.ID)
	require.NoError(t, err)
	require.Equal(t, scheduler.StatusCompleted, completed.Status)
	require.Equal(t, 0, completed.AttemptCount)
	require.Empty(t, completed.LastError)

	resultMap, ok := completed.Result.(map[string]any)
	require.True(t, ok, "executor result should be a map[string]any")
	require.Equal(t, "conv-roadmap-1", resultMap["conversation_id"])
	require.Equal(t, 1, resultMap["version"])

	archive, err := pipeline.GetArchive(ctx, "conv-roadmap-1", nil)
	require.NoError(t, err)
	require.True(t, archive.IsLatest)
	require.Len(t, archive.Clusters, 1)
	require.Contains(t, archive.Clusters[0].SummaryText, "Roadmap planning")
}
