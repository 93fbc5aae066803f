package scheduler

import (
	"context"
	"os/exec"
	"strings"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
	"github.com/mojoassistant/mojoassistant/internal/dreaming"
)

// Executor runs one task attempt to completion and returns a JSON-serialisable
// result, or an error that marks the attempt failed.
type Executor func(ctx context.Context, task *Task) (any, error)

// ConversationSource lets the dreaming executor gather the conversation text
// to consolidate when a task's config doesn't carry it directly, scanning
// the conversation store for the last N messages.
type ConversationSource interface {
	RecentTranscript(ctx context.Context, conversationID string, lastN int) (string, error)
}

// dreamingExecutor adapts the Dreaming Pipeline's process_conversation call
// into a task executor; it is wired in only when dreaming is enabled, but it
// is always registered for the `dreaming` task type so an explicitly
// add_task'd dreaming task surfaces a clear error rather than "unknown type"
// when dreaming has been disabled at the config layer.
func dreamingExecutor(pipeline *dreaming.Pipeline, conversations ConversationSource) Executor {
	return func(ctx context.Context, task *Task) (any, error) {
		if pipeline == nil {
			return nil, apperr.New(apperr.KindState, "dreaming is disabled; this task cannot execute", map[string]any{"task_id": task.ID})
		}
		conversationID, _ := task.Config["conversation_id"].(string)
		rawText, _ := task.Config["raw_text"].(string)
		quality := dreaming.QualityBasic
		if q, ok := task.Config["quality_level"].(string); ok && q != "" {
			quality = dreaming.QualityLevel(q)
		}
		if rawText == "" && conversationID != "" && conversations != nil {
			lastN := 50
			if n, ok := task.Config["last_n_messages"].(float64); ok && n > 0 {
				lastN = int(n)
			}
			text, err := conversations.RecentTranscript(ctx, conversationID, lastN)
			if err != nil {
				return nil, err
			}
			rawText = text
		}
		if conversationID == "" {
			return nil, apperr.Validation("dreaming task config must set conversation_id", map[string]any{"task_id": task.ID})
		}
		archive, err := pipeline.ProcessConversation(ctx, conversationID, rawText, quality)
		if err != nil {
			return nil, err
		}
		return map[string]any{"conversation_id": archive.ConversationID, "version": archive.Version}, nil
	}
}

// scheduledCmdExecutor invokes a configured executable with configured
// arguments, reporting combined stdout+stderr as the result on success.
func scheduledCmdExecutor() Executor {
	return func(ctx context.Context, task *Task) (any, error) {
		command, _ := task.Config["command"].(string)
		if strings.TrimSpace(command) == "" {
			return nil, apperr.Validation("scheduled_cmd task config must set command", map[string]any{"task_id": task.ID})
		}
		var args []string
		if rawArgs, ok := task.Config["args"].([]any); ok {
			for _, a := range rawArgs {
				if s, ok := a.(string); ok {
					args = append(args, s)
				}
			}
		}
		cmd := exec.CommandContext(ctx, command, args...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scheduled_cmd execution failed", err, map[string]any{
				"task_id": task.ID, "command": command, "output": string(out),
			})
		}
		return map[string]any{"output": string(out)}, nil
	}
}

// agentExecutor is reserved for an `agent` task type: an LLM-driven action
// whose concrete shape (which agent, what tools) isn't pinned down yet.
func agentExecutor() Executor {
	return func(ctx context.Context, task *Task) (any, error) {
		return nil, apperr.New(apperr.KindState, "agent task executor is not implemented", map[string]any{"task_id": task.ID})
	}
}

// CustomRegistry holds caller-supplied `custom` task callbacks, registered by
// key (task.Config["callback_key"]).
type CustomRegistry struct {
	callbacks map[string]Executor
}

func NewCustomRegistry() *CustomRegistry {
	return &CustomRegistry{callbacks: map[string]Executor{}}
}

func (r *CustomRegistry) Register(key string, fn Executor) {
	r.callbacks[key] = fn
}

func (r *CustomRegistry) executor() Executor {
	return func(ctx context.Context, task *Task) (any, error) {
		key, _ := task.Config["callback_key"].(string)
		fn, ok := r.callbacks[key]
		if !ok {
			return nil, apperr.NotFound("custom task callback", key)
		}
		return fn(ctx, task)
	}
}
