// Package scheduler implements the Scheduler (C6): a persistent,
// priority-ordered task queue with a background tick loop, off-peak window
// gating, and crash recovery for tasks interrupted mid-run.
package scheduler

import "time"

type TaskType string

const (
	TaskDreaming     TaskType = "dreaming"
	TaskScheduledCmd TaskType = "scheduled_cmd"
	TaskAgent        TaskType = "agent"
	TaskCustom       TaskType = "custom"
)

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// priorityRank orders Priority values for the dispatch sort (higher first).
func priorityRank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// Schedule names when a task fires. Exactly one of Cron/RunAt/Immediate
// should be set; Cron takes precedence if more than one is present.
type Schedule struct {
	Cron      string     `json:"cron,omitempty"`
	RunAt     *time.Time `json:"run_at,omitempty"`
	Immediate bool       `json:"immediate,omitempty"`
}

// OffPeakWindow gates a task to a daily [Start,End) window, correctly
// handling windows that cross midnight (Start > End).
type OffPeakWindow struct {
	Start string `json:"start"` // "HH:MM"
	End   string `json:"end"`   // "HH:MM"
	TZ    string `json:"tz,omitempty"`
}

type Resources struct {
	RequiresGPU bool `json:"requires_gpu,omitempty"`
	RequiresLLM bool `json:"requires_llm,omitempty"`
}

type RetryPolicy struct {
	MaxRetries     int `json:"max_retries"`
	BackoffSeconds int `json:"backoff_seconds"`
}

// RunLogEntry records one execution attempt, so get_task/get_status can
// report what actually happened on each tick rather than only the latest
// attempt.
type RunLogEntry struct {
	AttemptedAt time.Time `json:"attempted_at"`
	Status      Status    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
}

// Task is one entry in the persistent priority queue.
type Task struct {
	ID            string         `json:"id"`
	Type          TaskType       `json:"type"`
	Priority      Priority       `json:"priority"`
	Status        Status         `json:"status"`
	Schedule      Schedule       `json:"schedule"`
	OffPeak       *OffPeakWindow `json:"off_peak,omitempty"`
	Config        map[string]any `json:"config,omitempty"`
	Resources     Resources      `json:"resources"`
	RetryPolicy   RetryPolicy    `json:"retry_policy"`
	AttemptCount  int            `json:"attempt_count"`
	LastError     string         `json:"last_error,omitempty"`
	LastRunAt     *time.Time     `json:"last_run_at,omitempty"`
	NextRunAt     *time.Time     `json:"next_run_at,omitempty"`
	Result        any            `json:"result,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	RunLog        []RunLogEntry  `json:"run_log,omitempty"`
}

// taskFile is the on-disk shape of scheduler_tasks.json.
type taskFile struct {
	Version int     `json:"version"`
	Tasks   []*Task `json:"tasks"`
}

// TaskFilter narrows list_tasks.
type TaskFilter struct {
	Type     TaskType
	Status   Status
	Priority Priority
}

func (f TaskFilter) matches(t *Task) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	return true
}
