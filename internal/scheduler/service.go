package scheduler

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
)

const defaultNightlyDreamingTaskID = "default-nightly-dreaming"

// Status reported by get_status; a point-in-time snapshot, not a live
// subscription.
type SchedulerStatus struct {
	Running    bool      `json:"running"`
	TaskCount  int       `json:"task_count"`
	NextTickAt time.Time `json:"next_tick_at"`
}

// Scheduler is the persistent, priority-ordered task queue with a
// background tick loop: a single mutex guarding an in-memory task slice, a
// `time.AfterFunc`-armed timer instead of a naive ticker (so the next wake
// time always reflects the earliest due task rather than a fixed poll
// interval), and a store file rewritten atomically after every mutation.
type Scheduler struct {
	mu    sync.Mutex
	tasks []*Task

	tasksPath    string
	clock        func() time.Time
	tickInterval time.Duration

	timer   *time.Timer
	running bool

	executors map[TaskType]Executor
	log       zerolog.Logger
}

// New builds a Scheduler persisting to <dataDir>/scheduler_tasks.json. clock
// defaults to time.Now when nil, injectable for deterministic tests.
func New(dataDir string, clock func() time.Time) *Scheduler {
	return NewWithLogger(dataDir, clock, zerolog.Nop())
}

// NewWithLogger is New with an explicit logger, threaded through so the tick
// loop's dispatch/retry/skip decisions land in the same structured log
// stream as the rest of the process instead of going unobserved.
func NewWithLogger(dataDir string, clock func() time.Time, logger zerolog.Logger) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		tasksPath:    filepath.Join(dataDir, tasksFileName),
		clock:        clock,
		tickInterval: 60 * time.Second,
		executors:    map[TaskType]Executor{},
		log:          logger.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterExecutor wires a task-type executor. Unregistered types fail at
// execution time with a StateError rather than panicking.
func (s *Scheduler) RegisterExecutor(t TaskType, fn Executor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executors[t] = fn
}

// Start loads the persisted queue, performs crash recovery (any task found
// `running` is reset to `pending` with `attempt_count` incremented),
// auto-registers the default nightly dreaming task on first run, and arms
// the tick timer.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tf, err := loadTaskFile(s.tasksPath)
	if err != nil {
		return err
	}
	now := s.clock()
	for _, t := range tf.Tasks {
		if t.Status == StatusRunning {
			t.Status = StatusPending
			t.AttemptCount++
			s.log.Warn().Str("task_id", t.ID).Msg("resetting orphaned running task to pending after restart")
		}
	}
	s.tasks = tf.Tasks

	if !s.hasTaskLocked(defaultNightlyDreamingTaskID) {
		s.tasks = append(s.tasks, defaultDreamingTask(now))
	}

	for _, t := range s.tasks {
		if t.NextRunAt == nil {
			s.seedNextRunAtLocked(t, now)
		}
	}

	if err := s.persistLocked(); err != nil {
		return err
	}

	s.running = true
	s.armTimerLocked()
	s.log.Info().Int("task_count", len(s.tasks)).Msg("scheduler started")
	return nil
}

// Stop disarms the tick timer. Any in-flight executor call is allowed to
// finish; Stop does not cancel it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.log.Info().Msg("scheduler stopped")
}

// Restart is Stop followed by Start.
func (s *Scheduler) Restart(ctx context.Context) error {
	s.Stop()
	return s.Start(ctx)
}

func (s *Scheduler) GetStatus() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.nextWakeLocked()
	return SchedulerStatus{Running: s.running, TaskCount: len(s.tasks), NextTickAt: next}
}

func defaultDreamingTask(now time.Time) *Task {
	return &Task{
		ID:       defaultNightlyDreamingTaskID,
		Type:     TaskDreaming,
		Priority: PriorityLow,
		Status:   StatusPending,
		Schedule: Schedule{Cron: "0 3 * * *"},
		OffPeak:  &OffPeakWindow{Start: "01:00", End: "05:00"},
		Config:   map[string]any{"default": true},
		RetryPolicy: RetryPolicy{
			MaxRetries:     3,
			BackoffSeconds: 60,
		},
		CreatedAt: now,
	}
}

func (s *Scheduler) hasTaskLocked(id string) bool {
	for _, t := range s.tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// AddTask validates and inserts a new task, assigning an id when the caller
// didn't supply one.
func (s *Scheduler) AddTask(task *Task) (*Task, error) {
	if task == nil {
		return nil, apperr.Validation("task must not be nil", nil)
	}
	if task.Type == "" {
		return nil, apperr.Validation("task.type is required", nil)
	}
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = xid.New().String()
	}
	if s.hasTaskLocked(task.ID) {
		return nil, apperr.Conflict("a task with this id already exists", map[string]any{"id": task.ID})
	}
	task.Status = StatusPending
	task.CreatedAt = s.clock()
	s.seedNextRunAtLocked(task, task.CreatedAt)

	s.tasks = append(s.tasks, task)
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	s.armTimerLocked()
	return task, nil
}

func (s *Scheduler) seedNextRunAtLocked(task *Task, now time.Time) {
	switch {
	case task.Schedule.Cron != "":
		if next, ok := computeNextCronFire(task.Schedule.Cron, offPeakTZ(task.OffPeak), now); ok {
			task.NextRunAt = &next
		}
	case task.Schedule.RunAt != nil:
		t := *task.Schedule.RunAt
		task.NextRunAt = &t
	case task.Schedule.Immediate:
		task.NextRunAt = &now
	}
}

func offPeakTZ(w *OffPeakWindow) string {
	if w == nil {
		return ""
	}
	return w.TZ
}

func (s *Scheduler) RemoveTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return s.persistLocked()
		}
	}
	return apperr.NotFound("task", id)
}

func (s *Scheduler) GetTask(id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("task", id)
}

func (s *Scheduler) ListTasks(filter TaskFilter) []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filter.matches(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

func (s *Scheduler) persistLocked() error {
	return saveTaskFile(s.tasksPath, &taskFile{Version: 1, Tasks: s.tasks})
}

// nextWakeLocked returns the earliest pending next_run_at, or the zero time
// if nothing is scheduled.
func (s *Scheduler) nextWakeLocked() time.Time {
	var next time.Time
	for _, t := range s.tasks {
		if t.Status != StatusPending || t.NextRunAt == nil {
			continue
		}
		if next.IsZero() || t.NextRunAt.Before(next) {
			next = *t.NextRunAt
		}
	}
	return next
}

// armTimerLocked arms a one-shot timer for the earliest due task, falling
// back to tickInterval when nothing is scheduled, mirroring the teacher's
// armTimerLocked (a `time.AfterFunc`-driven wake rather than a fixed-rate
// ticker that would wake unnecessarily often or too late).
func (s *Scheduler) armTimerLocked() {
	if !s.running {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	now := s.clock()
	next := s.nextWakeLocked()
	delay := s.tickInterval
	if !next.IsZero() {
		if d := next.Sub(now); d < delay {
			if d < 0 {
				d = 0
			}
			delay = d
		}
	}
	s.timer = time.AfterFunc(delay, s.onTimer)
}

func (s *Scheduler) onTimer() {
	s.Tick(context.Background())
	s.mu.Lock()
	s.armTimerLocked()
	s.mu.Unlock()
}

// Tick runs one scheduling pass: select every pending task whose
// next_run_at has arrived, dispatch them in `(priority desc, next_run_at
// asc, id asc)` order, and persist the resulting state.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock()

	s.mu.Lock()
	var due []*Task
	for _, t := range s.tasks {
		if t.Status == StatusPending && t.NextRunAt != nil && !t.NextRunAt.After(now) {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return priorityRank(due[i].Priority) > priorityRank(due[j].Priority)
		}
		if !due[i].NextRunAt.Equal(*due[j].NextRunAt) {
			return due[i].NextRunAt.Before(*due[j].NextRunAt)
		}
		return due[i].ID < due[j].ID
	})
	s.mu.Unlock()

	for _, t := range due {
		s.runOne(ctx, t)
	}

	s.mu.Lock()
	_ = s.persistLocked()
	s.mu.Unlock()
}

// runOne executes a single due task and applies the resulting state
// transition. The executor call itself runs without the scheduler lock
// held; only the before/after bookkeeping is serialised.
func (s *Scheduler) runOne(ctx context.Context, task *Task) {
	now := s.clock()

	if !withinOffPeak(task.OffPeak, now) {
		s.mu.Lock()
		if live := s.findLocked(task.ID); live != nil {
			live.RunLog = append(live.RunLog, RunLogEntry{
				AttemptedAt: now, Status: StatusSkipped, Reason: "outside_off_peak_window",
			})
			s.recomputeAfterRunLocked(live, now, false)
		}
		s.mu.Unlock()
		s.log.Debug().Str("task_id", task.ID).Msg("skipping task outside off-peak window")
		return
	}

	s.mu.Lock()
	live := s.findLocked(task.ID)
	if live == nil {
		s.mu.Unlock()
		return
	}
	live.Status = StatusRunning
	_ = s.persistLocked()
	executor, ok := s.executors[task.Type]
	s.mu.Unlock()
	s.log.Info().Str("task_id", task.ID).Str("type", string(task.Type)).Msg("dispatching task")

	start := now
	var result any
	var runErr error
	if !ok {
		runErr = apperr.New(apperr.KindState, "no executor registered for task type", map[string]any{"type": string(task.Type)})
	} else {
		result, runErr = executor(ctx, task)
	}
	duration := s.clock().Sub(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	live = s.findLocked(task.ID)
	if live == nil {
		return
	}
	live.LastRunAt = &now
	if runErr != nil {
		live.AttemptCount++
		live.LastError = runErr.Error()
		live.RunLog = append(live.RunLog, RunLogEntry{
			AttemptedAt: now, Status: StatusFailed, DurationMs: duration.Milliseconds(), Error: runErr.Error(),
		})
		if live.AttemptCount < live.RetryPolicy.MaxRetries {
			backoff := time.Duration(live.RetryPolicy.BackoffSeconds) * time.Second * (1 << uint(live.AttemptCount))
			next := s.clock().Add(backoff)
			live.NextRunAt = &next
			live.Status = StatusPending
			s.log.Warn().Str("task_id", task.ID).Err(runErr).Int("attempt", live.AttemptCount).Time("next_run_at", next).Msg("task failed, requeued for retry")
		} else {
			live.Status = StatusFailed
			live.NextRunAt = nil
			s.log.Error().Str("task_id", task.ID).Err(runErr).Int("attempt", live.AttemptCount).Msg("task failed permanently, retries exhausted")
		}
		return
	}

	live.Result = result
	live.RunLog = append(live.RunLog, RunLogEntry{
		AttemptedAt: now, Status: StatusCompleted, DurationMs: duration.Milliseconds(),
	})
	live.AttemptCount = 0
	s.recomputeAfterRunLocked(live, now, true)
	s.log.Info().Str("task_id", task.ID).Dur("duration", duration).Msg("task completed")
}

// recomputeAfterRunLocked recomputes next_run_at for cron tasks after every
// execution; one-shot tasks transition to a terminal status instead.
func (s *Scheduler) recomputeAfterRunLocked(task *Task, now time.Time, completed bool) {
	if task.Schedule.Cron != "" {
		if next, ok := computeNextCronFire(task.Schedule.Cron, offPeakTZ(task.OffPeak), now); ok {
			task.NextRunAt = &next
			task.Status = StatusPending
			return
		}
		task.NextRunAt = nil
		task.Status = StatusFailed
		return
	}
	task.NextRunAt = nil
	if completed {
		task.Status = StatusCompleted
	} else {
		task.Status = StatusSkipped
	}
}

func (s *Scheduler) findLocked(id string) *Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
