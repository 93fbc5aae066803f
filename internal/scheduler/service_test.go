package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time   { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestScheduler(t *testing.T, clock *fakeClock) *Scheduler {
	t.Helper()
	return New(t.TempDir(), clock.Now)
}

func TestStartAutoRegistersDefaultDreamingTask(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestScheduler(t, clock)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error starting scheduler: %v", err)
	}
	defer s.Stop()

	task, err := s.GetTask(defaultNightlyDreamingTaskID)
	if err != nil {
		t.Fatalf("expected the default nightly dreaming task to be registered: %v", err)
	}
	if task.Priority != PriorityLow {
		t.Fatalf("expected default task priority LOW, got %q", task.Priority)
	}
	if task.OffPeak == nil || task.OffPeak.Start != "01:00" || task.OffPeak.End != "05:00" {
		t.Fatalf("expected default task off-peak window [01:00,05:00), got %+v", task.OffPeak)
	}
}

func TestStartIsIdempotentAboutDefaultTask(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s1 := New(dir, clock.Now)
	if err := s1.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s1.Stop()

	s2 := New(dir, clock.Now)
	if err := s2.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s2.Stop()

	tasks := s2.ListTasks(TaskFilter{Type: TaskDreaming})
	count := 0
	for _, task := range tasks {
		if task.ID == defaultNightlyDreamingTaskID {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one default dreaming task across restarts, found %d", count)
	}
}

func TestCrashRecoveryResetsRunningTasks(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}

	stuck := &Task{
		ID:           "stuck-task",
		Type:         TaskCustom,
		Priority:     PriorityMedium,
		Status:       StatusRunning,
		AttemptCount: 1,
		CreatedAt:    clock.now,
	}
	if err := saveTaskFile(filepath.Join(dir, tasksFileName), &taskFile{Version: 1, Tasks: []*Task{stuck}}); err != nil {
		t.Fatalf("failed to seed task file: %v", err)
	}

	s := New(dir, clock.Now)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	recovered, err := s.GetTask("stuck-task")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recovered.Status != StatusPending {
		t.Fatalf("expected a crashed running task to be reset to pending, got %q", recovered.Status)
	}
	if recovered.AttemptCount != 2 {
		t.Fatalf("expected attempt_count incremented on crash recovery, got %d", recovered.AttemptCount)
	}
}

func TestTickDispatchesByPriorityThenNextRunThenID(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestScheduler(t, clock)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()
	if err := s.RemoveTask(defaultNightlyDreamingTaskID); err != nil {
		t.Fatalf("unexpected error removing default task: %v", err)
	}

	var order []string
	s.RegisterExecutor(TaskCustom, func(ctx context.Context, task *Task) (any, error) {
		order = append(order, task.ID)
		return nil, nil
	})

	past := clock.now.Add(-time.Minute)
	mustAdd := func(id string, priority Priority) {
		if _, err := s.AddTask(&Task{
			ID: id, Type: TaskCustom, Priority: priority,
			Schedule: Schedule{RunAt: &past},
		}); err != nil {
			t.Fatalf("unexpected error adding task %s: %v", id, err)
		}
	}
	mustAdd("b-medium", PriorityMedium)
	mustAdd("a-high", PriorityHigh)
	mustAdd("c-medium", PriorityMedium)

	s.Tick(context.Background())

	if len(order) != 3 {
		t.Fatalf("expected all three due tasks to run, got %v", order)
	}
	if order[0] != "a-high" {
		t.Fatalf("expected the HIGH priority task to run first, got order %v", order)
	}
	if order[1] != "b-medium" || order[2] != "c-medium" {
		t.Fatalf("expected medium-priority tasks to tie-break by id ascending, got order %v", order)
	}
}

func TestTickCompletesOneShotTask(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestScheduler(t, clock)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	s.RegisterExecutor(TaskCustom, func(ctx context.Context, task *Task) (any, error) {
		return "ok", nil
	})
	past := clock.now.Add(-time.Minute)
	if _, err := s.AddTask(&Task{ID: "one-shot", Type: TaskCustom, Schedule: Schedule{RunAt: &past}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Tick(context.Background())

	task, err := s.GetTask("one-shot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != StatusCompleted {
		t.Fatalf("expected a successful one-shot task to become completed, got %q", task.Status)
	}
	if task.NextRunAt != nil {
		t.Fatalf("expected a completed one-shot task to have no next_run_at")
	}
}

func TestTickRetriesFailedTaskWithBackoffThenFails(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestScheduler(t, clock)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	s.RegisterExecutor(TaskCustom, func(ctx context.Context, task *Task) (any, error) {
		return nil, errors.New("boom")
	})
	past := clock.now.Add(-time.Minute)
	if _, err := s.AddTask(&Task{
		ID: "flaky", Type: TaskCustom,
		Schedule:    Schedule{RunAt: &past},
		RetryPolicy: RetryPolicy{MaxRetries: 1, BackoffSeconds: 30},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Tick(context.Background())
	task, err := s.GetTask("flaky")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != StatusFailed {
		t.Fatalf("expected the task to be marked failed once max_retries is exhausted, got %q", task.Status)
	}
	if task.LastError == "" {
		t.Fatalf("expected last_error to be recorded")
	}
}

func TestTickSkipsOutsideOffPeakWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC)}
	s := newTestScheduler(t, clock)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	called := false
	s.RegisterExecutor(TaskCustom, func(ctx context.Context, task *Task) (any, error) {
		called = true
		return nil, nil
	})
	if _, err := s.AddTask(&Task{
		ID: "offpeak-task", Type: TaskCustom,
		Schedule: Schedule{Cron: "* * * * *"},
		OffPeak:  &OffPeakWindow{Start: "01:00", End: "05:00"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The cron task's first firing is 22:01, one minute after it was added.
	clock.Advance(time.Minute)
	s.Tick(context.Background())
	if called {
		t.Fatalf("expected the executor not to run outside its off-peak window")
	}

	task, err := s.GetTask("offpeak-task")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(task.RunLog) != 1 || task.RunLog[0].Status != StatusSkipped || task.RunLog[0].Reason != "outside_off_peak_window" {
		t.Fatalf("expected a skipped run_log entry with outside_off_peak_window reason, got %+v", task.RunLog)
	}

	clock.Advance(3 * time.Hour)
	s.Tick(context.Background())
	if !called {
		t.Fatalf("expected the executor to run once the clock enters the off-peak window")
	}
}

func TestAddTaskRejectsDuplicateID(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestScheduler(t, clock)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	if _, err := s.AddTask(&Task{ID: "dup", Type: TaskCustom, Schedule: Schedule{Immediate: true}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.AddTask(&Task{ID: "dup", Type: TaskCustom, Schedule: Schedule{Immediate: true}}); err == nil {
		t.Fatalf("expected a conflict error for a duplicate task id")
	}
}

func TestRemoveTaskUnknownID(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestScheduler(t, clock)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()
	if err := s.RemoveTask("does-not-exist"); err == nil {
		t.Fatalf("expected an error removing an unknown task id")
	}
}
