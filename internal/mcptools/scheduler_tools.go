package mcptools

import (
	"context"

	"github.com/mojoassistant/mojoassistant/internal/scheduler"
)

const groupScheduler = "scheduler"

// RegisterSchedulerTools exposes task add/list/get/remove and daemon
// status/control as named tools.
func RegisterSchedulerTools(r *Registry, s *scheduler.Scheduler) {
	r.Register(&Tool{
		Name:        "scheduler_add_task",
		Description: "Register a new scheduled task",
		Group:       groupScheduler,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":       map[string]any{"type": "string"},
				"type":     map[string]any{"type": "string"},
				"priority": map[string]any{"type": "string"},
				"cron":     map[string]any{"type": "string"},
				"config":   map[string]any{"type": "object"},
			},
			"required": []string{"type"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			task := &scheduler.Task{
				ID:       optionalString(args, "id", ""),
				Type:     scheduler.TaskType(optionalString(args, "type", "")),
				Priority: scheduler.Priority(optionalString(args, "priority", "")),
				Schedule: scheduler.Schedule{
					Cron:      optionalString(args, "cron", ""),
					Immediate: optionalBool(args, "immediate", false),
				},
				Config: optionalMap(args, "config"),
			}
			return s.AddTask(task)
		},
	})

	r.Register(&Tool{
		Name:        "scheduler_list_tasks",
		Description: "List tasks, optionally filtered by type/status/priority",
		Group:       groupScheduler,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"type":     map[string]any{"type": "string"},
				"status":   map[string]any{"type": "string"},
				"priority": map[string]any{"type": "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			filter := scheduler.TaskFilter{
				Type:     scheduler.TaskType(optionalString(args, "type", "")),
				Status:   scheduler.Status(optionalString(args, "status", "")),
				Priority: scheduler.Priority(optionalString(args, "priority", "")),
			}
			return s.ListTasks(filter), nil
		},
	})

	r.Register(&Tool{
		Name:        "scheduler_get_task",
		Description: "Fetch a single task by id",
		Group:       groupScheduler,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"id": map[string]any{"type": "string"}},
			"required":   []string{"id"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			id, err := stringArg(args, "id")
			if err != nil {
				return nil, err
			}
			return s.GetTask(id)
		},
	})

	r.Register(&Tool{
		Name:        "scheduler_remove_task",
		Description: "Remove a task by id",
		Group:       groupScheduler,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"id": map[string]any{"type": "string"}},
			"required":   []string{"id"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			id, err := stringArg(args, "id")
			if err != nil {
				return nil, err
			}
			if err := s.RemoveTask(id); err != nil {
				return nil, err
			}
			return map[string]any{"status": "ok"}, nil
		},
	})

	r.Register(&Tool{
		Name:        "scheduler_get_status",
		Description: "Report whether the scheduler daemon is running and how many tasks it holds",
		Group:       groupScheduler,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return s.GetStatus(), nil
		},
	})

	r.Register(&Tool{
		Name:        "scheduler_restart",
		Description: "Restart the scheduler daemon",
		Group:       groupScheduler,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			if err := s.Restart(ctx); err != nil {
				return nil, err
			}
			return map[string]any{"status": "ok"}, nil
		},
	})

	r.Register(&Tool{
		Name:        "scheduler_daemon_status",
		Description: "Alias of scheduler_get_status for the daemon-control tool family",
		Group:       groupScheduler,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return s.GetStatus(), nil
		},
	})

	r.Register(&Tool{
		Name:        "scheduler_start_daemon",
		Description: "Start the scheduler daemon's tick loop",
		Group:       groupScheduler,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			if err := s.Start(ctx); err != nil {
				return nil, err
			}
			return map[string]any{"status": "ok"}, nil
		},
	})

	r.Register(&Tool{
		Name:        "scheduler_stop_daemon",
		Description: "Stop the scheduler daemon's tick loop",
		Group:       groupScheduler,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			s.Stop()
			return map[string]any{"status": "ok"}, nil
		},
	})

	r.Register(&Tool{
		Name:        "scheduler_restart_daemon",
		Description: "Alias of scheduler_restart for the daemon-control tool family",
		Group:       groupScheduler,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			if err := s.Restart(ctx); err != nil {
				return nil, err
			}
			return map[string]any{"status": "ok"}, nil
		},
	})
}
