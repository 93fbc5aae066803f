package mcptools

import (
	"context"
	"time"
)

const groupSystem = "system"

// RegisterSystemTools exposes process-identity and clock tools that don't
// belong to any one service: system_info/system_health let a caller probe
// liveness without touching memory or scheduler state, and the day/time
// tools give dreaming/scheduler callers a single source of "now" that
// matches whatever clock the process was started with.
func RegisterSystemTools(r *Registry, version string, startedAt time.Time, clock func() time.Time) {
	if clock == nil {
		clock = time.Now
	}

	r.Register(&Tool{
		Name:        "system_info",
		Description: "Report process version and start time",
		Group:       groupSystem,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{
				"version":    version,
				"started_at": startedAt,
				"uptime_s":   clock().Sub(startedAt).Seconds(),
			}, nil
		},
	})

	r.Register(&Tool{
		Name:        "system_health",
		Description: "Report overall process liveness",
		Group:       groupSystem,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"status": "ok"}, nil
		},
	})

	r.Register(&Tool{
		Name:        "get_current_day",
		Description: "Return the current date in the process's local timezone",
		Group:       groupSystem,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"date": clock().Format("2006-01-02")}, nil
		},
	})

	r.Register(&Tool{
		Name:        "get_current_time",
		Description: "Return the current time in the process's local timezone",
		Group:       groupSystem,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"time": clock().Format(time.RFC3339)}, nil
		},
	})
}
