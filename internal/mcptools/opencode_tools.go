package mcptools

import (
	"context"

	"github.com/mojoassistant/mojoassistant/internal/opencode"
)

const groupOpenCode = "opencode"

// RegisterOpenCodeTools exposes project start/stop/status/list/health,
// sandbox CRUD, duplicate detection, deploy-key retrieval, and MCP
// gateway status/restart as named tools.
func RegisterOpenCodeTools(r *Registry, m *opencode.Manager) {
	r.Register(&Tool{
		Name:        "opencode_project_start",
		Description: "Clone/update a project and start its OpenCode server",
		Group:       groupOpenCode,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"git_url":  map[string]any{"type": "string"},
				"base_dir": map[string]any{"type": "string"},
			},
			"required": []string{"git_url"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			gitURL, err := stringArg(args, "git_url")
			if err != nil {
				return nil, err
			}
			return m.StartProject(ctx, gitURL, optionalString(args, "base_dir", ""))
		},
	})

	r.Register(&Tool{
		Name:        "opencode_project_stop",
		Description: "Stop a project's OpenCode server",
		Group:       groupOpenCode,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"git_url": map[string]any{"type": "string"}},
			"required":   []string{"git_url"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			gitURL, err := stringArg(args, "git_url")
			if err != nil {
				return nil, err
			}
			if err := m.StopProject(ctx, gitURL); err != nil {
				return nil, err
			}
			return map[string]any{"status": "ok"}, nil
		},
	})

	r.Register(&Tool{
		Name:        "opencode_project_status",
		Description: "Report a project's stored record (no health probe is run)",
		Group:       groupOpenCode,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"git_url": map[string]any{"type": "string"}},
			"required":   []string{"git_url"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			gitURL, err := stringArg(args, "git_url")
			if err != nil {
				return nil, err
			}
			return m.GetProjectStatus(gitURL)
		},
	})

	r.Register(&Tool{
		Name:        "opencode_project_list",
		Description: "List every tracked project",
		Group:       groupOpenCode,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return m.ListProjects(), nil
		},
	})

	r.Register(&Tool{
		Name:        "opencode_project_health",
		Description: "Probe a project's PID and HTTP port, demoting it to crashed on failure",
		Group:       groupOpenCode,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"git_url": map[string]any{"type": "string"}},
			"required":   []string{"git_url"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			gitURL, err := stringArg(args, "git_url")
			if err != nil {
				return nil, err
			}
			status, err := m.HealthCheck(ctx, gitURL)
			if err != nil {
				return nil, err
			}
			return map[string]any{"status": status}, nil
		},
	})

	r.Register(&Tool{
		Name:        "opencode_get_deploy_key",
		Description: "Return the public half of a project's SSH deploy key",
		Group:       groupOpenCode,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"git_url": map[string]any{"type": "string"}},
			"required":   []string{"git_url"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			gitURL, err := stringArg(args, "git_url")
			if err != nil {
				return nil, err
			}
			pub, err := m.GetDeployKey(gitURL)
			if err != nil {
				return nil, err
			}
			return map[string]any{"public_key": pub}, nil
		},
	})

	r.Register(&Tool{
		Name:        "opencode_detect_duplicates",
		Description: "Group tracked projects by normalized git URL and surface any group larger than one",
		Group:       groupOpenCode,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return m.DetectDuplicates(), nil
		},
	})

	r.Register(&Tool{
		Name:        "opencode_sandbox_create",
		Description: "Create a named git worktree off a project's primary checkout",
		Group:       groupOpenCode,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"git_url": map[string]any{"type": "string"},
				"name":    map[string]any{"type": "string"},
				"branch":  map[string]any{"type": "string"},
			},
			"required": []string{"git_url", "name", "branch"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			gitURL, err := stringArg(args, "git_url")
			if err != nil {
				return nil, err
			}
			name, err := stringArg(args, "name")
			if err != nil {
				return nil, err
			}
			branch, err := stringArg(args, "branch")
			if err != nil {
				return nil, err
			}
			return m.SandboxCreate(ctx, gitURL, name, branch)
		},
	})

	r.Register(&Tool{
		Name:        "opencode_sandbox_list",
		Description: "List sandboxes tracked for a project",
		Group:       groupOpenCode,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"git_url": map[string]any{"type": "string"}},
			"required":   []string{"git_url"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			gitURL, err := stringArg(args, "git_url")
			if err != nil {
				return nil, err
			}
			return m.SandboxList(gitURL)
		},
	})

	r.Register(&Tool{
		Name:        "opencode_sandbox_delete",
		Description: "Delete a named sandbox worktree",
		Group:       groupOpenCode,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"git_url": map[string]any{"type": "string"},
				"name":    map[string]any{"type": "string"},
			},
			"required": []string{"git_url", "name"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			gitURL, err := stringArg(args, "git_url")
			if err != nil {
				return nil, err
			}
			name, err := stringArg(args, "name")
			if err != nil {
				return nil, err
			}
			if err := m.SandboxDelete(ctx, gitURL, name); err != nil {
				return nil, err
			}
			return map[string]any{"status": "ok"}, nil
		},
	})

	r.Register(&Tool{
		Name:        "opencode_mcp_status",
		Description: "Report the MCP gateway's current state",
		Group:       groupOpenCode,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return m.GatewayStatus(), nil
		},
	})

	r.Register(&Tool{
		Name:        "opencode_mcp_restart",
		Description: "Restart the MCP gateway process",
		Group:       groupOpenCode,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			if err := m.GatewayRestart(ctx); err != nil {
				return nil, err
			}
			return map[string]any{"status": "ok"}, nil
		},
	})

	r.Register(&Tool{
		Name:        "opencode_session_list",
		Description: "List sessions reported by a running project's OpenCode server",
		Group:       groupOpenCode,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"git_url": map[string]any{"type": "string"}},
			"required":   []string{"git_url"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			gitURL, err := stringArg(args, "git_url")
			if err != nil {
				return nil, err
			}
			return m.ListSessions(ctx, gitURL)
		},
	})

	r.Register(&Tool{
		Name:        "opencode_session_create",
		Description: "Open a new session against a running project's OpenCode server",
		Group:       groupOpenCode,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"git_url": map[string]any{"type": "string"},
				"title":   map[string]any{"type": "string"},
			},
			"required": []string{"git_url"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			gitURL, err := stringArg(args, "git_url")
			if err != nil {
				return nil, err
			}
			return m.CreateSession(ctx, gitURL, optionalString(args, "title", ""))
		},
	})
}
