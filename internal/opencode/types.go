// Package opencode manages the lifecycle of per-project OpenCode server
// processes: cloning/updating a project's git checkout over an SSH deploy
// key, spawning and supervising the OpenCode binary bound to a pooled port,
// health-checking it, and tracking the single MCP gateway process that
// fronts every running project.
package opencode

import "time"

// ProjectStatus mirrors the lifecycle of a managed OpenCode server process.
type ProjectStatus string

const (
	StatusStopped ProjectStatus = "stopped"
	StatusStarting ProjectStatus = "starting"
	StatusRunning ProjectStatus = "running"
	StatusCrashed ProjectStatus = "crashed"
)

// ServerStatus mirrors a gateway-tracked backend's reachability.
type ServerStatus string

const (
	ServerUp   ServerStatus = "up"
	ServerDown ServerStatus = "down"
)

// Project is a single git repository under OpenCode management, keyed by
// its normalized git URL.
type Project struct {
	GitURL       string    `json:"git_url"`
	ProjectName  string    `json:"project_name"`
	BaseDir      string    `json:"base_dir"`
	OpenCodePort int       `json:"opencode_port"`
	PID          int       `json:"pid,omitempty"`
	SSHKeyPath   string    `json:"ssh_key_path"`
	Status       ProjectStatus `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
	// SessionIDs holds opaque session handles returned by this project's
	// OpenCode process. The manager stores the (git_url, session_id) pair
	// but does not own the session's own schema beyond that.
	SessionIDs []string `json:"session_ids,omitempty"`
}

// Sandbox is a named git worktree carved off a project's primary checkout.
type Sandbox struct {
	ProjectGitURL string    `json:"project_git_url"`
	Name          string    `json:"name"`
	Branch        string    `json:"branch"`
	Path          string    `json:"path"`
	CreatedAt     time.Time `json:"created_at"`
}

// ServerEntry is one backend the MCP gateway proxies requests to.
type ServerEntry struct {
	ProjectGitURL string       `json:"project_git_url"`
	OpenCodeURL   string       `json:"opencode_url"`
	Password      string       `json:"password"`
	SSHKeyPath    string       `json:"ssh_key_path"`
	SandboxDir    string       `json:"sandbox_dir"`
	Status        ServerStatus `json:"status"`
}

// GatewayState tracks the single MCP gateway process that fronts every
// running project's OpenCode server.
type GatewayState struct {
	Port               int           `json:"port"`
	BearerToken        string        `json:"bearer_token"`
	ActiveProjectCount int           `json:"active_project_count"`
	PID                int           `json:"pid,omitempty"`
	Servers            []ServerEntry `json:"servers"`
}

// DuplicateGroup is a set of project records that normalize to the same
// canonical git URL key, surfaced by detect_duplicates.
type DuplicateGroup struct {
	NormalizedURL string    `json:"normalized_url"`
	Projects      []Project `json:"projects"`
}

// state is the on-disk shape of opencode-state.json.
type state struct {
	Version  int                `json:"version"`
	Projects map[string]*Project `json:"projects"`
	Sandboxes map[string][]*Sandbox `json:"sandboxes"`
	Gateway  GatewayState       `json:"gateway"`
}

func newState() *state {
	return &state{
		Version:   1,
		Projects:  map[string]*Project{},
		Sandboxes: map[string][]*Sandbox{},
	}
}
