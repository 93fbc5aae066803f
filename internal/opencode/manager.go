package opencode

import (
	"context"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
)

// Options configures a Manager's filesystem layout and OpenCode binary.
type Options struct {
	DataDir        string
	KeysDir        string
	ProjectsDir    string
	OpenCodeBin    string
	GatewayBin     string
	ServerPassword string
	GatewayBearer  string
	GatewayPort    int
}

// Manager owns the full lifecycle of OpenCode-backed projects: registry,
// deploy keys, process supervision, and the single MCP gateway fronting
// every running project.
type Manager struct {
	mu      sync.Mutex
	opts    Options
	runner  Runner
	ports   *portPool
	st      *state
	clock   func() time.Time
	loaded  bool
	log     zerolog.Logger
}

// New constructs a Manager. Load must be called once before use.
func New(opts Options, runner Runner) *Manager {
	return NewWithLogger(opts, runner, zerolog.Nop())
}

// NewWithLogger is New with an explicit logger, threaded through so project
// lifecycle and gateway transitions land in the same structured log stream
// as the rest of the process instead of going unobserved.
func NewWithLogger(opts Options, runner Runner, logger zerolog.Logger) *Manager {
	if runner == nil {
		runner = NewProcessRunner()
	}
	return &Manager{
		opts:   opts,
		runner: runner,
		ports:  newPortPool(),
		st:     newState(),
		clock:  time.Now,
		log:    logger.With().Str("component", "opencode").Logger(),
	}
}

func (m *Manager) statePath() string   { return filepath.Join(m.opts.DataDir, stateFileName) }
func (m *Manager) serversPath() string { return filepath.Join(m.opts.DataDir, serversFileName) }

// Load reads persisted state and reserves the ports of every project this
// manager believes is running so a fresh process won't collide with them.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := loadState(m.statePath())
	if err != nil {
		return err
	}
	m.st = st
	for _, p := range st.Projects {
		if p.Status == StatusRunning || p.Status == StatusStarting {
			m.ports.reserve(p.OpenCodePort)
		}
	}
	m.loaded = true
	return nil
}

func (m *Manager) persistLocked() error {
	if err := saveState(m.statePath(), m.st); err != nil {
		return err
	}
	return writeServersFile(m.serversPath(), m.st.Gateway.Servers)
}

var validNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// StartProject ensures a project is cloned/updated and has a running
// OpenCode server, starting the MCP gateway on the 0→1 active-project
// transition. baseDirOverride may be empty to use the manager's default
// projects directory.
func (m *Manager) StartProject(ctx context.Context, gitURL, baseDirOverride string) (*Project, error) {
	norm := Normalize(gitURL)
	if norm == "" {
		return nil, apperr.Validation("git_url is required", nil)
	}

	m.mu.Lock()
	existing, hasExisting := m.st.Projects[norm]
	if hasExisting && existing.Status == StatusRunning && m.runner.ProcessAlive(existing.PID) {
		existing.LastSeenAt = m.clock()
		cp := *existing
		_ = m.persistLocked()
		m.mu.Unlock()
		return &cp, nil
	}

	name := ProjectNameFromURL(norm)
	baseDir := baseDirOverride
	if baseDir == "" {
		baseDir = m.opts.ProjectsDir
	}
	destDir := filepath.Join(baseDir, name)
	keyPath := filepath.Join(m.opts.KeysDir, name)

	var port int
	var err error
	if hasExisting && existing.OpenCodePort != 0 {
		port = existing.OpenCodePort
	} else {
		port, err = m.ports.allocate()
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}

	proj := &Project{
		GitURL:       norm,
		ProjectName:  name,
		BaseDir:      destDir,
		OpenCodePort: port,
		SSHKeyPath:   keyPath,
		Status:       StatusStarting,
		CreatedAt:    m.clock(),
		LastSeenAt:   m.clock(),
	}
	m.st.Projects[norm] = proj
	_ = m.persistLocked()
	m.mu.Unlock()
	m.log.Info().Str("git_url", norm).Str("project", name).Int("port", port).Msg("starting opencode project")

	pub, err := EnsureDeployKey(keyPath)
	if err != nil {
		m.markCrashed(norm, port, err)
		return nil, err
	}
	_ = pub

	if err := m.runner.CloneOrUpdate(ctx, gitURL, keyPath, destDir); err != nil {
		m.markCrashed(norm, port, err)
		return nil, err
	}

	pid, err := m.runner.StartOpenCode(ctx, m.opts.OpenCodeBin, port, destDir, m.opts.ServerPassword)
	if err != nil {
		m.markCrashed(norm, port, err)
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	proj = m.st.Projects[norm]
	proj.PID = pid
	proj.Status = StatusRunning
	proj.LastSeenAt = m.clock()

	m.addGatewayServerLocked(norm, proj, keyPath, destDir)
	if err := m.ensureGatewayRunningLocked(ctx); err != nil {
		cp := *proj
		_ = m.persistLocked()
		m.log.Error().Err(err).Str("git_url", norm).Msg("gateway failed to start after project launch")
		return &cp, err
	}
	_ = m.persistLocked()
	m.log.Info().Str("git_url", norm).Int("pid", pid).Msg("opencode project running")
	cp := *proj
	return &cp, nil
}

func (m *Manager) markCrashed(norm string, port int, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if proj, ok := m.st.Projects[norm]; ok {
		proj.Status = StatusCrashed
	}
	m.ports.release(port)
	_ = m.persistLocked()
	m.log.Warn().Err(cause).Str("git_url", norm).Msg("opencode project marked crashed")
}

func (m *Manager) addGatewayServerLocked(norm string, proj *Project, keyPath, destDir string) {
	entry := ServerEntry{
		ProjectGitURL: norm,
		OpenCodeURL:   gatewayBackendURL(proj.OpenCodePort),
		Password:      m.opts.ServerPassword,
		SSHKeyPath:    keyPath,
		SandboxDir:    destDir,
		Status:        ServerUp,
	}
	for i, s := range m.st.Gateway.Servers {
		if s.ProjectGitURL == norm {
			m.st.Gateway.Servers[i] = entry
			return
		}
	}
	m.st.Gateway.Servers = append(m.st.Gateway.Servers, entry)
	m.st.Gateway.ActiveProjectCount = len(m.st.Gateway.Servers)
}

func gatewayBackendURL(port int) string {
	return "http://127.0.0.1:" + strconv.Itoa(port)
}

// ensureGatewayRunningLocked starts the gateway process the first time a
// project becomes active. Caller must hold m.mu.
func (m *Manager) ensureGatewayRunningLocked(ctx context.Context) error {
	if m.st.Gateway.ActiveProjectCount == 0 {
		if m.st.Gateway.PID != 0 {
			_ = m.runner.StopProcess(m.st.Gateway.PID)
			m.log.Info().Int("pid", m.st.Gateway.PID).Msg("stopping mcp gateway, no active projects remain")
			m.st.Gateway.PID = 0
		}
		return nil
	}
	if m.st.Gateway.PID != 0 && m.runner.ProcessAlive(m.st.Gateway.PID) {
		return nil
	}
	if m.st.Gateway.BearerToken == "" {
		m.st.Gateway.BearerToken = uuid.NewString()
	}
	if m.st.Gateway.Port == 0 {
		m.st.Gateway.Port = m.opts.GatewayPort
	}
	gatewayBin := m.opts.GatewayBin
	if gatewayBin == "" {
		gatewayBin = m.opts.OpenCodeBin
	}
	pid, err := m.runner.StartOpenCode(ctx, gatewayBin, m.st.Gateway.Port, m.opts.DataDir, m.opts.GatewayBearer)
	if err != nil {
		m.log.Error().Err(err).Int("port", m.st.Gateway.Port).Msg("failed to start mcp gateway")
		return apperr.Wrap(apperr.KindBackend, "starting mcp gateway process", err, nil)
	}
	m.st.Gateway.PID = pid
	m.log.Info().Int("pid", pid).Int("port", m.st.Gateway.Port).Int("active_projects", m.st.Gateway.ActiveProjectCount).Msg("mcp gateway started")
	return nil
}

// StopProject stops a project's OpenCode server (SIGTERM then SIGKILL) and
// removes it from the gateway, stopping the gateway itself on the last
// project's removal.
func (m *Manager) StopProject(ctx context.Context, gitURL string) error {
	norm := Normalize(gitURL)
	m.mu.Lock()
	proj, ok := m.st.Projects[norm]
	if !ok {
		m.mu.Unlock()
		return apperr.NotFound("project", norm)
	}
	pid := proj.PID
	port := proj.OpenCodePort
	m.mu.Unlock()

	if err := m.runner.StopProcess(pid); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	proj = m.st.Projects[norm]
	proj.Status = StatusStopped
	proj.PID = 0
	proj.LastSeenAt = m.clock()
	m.ports.release(port)

	remaining := m.st.Gateway.Servers[:0]
	for _, s := range m.st.Gateway.Servers {
		if s.ProjectGitURL != norm {
			remaining = append(remaining, s)
		}
	}
	m.st.Gateway.Servers = remaining
	m.st.Gateway.ActiveProjectCount = len(remaining)
	m.log.Info().Str("git_url", norm).Msg("opencode project stopped")
	if err := m.ensureGatewayRunningLocked(ctx); err != nil {
		_ = m.persistLocked()
		return err
	}
	return m.persistLocked()
}

// GetProjectStatus returns a copy of the tracked project's current record.
func (m *Manager) GetProjectStatus(gitURL string) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	norm := Normalize(gitURL)
	proj, ok := m.st.Projects[norm]
	if !ok {
		return nil, apperr.NotFound("project", norm)
	}
	cp := *proj
	return &cp, nil
}

// ListProjects returns copies of every tracked project.
func (m *Manager) ListProjects() []Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Project, 0, len(m.st.Projects))
	for _, p := range m.st.Projects {
		out = append(out, *p)
	}
	return out
}

// HealthCheck probes a running project's PID and HTTP port, demoting it to
// crashed if either check fails.
func (m *Manager) HealthCheck(ctx context.Context, gitURL string) (ProjectStatus, error) {
	norm := Normalize(gitURL)
	m.mu.Lock()
	proj, ok := m.st.Projects[norm]
	if !ok {
		m.mu.Unlock()
		return "", apperr.NotFound("project", norm)
	}
	if proj.Status != StatusRunning {
		status := proj.Status
		m.mu.Unlock()
		return status, nil
	}
	pid, port := proj.PID, proj.OpenCodePort
	m.mu.Unlock()

	alive := m.runner.ProcessAlive(pid) && m.runner.HealthCheck(ctx, port)

	m.mu.Lock()
	defer m.mu.Unlock()
	proj = m.st.Projects[norm]
	if alive {
		proj.LastSeenAt = m.clock()
		_ = m.persistLocked()
		return StatusRunning, nil
	}
	proj.Status = StatusCrashed
	_ = m.persistLocked()
	m.log.Warn().Str("git_url", norm).Int("pid", pid).Int("port", port).Msg("health check failed, marking project crashed")
	return StatusCrashed, nil
}

// DetectDuplicates groups tracked projects by normalized URL, surfacing
// any group larger than one. Because the registry is keyed by the
// normalized URL itself this is normally empty; it exists as a safety net
// for records carried over from before normalization was tightened.
func (m *Manager) DetectDuplicates() []DuplicateGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	groups := map[string][]Project{}
	for _, p := range m.st.Projects {
		key := Normalize(p.GitURL)
		groups[key] = append(groups[key], *p)
	}
	var out []DuplicateGroup
	for url, projects := range groups {
		if len(projects) > 1 {
			out = append(out, DuplicateGroup{NormalizedURL: url, Projects: projects})
		}
	}
	return out
}

// GatewayStatus returns a copy of the current gateway state.
func (m *Manager) GatewayStatus() GatewayState {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.st.Gateway
	cp.Servers = append([]ServerEntry(nil), m.st.Gateway.Servers...)
	return cp
}

// GatewayRestart stops and restarts the gateway process, leaving its
// server list and active_project_count untouched.
func (m *Manager) GatewayRestart(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st.Gateway.PID != 0 {
		_ = m.runner.StopProcess(m.st.Gateway.PID)
		m.st.Gateway.PID = 0
	}
	if err := m.ensureGatewayRunningLocked(ctx); err != nil {
		_ = m.persistLocked()
		return err
	}
	return m.persistLocked()
}

// GetDeployKey returns the public half of a project's deploy key,
// generating the key pair if the project has none yet.
func (m *Manager) GetDeployKey(gitURL string) (string, error) {
	m.mu.Lock()
	proj, ok := m.st.Projects[Normalize(gitURL)]
	m.mu.Unlock()
	if !ok {
		return "", apperr.NotFound("project", Normalize(gitURL))
	}
	return EnsureDeployKey(proj.SSHKeyPath)
}
