package opencode

import (
	"context"
	"sync"
	"testing"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
)

type fakeRunner struct {
	mu         sync.Mutex
	nextPID    int
	alive      map[int]bool
	cloneCalls int
	cloneErr   error
	startErr   error
	healthy    bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{nextPID: 100, alive: map[int]bool{}, healthy: true}
}

func (f *fakeRunner) CloneOrUpdate(ctx context.Context, gitURL, sshKeyPath, destDir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cloneCalls++
	return f.cloneErr
}

func (f *fakeRunner) StartOpenCode(ctx context.Context, bin string, port int, workDir, password string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.nextPID++
	f.alive[f.nextPID] = true
	return f.nextPID, nil
}

func (f *fakeRunner) StopProcess(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.alive, pid)
	return nil
}

func (f *fakeRunner) ProcessAlive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[pid]
}

func (f *fakeRunner) HealthCheck(ctx context.Context, port int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy
}

func (f *fakeRunner) CreateWorktree(ctx context.Context, repoDir, worktreeDir, branch string) error {
	return nil
}

func (f *fakeRunner) RemoveWorktree(ctx context.Context, repoDir, worktreeDir string) error {
	return nil
}

func newTestManager(t *testing.T, runner *fakeRunner) *Manager {
	t.Helper()
	dir := t.TempDir()
	opts := Options{
		DataDir:        dir,
		KeysDir:        dir + "/keys",
		ProjectsDir:    dir + "/projects",
		OpenCodeBin:    "opencode",
		ServerPassword: "pw",
		GatewayBearer:  "bearer",
		GatewayPort:    8765,
	}
	m := New(opts, runner)
	if err := m.Load(); err != nil {
		t.Fatalf("unexpected error loading manager state: %v", err)
	}
	return m
}

func TestStartProjectStartsGatewayOnFirstProject(t *testing.T) {
	runner := newFakeRunner()
	m := newTestManager(t, runner)

	proj, err := m.StartProject(context.Background(), "git@github.com:acme/widgets.git", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proj.Status != StatusRunning {
		t.Fatalf("expected project status running, got %q", proj.Status)
	}
	if proj.OpenCodePort < portPoolMin || proj.OpenCodePort > portPoolMax {
		t.Fatalf("expected a port within the pool range, got %d", proj.OpenCodePort)
	}
	if runner.cloneCalls != 1 {
		t.Fatalf("expected exactly one clone call, got %d", runner.cloneCalls)
	}
	if m.st.Gateway.ActiveProjectCount != 1 || m.st.Gateway.PID == 0 {
		t.Fatalf("expected the gateway to be started on the first active project")
	}
}

func TestStartProjectIsIdempotentForAnAlreadyRunningProject(t *testing.T) {
	runner := newFakeRunner()
	m := newTestManager(t, runner)
	ctx := context.Background()

	first, err := m.StartProject(ctx, "git@github.com:acme/widgets.git", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := m.StartProject(ctx, "https://github.com/acme/widgets.git", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.OpenCodePort != second.OpenCodePort {
		t.Fatalf("expected the same project to be returned for an equivalent URL, got ports %d and %d", first.OpenCodePort, second.OpenCodePort)
	}
	if runner.cloneCalls != 1 {
		t.Fatalf("expected no second clone for an already-running project, got %d calls", runner.cloneCalls)
	}
}

func TestStopProjectStopsGatewayOnLastProject(t *testing.T) {
	runner := newFakeRunner()
	m := newTestManager(t, runner)
	ctx := context.Background()

	if _, err := m.StartProject(ctx, "git@github.com:acme/widgets.git", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.StopProject(ctx, "git@github.com:acme/widgets.git"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	proj, err := m.GetProjectStatus("git@github.com:acme/widgets.git")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proj.Status != StatusStopped {
		t.Fatalf("expected project status stopped, got %q", proj.Status)
	}
	if m.st.Gateway.ActiveProjectCount != 0 {
		t.Fatalf("expected active_project_count to drop to 0, got %d", m.st.Gateway.ActiveProjectCount)
	}
}

func TestHealthCheckDemotesUnreachableProject(t *testing.T) {
	runner := newFakeRunner()
	m := newTestManager(t, runner)
	ctx := context.Background()

	if _, err := m.StartProject(ctx, "git@github.com:acme/widgets.git", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runner.healthy = false

	status, err := m.HealthCheck(ctx, "git@github.com:acme/widgets.git")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusCrashed {
		t.Fatalf("expected status crashed after a failed health probe, got %q", status)
	}
}

func TestStartProjectSurfacesCloneFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.cloneErr = apperr.New(apperr.KindBackend, "clone failed", nil)
	m := newTestManager(t, runner)

	_, err := m.StartProject(context.Background(), "git@github.com:acme/widgets.git", "")
	if err == nil {
		t.Fatalf("expected an error when clone fails")
	}

	proj, getErr := m.GetProjectStatus("git@github.com:acme/widgets.git")
	if getErr != nil {
		t.Fatalf("unexpected error: %v", getErr)
	}
	if proj.Status != StatusCrashed {
		t.Fatalf("expected project status crashed after clone failure, got %q", proj.Status)
	}
}

func TestSandboxCreateListDelete(t *testing.T) {
	runner := newFakeRunner()
	m := newTestManager(t, runner)
	ctx := context.Background()

	if _, err := m.StartProject(ctx, "git@github.com:acme/widgets.git", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sb, err := m.SandboxCreate(ctx, "git@github.com:acme/widgets.git", "feature-x", "feature-x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sb.Name != "feature-x" {
		t.Fatalf("expected sandbox name feature-x, got %q", sb.Name)
	}

	list, err := m.SandboxList("git@github.com:acme/widgets.git")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one sandbox, got %d", len(list))
	}

	if err := m.SandboxDelete(ctx, "git@github.com:acme/widgets.git", "feature-x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, err = m.SandboxList("git@github.com:acme/widgets.git")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no sandboxes after delete, got %d", len(list))
	}
}

func TestSandboxCreateRejectsInvalidName(t *testing.T) {
	runner := newFakeRunner()
	m := newTestManager(t, runner)
	ctx := context.Background()
	if _, err := m.StartProject(ctx, "git@github.com:acme/widgets.git", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.SandboxCreate(ctx, "git@github.com:acme/widgets.git", "bad name!", "main"); err == nil {
		t.Fatalf("expected an error for an invalid sandbox name")
	}
}

func TestGatewayRestartKeepsServerList(t *testing.T) {
	runner := newFakeRunner()
	m := newTestManager(t, runner)
	ctx := context.Background()
	if _, err := m.StartProject(ctx, "git@github.com:acme/widgets.git", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := m.GatewayStatus()

	if err := m.GatewayRestart(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := m.GatewayStatus()
	if after.PID == 0 {
		t.Fatalf("expected the gateway to have a pid after restart")
	}
	if after.PID == before.PID {
		t.Fatalf("expected restart to produce a new pid")
	}
	if len(after.Servers) != len(before.Servers) {
		t.Fatalf("expected the server list to survive a restart unchanged, got %d vs %d", len(after.Servers), len(before.Servers))
	}
}

func TestDetectDuplicatesEmptyForNormalizedRegistry(t *testing.T) {
	runner := newFakeRunner()
	m := newTestManager(t, runner)
	ctx := context.Background()
	if _, err := m.StartProject(ctx, "git@github.com:acme/widgets.git", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dupes := m.DetectDuplicates(); len(dupes) != 0 {
		t.Fatalf("expected no duplicates in a registry keyed by normalized url, got %v", dupes)
	}
}
