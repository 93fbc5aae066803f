package opencode

import (
	"context"
	"path/filepath"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
)

// SandboxCreate carves a named git worktree off a project's primary
// checkout on the given branch.
func (m *Manager) SandboxCreate(ctx context.Context, gitURL, name, branch string) (*Sandbox, error) {
	if !validNameRe.MatchString(name) {
		return nil, apperr.Validation("sandbox name must be alphanumeric, dash, or underscore", map[string]any{"name": name})
	}
	norm := Normalize(gitURL)

	m.mu.Lock()
	proj, ok := m.st.Projects[norm]
	if !ok {
		m.mu.Unlock()
		return nil, apperr.NotFound("project", norm)
	}
	for _, sb := range m.st.Sandboxes[norm] {
		if sb.Name == name {
			m.mu.Unlock()
			return nil, apperr.Conflict("sandbox name already exists for this project", map[string]any{"name": name})
		}
	}
	repoDir := proj.BaseDir
	worktreeDir := filepath.Join(repoDir+"-sandboxes", name)
	m.mu.Unlock()

	if err := m.runner.CreateWorktree(ctx, repoDir, worktreeDir, branch); err != nil {
		return nil, err
	}

	sb := &Sandbox{
		ProjectGitURL: norm,
		Name:          name,
		Branch:        branch,
		Path:          worktreeDir,
		CreatedAt:     m.clock(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.Sandboxes[norm] = append(m.st.Sandboxes[norm], sb)
	if err := m.persistLocked(); err != nil {
		return nil, err
	}
	cp := *sb
	return &cp, nil
}

// SandboxList returns every sandbox tracked for a project.
func (m *Manager) SandboxList(gitURL string) ([]Sandbox, error) {
	norm := Normalize(gitURL)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.Projects[norm]; !ok {
		return nil, apperr.NotFound("project", norm)
	}
	out := make([]Sandbox, 0, len(m.st.Sandboxes[norm]))
	for _, sb := range m.st.Sandboxes[norm] {
		out = append(out, *sb)
	}
	return out, nil
}

// SandboxDelete removes a named worktree. The primary checkout itself is
// never a named sandbox, so there's nothing to special-case here beyond
// requiring the name to already be registered.
func (m *Manager) SandboxDelete(ctx context.Context, gitURL, name string) error {
	norm := Normalize(gitURL)
	m.mu.Lock()
	proj, ok := m.st.Projects[norm]
	if !ok {
		m.mu.Unlock()
		return apperr.NotFound("project", norm)
	}
	sandboxes := m.st.Sandboxes[norm]
	idx := -1
	for i, sb := range sandboxes {
		if sb.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return apperr.NotFound("sandbox", name)
	}
	sb := sandboxes[idx]
	repoDir := proj.BaseDir
	m.mu.Unlock()

	if err := m.runner.RemoveWorktree(ctx, repoDir, sb.Path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sandboxes = m.st.Sandboxes[norm]
	for i, s := range sandboxes {
		if s.Name == name {
			m.st.Sandboxes[norm] = append(sandboxes[:i], sandboxes[i+1:]...)
			break
		}
	}
	return m.persistLocked()
}
