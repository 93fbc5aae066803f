package opencode

import (
	"context"
	"fmt"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
	ocapi "github.com/mojoassistant/mojoassistant/pkg/opencode"
)

// Client returns an HTTP client bound to a running project's OpenCode
// server. The manager's own job stops at getting a healthy process
// listening on its pooled port; actually issuing session/message calls
// against it is pkg/opencode.Client's job.
func (m *Manager) Client(gitURL string) (*ocapi.Client, error) {
	norm := Normalize(gitURL)
	m.mu.Lock()
	proj, ok := m.st.Projects[norm]
	m.mu.Unlock()
	if !ok {
		return nil, apperr.NotFound("project", norm)
	}
	if proj.Status != StatusRunning {
		return nil, apperr.New(apperr.KindState, fmt.Sprintf("project %s is not running", norm), map[string]any{"status": proj.Status})
	}
	return ocapi.NewClient(gatewayBackendURL(proj.OpenCodePort), "", m.opts.ServerPassword)
}

// ListSessions returns every session the project's OpenCode server reports.
func (m *Manager) ListSessions(ctx context.Context, gitURL string) ([]ocapi.Session, error) {
	client, err := m.Client(gitURL)
	if err != nil {
		return nil, err
	}
	return client.ListSessions(ctx)
}

// CreateSession opens a new session against the project's OpenCode server
// and records the (git_url, session_id) pair in the project's state.
func (m *Manager) CreateSession(ctx context.Context, gitURL, title string) (*ocapi.Session, error) {
	client, err := m.Client(gitURL)
	if err != nil {
		return nil, err
	}
	session, err := client.CreateSession(ctx, title)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBackend, "creating opencode session", err, nil)
	}

	norm := Normalize(gitURL)
	m.mu.Lock()
	defer m.mu.Unlock()
	if proj, ok := m.st.Projects[norm]; ok {
		proj.SessionIDs = append(proj.SessionIDs, session.ID)
		_ = m.persistLocked()
	}
	return session, nil
}
