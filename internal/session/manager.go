package session

import (
	"context"
	"sync"

	"github.com/examforge/sessiond/internal/model"
)

// Manager holds one live controller per (exam, effective visitor), the
// service-side analogue of one engine instance per page.
type Manager struct {
	mu       sync.Mutex
	deps     Deps
	sessions map[string]*Controller
}

// NewManager creates a Manager.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Controller),
	}
}

func sessionKey(examID, email string) string {
	return examID + "|" + email
}

// Open returns the live controller for (examID, identity), starting a new
// one on first use. Access is resolved once per session; a reload (Close
// then Open) is the only way to change it.
func (m *Manager) Open(ctx context.Context, examID string, ident model.Identity, impersonate string) *Controller {
	key := sessionKey(examID, ident.Email)

	m.mu.Lock()
	if c, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return c
	}
	c := NewController(examID, ident, m.deps)
	m.sessions[key] = c
	m.mu.Unlock()

	c.Start(ctx, impersonate)
	return c
}

// Get returns an existing controller or nil.
func (m *Manager) Get(examID, email string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionKey(examID, email)]
}

// CloseAll stops every live session's clock monitor (shutdown path).
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Controller, 0, len(m.sessions))
	for _, c := range m.sessions {
		sessions = append(sessions, c)
	}
	m.sessions = make(map[string]*Controller)
	m.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
}
