package session

import (
	"sync"
)

// Manager is the registry of live engines, one per (username, subject, mode).
// A session has no identity beyond that tuple: starting a second session with
// the same parameters replaces the first.
type Manager struct {
	mu      sync.Mutex
	engines map[string]*Engine
}

func NewManager() *Manager {
	return &Manager{engines: make(map[string]*Engine)}
}

func key(username string, p Params) string {
	return username + "|" + p.Subject + "|" + p.Mode
}

// Get returns the live engine for a user's parameters, or ErrNoSession.
func (m *Manager) Get(username, subject, mode string) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.engines[key(username, Params{Subject: subject, Mode: mode})]
	if !ok {
		return nil, ErrNoSession
	}
	return e, nil
}

// Put registers an engine, closing any engine it replaces so its countdown
// cannot keep ticking.
func (m *Manager) Put(username string, e *Engine) {
	k := key(username, e.Params())
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.engines[k]; ok && old != e {
		old.Close()
	}
	m.engines[k] = e
}

// Remove tears an engine down and drops it from the registry.
func (m *Manager) Remove(username string, p Params) {
	k := key(username, p)
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.engines[k]; ok {
		e.Close()
		delete(m.engines, k)
	}
}
