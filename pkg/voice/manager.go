package voice

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/voxsearch/pkg/dataset"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Manager keeps the live sessions of a server.
type Manager struct {
	registry *dataset.Registry
	gate     Gate
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions search datasets of reg and
// consult gate before each recognition pass.
func NewManager(reg *dataset.Registry, gate Gate, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if gate == nil {
		gate = AlwaysGranted
	}
	return &Manager{
		registry: reg,
		gate:     gate,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new idle session on the given dataset.
func (m *Manager) Create(datasetID string, rec Recognizer) (*Session, error) {
	d, err := m.registry.Get(datasetID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = External{}
	}

	id := uuid.NewString()
	s := NewSession(id, d, rec, WithGate(m.gate), WithLogger(m.logger))
	s.now = m.now
	s.lastActive = m.now()

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Debug("session created", "session", id, "dataset", datasetID)
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete stops and removes a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	s.Close()
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap removes sessions idle for longer than ttl and returns how many went.
func (m *Manager) Reap(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		m.logger.Info("reaped idle sessions", "count", len(stale))
	}
	return len(stale)
}

// CloseAll stops every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
