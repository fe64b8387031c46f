package match

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/auragrid/auragrid-server-go/internal/match/ability"
	"github.com/auragrid/auragrid-server-go/internal/match/command"
)

// Manager tracks running sessions and drives their tick loops from a
// single caller-owned clock.
type Manager struct {
	logger  *zap.Logger
	tuning  Tuning
	catalog *ability.Catalog

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. All sessions it creates share
// the same tuning and ability catalog.
func NewManager(tuning Tuning, catalog *ability.Catalog, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = ability.DefaultCatalog()
	}
	return &Manager{
		logger:   logger,
		tuning:   tuning,
		catalog:  catalog,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session. fwd may be nil for local-only matches.
func (m *Manager) Create(fwd command.Forwarder) *Session {
	s := NewSession(m.tuning, m.catalog, fwd, m.logger)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("match created", zap.String("match_id", s.ID))
	return s
}

// Get returns a session by ID.
func (m *Manager) Get(matchID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[matchID]
	if !ok {
		return nil, fmt.Errorf("match %s not found", matchID)
	}
	return s, nil
}

// Remove drops a session from the manager.
func (m *Manager) Remove(matchID string) {
	m.mu.Lock()
	_, ok := m.sessions[matchID]
	delete(m.sessions, matchID)
	m.mu.Unlock()

	if ok {
		m.logger.Info("match removed", zap.String("match_id", matchID))
	}
}

// Count returns the number of tracked sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// TickAll advances every session by delta seconds. Finished sessions
// are reported so the caller can persist and remove them.
func (m *Manager) TickAll(delta float64) []*Session {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	var finished []*Session
	for _, s := range sessions {
		s.Tick(delta)
		if done, _ := s.Finished(); done {
			finished = append(finished, s)
		}
	}
	return finished
}
