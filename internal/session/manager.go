package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager tracks active client sessions with thread-safe operations.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session // clientAddr -> session

	// OnSessionEnd, when set, is invoked for every session removed from
	// the manager, e.g. to persist a history record.
	OnSessionEnd func(*Session)
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate retrieves the session for a client address, creating one on
// first sight. The boolean reports whether a new session was created.
func (m *Manager) GetOrCreate(clientAddr string) (*Session, bool) {
	m.mu.RLock()
	if s, ok := m.sessions[clientAddr]; ok {
		m.mu.RUnlock()
		return s, false
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock.
	if s, ok := m.sessions[clientAddr]; ok {
		return s, false
	}

	now := time.Now()
	s := &Session{
		ID:         uuid.New().String(),
		ClientAddr: clientAddr,
		StartTime:  now,
	}
	s.lastSeenNano.Store(now.UnixNano())

	m.sessions[clientAddr] = s
	return s, true
}

// Get retrieves a session by client address.
func (m *Manager) Get(clientAddr string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[clientAddr]
	return s, ok
}

// Remove deletes a session by client address and fires OnSessionEnd.
// Returns an error if no session exists for the address.
func (m *Manager) Remove(clientAddr string) error {
	m.mu.Lock()
	s, ok := m.sessions[clientAddr]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("session not found for client: %s", clientAddr)
	}
	delete(m.sessions, clientAddr)
	m.mu.Unlock()

	if m.OnSessionEnd != nil {
		m.OnSessionEnd(s)
	}
	return nil
}

// RemoveAll drains every session, firing OnSessionEnd for each. Used at
// proxy shutdown to flush session history.
func (m *Manager) RemoveAll() int {
	m.mu.Lock()
	drained := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	if m.OnSessionEnd != nil {
		for _, s := range drained {
			m.OnSessionEnd(s)
		}
	}
	return len(drained)
}

// All returns a snapshot slice of every active session.
func (m *Manager) All() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
