// Package session manages REPL session lifecycle.
package session

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxHistory bounds the per-session query history.
const maxHistory = 500

// Session holds per-connection REPL state: the queries typed so far and
// the parameter values bound with :set.
type Session struct {
	mu           sync.Mutex
	ID           string
	history      []string
	parameters   map[string]string
	CreatedAt    time.Time
	lastActiveAt time.Time
}

// Snapshot is a point-in-time copy of a session, safe to encode.
type Snapshot struct {
	ID           string            `json:"id"`
	History      []string          `json:"history"`
	Parameters   map[string]string `json:"parameters"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActiveAt time.Time         `json:"last_active_at"`
}

// NewSession creates a session with a fresh ID.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New().String(),
		parameters:   make(map[string]string),
		CreatedAt:    now,
		lastActiveAt: now,
	}
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActiveAt = time.Now()
	s.mu.Unlock()
}

// AddHistory appends a query to the session history, dropping the oldest
// entry once the history is full.
func (s *Session) AddHistory(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == maxHistory {
		s.history = s.history[1:]
	}
	s.history = append(s.history, query)
	s.lastActiveAt = time.Now()
}

// History returns a copy of the session history, oldest first.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// ClearHistory empties the session history.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

// SetParameter binds a value to an input parameter name.
func (s *Session) SetParameter(name, value string) {
	s.mu.Lock()
	s.parameters[name] = value
	s.mu.Unlock()
}

// UnsetParameter removes a binding and reports whether it existed.
func (s *Session) UnsetParameter(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.parameters[name]
	delete(s.parameters, name)
	return ok
}

// Parameters returns a copy of the bound parameters.
func (s *Session) Parameters() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.parameters)
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:           s.ID,
		History:      slices.Clone(s.history),
		Parameters:   maps.Clone(s.parameters),
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.lastActiveAt,
	}
}

// LastActiveAt returns the last activity timestamp.
func (s *Session) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return time.Since(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	return time.Since(s.LastActiveAt()) > timeout
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
}

// NewManager creates a session manager with the given timeouts.
func NewManager(maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
	}
}

// Create creates a new session and returns it.
func (m *Manager) Create() *Session {
	s := NewSession()
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if m.stale(s) {
		m.Remove(id)
		return nil
	}
	return s
}

// Remove deletes a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if m.stale(s) {
			delete(m.sessions, id)
		}
	}
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

func (m *Manager) stale(s *Session) bool {
	return s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout)
}
