package session

import "sync"

// Manager tracks at most one live session per user. Beginning a new session
// replaces any in-progress one for that user.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]*Session)}
}

func (m *Manager) Begin(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{UserID: userID, Step: StepFacility}
	m.sessions[userID] = s
	return s
}

func (m *Manager) Get(userID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

func (m *Manager) End(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
