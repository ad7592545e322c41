package sessions

import "sync"

// Store holds at most one live attempt session per student.
type Store interface {
	Put(studentID string, session *Session)
	Get(studentID string) (*Session, bool)
	Delete(studentID string)
}

// MemoryStore is the single-instance Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (s *MemoryStore) Put(studentID string, session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[studentID] = session
}

func (s *MemoryStore) Get(studentID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[studentID]
	return session, ok
}

func (s *MemoryStore) Delete(studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, studentID)
}
