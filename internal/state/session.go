package state

import "sync"

// SessionKeyAdminLoggedIn is the session-scoped key that preserves
// admin login across a reload within the same session.
const SessionKeyAdminLoggedIn = "adminLoggedIn"

// SessionStorage is a browser-sessionStorage-like key/value scope.
// Values live for the session only and are never written to the
// record store.
type SessionStorage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemorySession implements SessionStorage in process memory.
type MemorySession struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemorySession creates an empty session scope.
func NewMemorySession() *MemorySession {
	return &MemorySession{values: make(map[string]string)}
}

func (s *MemorySession) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemorySession) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemorySession) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}
