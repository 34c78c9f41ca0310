package session

import "sync"

// Store is a session-scoped key-value store.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
	// Update atomically replaces the value under key with fn's result.
	Update(key string, fn func(current any, ok bool) any) any
}

// MemoryStore is an in-memory Store safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]any)}
}

func (s *MemoryStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

func (s *MemoryStore) Update(key string, fn func(current any, ok bool) any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.values[key]
	next := fn(cur, ok)
	s.values[key] = next
	return next
}

// Len returns the number of keys held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
