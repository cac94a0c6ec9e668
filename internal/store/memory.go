package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	user map[string]map[string]string
	app  map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		user: make(map[string]map[string]string),
		app:  make(map[string]string),
	}
}

func (s *MemoryStore) GetUserValue(_ context.Context, userID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user[userID][key], nil
}

func (s *MemoryStore) SetUserValue(_ context.Context, userID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setUserLocked(userID, key, value)
	return nil
}

func (s *MemoryStore) SetUserValues(_ context.Context, userID string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range values {
		s.setUserLocked(userID, key, value)
	}
	return nil
}

func (s *MemoryStore) DeleteUserValue(_ context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.user[userID], key)
	return nil
}

func (s *MemoryStore) GetAppValue(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app[key], nil
}

func (s *MemoryStore) SetAppValue(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app[key] = value
	return nil
}

func (s *MemoryStore) DeleteAppValue(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.app, key)
	return nil
}

func (s *MemoryStore) setUserLocked(userID, key, value string) {
	if s.user[userID] == nil {
		s.user[userID] = make(map[string]string)
	}
	s.user[userID][key] = value
}
