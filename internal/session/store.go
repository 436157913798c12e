// Package session persists the facts the onboarding flow resumes from.
package session

import (
	"context"
	"sync"
)

// Keys written by the flow.
const (
	KeyUserToken = "userToken"
	KeyApproved  = "isApproved"
	KeyPINHash   = "pinHash"
)

// Store is an opaque key-value store. Get reports ok=false for a missing
// key. Each Set is atomic per key.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryStore keeps values for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
