package preferences

import (
	"context"
	"sync"
)

// Store handles preference persistence. Get must return Default preferences
// for users that never saved any, so callers never deal with a missing row.
type Store interface {
	// Get returns the preferences for a user.
	Get(ctx context.Context, userID string) (Preferences, error)

	// Put replaces the stored preferences for prefs.UserID wholesale.
	Put(ctx context.Context, prefs Preferences) error
}

// MemoryStore is an in-memory implementation of the Store interface.
// Writes are full replacements guarded by the same lock as reads, matching
// the delivery core's shared-resource policy for preference mutation.
type MemoryStore struct {
	prefs map[string]Preferences
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory preferences store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[string]Preferences)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.prefs[userID]; ok {
		return p, nil
	}
	return Default(userID), nil
}

func (s *MemoryStore) Put(ctx context.Context, prefs Preferences) error {
	if prefs.UserID == "" {
		return ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[prefs.UserID] = prefs
	return nil
}
