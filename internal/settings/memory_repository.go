package settings

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	settings map[string]Settings
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{settings: make(map[string]Settings)}
}

// Get returns a copy of the stored settings.
func (r *InMemoryRepository) Get(_ context.Context, userID string) (*Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[userID]
	if !ok {
		return nil, ErrSettingsNotFound
	}
	return &s, nil
}

// Upsert stores a copy of s.
func (r *InMemoryRepository) Upsert(_ context.Context, s *Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[s.UserID] = *s
	return nil
}

// Delete removes the user's settings.
func (r *InMemoryRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.settings, userID)
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
