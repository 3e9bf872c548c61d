package location

import (
	"context"
	"sync"
)

// InMemoryStore keeps fixes in process memory.
type InMemoryStore struct {
	mu    sync.RWMutex
	fixes map[string]Fix
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{fixes: make(map[string]Fix)}
}

// Save replaces the stored fix for the device.
func (s *InMemoryStore) Save(_ context.Context, fix Fix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixes[fix.DeviceID] = fix
	return nil
}

// Latest returns the most recent fix for the device.
func (s *InMemoryStore) Latest(_ context.Context, deviceID string) (*Fix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fix, ok := s.fixes[deviceID]
	if !ok {
		return nil, ErrNoFix
	}
	return &fix, nil
}

// Delete forgets the device.
func (s *InMemoryStore) Delete(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fixes, deviceID)
	return nil
}

var _ Store = (*InMemoryStore)(nil)
