package location

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Listener is notified after a fix has been stored.
type Listener func(ctx context.Context, fix Fix)

// ServiceConfig holds configuration for the location service.
type ServiceConfig struct {
	Store  Store
	Logger zerolog.Logger
	Now    func() time.Time
}

// Service validates and stores fixes, then fans them out to listeners.
type Service struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	listeners []Listener
}

// NewService creates a new location service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Store
	if store == nil {
		store = NewInMemoryStore()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  store,
		logger: cfg.Logger,
		now:    now,
	}
}

// Subscribe registers a listener for future fixes.
func (s *Service) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Report validates, stores and broadcasts a fix. A zero ObservedAt is
// stamped with the service clock.
func (s *Service) Report(ctx context.Context, fix Fix) error {
	if err := fix.Validate(); err != nil {
		return fmt.Errorf("reporting fix: %w", err)
	}
	if fix.ObservedAt.IsZero() {
		fix.ObservedAt = s.now()
	}

	if err := s.store.Save(ctx, fix); err != nil {
		return fmt.Errorf("storing fix: %w", err)
	}

	s.logger.Debug().
		Str("device_id", fix.DeviceID).
		Float64("accuracy", fix.Accuracy).
		Msg("location fix stored")

	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(ctx, fix)
	}
	return nil
}

// Latest returns the last stored fix for the device.
func (s *Service) Latest(ctx context.Context, deviceID string) (*Fix, error) {
	if deviceID == "" {
		return nil, ErrMissingDeviceID
	}
	return s.store.Latest(ctx, deviceID)
}

// Forget drops the stored fix for a device.
func (s *Service) Forget(ctx context.Context, deviceID string) error {
	return s.store.Delete(ctx, deviceID)
}
