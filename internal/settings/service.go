package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Listener is notified after settings change.
type Listener func(ctx context.Context, s Settings)

// ServiceConfig holds configuration for the settings service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Service reads and writes user settings.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	listeners []Listener
}

// NewService creates a new settings service.
func NewService(cfg ServiceConfig) *Service {
	repo := cfg.Repository
	if repo == nil {
		repo = NewInMemoryRepository()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, logger: cfg.Logger, now: now}
}

// Subscribe registers a listener for future updates.
func (s *Service) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Get returns the stored settings, or the defaults when none are stored.
func (s *Service) Get(ctx context.Context, userID string) (Settings, error) {
	stored, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrSettingsNotFound) {
		return Default(userID), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("loading settings: %w", err)
	}
	return *stored, nil
}

// Update validates and replaces the user's settings, then notifies listeners.
func (s *Service) Update(ctx context.Context, in Settings) (Settings, error) {
	if err := in.Validate(); err != nil {
		return Settings{}, err
	}
	in.UpdatedAt = s.now()

	if err := s.repo.Upsert(ctx, &in); err != nil {
		return Settings{}, fmt.Errorf("saving settings: %w", err)
	}

	s.logger.Info().
		Str("user_id", in.UserID).
		Str("skin_type", in.SkinType.String()).
		Float64("spf", in.SPF).
		Msg("settings updated")

	s.notify(ctx, in)
	return in, nil
}

// Reset deletes the user's settings so that defaults apply again, and
// notifies listeners with the defaults.
func (s *Service) Reset(ctx context.Context, userID string) (Settings, error) {
	if userID == "" {
		return Settings{}, fmt.Errorf("%w: user id is required", ErrInvalidSettings)
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return Settings{}, fmt.Errorf("resetting settings: %w", err)
	}

	def := Default(userID)
	s.logger.Info().Str("user_id", userID).Msg("settings reset")
	s.notify(ctx, def)
	return def, nil
}

func (s *Service) notify(ctx context.Context, st Settings) {
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l(ctx, st)
	}
}
