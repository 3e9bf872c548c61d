package featureflags

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL bounds how stale a read may be. Default: 1 minute
	CacheTTL time.Duration

	// Defaults overrides DefaultFlags.
	Defaults map[string]*Flag

	Now func() time.Time
}

// Service evaluates flags with a short-lived cache and built-in defaults.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration
	defaults map[string]*Flag
	now      func() time.Time

	mu      sync.RWMutex
	cache   map[string]*Flag
	expires time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	repo := cfg.Repository
	if repo == nil {
		repo = NewInMemoryRepository()
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = time.Minute
	}
	defaults := cfg.Defaults
	if defaults == nil {
		defaults = DefaultFlags()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:     repo,
		logger:   cfg.Logger,
		cacheTTL: ttl,
		defaults: defaults,
		now:      now,
		cache:    make(map[string]*Flag),
	}
}

// GetFlag returns the flag from cache, repository, or defaults in that
// order. It returns nil for unknown keys.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if f := s.cached(key); f != nil {
		return f
	}

	f, err := s.repo.GetFlag(ctx, key)
	if err == nil {
		s.store(f)
		return f
	}
	if !errors.Is(err, ErrFlagNotFound) {
		s.logger.Warn().Err(err).Str("flag", key).Msg("failed to load feature flag, using default")
	}

	if d, ok := s.defaults[key]; ok {
		return d.clone()
	}
	return nil
}

// List returns every flag, stored values overriding defaults, sorted by key.
func (s *Service) List(ctx context.Context) []*Flag {
	merged := make(map[string]*Flag, len(s.defaults))
	for k, v := range s.defaults {
		merged[k] = v.clone()
	}

	stored, err := s.repo.GetAllFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to list feature flags, using defaults")
	} else {
		for k, v := range stored {
			merged[k] = v
		}
		s.mu.Lock()
		s.cache = stored
		s.expires = s.now().Add(s.cacheTTL)
		s.mu.Unlock()
	}

	out := make([]*Flag, 0, len(merged))
	for _, f := range merged {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Apply stores a batch of updates and returns the resulting flags.
func (s *Service) Apply(ctx context.Context, updates []Update) ([]*Flag, error) {
	now := s.now()
	flags := make([]*Flag, 0, len(updates))
	for _, u := range updates {
		flags = append(flags, &Flag{Key: u.Key, Value: u.Value, UpdatedAt: now})
	}

	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return nil, err
	}
	for _, f := range flags {
		s.store(f)
	}

	s.logger.Info().Int("count", len(flags)).Msg("feature flags updated")
	return flags, nil
}

// InvalidateCache forces the next read to hit the repository.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Flag)
	s.expires = time.Time{}
}

// AlertsSendingDisabled reports whether alert publication is switched off.
func (s *Service) AlertsSendingDisabled(ctx context.Context) bool {
	return s.GetFlag(ctx, FlagDisableAlertsSending).BoolValue(false)
}

// SunPathEnabled reports whether the hourly sun-path endpoint is exposed.
func (s *Service) SunPathEnabled(ctx context.Context) bool {
	return s.GetFlag(ctx, FlagEnableSunPath).BoolValue(true)
}

// AlertLead returns how long before the burn time an alert should fire.
// Negative values are treated as zero.
func (s *Service) AlertLead(ctx context.Context) time.Duration {
	secs := s.GetFlag(ctx, FlagAlertLeadSeconds).IntValue(0)
	if secs < 0 {
		secs = 0
	}
	return time.Duration(secs) * time.Second
}

func (s *Service) cached(key string) *Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.now().After(s.expires) {
		return nil
	}
	return s.cache[key]
}

func (s *Service) store(f *Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[f.Key] = f
	if s.expires.Before(s.now()) {
		s.expires = s.now().Add(s.cacheTTL)
	}
}
