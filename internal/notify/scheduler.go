package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sunsafe/sunsafe/internal/uv"
)

// Flags is the part of the feature flag service read when scheduling and firing.
type Flags interface {
	AlertsSendingDisabled(ctx context.Context) bool
	AlertLead(ctx context.Context) time.Duration
}

type noFlags struct{}

func (noFlags) AlertsSendingDisabled(context.Context) bool { return false }
func (noFlags) AlertLead(context.Context) time.Duration    { return 0 }

// SchedulerConfig holds configuration for the alert scheduler.
type SchedulerConfig struct {
	Publisher Publisher
	Flags     Flags
	Logger    zerolog.Logger

	// PublishTimeout bounds a single delivery. Default: 10 seconds
	PublishTimeout time.Duration

	Now   func() time.Time
	NewID func() string
}

// SchedulerStats are cumulative counters.
type SchedulerStats struct {
	Scheduled  int64
	Replaced   int64
	Canceled   int64
	Published  int64
	Suppressed int64
	Failed     int64
}

// Scheduler keeps at most one pending alert per device. Scheduling a new
// alert replaces the previous one.
type Scheduler struct {
	publisher Publisher
	flags     Flags
	logger    zerolog.Logger
	timeout   time.Duration
	now       func() time.Time
	newID     func() string

	mu      sync.Mutex
	pending map[string]*pendingAlert
	closed  bool
	wg      sync.WaitGroup

	scheduled  atomic.Int64
	replaced   atomic.Int64
	canceled   atomic.Int64
	published  atomic.Int64
	suppressed atomic.Int64
	failed     atomic.Int64
}

type pendingAlert struct {
	alert Alert
	timer *time.Timer
}

// NewScheduler creates a scheduler. A nil publisher logs alerts.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	s := &Scheduler{
		publisher: cfg.Publisher,
		flags:     cfg.Flags,
		logger:    cfg.Logger,
		timeout:   cfg.PublishTimeout,
		now:       cfg.Now,
		newID:     cfg.NewID,
		pending:   make(map[string]*pendingAlert),
	}
	if s.publisher == nil {
		s.publisher = NewLogPublisher(cfg.Logger)
	}
	if s.flags == nil {
		s.flags = noFlags{}
	}
	if s.timeout == 0 {
		s.timeout = 10 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Schedule arms an alert for the protected burn time in result, replacing
// any pending alert for the device. An infinite burn time only cancels and
// returns nil.
func (s *Scheduler) Schedule(ctx context.Context, deviceID, userID string, result uv.Result) (*Alert, error) {
	if deviceID == "" {
		return nil, ErrMissingDeviceID
	}

	burn, finite := result.BurnDuration()
	if !finite {
		s.Cancel(deviceID)
		return nil, nil
	}

	delay := burn - s.flags.AlertLead(ctx)
	if delay < 0 {
		delay = 0
	}

	now := s.now()
	alert := Alert{
		ID:                     s.newID(),
		DeviceID:               deviceID,
		UserID:                 userID,
		ScheduledAt:            now,
		FireAt:                 now.Add(delay),
		BurnTimeWithSPFSeconds: result.BurnTimeWithSPFSeconds,
		UVIndex:                result.UVIndex,
		Risk:                   result.Risk.String(),
		Message:                result.Risk.Recommendation(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSchedulerClosed
	}
	if prev, ok := s.pending[deviceID]; ok {
		prev.timer.Stop()
		s.replaced.Add(1)
	}

	id := alert.ID
	s.pending[deviceID] = &pendingAlert{
		alert: alert,
		timer: time.AfterFunc(delay, func() { s.fire(deviceID, id) }),
	}
	s.scheduled.Add(1)

	s.logger.Debug().
		Str("device_id", deviceID).
		Str("alert_id", id).
		Dur("delay", delay).
		Msg("alert scheduled")

	return &alert, nil
}

// Cancel drops the pending alert for the device, reporting whether one existed.
func (s *Scheduler) Cancel(deviceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[deviceID]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.pending, deviceID)
	s.canceled.Add(1)
	return true
}

// Pending returns the pending alert for the device.
func (s *Scheduler) Pending(deviceID string) (Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[deviceID]
	if !ok {
		return Alert{}, false
	}
	return p.alert, true
}

// PendingCount returns the number of armed alerts.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) fire(deviceID, id string) {
	s.mu.Lock()
	p, ok := s.pending[deviceID]
	if !ok || p.alert.ID != id || s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.pending, deviceID)
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	logger := s.logger.With().
		Str("device_id", deviceID).
		Str("alert_id", id).
		Str("publisher", s.publisher.Name()).
		Logger()

	if s.flags.AlertsSendingDisabled(ctx) {
		s.suppressed.Add(1)
		logger.Info().Msg("alert suppressed by feature flag")
		return
	}

	if err := s.publisher.Publish(ctx, p.alert); err != nil {
		s.failed.Add(1)
		logger.Error().Err(err).Msg("failed to publish alert")
		return
	}
	s.published.Add(1)
	logger.Info().Msg("alert published")
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Scheduled:  s.scheduled.Load(),
		Replaced:   s.replaced.Load(),
		Canceled:   s.canceled.Load(),
		Published:  s.published.Load(),
		Suppressed: s.suppressed.Load(),
		Failed:     s.failed.Load(),
	}
}

// Close cancels every pending alert and waits for in-flight deliveries.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}
