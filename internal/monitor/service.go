// Package monitor keeps a live UV result per tracked device. Position fixes
// and settings changes are fed through a debounced recomputer; published
// results are retained and handed to the alert scheduler.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/sunsafe/sunsafe/internal/location"
	"github.com/sunsafe/sunsafe/internal/notify"
	"github.com/sunsafe/sunsafe/internal/recompute"
	"github.com/sunsafe/sunsafe/internal/settings"
	"github.com/sunsafe/sunsafe/internal/uv"
)

// Monitor errors.
var (
	ErrNotTracked    = errors.New("device is not tracked")
	ErrNoResult      = errors.New("no result computed yet")
	ErrMissingUser   = errors.New("user id is required")
	ErrMonitorClosed = errors.New("monitor is closed")
)

// Locations supplies the last known fix for a device.
type Locations interface {
	Latest(ctx context.Context, deviceID string) (*location.Fix, error)
}

// SettingsSource supplies a user's settings, defaults included.
type SettingsSource interface {
	Get(ctx context.Context, userID string) (settings.Settings, error)
}

// AlertScheduler arms and cancels burn alerts.
type AlertScheduler interface {
	Schedule(ctx context.Context, deviceID, userID string, result uv.Result) (*notify.Alert, error)
	Cancel(deviceID string) bool
}

// ServiceConfig holds configuration for the monitor.
type ServiceConfig struct {
	Locations Locations
	Settings  SettingsSource

	// Alerts is optional. Without it results are only retained.
	Alerts AlertScheduler

	Recorder recompute.Recorder
	Settle   time.Duration
	Logger   zerolog.Logger
	Now      func() time.Time
}

type device struct {
	id     string
	userID string

	recomputer    *recompute.Recomputer
	alertsEnabled atomic.Bool

	// Guarded by Service.mu.
	fix      *location.Fix
	settings settings.Settings
}

// Service tracks devices and recomputes their UV exposure.
type Service struct {
	locations Locations
	settings  SettingsSource
	alerts    AlertScheduler
	recorder  recompute.Recorder
	settle    time.Duration
	logger    zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	closed  bool
	devices map[string]*device
}

// NewService creates a monitor.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	settle := cfg.Settle
	if settle <= 0 {
		settle = recompute.DefaultSettle
	}
	return &Service{
		locations: cfg.Locations,
		settings:  cfg.Settings,
		alerts:    cfg.Alerts,
		recorder:  cfg.Recorder,
		settle:    settle,
		logger:    cfg.Logger,
		now:       now,
		devices:   make(map[string]*device),
	}
}

// Track starts monitoring a device for a user. Tracking an already tracked
// device refreshes its settings and fix. A device without a fix is tracked
// but not computed until one arrives.
func (s *Service) Track(ctx context.Context, userID, deviceID string) error {
	if deviceID == "" {
		return location.ErrMissingDeviceID
	}
	if userID == "" {
		return ErrMissingUser
	}

	st, err := s.settings.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("tracking device: %w", err)
	}

	var fix *location.Fix
	if s.locations != nil {
		fix, err = s.locations.Latest(ctx, deviceID)
		if err != nil && !errors.Is(err, location.ErrNoFix) {
			return fmt.Errorf("tracking device: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrMonitorClosed
	}

	d := s.deviceLocked(userID, deviceID)
	d.settings = st
	d.alertsEnabled.Store(st.AlertsEnabled)
	if fix != nil {
		d.fix = fix
	}
	s.submitLocked(d, s.now())
	return nil
}

// Untrack stops monitoring a device and cancels its pending alert.
func (s *Service) Untrack(deviceID string) bool {
	s.mu.Lock()
	d, ok := s.devices[deviceID]
	delete(s.devices, deviceID)
	s.mu.Unlock()

	if !ok {
		return false
	}
	d.recomputer.Close()
	if s.alerts != nil {
		s.alerts.Cancel(deviceID)
	}
	return true
}

// OnFix records a new position. Untracked devices are tracked on their
// first fix when the fix names its user; otherwise the fix is ignored.
// The signature matches location.Listener.
func (s *Service) OnFix(ctx context.Context, fix location.Fix) {
	s.mu.Lock()
	d, ok := s.devices[fix.DeviceID]
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return
	}
	if !ok {
		if fix.UserID == "" {
			s.logger.Debug().Str("device_id", fix.DeviceID).Msg("ignoring fix for untracked device")
			return
		}
		st, err := s.settings.Get(ctx, fix.UserID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", fix.UserID).Msg("failed to load settings for new device")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		d = s.deviceLocked(fix.UserID, fix.DeviceID)
		d.settings = st
		d.alertsEnabled.Store(st.AlertsEnabled)
		d.fix = &fix
		s.submitLocked(d, s.now())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f := fix
	d.fix = &f
	s.submitLocked(d, s.now())
}

// OnSettings applies changed settings to every device of the user. The
// signature matches settings.Listener.
func (s *Service) OnSettings(_ context.Context, st settings.Settings) {
	var disabled []string

	s.mu.Lock()
	for _, d := range s.devices {
		if d.userID != st.UserID {
			continue
		}
		d.settings = st
		d.alertsEnabled.Store(st.AlertsEnabled)
		if !st.AlertsEnabled {
			disabled = append(disabled, d.id)
		}
		s.submitLocked(d, s.now())
	}
	s.mu.Unlock()

	if s.alerts != nil {
		for _, id := range disabled {
			s.alerts.Cancel(id)
		}
	}
}

// Sweep resubmits every tracked device with a fix, evaluated at now, so
// results follow the sun. It returns how many devices were resubmitted.
func (s *Service) Sweep(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, d := range s.devices {
		if ctx.Err() != nil {
			break
		}
		if s.submitLocked(d, now) {
			n++
		}
	}
	return n
}

// LastResult returns the latest published outcome for a device.
func (s *Service) LastResult(deviceID string) (recompute.Outcome, error) {
	s.mu.Lock()
	d, ok := s.devices[deviceID]
	hasFix := ok && d.fix != nil
	s.mu.Unlock()

	if !ok {
		return recompute.Outcome{}, ErrNotTracked
	}
	if !hasFix {
		return recompute.Outcome{}, location.ErrNoFix
	}
	o, ok := d.recomputer.Last()
	if !ok {
		return recompute.Outcome{}, ErrNoResult
	}
	return o, nil
}

// Owner returns the user a tracked device belongs to.
func (s *Service) Owner(deviceID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return "", false
	}
	return d.userID, true
}

// Devices returns the tracked device ids, sorted.
func (s *Service) Devices() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.devices))
	for id := range s.devices {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Close stops every recomputer. Pending evaluations are dropped.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	devices := make([]*device, 0, len(s.devices))
	for _, d := range s.devices {
		devices = append(devices, d)
	}
	s.mu.Unlock()

	for _, d := range devices {
		d.recomputer.Close()
	}
}

func (s *Service) deviceLocked(userID, deviceID string) *device {
	if d, ok := s.devices[deviceID]; ok {
		return d
	}

	d := &device{id: deviceID, userID: userID}
	d.recomputer = recompute.New(recompute.Config{
		Settle:   s.settle,
		Recorder: s.recorder,
		Logger:   s.logger.With().Str("device_id", deviceID).Logger(),
		Now:      s.now,
		Sink:     func(o recompute.Outcome) { s.deliver(d, o) },
	})
	s.devices[deviceID] = d
	return d
}

// submitLocked queues a recomputation for d evaluated at at. It reports
// false when d has no fix yet.
func (s *Service) submitLocked(d *device, at time.Time) bool {
	if d.fix == nil {
		return false
	}
	d.recomputer.Submit(Inputs(*d.fix, d.settings, at))
	return true
}

// Inputs builds engine inputs from a fix and settings. The instant is read
// in the nominal zone of the fix's longitude.
func Inputs(fix location.Fix, st settings.Settings, at time.Time) uv.Inputs {
	return st.Apply(uv.Inputs{
		Latitude:  fix.Lat,
		Longitude: fix.Lon,
		Altitude:  fix.Altitude,
		Timestamp: at.In(uv.NominalZone(fix.Lon)),
	})
}

// deliver runs inside the recomputer's publish step and must not take s.mu.
func (s *Service) deliver(d *device, o recompute.Outcome) {
	s.logger.Debug().
		Str("device_id", d.id).
		Float64("uv_index", o.Result.UVIndex).
		Str("risk", o.Result.Risk.String()).
		Msg("uv result published")

	if s.alerts == nil {
		return
	}
	if !d.alertsEnabled.Load() {
		s.alerts.Cancel(d.id)
		return
	}
	if _, err := s.alerts.Schedule(context.Background(), d.id, d.userID, o.Result); err != nil {
		s.logger.Error().Err(err).Str("device_id", d.id).Msg("failed to schedule alert")
	}
}
