package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sunsafe/sunsafe/internal/location"
)

// Monitor is the part of the device monitor the sweep drives.
type Monitor interface {
	Devices() []string
	OnFix(ctx context.Context, fix location.Fix)
	Sweep(ctx context.Context, now time.Time) int
}

// FixSource looks up the latest stored fix of a device.
type FixSource interface {
	Latest(ctx context.Context, deviceID string) (*location.Fix, error)
}

// SweepJob refreshes every tracked device. Fixes written to the shared
// store by other instances are pulled in first, then every device is
// resubmitted at the current time so results follow the sun.
type SweepJob struct {
	config  SweepConfig
	monitor Monitor
	fixes   FixSource
	logger  zerolog.Logger
	now     func() time.Time

	mu       sync.Mutex
	lastSeen map[string]time.Time

	metrics *SweepMetrics
}

// SweepMetrics tracks sweep job statistics.
type SweepMetrics struct {
	mu sync.RWMutex

	TotalSweeps     int64
	FixesPulled     int64
	LookupFailures  int64
	DevicesResubmit int64

	LastSweepAt       time.Time
	LastSweepDuration time.Duration
	TotalDuration     time.Duration
}

// SweepJobConfig holds configuration for creating a SweepJob.
type SweepJobConfig struct {
	Config  SweepConfig
	Monitor Monitor

	// Fixes is optional. Without it only the resubmission runs.
	Fixes FixSource

	Logger zerolog.Logger
	Now    func() time.Time
}

// NewSweepJob creates a new sweep job.
func NewSweepJob(cfg SweepJobConfig) *SweepJob {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &SweepJob{
		config:   cfg.Config.withDefaults(),
		monitor:  cfg.Monitor,
		fixes:    cfg.Fixes,
		logger:   cfg.Logger,
		now:      now,
		lastSeen: make(map[string]time.Time),
		metrics:  &SweepMetrics{},
	}
}

// SweepResult contains the result of one sweep.
type SweepResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Devices     int
	FixesPulled int
	Failed      int
	Resubmitted int
	Errors      []SweepError
}

// SweepError is a failed fix lookup.
type SweepError struct {
	DeviceID string
	Error    string
}

type lookupResult struct {
	deviceID string
	fix      *location.Fix
	err      error
}

// Run executes one sweep.
func (j *SweepJob) Run(ctx context.Context) *SweepResult {
	ctx, cancel := context.WithTimeout(ctx, j.config.RunTimeout)
	defer cancel()

	startTime := time.Now()
	devices := j.monitor.Devices()
	result := &SweepResult{StartTime: startTime, Devices: len(devices)}

	j.logger.Debug().
		Int("devices", len(devices)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting sweep")

	if j.fixes != nil && len(devices) > 0 {
		j.pullFixes(ctx, devices, result)
	}

	result.Resubmitted = j.monitor.Sweep(ctx, j.now())
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("devices", result.Devices).
		Int("fixes_pulled", result.FixesPulled).
		Int("failed", result.Failed).
		Int("resubmitted", result.Resubmitted).
		Msg("sweep completed")

	return result
}

func (j *SweepJob) pullFixes(ctx context.Context, devices []string, result *SweepResult) {
	idsChan := make(chan string, len(devices))
	resultsChan := make(chan lookupResult, len(devices))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.lookupWorker(ctx, idsChan, resultsChan)
		}()
	}

	for _, id := range devices {
		idsChan <- id
	}
	close(idsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for lr := range resultsChan {
		switch {
		case lr.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, SweepError{DeviceID: lr.deviceID, Error: lr.err.Error()})
		case lr.fix != nil && j.isNewer(*lr.fix):
			j.monitor.OnFix(ctx, *lr.fix)
			result.FixesPulled++
		}
	}
}

func (j *SweepJob) lookupWorker(ctx context.Context, ids <-chan string, results chan<- lookupResult) {
	for id := range ids {
		select {
		case <-ctx.Done():
			results <- lookupResult{deviceID: id, err: ctx.Err()}
		default:
			results <- j.lookup(ctx, id)
		}
	}
}

func (j *SweepJob) lookup(ctx context.Context, deviceID string) lookupResult {
	lookupCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	fix, err := j.fixes.Latest(lookupCtx, deviceID)
	if errors.Is(err, location.ErrNoFix) {
		return lookupResult{deviceID: deviceID}
	}
	return lookupResult{deviceID: deviceID, fix: fix, err: err}
}

// isNewer records fix as seen and reports whether it is newer than the
// last fix seen for its device. The first fix seen always counts.
func (j *SweepJob) isNewer(fix location.Fix) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	prev, ok := j.lastSeen[fix.DeviceID]
	if ok && !fix.ObservedAt.After(prev) {
		return false
	}
	j.lastSeen[fix.DeviceID] = fix.ObservedAt
	return true
}

// Observe records a fix that reached the monitor by another path, so the
// next sweep does not replay it.
func (j *SweepJob) Observe(fix location.Fix) {
	j.isNewer(fix)
}

// RunPeriodic sweeps every Interval until ctx is cancelled.
func (j *SweepJob) RunPeriodic(ctx context.Context) {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	j.logger.Info().Dur("interval", j.config.Interval).Msg("periodic sweep started")
	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("periodic sweep stopped")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

func (j *SweepJob) updateMetrics(result *SweepResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalSweeps++
	j.metrics.FixesPulled += int64(result.FixesPulled)
	j.metrics.LookupFailures += int64(result.Failed)
	j.metrics.DevicesResubmit += int64(result.Resubmitted)
	j.metrics.LastSweepAt = result.EndTime
	j.metrics.LastSweepDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *SweepJob) GetMetrics() SweepMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return SweepMetrics{
		TotalSweeps:       j.metrics.TotalSweeps,
		FixesPulled:       j.metrics.FixesPulled,
		LookupFailures:    j.metrics.LookupFailures,
		DevicesResubmit:   j.metrics.DevicesResubmit,
		LastSweepAt:       j.metrics.LastSweepAt,
		LastSweepDuration: j.metrics.LastSweepDuration,
		TotalDuration:     j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns the current metrics as a map for the health endpoint.
func (j *SweepJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"total_sweeps":        m.TotalSweeps,
		"fixes_pulled":        m.FixesPulled,
		"lookup_failures":     m.LookupFailures,
		"devices_resubmitted": m.DevicesResubmit,
		"last_sweep_at":       m.LastSweepAt,
		"last_sweep_duration": m.LastSweepDuration.String(),
		"total_duration":      m.TotalDuration.String(),
	}
}
