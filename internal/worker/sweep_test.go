package worker_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunsafe/sunsafe/internal/location"
	"github.com/sunsafe/sunsafe/internal/worker"
)

type fakeMonitor struct {
	mu      sync.Mutex
	devices []string
	fixes   []location.Fix
	sweeps  []time.Time
}

func (m *fakeMonitor) Devices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.devices...)
}

func (m *fakeMonitor) OnFix(_ context.Context, fix location.Fix) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixes = append(m.fixes, fix)
}

func (m *fakeMonitor) Sweep(_ context.Context, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps = append(m.sweeps, now)
	return len(m.devices)
}

func (m *fakeMonitor) pulled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.fixes))
	for _, f := range m.fixes {
		ids = append(ids, f.DeviceID)
	}
	sort.Strings(ids)
	return ids
}

type fakeFixes struct {
	mu    sync.Mutex
	fixes map[string]location.Fix
	fail  map[string]error
}

func (f *fakeFixes) Latest(_ context.Context, deviceID string) (*location.Fix, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[deviceID]; ok {
		return nil, err
	}
	fix, ok := f.fixes[deviceID]
	if !ok {
		return nil, location.ErrNoFix
	}
	return &fix, nil
}

func (f *fakeFixes) set(fix location.Fix) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fixes[fix.DeviceID] = fix
}

var sweepNow = time.Date(2024, time.June, 21, 10, 0, 0, 0, time.UTC)

func TestDefaultSweepConfig(t *testing.T) {
	cfg := worker.DefaultSweepConfig()

	assert.Equal(t, 10*time.Minute, cfg.Interval)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, time.Minute, cfg.RunTimeout)
}

func TestSweepJob_PullsNewFixesThenResubmits(t *testing.T) {
	mon := &fakeMonitor{devices: []string{"dev_a", "dev_b", "dev_c", "dev_d"}}
	fixes := &fakeFixes{
		fixes: map[string]location.Fix{
			"dev_a": {DeviceID: "dev_a", Lat: 52, Lon: 4, ObservedAt: sweepNow.Add(-time.Minute)},
			"dev_b": {DeviceID: "dev_b", Lat: 48, Lon: 2, ObservedAt: sweepNow.Add(-time.Minute)},
		},
		fail: map[string]error{"dev_d": errors.New("valkey: connection reset")},
	}

	job := worker.NewSweepJob(worker.SweepJobConfig{
		Config:  worker.SweepConfig{Concurrency: 2},
		Monitor: mon,
		Fixes:   fixes,
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return sweepNow },
	})

	result := job.Run(context.Background())

	assert.Equal(t, 4, result.Devices)
	assert.Equal(t, 2, result.FixesPulled)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "dev_d", result.Errors[0].DeviceID)
	assert.Equal(t, 4, result.Resubmitted)
	assert.Equal(t, []string{"dev_a", "dev_b"}, mon.pulled())
	assert.Equal(t, []time.Time{sweepNow}, mon.sweeps)

	// Unchanged fixes are not replayed; a newer one is.
	fixes.set(location.Fix{DeviceID: "dev_b", Lat: 48.1, Lon: 2, ObservedAt: sweepNow})
	result = job.Run(context.Background())
	assert.Equal(t, 1, result.FixesPulled)
	assert.Equal(t, []string{"dev_a", "dev_b", "dev_b"}, mon.pulled())
}

func TestSweepJob_ObserveSkipsKnownFix(t *testing.T) {
	fix := location.Fix{DeviceID: "dev_a", Lat: 1, Lon: 1, ObservedAt: sweepNow}
	mon := &fakeMonitor{devices: []string{"dev_a"}}
	fixes := &fakeFixes{fixes: map[string]location.Fix{"dev_a": fix}}

	job := worker.NewSweepJob(worker.SweepJobConfig{Monitor: mon, Fixes: fixes, Logger: zerolog.Nop()})
	job.Observe(fix)

	result := job.Run(context.Background())
	assert.Equal(t, 0, result.FixesPulled)
	assert.Empty(t, mon.pulled())
	assert.Equal(t, 1, result.Resubmitted)
}

func TestSweepJob_WithoutFixSource(t *testing.T) {
	mon := &fakeMonitor{devices: []string{"dev_a", "dev_b"}}
	job := worker.NewSweepJob(worker.SweepJobConfig{Monitor: mon, Logger: zerolog.Nop()})

	result := job.Run(context.Background())
	assert.Equal(t, 0, result.FixesPulled)
	assert.Equal(t, 2, result.Resubmitted)
}

func TestSweepJob_Metrics(t *testing.T) {
	mon := &fakeMonitor{devices: []string{"dev_a"}}
	job := worker.NewSweepJob(worker.SweepJobConfig{Monitor: mon, Logger: zerolog.Nop()})

	job.Run(context.Background())
	job.Run(context.Background())

	m := job.GetMetrics()
	assert.Equal(t, int64(2), m.TotalSweeps)
	assert.Equal(t, int64(2), m.DevicesResubmit)
	assert.False(t, m.LastSweepAt.IsZero())

	snapshot := job.MetricsSnapshot()
	assert.Contains(t, snapshot, "total_sweeps")
	assert.Contains(t, snapshot, "last_sweep_duration")
}

func TestSweepJob_RunPeriodic(t *testing.T) {
	mon := &fakeMonitor{devices: []string{"dev_a"}}
	job := worker.NewSweepJob(worker.SweepJobConfig{
		Config:  worker.SweepConfig{Interval: 5 * time.Millisecond},
		Monitor: mon,
		Logger:  zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.RunPeriodic(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return job.GetMetrics().TotalSweeps >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop")
	}
}
