package recompute_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunsafe/sunsafe/internal/recompute"
	"github.com/sunsafe/sunsafe/internal/uv"
)

type outcomeSink struct {
	mu       sync.Mutex
	outcomes []recompute.Outcome
}

func (s *outcomeSink) add(o recompute.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
}

func (s *outcomeSink) all() []recompute.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recompute.Outcome(nil), s.outcomes...)
}

type countingRecorder struct {
	calculations atomic.Int32
	discarded    atomic.Int32
}

func (c *countingRecorder) RecordCalculation(context.Context, uv.Result, time.Duration) {
	c.calculations.Add(1)
}

func (c *countingRecorder) RecordDiscarded(context.Context) { c.discarded.Add(1) }

func noonInputs(spf float64) uv.Inputs {
	return uv.Inputs{
		Latitude:  0,
		Longitude: 0,
		Timestamp: time.Date(2023, time.March, 21, 12, 0, 0, 0, time.UTC),
		Cloud:     uv.CloudClear,
		Skin:      uv.SkinTypeII,
		SPF:       spf,
	}
}

func TestRecomputer_BurstComputesOnceWithLatestInput(t *testing.T) {
	sink := &outcomeSink{}
	var calls atomic.Int32
	r := recompute.New(recompute.Config{
		Settle: 20 * time.Millisecond,
		Sink:   sink.add,
		Compute: func(in uv.Inputs) uv.Result {
			calls.Add(1)
			return uv.Calculate(in)
		},
	})
	defer r.Close()

	for spf := 1.0; spf <= 10; spf++ {
		r.Submit(noonInputs(spf))
	}

	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, 10.0, got[0].Inputs.SPF)
	assert.Equal(t, uint64(10), got[0].Generation)
	assert.Equal(t, uv.Calculate(noonInputs(10)), got[0].Result)
	assert.Equal(t, int32(1), calls.Load())

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, got[0], last)

	stats := r.Stats()
	assert.Equal(t, int64(10), stats.Submitted)
	assert.Equal(t, int64(1), stats.Published)
}

func TestRecomputer_StaleInFlightResultIsDiscarded(t *testing.T) {
	sink := &outcomeSink{}
	rec := &countingRecorder{}
	started := make(chan struct{})
	release := make(chan struct{})

	r := recompute.New(recompute.Config{
		Settle:   5 * time.Millisecond,
		Sink:     sink.add,
		Recorder: rec,
		Compute: func(in uv.Inputs) uv.Result {
			if in.SPF == 1 {
				close(started)
				<-release
			}
			return uv.Calculate(in)
		},
	})
	defer r.Close()

	r.Submit(noonInputs(1))
	<-started

	r.Submit(noonInputs(50))
	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, time.Second, 2*time.Millisecond)

	close(release)
	require.Eventually(t, func() bool { return r.Stats().Discarded == 1 }, time.Second, 2*time.Millisecond)

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, 50.0, got[0].Inputs.SPF)
	assert.Equal(t, int32(2), rec.calculations.Load())
	assert.Equal(t, int32(1), rec.discarded.Load())
}

func TestRecomputer_CloseDropsPendingSubmission(t *testing.T) {
	sink := &outcomeSink{}
	r := recompute.New(recompute.Config{Settle: 30 * time.Millisecond, Sink: sink.add})

	r.Submit(noonInputs(15))
	r.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, sink.all())
	_, ok := r.Last()
	assert.False(t, ok)
}

func TestRecomputer_StampsOutcomeWithClock(t *testing.T) {
	fixed := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
	sink := &outcomeSink{}
	r := recompute.New(recompute.Config{
		Settle: 5 * time.Millisecond,
		Sink:   sink.add,
		Now:    func() time.Time { return fixed },
	})
	defer r.Close()

	r.Submit(noonInputs(30))
	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, fixed, sink.all()[0].ComputedAt)
}
