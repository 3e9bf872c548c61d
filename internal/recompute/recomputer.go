package recompute

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/sunsafe/sunsafe/internal/uv"
)

// Outcome is one published engine evaluation.
type Outcome struct {
	Inputs     uv.Inputs
	Result     uv.Result
	Generation uint64
	ComputedAt time.Time
}

// Recorder receives engine instrumentation. telemetry.EngineMetrics implements it.
type Recorder interface {
	RecordCalculation(ctx context.Context, result uv.Result, elapsed time.Duration)
	RecordDiscarded(ctx context.Context)
}

type nopRecorder struct{}

func (nopRecorder) RecordCalculation(context.Context, uv.Result, time.Duration) {}
func (nopRecorder) RecordDiscarded(context.Context)                            {}

// Stats are cumulative counters for one Recomputer.
type Stats struct {
	Submitted int64
	Computed  int64
	Published int64
	Discarded int64
}

// Config holds configuration for a Recomputer.
type Config struct {
	// Settle is the debounce window. Default: DefaultSettle.
	Settle time.Duration

	// Sink receives every published outcome. Calls are serialized.
	Sink func(Outcome)

	// Compute evaluates the engine. Default: uv.Calculate.
	Compute func(uv.Inputs) uv.Result

	Recorder Recorder
	Logger   zerolog.Logger

	// Now is the clock stamped on outcomes. Default: time.Now.
	Now func() time.Time
}

// Recomputer debounces submitted inputs, evaluates the engine off the
// caller's goroutine and publishes results last-write-wins.
type Recomputer struct {
	cell      Latest[uv.Inputs]
	debouncer *Debouncer
	compute   func(uv.Inputs) uv.Result
	sink      func(Outcome)
	recorder  Recorder
	logger    zerolog.Logger
	now       func() time.Time

	mu        sync.Mutex
	closed    bool
	published uint64
	last      *Outcome
	wg        sync.WaitGroup

	submitted atomic.Int64
	computed  atomic.Int64
	emitted   atomic.Int64
	discarded atomic.Int64
}

// New creates a Recomputer.
func New(cfg Config) *Recomputer {
	r := &Recomputer{
		compute:  cfg.Compute,
		sink:     cfg.Sink,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if r.compute == nil {
		r.compute = uv.Calculate
	}
	if r.sink == nil {
		r.sink = func(Outcome) {}
	}
	if r.recorder == nil {
		r.recorder = nopRecorder{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.debouncer = NewDebouncer(cfg.Settle, r.fire)
	return r
}

// Submit records in as the latest input and restarts the settle window.
// It never blocks on the engine.
func (r *Recomputer) Submit(in uv.Inputs) uint64 {
	gen := r.cell.Set(in)
	r.submitted.Add(1)
	r.debouncer.Trigger()
	return gen
}

func (r *Recomputer) fire() {
	in, gen, ok := r.cell.Load()
	if !ok {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		start := time.Now()
		result := r.compute(in)
		r.computed.Add(1)
		r.recorder.RecordCalculation(context.Background(), result, time.Since(start))

		r.publish(Outcome{
			Inputs:     in,
			Result:     result,
			Generation: gen,
			ComputedAt: r.now(),
		})
	}()
}

func (r *Recomputer) publish(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || !r.cell.IsCurrent(o.Generation) || o.Generation <= r.published {
		r.discarded.Add(1)
		r.recorder.RecordDiscarded(context.Background())
		r.logger.Debug().
			Uint64("generation", o.Generation).
			Msg("discarding stale recomputation")
		return
	}

	r.published = o.Generation
	r.last = &o
	r.emitted.Add(1)
	r.sink(o)
}

// Last returns the most recently published outcome.
func (r *Recomputer) Last() (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Outcome{}, false
	}
	return *r.last, true
}

// Stats returns a snapshot of the counters.
func (r *Recomputer) Stats() Stats {
	return Stats{
		Submitted: r.submitted.Load(),
		Computed:  r.computed.Load(),
		Published: r.emitted.Load(),
		Discarded: r.discarded.Load(),
	}
}

// Close cancels any pending evaluation and waits for in-flight ones.
// Results finishing after Close are discarded.
func (r *Recomputer) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.debouncer.Stop()
	r.wg.Wait()
}
