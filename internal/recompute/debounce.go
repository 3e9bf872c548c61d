// Package recompute coalesces bursts of input changes into single engine
// evaluations and publishes only the result of the most recent input.
package recompute

import (
	"sync"
	"time"
)

// DefaultSettle is the quiet period a burst must observe before it fires.
const DefaultSettle = 300 * time.Millisecond

// Debouncer runs fn once after Trigger has stopped being called for the
// settle window. A Trigger inside the window restarts it.
type Debouncer struct {
	mu      sync.Mutex
	settle  time.Duration
	fn      func()
	timer   *time.Timer
	seq     uint64
	stopped bool
}

// NewDebouncer creates a debouncer. A non-positive settle uses DefaultSettle.
func NewDebouncer(settle time.Duration, fn func()) *Debouncer {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Debouncer{settle: settle, fn: fn}
}

// Trigger starts or restarts the settle window. It is a no-op after Stop.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.settle, func() { d.fire(seq) })
}

// fire runs fn for the window armed as seq. A timer that expired while a
// later Trigger was re-arming is superseded and does nothing.
func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}

// Pending reports whether a fire is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any pending fire. The debouncer cannot be reused.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
