package recompute_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sunsafe/sunsafe/internal/recompute"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var fired atomic.Int32
	d := recompute.NewDebouncer(30*time.Millisecond, func() { fired.Add(1) })
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_SeparateBurstsFireSeparately(t *testing.T) {
	var fired atomic.Int32
	d := recompute.NewDebouncer(10*time.Millisecond, func() { fired.Add(1) })
	defer d.Stop()

	d.Trigger()
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 2*time.Millisecond)

	d.Trigger()
	assert.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, 2*time.Millisecond)
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	var fired atomic.Int32
	d := recompute.NewDebouncer(20*time.Millisecond, func() { fired.Add(1) })

	d.Trigger()
	assert.True(t, d.Pending())
	d.Stop()
	d.Trigger()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.False(t, d.Pending())
}

func TestLatest_Generations(t *testing.T) {
	var cell recompute.Latest[string]

	_, gen, ok := cell.Load()
	assert.False(t, ok)
	assert.Equal(t, uint64(0), gen)
	assert.False(t, cell.IsCurrent(0))

	g1 := cell.Set("a")
	g2 := cell.Set("b")
	assert.Equal(t, uint64(1), g1)
	assert.Equal(t, uint64(2), g2)

	v, gen, ok := cell.Load()
	assert.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Equal(t, g2, gen)
	assert.False(t, cell.IsCurrent(g1))
	assert.True(t, cell.IsCurrent(g2))
}
