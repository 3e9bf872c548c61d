package recompute

import "sync"

// Latest is a single-slot cell. Every Set bumps the generation so that work
// started from an older value can tell it has been superseded.
type Latest[T any] struct {
	mu    sync.RWMutex
	value T
	gen   uint64
}

// Set stores v and returns its generation. The first Set returns 1.
func (l *Latest[T]) Set(v T) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.value = v
	l.gen++
	return l.gen
}

// Load returns the current value and generation. ok is false until the first Set.
func (l *Latest[T]) Load() (v T, gen uint64, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.gen, l.gen > 0
}

// IsCurrent reports whether gen is still the latest generation.
func (l *Latest[T]) IsCurrent(gen uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return gen != 0 && gen == l.gen
}
