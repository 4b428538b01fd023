package licensing

import "time"

// Cached wraps a fetched value with its fetch time so staleness is an
// explicit, testable property instead of ambient package state. The
// extension keeps its current resolution in one of these and re-resolves
// when it goes stale.
type Cached[T any] struct {
	Value     T
	FetchedAt time.Time
}

// NewCached stamps a value with the current time.
func NewCached[T any](value T) Cached[T] {
	return Cached[T]{Value: value, FetchedAt: time.Now()}
}

// Fresh reports whether the value was fetched within ttl.
func (c Cached[T]) Fresh(ttl time.Duration) bool {
	if c.FetchedAt.IsZero() {
		return false
	}
	return time.Since(c.FetchedAt) < ttl
}

// Age returns how long ago the value was fetched.
func (c Cached[T]) Age() time.Duration {
	if c.FetchedAt.IsZero() {
		return 0
	}
	return time.Since(c.FetchedAt)
}
