package cmap

import "sync"

// Accessor is a read handle produced by Map.Find. While held, it pins
// the owning shard with a read lock, so the slot it was copied from
// cannot be erased underneath the caller. Release drops the lock
// explicitly; the copied value stays readable afterwards, but the
// handle grants no further access to the map.
//
// An Accessor must be released by the goroutine that obtained it, and
// before that goroutine performs any write operation on the same Map.
type Accessor[V any] struct {
	val  V
	mu   *sync.RWMutex
	held bool
}

// Value returns the copy of the mapped value captured at Find time.
// Valid on a non-empty Accessor, before or after Release.
func (a *Accessor[V]) Value() V { return a.val }

// Empty reports whether the Accessor currently pins a shard.
// True for the zero Accessor and after Release.
func (a *Accessor[V]) Empty() bool { return !a.held }

// Release drops the shard read lock. Idempotent.
func (a *Accessor[V]) Release() {
	if a.held {
		a.held = false
		a.mu.RUnlock()
	}
}
