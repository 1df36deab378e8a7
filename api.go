package lruc

import "context"

// Cache is a bounded, thread-safe LRU key/value store.
// All methods except Clear are safe for concurrent use by multiple
// goroutines. Recency under contention is approximate: a Find that
// loses the race for the list mutex skips its promotion rather than
// block, so eviction order tracks true LRU closely but not exactly.
type Cache[K comparable, V any] interface {
	// Insert stores k→v only if k is absent and reports whether it did.
	// Inserting over a present key is a no-op returning false; the
	// stored value is never overwritten. When the cache is full the
	// least-recently touched entry is evicted to make room.
	Insert(k K, v V) bool

	// Find returns a copy of the value for k and a presence flag.
	// A hit counts as a touch and promotes k to most-recently used
	// (best effort, see above).
	Find(k K) (V, bool)

	// FindOrLoad returns the value for k, loading it via Options.Loader
	// on miss. Concurrent loads of the same key are coalesced so the
	// Loader runs once. Returns ErrNoLoader if no Loader is configured.
	FindOrLoad(ctx context.Context, k K) (V, error)

	// Erase removes k and returns the number of entries removed
	// (0 or 1). Losing an erase race against a concurrent eviction of
	// the same key counts as 0.
	Erase(k K) int

	// Clear removes every entry. NOT safe for concurrent use: the
	// caller must guarantee no other operation is in flight.
	Clear()

	// Size returns the current number of resident entries.
	Size() int

	// Capacity returns the fixed capacity set at construction.
	Capacity() int

	// Stats returns a snapshot of hit/miss/eviction counters.
	Stats() Stats

	// Close marks the cache closed; subsequent operations become
	// no-ops. It exists so callers can treat the cache like other
	// closable resources. Always returns nil.
	Close() error
}
