// Package cmap implements a key-sharded concurrent map whose reads
// hand out lock-holding accessors.
//
// Each shard owns a plain map guarded by its own RWMutex, so operations
// on keys that hash to different shards never contend. Find returns an
// Accessor that keeps the shard read-locked until the caller releases
// it; the other operations scope their locking internally.
package cmap

import (
	"sync"

	"github.com/IvanBrykalov/lruc/internal/util"
)

// Map is a sharded key/value container. All methods except Clear are
// safe for concurrent use by multiple goroutines.
type Map[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
}

type shard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// New constructs a Map with the given shard hint and hash function.
// hint <= 0 selects an automatic shard count (≈2×GOMAXPROCS); any hint
// is rounded up to the next power of two so shard routing is a mask.
func New[K comparable, V any](hint int, hash func(K) uint64) *Map[K, V] {
	if hash == nil {
		hash = util.Fnv64a[K]
	}
	n := hint
	if n <= 0 {
		n = util.ReasonableShardCount()
	} else {
		n = int(util.NextPow2(uint64(n)))
	}
	shards := make([]*shard[K, V], n)
	for i := range shards {
		shards[i] = &shard[K, V]{m: make(map[K]V)}
	}
	return &Map[K, V]{shards: shards, hash: hash}
}

func (m *Map[K, V]) shardFor(k K) *shard[K, V] {
	return m.shards[util.ShardIndex(m.hash(k), len(m.shards))]
}

// InsertIfAbsent stores k→v only if k is not present. The check and
// the insert happen atomically under the shard's write lock.
// Returns false (and leaves the map untouched) if k already exists.
func (m *Map[K, V]) InsertIfAbsent(k K, v V) bool {
	s := m.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.m[k]; exists {
		return false
	}
	s.m[k] = v
	return true
}

// Find returns an Accessor for k. On a hit the Accessor holds the
// shard's read lock until the caller releases it; the caller must call
// Release before invoking any write operation on this Map, or the
// shard can deadlock against itself. On a miss ok is false and no lock
// is held.
func (m *Map[K, V]) Find(k K) (Accessor[V], bool) {
	s := m.shardFor(k)
	s.mu.RLock()
	v, ok := s.m[k]
	if !ok {
		s.mu.RUnlock()
		return Accessor[V]{}, false
	}
	return Accessor[V]{val: v, mu: &s.mu, held: true}, true
}

// Erase removes k if present and reports whether a removal happened.
// It takes the shard's write lock internally: callers must not hold
// any lock ordered after this shard's lock (in this module, the
// recency-list mutex) when calling it.
func (m *Map[K, V]) Erase(k K) bool {
	s := m.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.m[k]; !exists {
		return false
	}
	delete(s.m, k)
	return true
}

// Clear drops every slot. Not safe against concurrent mutators; the
// per-shard locking here only keeps lone stragglers from tearing a map.
func (m *Map[K, V]) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		clear(s.m)
		s.mu.Unlock()
	}
}

// Len returns the total number of resident slots across all shards.
// The sum is not a consistent snapshot under concurrent mutation.
func (m *Map[K, V]) Len() int {
	total := 0
	for _, s := range m.shards {
		s.mu.RLock()
		total += len(s.m)
		s.mu.RUnlock()
	}
	return total
}

// Shards returns the shard count (power of two). Exposed for tests and
// capacity planning.
func (m *Map[K, V]) Shards() int { return len(m.shards) }
