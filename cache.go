package lruc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/lruc/internal/cmap"
	"github.com/IvanBrykalov/lruc/internal/singleflight"
	"github.com/IvanBrykalov/lruc/internal/util"
)

// ErrNoLoader is returned by FindOrLoad when no Loader was configured
// in Options.
var ErrNoLoader = errors.New("lruc: no Loader provided")

// lruCache composes a sharded concurrent map with one global recency
// list. Two independent lock domains exist: the per-shard locks inside
// the map and the single list mutex. The list mutex is never held
// across a call into the map's Erase (which takes a shard lock of its
// own): every unlink-then-erase site drops the list mutex first.
type lruCache[K comparable, V any] struct {
	store *cmap.Map[K, slot[K, V]]

	listMu sync.Mutex
	list   recencyList[K]

	capacity int64
	opt      Options[K, V]
	closed   atomic.Bool

	// singleflight group coalescing concurrent loads in FindOrLoad.
	sf singleflight.Group[K, V]

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	size   util.PaddedAtomicInt64
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicUint64
}

// New constructs a cache with the provided Options. It panics if
// Capacity is not positive; see Options for the defaults applied to
// the remaining fields.
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	if opt.Capacity <= 0 {
		panic("lruc: Capacity must be > 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	c := &lruCache[K, V]{
		store:    cmap.New[K, slot[K, V]](opt.Shards, opt.Hasher),
		capacity: int64(opt.Capacity),
		opt:      opt,
	}
	c.list.reset()
	return c
}

// Insert stores k→v only if k is absent. See Cache.Insert.
func (c *lruCache[K, V]) Insert(k K, v V) bool {
	if c.closed.Load() {
		return false
	}
	n := &node[K]{key: k}
	if !c.store.InsertIfAbsent(k, slot[K, V]{val: v, node: n}) {
		return false
	}

	// Make room before linking when the cache is already full, so the
	// list's true length stays within capacity even under heavy
	// concurrent insert pressure.
	evicted := false
	if c.size.Load() >= c.capacity {
		evicted = c.evictOldest()
	}

	c.listMu.Lock()
	c.list.pushBack(n)
	c.listMu.Unlock()

	// A pre-link eviction already paid for this entry's slot in the
	// counter; otherwise account for it now and resolve any overshoot.
	if !evicted && c.size.Add(1) > c.capacity {
		// Claim the corrective eviction: only the thread whose CAS
		// lands gets to evict, so racing inserts cannot each evict and
		// under-fill the cache. Abandon once a peer resolved it.
		for {
			cur := c.size.Load()
			if cur <= c.capacity {
				break
			}
			if c.size.CompareAndSwap(cur, cur-1) {
				if c.evictOldest() {
					break
				}
				// Nothing to evict yet (racing inserts have not linked
				// their nodes). Give the unit back and re-check.
				c.size.Add(1)
			}
		}
	}
	c.opt.Metrics.Size(int(c.size.Load()))
	return true
}

// Find returns a copy of the value for k. See Cache.Find.
func (c *lruCache[K, V]) Find(k K) (V, bool) {
	var zero V
	if c.closed.Load() {
		return zero, false
	}
	acc, ok := c.store.Find(k)
	if !ok {
		c.misses.Add(1)
		c.opt.Metrics.Miss()
		return zero, false
	}
	sl := acc.Value()
	// Drop the shard lock before touching the list; the node outlives
	// the released accessor.
	acc.Release()

	// Promote to most-recently used, but never block for it: under
	// contention the touch is skipped and eviction order degrades to an
	// approximation of true LRU.
	if c.listMu.TryLock() {
		if sl.node.inList() {
			c.list.unlink(sl.node)
			c.list.pushBack(sl.node)
		}
		c.listMu.Unlock()
	}

	c.hits.Add(1)
	c.opt.Metrics.Hit()
	return sl.val, true
}

// FindOrLoad returns the value for k, loading it on miss via
// Options.Loader with singleflight coalescing. See Cache.FindOrLoad.
func (c *lruCache[K, V]) FindOrLoad(ctx context.Context, k K) (V, error) {
	if v, ok := c.Find(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}
	return c.sf.Do(ctx, k, func() (V, error) {
		// Double-check after joining the flight.
		if v, ok := c.Find(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err == nil {
			// A racing insert wins; the loaded value is still returned.
			c.Insert(k, v)
		}
		return v, err
	})
}

// Erase removes k if this call wins the unlink. See Cache.Erase.
func (c *lruCache[K, V]) Erase(k K) int {
	if c.closed.Load() {
		return 0
	}
	acc, ok := c.store.Find(k)
	if !ok {
		return 0
	}
	n := acc.Value().node
	acc.Release()

	unlinked := false
	if n.inList() {
		c.listMu.Lock()
		// Re-check: a concurrent eviction may have unlinked the node
		// between the probe above and taking the mutex.
		if n.inList() {
			c.list.unlink(n)
			c.size.Add(-1)
			unlinked = true
		}
		c.listMu.Unlock()
	}
	if !unlinked {
		// Somebody else (eviction or another erase) owns the removal.
		return 0
	}

	// Map removal happens after the list mutex is dropped; Erase takes
	// the shard's own lock internally.
	c.store.Erase(k)
	c.opt.Metrics.Size(int(c.size.Load()))
	return 1
}

// Clear removes every entry. NOT safe for concurrent use.
func (c *lruCache[K, V]) Clear() {
	c.store.Clear()
	c.list.reset()
	c.size.Store(0)
	c.opt.Metrics.Size(0)
}

// Size returns the current number of resident entries.
func (c *lruCache[K, V]) Size() int { return int(c.size.Load()) }

// Capacity returns the fixed capacity set at construction.
func (c *lruCache[K, V]) Capacity() int { return int(c.capacity) }

// Stats returns a snapshot of the hit/miss/eviction counters.
func (c *lruCache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evicts.Load(),
	}
}

// Close marks the cache as closed. Future operations are ignored.
func (c *lruCache[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// evictOldest removes the least-recently used entry: unlink under the
// list mutex, then erase from the map only after the mutex is dropped.
// The value is captured through a read accessor first so OnEvict can
// report it. Reports whether a victim was unlinked; once a node is
// popped here, no other operation will remove its map slot (Erase
// backs off when the node is already detached), so the slot removal
// below cannot be lost.
func (c *lruCache[K, V]) evictOldest() bool {
	c.listMu.Lock()
	victim := c.list.popFront()
	c.listMu.Unlock()
	if victim == nil {
		return false
	}

	acc, ok := c.store.Find(victim.key)
	if !ok {
		return true
	}
	val := acc.Value().val
	acc.Release()
	c.store.Erase(victim.key)

	c.evicts.Add(1)
	c.opt.Metrics.Evict()
	if cb := c.opt.OnEvict; cb != nil {
		cb(victim.key, val)
	}
	return true
}

// listLen walks the recency list under its mutex and returns the
// number of non-sentinel nodes. Used by tests to cross-check Size.
func (c *lruCache[K, V]) listLen() int {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	n := 0
	for e := c.list.head.next; e != &c.list.tail; e = e.next {
		n++
	}
	return n
}
