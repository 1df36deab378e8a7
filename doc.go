// Package lruc provides a bounded, thread-safe Least-Recently-Used
// cache built from two independently locked structures: a key-sharded
// concurrent map and a single mutex-guarded recency list.
//
// Design
//
//   - Map: keys are hashed onto shards, each guarded by its own
//     RWMutex, so operations on unrelated keys never contend. Reads go
//     through a short-lived accessor that copies the value out and
//     releases the shard lock before any list work starts.
//
//   - Recency: one intrusive doubly linked list with head/tail
//     sentinels orders all resident keys from least- to most-recently
//     touched. Its mutex is the only global lock, and every critical
//     section under it is a constant-time splice.
//
//   - Eviction: Insert keeps the resident count within the fixed
//     capacity. When racing inserts overshoot, a compare-and-swap on
//     the atomic size counter elects exactly one corrective evictor,
//     so competing inserts cannot both evict and under-fill the cache.
//
//   - Approximate LRU: Find promotes an entry with a try-lock on the
//     list mutex. Under contention the promotion is skipped instead of
//     blocking, trading perfect recency order for read-path latency.
//     Capacity bounds and entry consistency are unaffected.
//
//   - Lock order: the list mutex is never held across a map erase
//     (which takes a shard lock of its own). Sites that must unlink
//     and erase always unlink first, drop the list mutex, then erase.
//
// Basic usage
//
//	c := lruc.New[string, []byte](lruc.Options[string, []byte]{Capacity: 10_000})
//	c.Insert("a", []byte("1"))
//	if v, ok := c.Find("a"); ok {
//	    _ = v // use the copy
//	}
//	c.Erase("a")
//
// With a loader (singleflight-coalesced)
//
//	c := lruc.New[string, string](lruc.Options[string, string]{
//	    Capacity: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        return fetchFromDB(ctx, k)
//	    },
//	})
//	v, err := c.FindOrLoad(context.Background(), "key")
//
// Exporting metrics (Prometheus adapter)
//
//	m := prom.New(nil, "app", "cache", nil)
//	c := lruc.New[string, []byte](lruc.Options[string, []byte]{
//	    Capacity: 10_000,
//	    Metrics:  m,
//	})
//
// Semantics worth noting: Insert never overwrites (a present key makes
// it a no-op returning false), Erase reports 0 when a concurrent
// eviction removed the key first, and Clear is not safe against
// concurrent use.
package lruc
