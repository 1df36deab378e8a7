package lruc

import "context"

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict()
	Size(entries int)
}

// Options configures the cache. Capacity is mandatory; every other
// field has a usable zero value:
//   - Shards <= 0 => auto (≈2×GOMAXPROCS, rounded to a power of two)
//   - nil Hasher  => built-in FNV-1a (panics on exotic key types)
//   - nil Metrics => NoopMetrics
type Options[K comparable, V any] struct {
	// Capacity is the maximum number of resident entries. Fixed for the
	// lifetime of the cache; New panics if it is not positive.
	Capacity int

	// Shards hints the shard count of the underlying concurrent map.
	// More shards means less contention between unrelated keys at the
	// price of a little memory. Always rounded up to a power of two.
	Shards int

	// Hasher routes keys to shards. The default handles strings, byte
	// slices/arrays and all integer widths; supply your own for struct
	// keys. Hashers must not panic on any key the caller can present;
	// no hash value is reserved.
	Hasher func(K) uint64

	// Loader fetches a value on cache miss. Used by FindOrLoad;
	// concurrent loads of the same key are coalesced.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called after a capacity eviction with copies of the
	// evicted key and value. It runs outside both lock domains, so it
	// may call back into the cache (though re-inserting the victim
	// defeats the point).
	OnEvict func(k K, v V)

	// Metrics receives Hit/Miss/Evict/Size signals.
	Metrics Metrics
}
