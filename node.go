package lruc

import "sync/atomic"

// node is the intrusive recency-list element shared between a map slot
// and any in-flight operation that captured it before releasing the
// map's shard lock. It carries only the key: eviction needs the key to
// reach back into the map, the value stays in the slot.
type node[K comparable] struct {
	key K

	// Link pointers. Touched only while the list mutex is held.
	prev *node[K]
	next *node[K]

	// linked mirrors list residency so the erase fast path can probe it
	// without taking the list mutex. A stale read is fine: every writer
	// re-checks under the mutex before acting on it.
	linked atomic.Bool
}

// inList reports whether the node is currently spliced into the
// recency list. Safe to call without the list mutex.
func (n *node[K]) inList() bool { return n.linked.Load() }

// slot is the mapped value stored in the concurrent map: the cached
// value plus a back-reference to the node ordering it.
type slot[K comparable, V any] struct {
	val  V
	node *node[K]
}
