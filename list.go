package lruc

// recencyList is an intrusive doubly linked list with two fixed
// sentinels: head.next is the least-recently used resident node,
// tail.prev the most-recently used. All methods except reset must be
// called with the owning cache's list mutex held.
type recencyList[K comparable] struct {
	head node[K]
	tail node[K]
}

// reset points the sentinels at each other, leaving the list empty.
// Nodes still spliced in are simply abandoned.
func (l *recencyList[K]) reset() {
	l.head.prev = nil
	l.head.next = &l.tail
	l.tail.prev = &l.head
	l.tail.next = nil
}

// pushBack splices n immediately before the tail sentinel, making it
// the most-recently used entry.
func (l *recencyList[K]) pushBack(n *node[K]) {
	if n.linked.Load() {
		panic("lruc: pushBack of a node that is already linked")
	}
	last := l.tail.prev
	n.prev = last
	n.next = &l.tail
	last.next = n
	l.tail.prev = n
	n.linked.Store(true)
}

// unlink re-stitches n's neighbors around it and resets the node to
// its detached signature (nil links, linked flag down).
func (l *recencyList[K]) unlink(n *node[K]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
	n.linked.Store(false)
}

// popFront unlinks and returns the least-recently used node, or nil if
// the list is empty. The caller still owns removal of the node's key
// from the map, and must do that after dropping the list mutex.
func (l *recencyList[K]) popFront() *node[K] {
	candidate := l.head.next
	if candidate == &l.tail {
		return nil
	}
	l.unlink(candidate)
	return candidate
}
