package lruc

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

// Insert must be a strict insert-if-absent: the second insert is a
// no-op and the original value stays visible.
func TestCache_InsertDuplicateIsNoOp(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{Capacity: 8})
	t.Cleanup(func() { _ = c.Close() })

	if !c.Insert("a", 1) {
		t.Fatal("Insert a=1 must be true")
	}
	if c.Insert("a", 2) {
		t.Fatal("Insert of a present key must be false")
	}
	if v, ok := c.Find("a"); !ok || v != 1 {
		t.Fatalf("Find a want 1, got %v ok=%v", v, ok)
	}
	if got := c.Size(); got != 1 {
		t.Fatalf("Size want 1, got %d", got)
	}
}

func TestCache_EraseSemantics(t *testing.T) {
	t.Parallel()

	c := New[string, string](Options[string, string]{Capacity: 4})
	t.Cleanup(func() { _ = c.Close() })

	if got := c.Erase("missing"); got != 0 {
		t.Fatalf("Erase of absent key want 0, got %d", got)
	}

	c.Insert("k", "v")
	if got := c.Erase("k"); got != 1 {
		t.Fatalf("Erase want 1, got %d", got)
	}
	if _, ok := c.Find("k"); ok {
		t.Fatal("k must be absent after Erase")
	}
	if got := c.Erase("k"); got != 0 {
		t.Fatalf("second Erase want 0, got %d", got)
	}
	if got := c.Size(); got != 0 {
		t.Fatalf("Size want 0, got %d", got)
	}

	// A fresh insert after removal is a fresh entry.
	if !c.Insert("k", "v2") {
		t.Fatal("Insert after Erase must succeed")
	}
	if v, ok := c.Find("k"); !ok || v != "v2" {
		t.Fatalf("Find k want v2, got %v ok=%v", v, ok)
	}
}

// Inserting capacity+1 distinct keys evicts exactly the oldest
// untouched key. The recency list is global, so this is deterministic
// regardless of the shard count.
func TestCache_SequentialEviction(t *testing.T) {
	t.Parallel()

	const capacity = 8
	c := New[int, string](Options[int, string]{Capacity: capacity})
	t.Cleanup(func() { _ = c.Close() })

	for i := 1; i <= capacity; i++ {
		if !c.Insert(i, fmt.Sprintf("v%d", i)) {
			t.Fatalf("Insert %d failed", i)
		}
	}
	if got := c.Size(); got != capacity {
		t.Fatalf("Size want %d, got %d", capacity, got)
	}

	c.Insert(capacity+1, "overflow")

	if _, ok := c.Find(1); ok {
		t.Fatal("key 1 must be evicted")
	}
	if v, ok := c.Find(capacity + 1); !ok || v != "overflow" {
		t.Fatal("newest key must be resident")
	}
	if got := c.Size(); got != capacity {
		t.Fatalf("Size after eviction want %d, got %d", capacity, got)
	}
}

// A Find touch promotes the entry, changing which key the next insert
// evicts.
func TestCache_FindPromotesRecency(t *testing.T) {
	t.Parallel()

	c := New[int, string](Options[int, string]{Capacity: 2})
	t.Cleanup(func() { _ = c.Close() })

	c.Insert(1, "a")
	c.Insert(2, "b")

	if _, ok := c.Find(1); !ok { // 1 becomes most-recently used
		t.Fatal("expect hit for 1")
	}
	c.Insert(3, "c") // evicts 2, the least recently touched

	if _, ok := c.Find(2); ok {
		t.Fatal("2 must be evicted")
	}
	if _, ok := c.Find(1); !ok {
		t.Fatal("1 must survive (promoted)")
	}
	if v, ok := c.Find(3); !ok || v != "c" {
		t.Fatal("3 must be present")
	}
}

func TestCache_OnEvictReportsVictim(t *testing.T) {
	t.Parallel()

	type evicted struct {
		k int
		v string
	}
	var got []evicted

	c := New[int, string](Options[int, string]{
		Capacity: 2,
		OnEvict:  func(k int, v string) { got = append(got, evicted{k, v}) },
	})
	t.Cleanup(func() { _ = c.Close() })

	c.Insert(1, "a")
	c.Insert(2, "b")
	c.Insert(3, "c")

	if len(got) != 1 || got[0].k != 1 || got[0].v != "a" {
		t.Fatalf("OnEvict want [(1,a)], got %v", got)
	}
}

func TestCache_Clear(t *testing.T) {
	t.Parallel()

	c := New[int, int](Options[int, int]{Capacity: 16})
	t.Cleanup(func() { _ = c.Close() })

	for i := 0; i < 10; i++ {
		c.Insert(i, i)
	}
	c.Clear()

	if got := c.Size(); got != 0 {
		t.Fatalf("Size after Clear want 0, got %d", got)
	}
	for i := 0; i < 10; i++ {
		if _, ok := c.Find(i); ok {
			t.Fatalf("key %d must be absent after Clear", i)
		}
	}

	// The cache stays usable after Clear.
	if !c.Insert(42, 42) {
		t.Fatal("Insert after Clear must succeed")
	}
	if v, ok := c.Find(42); !ok || v != 42 {
		t.Fatal("Find after Clear must hit")
	}
}

func TestCache_CapacityIsFixed(t *testing.T) {
	t.Parallel()

	c := New[int, int](Options[int, int]{Capacity: 3, Shards: 4})
	t.Cleanup(func() { _ = c.Close() })

	if got := c.Capacity(); got != 3 {
		t.Fatalf("Capacity want 3, got %d", got)
	}
	for i := 0; i < 100; i++ {
		c.Insert(i, i)
	}
	if got := c.Size(); got != 3 {
		t.Fatalf("Size want 3, got %d", got)
	}
}

func TestCache_PanicsOnNonPositiveCapacity(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("New with Capacity=0 must panic")
		}
	}()
	New[int, int](Options[int, int]{Capacity: 0})
}

func TestCache_ClosedOperationsAreNoOps(t *testing.T) {
	t.Parallel()

	c := New[string, string](Options[string, string]{Capacity: 4})
	c.Insert("a", "1")
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if c.Insert("b", "2") {
		t.Fatal("Insert after Close must be false")
	}
	if _, ok := c.Find("a"); ok {
		t.Fatal("Find after Close must miss")
	}
	if got := c.Erase("a"); got != 0 {
		t.Fatalf("Erase after Close want 0, got %d", got)
	}
}

func TestCache_Stats(t *testing.T) {
	t.Parallel()

	c := New[int, int](Options[int, int]{Capacity: 2})
	t.Cleanup(func() { _ = c.Close() })

	c.Insert(1, 1)
	c.Insert(2, 2)
	c.Find(1)      // hit
	c.Find(99)     // miss
	c.Insert(3, 3) // evicts 2

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Evictions != 1 {
		t.Fatalf("Stats want {1 1 1}, got %+v", s)
	}
}

// Concurrent FindOrLoad calls for one key must run the Loader once.
func TestCache_FindOrLoad_Singleflight(t *testing.T) {
	var calls int64

	c := New[string, string](Options[string, string]{
		Capacity: 64,
		Loader: func(_ context.Context, k string) (string, error) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(5 * time.Millisecond) // simulate I/O
			return "v:" + k, nil
		},
	})
	t.Cleanup(func() { _ = c.Close() })

	const workers = 64
	var g errgroup.Group
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			v, err := c.FindOrLoad(ctx, "k")
			if err != nil {
				return err
			}
			if v != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run exactly once, got %d", got)
	}

	// Subsequent call is a pure hit.
	if v, err := c.FindOrLoad(context.Background(), "k"); err != nil || v != "v:k" {
		t.Fatalf("second FindOrLoad failed: v=%q err=%v", v, err)
	}
}

func TestCache_FindOrLoad_NoLoader(t *testing.T) {
	t.Parallel()

	c := New[string, string](Options[string, string]{Capacity: 4})
	t.Cleanup(func() { _ = c.Close() })

	if _, err := c.FindOrLoad(context.Background(), "k"); err != ErrNoLoader {
		t.Fatalf("want ErrNoLoader, got %v", err)
	}

	// A resident key does not need the loader.
	c.Insert("k", "v")
	if v, err := c.FindOrLoad(context.Background(), "k"); err != nil || v != "v" {
		t.Fatalf("FindOrLoad on a hit: v=%q err=%v", v, err)
	}
}
