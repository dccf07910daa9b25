package worker

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestForEach_AllItemsOnce(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	var mu sync.Mutex
	seen := make(map[int]int)

	ForEach(8, items, func(n int) {
		mu.Lock()
		seen[n]++
		mu.Unlock()
	})

	if len(seen) != 100 {
		t.Fatalf("expected 100 distinct items, got %d", len(seen))
	}
	for n, count := range seen {
		if count != 1 {
			t.Errorf("item %d processed %d times", n, count)
		}
	}
}

func TestForEach_SequentialFallback(t *testing.T) {
	var order []int
	ForEach(1, []int{1, 2, 3}, func(n int) {
		order = append(order, n)
	})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected in-order sequential processing, got %v", order)
	}
}

func TestForEach_Empty(t *testing.T) {
	called := false
	ForEach(4, nil, func(n int) {
		called = true
	})
	if called {
		t.Error("fn should not be called for empty slice")
	}
}

func TestForEach_MoreWorkersThanItems(t *testing.T) {
	var processed atomic.Int32
	ForEach(16, []int{1, 2}, func(n int) {
		processed.Add(1)
	})
	if processed.Load() != 2 {
		t.Errorf("expected 2 processed, got %d", processed.Load())
	}
}
