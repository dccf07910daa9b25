package queue

import (
	"sync"
	"testing"
)

type row struct {
	ID       int
	Callsign string
}

func TestBuffer_AddAndLen(t *testing.T) {
	b := New[row]()
	if b.Len() != 0 {
		t.Errorf("expected length 0, got %d", b.Len())
	}

	b.Add(row{ID: 1, Callsign: "PATRIOT_ALPHA"})
	if b.Len() != 1 {
		t.Errorf("expected length 1, got %d", b.Len())
	}

	b.Add(row{ID: 2}, row{ID: 3})
	if b.Len() != 3 {
		t.Errorf("expected length 3, got %d", b.Len())
	}
}

func TestBuffer_DrainEmpty(t *testing.T) {
	b := New[row]()
	if got := b.Drain(); got != nil {
		t.Errorf("expected nil from empty drain, got %v", got)
	}
}

func TestBuffer_DrainReturnsInOrder(t *testing.T) {
	b := New[row]()
	b.Add(row{ID: 1}, row{ID: 2}, row{ID: 3})

	out := b.Drain()
	if len(out) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(out))
	}
	for i, r := range out {
		if r.ID != i+1 {
			t.Errorf("row %d: expected ID %d, got %d", i, i+1, r.ID)
		}
	}
	if b.Len() != 0 {
		t.Errorf("expected empty buffer after drain, got %d", b.Len())
	}
}

func TestBuffer_RequeueAfterFailedWrite(t *testing.T) {
	b := New[row]()
	b.Add(row{ID: 1}, row{ID: 2})

	batch := b.Drain()
	// Writer puts the batch back when the insert fails.
	b.Add(batch...)

	if b.Len() != 2 {
		t.Errorf("expected 2 rows after requeue, got %d", b.Len())
	}
	again := b.Drain()
	if len(again) != 2 || again[0].ID != 1 {
		t.Errorf("unexpected rows after requeue: %v", again)
	}
}

func TestBuffer_ConcurrentAdd(t *testing.T) {
	b := New[row]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			b.Add(row{ID: id})
		}(i)
	}
	wg.Wait()

	if b.Len() != 100 {
		t.Errorf("expected 100 rows, got %d", b.Len())
	}
}

func TestBuffer_ConcurrentDrainNoLoss(t *testing.T) {
	b := New[row]()
	for i := 0; i < 100; i++ {
		b.Add(row{ID: i})
	}

	var wg sync.WaitGroup
	results := make(chan []row, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- b.Drain()
		}()
	}
	wg.Wait()
	close(results)

	total := 0
	for r := range results {
		total += len(r)
	}
	if total != 100 {
		t.Errorf("expected 100 rows across drains, got %d", total)
	}
}
