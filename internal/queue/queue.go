// Package queue provides the staging buffers that sit between the
// recording paths and the interval database writer.
package queue

import "sync"

// Buffer accumulates rows between write cycles. Producers Add from the
// bus handler goroutines; the writer Drains a whole batch at once and
// re-Adds it if the insert fails.
type Buffer[T any] struct {
	mu   sync.Mutex
	rows []T
}

func New[T any]() *Buffer[T] {
	return &Buffer[T]{}
}

// Add appends rows to the buffer.
func (b *Buffer[T]) Add(rows ...T) {
	b.mu.Lock()
	b.rows = append(b.rows, rows...)
	b.mu.Unlock()
}

// Len returns the number of buffered rows.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}

// Drain returns all buffered rows and resets the buffer, keeping the
// backing capacity for the next cycle. Returns nil when empty.
func (b *Buffer[T]) Drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.rows) == 0 {
		return nil
	}
	out := b.rows
	b.rows = make([]T, 0, cap(out))
	return out
}
