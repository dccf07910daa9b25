// Package worker provides the bounded fan-out helper used by the tick
// loop and the radar sweep.
package worker

import (
	"sync"
)

// ForEach applies fn to every item using at most the given number of
// goroutines, and returns once all items are processed. Workers stride
// the slice so the partitioning is stable for a given length.
func ForEach[T any](workers int, items []T, fn func(T)) {
	if workers > len(items) {
		workers = len(items)
	}
	if workers <= 1 {
		for i := range items {
			fn(items[i])
		}
		return
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < len(items); i += workers {
				fn(items[i])
			}
		}(w)
	}
	wg.Wait()
}
