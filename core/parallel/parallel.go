// Package parallel provides chunked parallel execution helpers for
// row-oriented numeric loops.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits items across the available CPU cores and runs fn on
// each [start, end) chunk concurrently. Every item lands in exactly one
// chunk; the remainder of an uneven division is spread one item at a time
// over the leading workers.
func Parallelize(items int, fn func(start, end int)) {
	workers := runtime.NumCPU()
	if workers > items {
		workers = items
	}
	if workers <= 1 {
		if items > 0 {
			fn(0, items)
		}
		return
	}

	base := items / workers
	extra := items % workers

	var wg sync.WaitGroup
	start := 0
	for w := 0; w < workers; w++ {
		size := base
		if w < extra {
			size++
		}
		end := start + size

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)

		start = end
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially when items is at or below
// threshold, and in parallel otherwise. Small inputs are not worth the
// goroutine overhead.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
