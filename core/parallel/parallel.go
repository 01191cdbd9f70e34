// Package parallel provides the goroutine helpers shared across the library:
// an error-collecting work queue for per-segment model fits and backtest
// folds, and chunked range helpers for row-level loops such as design-matrix
// fills.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits items across one worker per available CPU core and runs
// fn for each half-open range [start, end).
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	// Ceiling division so the last worker picks up the remainder.
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ParallelizeWithThreshold runs sequentially when items is at or below the
// threshold, in parallel otherwise. Small inputs are not worth the goroutine
// overhead.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ForEachErr runs fn(i) for every i in [0, items) across one worker per CPU
// core and returns the first error encountered. All items are attempted even
// after a failure so that independent work (segments, folds) completes.
func ForEachErr(items int, fn func(i int) error) error {
	if items == 0 {
		return nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	next := make(chan int)
	go func() {
		for i := 0; i < items; i++ {
			next <- i
		}
		close(next)
	}()

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				if err := fn(i); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()
	return firstErr
}
