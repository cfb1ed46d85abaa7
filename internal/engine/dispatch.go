package engine

import (
	"runtime"
	"sync"
)

// forEachFrame calls fn for frame indices 0..n-1. In parallel mode frames are
// spread over a bounded set of goroutines; fn must only write to state owned
// by its index. The first error stops further dispatch and is returned.
func forEachFrame(n int, parallel bool, workers int, fn func(t int) error) error {
	if !parallel || n < 2 {
		for t := range n {
			if err := fn(t); err != nil {
				return err
			}
		}
		return nil
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)

	jobs := make(chan int)
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	failed := func() bool {
		errMu.Lock()
		defer errMu.Unlock()
		return firstErr != nil
	}

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				if failed() {
					continue
				}
				if err := fn(t); err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
				}
			}
		}()
	}

	for t := range n {
		if failed() {
			break
		}
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	return firstErr
}
