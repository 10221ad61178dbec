package dmd

import (
	"context"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// progressInterval is how often a verbose batch reports its progress.
const progressInterval = 2 * time.Second

// parallelMap evaluates fn(i) for i in [0, n) on a pool of workers and returns the results in
// index order. Tasks share no state. A cancelled or expired ctx stops the batch and its error
// is returned; results computed so far are discarded.
func parallelMap[T any](ctx context.Context, n, workers int, verbose bool, fn func(i int) T) ([]T, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	results := make([]T, n)
	if n == 0 {
		return results, ctx.Err()
	}

	var processed atomic.Int64
	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	if verbose {
		go func() {
			ticker := time.NewTicker(progressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					p := processed.Load()
					if p > 0 {
						rate := float64(p) / time.Since(start).Seconds()
						log.Printf("  [%d/%d] %.1f directions/sec\n", p, n, rate)
					}
				}
			}
		}()
	}

	idxChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range idxChan {
				if ctx.Err() != nil {
					continue // drain
				}
				results[idx] = fn(idx)
				processed.Add(1)
			}
		}()
	}

send:
	for i := 0; i < n; i++ {
		select {
		case idxChan <- i:
		case <-ctx.Done():
			break send
		}
	}
	close(idxChan)

	wg.Wait()
	close(done)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
