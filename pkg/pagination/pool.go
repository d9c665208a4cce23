package pagination

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// WorkFunc processes the job at index idx.
type WorkFunc func(ctx context.Context, idx int)

// RunPool calls work for every index in [0, n) on up to workers goroutines.
// Indexes are dispatched in increasing order. Once ctx is done no further
// jobs are dispatched; jobs already running see the cancelled ctx.
//
// The returned slice reports which indexes were dispatched.
func RunPool(ctx context.Context, n, workers int, work WorkFunc) []bool {
	started := make([]bool, n)
	if n == 0 {
		return started
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	start := time.Now()
	queue := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker(ctx, queue, work, &wg, i)
	}

	// started is owned by the dispatcher and read only after wg.Wait
dispatch:
	for idx := 0; idx < n; idx++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case queue <- idx:
			started[idx] = true
		}
	}
	close(queue)
	wg.Wait()

	log.Debug().
		Int("jobs", n).
		Int("workers", workers).
		Dur("duration", time.Since(start)).
		Msg("Worker pool drained")

	return started
}

func worker(ctx context.Context, queue <-chan int, work WorkFunc, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for idx := range queue {
		work(ctx, idx)
		processed++
	}

	if processed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("jobs_processed", processed).
			Msg("Worker completed")
	}
}
