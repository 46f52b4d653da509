// Package pool fans a queue of independent per-match resolution tasks
// across a bounded number of workers, each owning one isolated browsing
// session for its lifetime.
package pool

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// indexed pairs a queue item with its original position so callers can
// reassemble results by index, not completion order.
type indexed[T any] struct {
	item T
	idx  int
}

// Run executes items with at most n workers in flight. Each worker acquires
// one session via acquire, pulls from the shared queue until it drains,
// then releases the session. A task that panics yields its zero result and
// the pool continues; results land at their originating index.
func Run[S, T, R any](
	ctx context.Context,
	n int,
	items []T,
	log *logrus.Logger,
	acquire func(ctx context.Context) (S, func(), error),
	fn func(ctx context.Context, sess S, item T) R,
) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	if n > len(items) {
		n = len(items)
	}
	if n < 1 {
		n = 1
	}

	queue := make(chan indexed[T], len(items))
	for i, item := range items {
		queue <- indexed[T]{item: item, idx: i}
	}
	close(queue)

	var wg sync.WaitGroup
	for w := 1; w <= n; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			sess, release, err := acquire(ctx)
			if err != nil {
				// This worker is out; siblings keep draining the queue.
				log.WithError(err).WithField("worker", workerID).Error("worker session unavailable")
				return
			}
			defer release()

			for job := range queue {
				if ctx.Err() != nil {
					return
				}
				results[job.idx] = runOne(ctx, log, workerID, sess, job, fn)
			}
		}(w)
	}
	wg.Wait()
	return results
}

// runOne executes a single task, converting a panic into the zero result so
// one broken page cannot take down its siblings.
func runOne[S, T, R any](
	ctx context.Context,
	log *logrus.Logger,
	workerID int,
	sess S,
	job indexed[T],
	fn func(ctx context.Context, sess S, item T) R,
) (result R) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{"worker": workerID, "task": job.idx, "panic": r}).
				Error("task panicked, degrading to null result")
		}
	}()
	return fn(ctx, sess, job.item)
}
