package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func quietLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func noSession(_ context.Context) (struct{}, func(), error) {
	return struct{}{}, func() {}, nil
}

func TestRunPreservesOrder(t *testing.T) {
	items := []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	got := Run(context.Background(), 3, items, quietLogger(), noSession,
		func(_ context.Context, _ struct{}, n int) int {
			return n * 2
		})
	if len(got) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(got))
	}
	for i, n := range items {
		if got[i] != n*2 {
			t.Errorf("result[%d] = %d, want %d", i, got[i], n*2)
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var inFlight, peak int64
	items := make([]int, 10)

	Run(context.Background(), 3, items, quietLogger(), noSession,
		func(_ context.Context, _ struct{}, _ int) int {
			cur := atomic.AddInt64(&inFlight, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if cur <= p || atomic.CompareAndSwapInt64(&peak, p, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			return 0
		})

	if got := atomic.LoadInt64(&peak); got > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", got)
	}
	if got := atomic.LoadInt64(&peak); got < 2 {
		t.Errorf("peak concurrency = %d, expected parallel execution", got)
	}
}

func TestRunSurvivesPanics(t *testing.T) {
	items := []int{1, 2, 3}
	got := Run(context.Background(), 2, items, quietLogger(), noSession,
		func(_ context.Context, _ struct{}, n int) int {
			if n == 2 {
				panic("broken page")
			}
			return n
		})
	if got[0] != 1 || got[2] != 3 {
		t.Errorf("healthy tasks affected by sibling panic: %v", got)
	}
	if got[1] != 0 {
		t.Errorf("panicked task should yield the zero result, got %d", got[1])
	}
}

func TestRunSessionFailureDegrades(t *testing.T) {
	// Every acquire fails: no results, but no hang either.
	items := []int{1, 2, 3}
	done := make(chan []int, 1)
	go func() {
		done <- Run(context.Background(), 2, items, quietLogger(),
			func(_ context.Context) (struct{}, func(), error) {
				return struct{}{}, nil, errors.New("no chrome")
			},
			func(_ context.Context, _ struct{}, n int) int { return n })
	}()
	select {
	case got := <-done:
		for i, r := range got {
			if r != 0 {
				t.Errorf("result[%d] = %d, want zero when no worker ran", i, r)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pool hung when every session failed")
	}
}

func TestRunEmptyItems(t *testing.T) {
	got := Run(context.Background(), 3, nil, quietLogger(), noSession,
		func(_ context.Context, _ struct{}, n int) int { return n })
	if len(got) != 0 {
		t.Errorf("expected no results, got %v", got)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran int64
	Run(ctx, 2, []int{1, 2, 3}, quietLogger(), noSession,
		func(_ context.Context, _ struct{}, n int) int {
			atomic.AddInt64(&ran, 1)
			return n
		})
	if atomic.LoadInt64(&ran) != 0 {
		t.Errorf("cancelled context still ran %d tasks", ran)
	}
}
