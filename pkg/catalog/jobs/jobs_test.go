package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cognicore/tabellarius/pkg/catalog/partition"
)

func intervals(lowers ...string) []partition.Interval {
	out := make([]partition.Interval, len(lowers))
	for i, l := range lowers {
		out[i].Lower = l
		if i+1 < len(lowers) {
			upper := lowers[i+1]
			out[i].Upper = &upper
		}
	}
	return out
}

func TestPoolResultsInInputOrder(t *testing.T) {
	pool := NewPool(Options{Concurrency: 4})

	results, err := pool.Run(context.Background(),
		func(ctx context.Context, iv partition.Interval) (int64, error) {
			return int64(len(iv.Lower)), nil
		},
		intervals("a", "bb", "ccc"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, want := range []int64{1, 2, 3} {
		if results[i].Records != want {
			t.Errorf("Result %d: expected %d records, got %d", i, want, results[i].Records)
		}
	}
}

func TestPoolWorkerFailureDoesNotCancelSiblings(t *testing.T) {
	pool := NewPool(Options{Concurrency: 2})
	var completed int64

	results, err := pool.Run(context.Background(),
		func(ctx context.Context, iv partition.Interval) (int64, error) {
			if iv.Lower == "bad" {
				return 0, errors.New("transient database error")
			}
			atomic.AddInt64(&completed, 1)
			return 1, nil
		},
		intervals("a", "bad", "c", "d"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if atomic.LoadInt64(&completed) != 3 {
		t.Errorf("Healthy partitions should all complete, got %d", completed)
	}
	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
			if r.Interval.Lower != "bad" {
				t.Errorf("Failure attributed to wrong partition: %+v", r)
			}
		}
	}
	if failures != 1 {
		t.Errorf("Expected exactly 1 failed partition, got %d", failures)
	}
}

func TestPoolConcurrencyBound(t *testing.T) {
	pool := NewPool(Options{Concurrency: 2})

	var mu sync.Mutex
	var active, peak int

	_, err := pool.Run(context.Background(),
		func(ctx context.Context, iv partition.Interval) (int64, error) {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
			return 0, nil
		},
		intervals("a", "b", "c", "d", "e", "f"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if peak > 2 {
		t.Errorf("Concurrency bound exceeded: peak %d", peak)
	}
}

func TestPoolEmptyIntervals(t *testing.T) {
	pool := NewPool(Options{Concurrency: 2})
	results, err := pool.Run(context.Background(),
		func(ctx context.Context, iv partition.Interval) (int64, error) {
			t.Error("Worker should not run")
			return 0, nil
		}, nil)
	if err != nil || results != nil {
		t.Errorf("Expected no work and no error, got %v, %v", results, err)
	}
}

func TestPoolCancelledContext(t *testing.T) {
	pool := NewPool(Options{Concurrency: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Run(ctx,
		func(ctx context.Context, iv partition.Interval) (int64, error) {
			return 0, ctx.Err()
		},
		intervals("a"))
	if err == nil {
		t.Error("Expected cancelled context to surface")
	}
}
