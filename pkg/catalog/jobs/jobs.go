// Package jobs fans a worker function out over key-range partitions.
//
// Each worker owns its own scan and writer; partitions share nothing
// but the destination store, and their key ranges are disjoint by
// construction, so no coordination happens during a run. A failed
// partition is reported in its Result rather than cancelling its
// siblings; re-running just that range is always safe because catalog
// upserts are full replaces.
package jobs

import (
	"context"
	"crypto/rand"
	"log"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/tabellarius/pkg/catalog/partition"
)

// Worker processes one partition and returns the number of records it
// wrote.
type Worker func(ctx context.Context, interval partition.Interval) (int64, error)

// Result is the outcome of one partition.
type Result struct {
	Interval partition.Interval
	Records  int64
	Err      error
}

// Pool runs workers with bounded concurrency.
type Pool struct {
	concurrency int
	entropy     *ulid.MonotonicEntropy
}

// Options configures a Pool.
type Options struct {
	Concurrency int
}

// NewPool creates a Pool. Concurrency below 1 means one worker at a
// time.
func NewPool(opts Options) *Pool {
	c := opts.Concurrency
	if c < 1 {
		c = 1
	}
	return &Pool{
		concurrency: c,
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}
}

// Run executes the worker over every interval and returns one Result
// per interval, in input order. Worker errors land in Result.Err; the
// only error returned directly is a cancelled context.
func (p *Pool) Run(ctx context.Context, worker Worker, intervals []partition.Interval) ([]Result, error) {
	if len(intervals) == 0 {
		return nil, nil
	}

	runID := ulid.MustNew(ulid.Now(), p.entropy)
	log.Printf("job %s: %d partitions, concurrency %d", runID, len(intervals), p.concurrency)
	start := time.Now()

	results := make([]Result, len(intervals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, iv := range intervals {
		i, iv := i, iv
		results[i].Interval = iv
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			records, err := worker(gctx, iv)
			results[i].Records = records
			results[i].Err = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	var total int64
	failed := 0
	for _, r := range results {
		total += r.Records
		if r.Err != nil {
			failed++
		}
	}
	log.Printf("job %s: done in %s, %d records, %d failed partitions",
		runID, time.Since(start).Round(time.Millisecond), total, failed)
	return results, nil
}
