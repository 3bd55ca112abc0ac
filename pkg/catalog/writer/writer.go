// Package writer batches aggregated catalog rows into the store,
// committing every BatchSize records and logging throughput.
//
// Upserts are full replaces, so a partition that dies mid-batch is
// recovered by simply re-running the same key range; partially
// committed batches are overwritten, never double-counted.
package writer

import (
	"context"
	"log"
	"time"

	"github.com/cognicore/tabellarius/pkg/catalog/store"
)

// DefaultBatchSize is used when Options leaves BatchSize unset.
const DefaultBatchSize = 1000

// Writer accumulates catalog rows and flushes them in batches. Not
// safe for concurrent use; each partition worker owns its own Writer.
type Writer struct {
	store     store.Store
	batchSize int
	pending   []store.Entity
	written   int64
	start     time.Time
}

// Options configures a Writer.
type Options struct {
	Store     store.Store
	BatchSize int
}

// New creates a Writer.
func New(opts Options) *Writer {
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Writer{
		store:     opts.Store,
		batchSize: size,
		pending:   make([]store.Entity, 0, size),
		start:     time.Now(),
	}
}

// Write queues one aggregated row, flushing when the batch fills.
func (w *Writer) Write(ctx context.Context, e store.Entity) error {
	w.pending = append(w.pending, e)
	if len(w.pending) >= w.batchSize {
		return w.flush(ctx)
	}
	return nil
}

// Close commits whatever remains in the current batch.
func (w *Writer) Close(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	return w.flush(ctx)
}

// Written returns the number of records committed so far.
func (w *Writer) Written() int64 {
	return w.written
}

func (w *Writer) flush(ctx context.Context) error {
	if err := w.store.UpsertEntities(ctx, w.pending); err != nil {
		return err
	}
	w.written += int64(len(w.pending))
	w.pending = w.pending[:0]

	elapsed := time.Since(w.start).Seconds()
	if elapsed > 0 {
		log.Printf("catalog writer: %d records committed (%.0f records/sec)",
			w.written, float64(w.written)/elapsed)
	}
	return nil
}
