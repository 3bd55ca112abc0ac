// Package catalog wires the normalization, partitioning, aggregation
// and writing stages into the catalog-rebuild engine.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/tabellarius/pkg/catalog/aggregate"
	"github.com/cognicore/tabellarius/pkg/catalog/career"
	"github.com/cognicore/tabellarius/pkg/catalog/jobs"
	"github.com/cognicore/tabellarius/pkg/catalog/normalize"
	"github.com/cognicore/tabellarius/pkg/catalog/partition"
	"github.com/cognicore/tabellarius/pkg/catalog/relevance"
	"github.com/cognicore/tabellarius/pkg/catalog/store"
	"github.com/cognicore/tabellarius/pkg/catalog/writer"
)

// Builder is the catalog engine facade.
type Builder struct {
	store       store.Store
	norm        *normalize.Normalizer
	batchSize   int
	concurrency int
}

// Options configures a Builder.
type Options struct {
	Store      store.Store
	Normalizer *normalize.Normalizer

	// BatchSize is the writer commit interval; defaults apply when 0.
	BatchSize int

	// Concurrency bounds parallel partition workers; minimum 1.
	Concurrency int
}

// New creates a Builder with the given dependencies.
func New(opts Options) *Builder {
	norm := opts.Normalizer
	if norm == nil {
		norm = normalize.New(normalize.Options{})
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Builder{
		store:       opts.Store,
		norm:        norm,
		batchSize:   opts.BatchSize,
		concurrency: concurrency,
	}
}

// Close shuts down the underlying store.
func (b *Builder) Close() error {
	return b.store.Close()
}

// Normalizer exposes the builder's normalizer for ingestion callers.
func (b *Builder) Normalizer() *normalize.Normalizer {
	return b.norm
}

// Observe normalizes one raw entity mention and records it as an
// observation. A mention that normalizes to nothing is silently
// dropped; the returned flag reports whether it was kept.
func (b *Builder) Observe(ctx context.Context, entityType, source, language,
	raw, parentID string, kind store.Kind, count int64) (bool, error) {
	res, ok := b.norm.Normalize(entityType, source, language, raw)
	if !ok {
		return false, nil
	}
	if count <= 0 {
		count = 1
	}
	err := b.store.InsertObservation(ctx, store.Observation{
		Key:      res.Key.String(),
		Type:     entityType,
		Source:   source,
		Language: language,
		Name:     strings.TrimSpace(raw),
		Kind:     kind,
		Count:    count,
		ParentID: parentID,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordTitleHistory normalizes an ordered list of raw titles from one
// person's history and stores the surviving sequence for career-step
// grouping. Titles that normalize to nothing are skipped.
func (b *Builder) RecordTitleHistory(ctx context.Context, source, language,
	parentID string, rawTitles []string) error {
	keys := make([]string, 0, len(rawTitles))
	for _, raw := range rawTitles {
		res, ok := b.norm.Normalize(normalize.TypeTitle, source, language, raw)
		if !ok {
			continue
		}
		keys = append(keys, res.Key.String())
	}
	if len(keys) == 0 {
		return nil
	}
	return b.store.InsertTitleSequence(ctx, store.TitleSequence{
		ParentID: parentID,
		Keys:     keys,
	})
}

// RebuildRange rebuilds the catalog rows of one key range: purge,
// sorted scan, two-stream aggregation, batched writes. Safe to re-run
// after any failure because every upsert is a full replace. Returns
// the number of records written.
func (b *Builder) RebuildRange(ctx context.Context, q store.Query, iv partition.Interval) (int64, error) {
	if err := b.store.DeleteEntityRange(ctx, q, iv.Lower, iv.Upper); err != nil {
		return 0, fmt.Errorf("purge range: %w", err)
	}

	cursor, err := b.store.ScanObservations(ctx, q, iv.Lower, iv.Upper)
	if err != nil {
		return 0, fmt.Errorf("scan observations: %w", err)
	}
	defer cursor.Close()

	w := writer.New(writer.Options{Store: b.store, BatchSize: b.batchSize})
	agg := aggregate.AggregateTwoStream(&cursorScan{cursor: cursor})
	for {
		rec, ok, err := agg.Next()
		if err != nil {
			return w.Written(), err
		}
		if !ok {
			break
		}
		key, err := normalize.ParseKey(rec.Key)
		if err != nil {
			return w.Written(), err
		}
		err = w.Write(ctx, store.Entity{
			Key:          rec.Key,
			Type:         key.Type,
			Source:       key.Source,
			Language:     key.Language,
			Name:         rec.Name,
			ProfileCount: rec.ProfileCount,
			SubdocCount:  rec.SubdocCount,
		})
		if err != nil {
			return w.Written(), err
		}
	}
	if err := w.Close(ctx); err != nil {
		return w.Written(), err
	}
	return w.Written(), nil
}

// Rebuild partitions one observation slice into nbatches key ranges
// and rebuilds them in parallel. Per-partition failures are reported
// in the results; retrying a failed partition is the caller's call.
func (b *Builder) Rebuild(ctx context.Context, q store.Query, nbatches int) ([]jobs.Result, error) {
	intervals, err := partition.Ranges(ctx, &boundKeySource{store: b.store, query: q}, nbatches)
	if err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	if len(intervals) == 0 {
		return nil, nil
	}

	pool := jobs.NewPool(jobs.Options{Concurrency: b.concurrency})
	return pool.Run(ctx, func(ctx context.Context, iv partition.Interval) (int64, error) {
		return b.RebuildRange(ctx, q, iv)
	}, intervals)
}

// BuildCareerSteps regroups every stored title history into counted
// career-step records.
func (b *Builder) BuildCareerSteps(ctx context.Context) (int64, error) {
	return career.Build(ctx, b.store, b.batchSize)
}

// EntityCloud scores every entity of one slice against a category key
// and returns the significant ones, best first.
func (b *Builder) EntityCloud(ctx context.Context, categoryKey string,
	q store.Query, sigma float64, limit int) ([]relevance.CloudEntry, error) {
	total, err := b.store.TotalParents(ctx)
	if err != nil {
		return nil, err
	}
	category, err := b.store.CategoryParents(ctx, categoryKey)
	if err != nil {
		return nil, err
	}
	counts, err := b.store.EntityCounts(ctx, q, categoryKey)
	if err != nil {
		return nil, err
	}

	candidates := make([]relevance.Candidate, 0, len(counts))
	for _, c := range counts {
		if c.Key == categoryKey {
			continue
		}
		candidates = append(candidates, relevance.Candidate{
			Key:         c.Key,
			Count:       c.Count,
			Coincidence: c.Coincidence,
		})
	}
	return relevance.EntityCloud(total, category, candidates, sigma, limit)
}

// EntityName implements mapper.NameSource against the catalog.
func (b *Builder) EntityName(ctx context.Context, key string) (string, bool, error) {
	e, ok, err := b.store.GetEntity(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	return e.Name, true, nil
}

// cursorScan adapts a store cursor to the aggregator's Scan.
type cursorScan struct {
	cursor store.Cursor
}

func (c *cursorScan) Next() (aggregate.Row, bool, error) {
	row, ok, err := c.cursor.Next()
	if err != nil || !ok {
		return aggregate.Row{}, false, err
	}
	kind := aggregate.KindProfile
	if row.Kind == store.KindSubdocument {
		kind = aggregate.KindSubdocument
	}
	return aggregate.Row{
		Key:   row.Key,
		Name:  row.Name,
		Kind:  kind,
		Count: row.Count,
	}, true, nil
}

// boundKeySource binds a store and query to the partitioner's
// KeySource.
type boundKeySource struct {
	store store.Store
	query store.Query
}

func (s *boundKeySource) DistinctKeyCount(ctx context.Context) (int64, error) {
	return s.store.DistinctKeyCount(ctx, s.query)
}

func (s *boundKeySource) KeyAtRank(ctx context.Context, rank int64) (string, error) {
	return s.store.KeyAtRank(ctx, s.query, rank)
}

