// Package store defines the persistence interface for raw entity
// observations and the aggregated catalog built from them.
package store

import "context"

// Kind discriminates where an observation was seen.
type Kind int

const (
	// KindProfile marks a mention at the top level of a profile or
	// posting document.
	KindProfile Kind = iota
	// KindSubdocument marks a mention inside a nested record, e.g. a
	// work experience within a profile.
	KindSubdocument
)

// Entity is one aggregated catalog row: exactly one per normalized key.
// Counts are rebuilt wholesale on every catalog run, never patched.
type Entity struct {
	Key          string
	Type         string
	Source       string
	Language     string
	Name         string
	ProfileCount int64
	SubdocCount  int64
}

// Observation is one raw occurrence of an entity as written, tied to
// its parent document. Consumed during aggregation, not kept in the
// catalog.
type Observation struct {
	Key      string
	Type     string
	Source   string
	Language string
	Name     string
	Kind     Kind
	Count    int64
	ParentID string
}

// ObservationRow is the slim shape yielded by a sorted scan.
type ObservationRow struct {
	Key   string
	Name  string
	Kind  Kind
	Count int64
}

// Cursor iterates a sorted observation scan. Next returns false when
// the scan is exhausted; Close releases the underlying query.
type Cursor interface {
	Next() (ObservationRow, bool, error)
	Close() error
}

// TitleSequence is the ordered list of normalized title keys from one
// person's work history.
type TitleSequence struct {
	ParentID string
	Keys     []string
}

// SequenceCursor iterates title sequences grouped by parent.
type SequenceCursor interface {
	Next() (TitleSequence, bool, error)
	Close() error
}

// CareerStep is an observed title->title->title transition with its
// occurrence count. Empty strings mark history boundaries.
type CareerStep struct {
	From  string
	Title string
	Next  string
	Count int64
}

// EntityCount pairs a key with its parent-level count and its
// co-occurrence count against one category key.
type EntityCount struct {
	Key         string
	Count       int64
	Coincidence int64
}

// Query selects one slice of the observation tables.
type Query struct {
	Type     string
	Source   string
	Language string
}

// Store is the persistence interface for the catalog core. All scans
// ordered by key ascend; upserts are full replaces.
type Store interface {
	Close() error

	// Ingestion
	InsertObservation(ctx context.Context, o Observation) error
	InsertTitleSequence(ctx context.Context, seq TitleSequence) error

	// Catalog
	UpsertEntities(ctx context.Context, entities []Entity) error
	GetEntity(ctx context.Context, key string) (Entity, bool, error)
	DeleteEntityRange(ctx context.Context, q Query, lower string, upper *string) error

	// Partitioning support
	DistinctKeyCount(ctx context.Context, q Query) (int64, error)
	KeyAtRank(ctx context.Context, q Query, rank int64) (string, error)

	// Scans
	ScanObservations(ctx context.Context, q Query, lower string, upper *string) (Cursor, error)
	ScanTitleSequences(ctx context.Context) (SequenceCursor, error)
	UpsertCareerSteps(ctx context.Context, steps []CareerStep) error

	// Relevance inputs
	TotalParents(ctx context.Context) (int64, error)
	CategoryParents(ctx context.Context, categoryKey string) (int64, error)
	EntityCounts(ctx context.Context, q Query, categoryKey string) ([]EntityCount, error)
}
