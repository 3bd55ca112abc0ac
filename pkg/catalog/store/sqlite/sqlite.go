// Package sqlite implements store.Store on SQLite via modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cognicore/tabellarius/pkg/catalog/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite database with WAL mode enabled and initializes
// the schema.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS entities (
	key TEXT PRIMARY KEY,
	entity_type TEXT NOT NULL,
	source TEXT NOT NULL,
	language TEXT NOT NULL,
	name TEXT NOT NULL,
	profile_count INTEGER NOT NULL DEFAULT 0,
	subdoc_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS observations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	key TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	source TEXT NOT NULL,
	language TEXT NOT NULL,
	name TEXT NOT NULL,
	kind INTEGER NOT NULL DEFAULT 0,
	count INTEGER NOT NULL DEFAULT 1,
	parent_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_observations_slice
	ON observations(entity_type, source, language, key);

CREATE INDEX IF NOT EXISTS idx_observations_parent
	ON observations(parent_id, key);

CREATE TABLE IF NOT EXISTS title_sequences (
	parent_id TEXT NOT NULL,
	pos INTEGER NOT NULL,
	key TEXT NOT NULL,
	PRIMARY KEY(parent_id, pos)
);

CREATE TABLE IF NOT EXISTS career_steps (
	t1 TEXT NOT NULL,
	t2 TEXT NOT NULL,
	t3 TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(t1, t2, t3)
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// InsertObservation records one raw entity occurrence.
func (s *sqliteStore) InsertObservation(ctx context.Context, o store.Observation) error {
	const stmt = `
INSERT INTO observations (key, entity_type, source, language, name, kind, count, parent_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`

	_, err := s.db.ExecContext(ctx, stmt, o.Key, o.Type, o.Source,
		o.Language, o.Name, int(o.Kind), o.Count, o.ParentID)
	return err
}

// InsertTitleSequence replaces the ordered title keys of one history.
// The parent's previous rows are purged first so a shorter re-insert
// leaves no stale tail positions behind.
func (s *sqliteStore) InsertTitleSequence(ctx context.Context, seq store.TitleSequence) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM title_sequences WHERE parent_id = ?;`, seq.ParentID); err != nil {
		return err
	}

	const stmt = `
INSERT INTO title_sequences (parent_id, pos, key)
VALUES (?, ?, ?);`

	for i, key := range seq.Keys {
		if _, err := tx.ExecContext(ctx, stmt, seq.ParentID, i, key); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertEntities writes a batch of aggregated catalog rows in one
// transaction. Each row is a full replace of whatever was there.
func (s *sqliteStore) UpsertEntities(ctx context.Context, entities []store.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO entities (key, entity_type, source, language, name, profile_count, subdoc_count)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	name=excluded.name,
	profile_count=excluded.profile_count,
	subdoc_count=excluded.subdoc_count;`

	for _, e := range entities {
		if _, err := tx.ExecContext(ctx, stmt, e.Key, e.Type, e.Source,
			e.Language, e.Name, e.ProfileCount, e.SubdocCount); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetEntity returns a catalog row by key.
func (s *sqliteStore) GetEntity(ctx context.Context, key string) (store.Entity, bool, error) {
	const stmt = `
SELECT key, entity_type, source, language, name, profile_count, subdoc_count
FROM entities WHERE key = ?;`

	var e store.Entity
	err := s.db.QueryRowContext(ctx, stmt, key).Scan(&e.Key, &e.Type,
		&e.Source, &e.Language, &e.Name, &e.ProfileCount, &e.SubdocCount)
	if err == sql.ErrNoRows {
		return store.Entity{}, false, nil
	}
	if err != nil {
		return store.Entity{}, false, err
	}
	return e, true, nil
}

// DeleteEntityRange purges catalog rows in [lower, upper) ahead of a
// rebuild. A nil upper bound is unbounded.
func (s *sqliteStore) DeleteEntityRange(ctx context.Context, q store.Query, lower string, upper *string) error {
	stmt := `
DELETE FROM entities
WHERE entity_type = ? AND source = ? AND language = ? AND key >= ?`
	args := []interface{}{q.Type, q.Source, q.Language, lower}
	if upper != nil {
		stmt += ` AND key < ?`
		args = append(args, *upper)
	}
	_, err := s.db.ExecContext(ctx, stmt+";", args...)
	return err
}

// DistinctKeyCount counts distinct observation keys within a slice.
func (s *sqliteStore) DistinctKeyCount(ctx context.Context, q store.Query) (int64, error) {
	const stmt = `
SELECT COUNT(DISTINCT key) FROM observations
WHERE entity_type = ? AND source = ? AND language = ?;`

	var n int64
	err := s.db.QueryRowContext(ctx, stmt, q.Type, q.Source, q.Language).Scan(&n)
	return n, err
}

// KeyAtRank returns the rank-th distinct key (1-based) in ascending
// key order, via a row_number window over the distinct key set.
func (s *sqliteStore) KeyAtRank(ctx context.Context, q store.Query, rank int64) (string, error) {
	const stmt = `
SELECT key FROM (
	SELECT key, row_number() OVER (ORDER BY key) AS rn
	FROM (
		SELECT DISTINCT key FROM observations
		WHERE entity_type = ? AND source = ? AND language = ?
	)
) WHERE rn = ?;`

	var key string
	err := s.db.QueryRowContext(ctx, stmt, q.Type, q.Source, q.Language, rank).Scan(&key)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no key at rank %d", rank)
	}
	return key, err
}

// ScanObservations opens a sorted scan over one slice of the
// observation table, restricted to [lower, upper).
func (s *sqliteStore) ScanObservations(ctx context.Context, q store.Query, lower string, upper *string) (store.Cursor, error) {
	stmt := `
SELECT key, name, kind, count FROM observations
WHERE entity_type = ? AND source = ? AND language = ? AND key >= ?`
	args := []interface{}{q.Type, q.Source, q.Language, lower}
	if upper != nil {
		stmt += ` AND key < ?`
		args = append(args, *upper)
	}
	stmt += ` ORDER BY key, id;`

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	return &rowCursor{rows: rows}, nil
}

type rowCursor struct {
	rows *sql.Rows
}

func (c *rowCursor) Next() (store.ObservationRow, bool, error) {
	if !c.rows.Next() {
		return store.ObservationRow{}, false, c.rows.Err()
	}
	var r store.ObservationRow
	var kind int
	if err := c.rows.Scan(&r.Key, &r.Name, &kind, &r.Count); err != nil {
		return store.ObservationRow{}, false, err
	}
	r.Kind = store.Kind(kind)
	return r, true, nil
}

func (c *rowCursor) Close() error {
	return c.rows.Close()
}

// ScanTitleSequences iterates histories grouped by parent, positions
// in order.
func (s *sqliteStore) ScanTitleSequences(ctx context.Context) (store.SequenceCursor, error) {
	const stmt = `
SELECT parent_id, key FROM title_sequences
ORDER BY parent_id, pos;`

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return &sequenceCursor{rows: rows}, nil
}

type sequenceCursor struct {
	rows *sql.Rows

	pendingParent string
	pendingKey    string
	buffered      bool
	done          bool
}

func (c *sequenceCursor) Next() (store.TitleSequence, bool, error) {
	if c.done {
		return store.TitleSequence{}, false, nil
	}

	var seq store.TitleSequence
	if c.buffered {
		seq.ParentID = c.pendingParent
		seq.Keys = append(seq.Keys, c.pendingKey)
		c.buffered = false
	}

	for c.rows.Next() {
		var parent, key string
		if err := c.rows.Scan(&parent, &key); err != nil {
			return store.TitleSequence{}, false, err
		}
		if seq.ParentID == "" {
			seq.ParentID = parent
		}
		if parent != seq.ParentID {
			c.pendingParent = parent
			c.pendingKey = key
			c.buffered = true
			return seq, true, nil
		}
		seq.Keys = append(seq.Keys, key)
	}
	if err := c.rows.Err(); err != nil {
		return store.TitleSequence{}, false, err
	}

	c.done = true
	if seq.ParentID == "" {
		return store.TitleSequence{}, false, nil
	}
	return seq, true, nil
}

func (c *sequenceCursor) Close() error {
	return c.rows.Close()
}

// UpsertCareerSteps writes a batch of counted transitions in one
// transaction; each is a full replace.
func (s *sqliteStore) UpsertCareerSteps(ctx context.Context, steps []store.CareerStep) error {
	if len(steps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO career_steps (t1, t2, t3, count)
VALUES (?, ?, ?, ?)
ON CONFLICT(t1, t2, t3) DO UPDATE SET count=excluded.count;`

	for _, st := range steps {
		if _, err := tx.ExecContext(ctx, stmt, st.From, st.Title, st.Next, st.Count); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TotalParents counts distinct parent documents across all
// observations.
func (s *sqliteStore) TotalParents(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT parent_id) FROM observations;`).Scan(&n)
	return n, err
}

// CategoryParents counts distinct parents carrying the category key.
func (s *sqliteStore) CategoryParents(ctx context.Context, categoryKey string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT parent_id) FROM observations WHERE key = ?;`,
		categoryKey).Scan(&n)
	return n, err
}

// EntityCounts returns, per distinct key in the slice, how many
// parents mention it and how many of those also carry the category
// key.
func (s *sqliteStore) EntityCounts(ctx context.Context, q store.Query, categoryKey string) ([]store.EntityCount, error) {
	const stmt = `
SELECT o.key,
	COUNT(DISTINCT o.parent_id),
	COUNT(DISTINCT CASE WHEN c.parent_id IS NOT NULL THEN o.parent_id END)
FROM observations o
LEFT JOIN observations c
	ON c.parent_id = o.parent_id AND c.key = ?
WHERE o.entity_type = ? AND o.source = ? AND o.language = ?
GROUP BY o.key
ORDER BY o.key;`

	rows, err := s.db.QueryContext(ctx, stmt, categoryKey, q.Type, q.Source, q.Language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.EntityCount
	for rows.Next() {
		var ec store.EntityCount
		if err := rows.Scan(&ec.Key, &ec.Count, &ec.Coincidence); err != nil {
			return nil, err
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}
