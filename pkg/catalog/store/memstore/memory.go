// Package memstore is an in-memory implementation of store.Store for
// tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/tabellarius/pkg/catalog/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu           sync.RWMutex
	entities     map[string]store.Entity
	observations []store.Observation
	sequences    map[string][]string
	careerSteps  map[[3]string]int64
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		entities:    make(map[string]store.Entity),
		sequences:   make(map[string][]string),
		careerSteps: make(map[[3]string]int64),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// InsertObservation appends one raw occurrence.
func (s *Store) InsertObservation(ctx context.Context, o store.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observations = append(s.observations, o)
	return nil
}

// InsertTitleSequence replaces the title history for a parent.
func (s *Store) InsertTitleSequence(ctx context.Context, seq store.TitleSequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(seq.Keys))
	copy(keys, seq.Keys)
	s.sequences[seq.ParentID] = keys
	return nil
}

// UpsertEntities replaces catalog rows wholesale.
func (s *Store) UpsertEntities(ctx context.Context, entities []store.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entities {
		s.entities[e.Key] = e
	}
	return nil
}

// GetEntity returns a catalog row by key.
func (s *Store) GetEntity(ctx context.Context, key string) (store.Entity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[key]
	return e, ok, nil
}

// DeleteEntityRange removes catalog rows in [lower, upper).
func (s *Store) DeleteEntityRange(ctx context.Context, q store.Query, lower string, upper *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entities {
		if e.Type != q.Type || e.Source != q.Source || e.Language != q.Language {
			continue
		}
		if key < lower {
			continue
		}
		if upper != nil && key >= *upper {
			continue
		}
		delete(s.entities, key)
	}
	return nil
}

// DistinctKeyCount counts distinct observation keys in a slice.
func (s *Store) DistinctKeyCount(ctx context.Context, q store.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.distinctKeys(q))), nil
}

// KeyAtRank returns the rank-th distinct key, 1-based.
func (s *Store) KeyAtRank(ctx context.Context, q store.Query, rank int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.distinctKeys(q)
	if rank < 1 || rank > int64(len(keys)) {
		return "", fmt.Errorf("no key at rank %d", rank)
	}
	return keys[rank-1], nil
}

func (s *Store) distinctKeys(q store.Query) []string {
	set := make(map[string]struct{})
	for _, o := range s.observations {
		if o.Type == q.Type && o.Source == q.Source && o.Language == q.Language {
			set[o.Key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ScanObservations returns a sorted cursor over [lower, upper).
func (s *Store) ScanObservations(ctx context.Context, q store.Query, lower string, upper *string) (store.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []store.ObservationRow
	for _, o := range s.observations {
		if o.Type != q.Type || o.Source != q.Source || o.Language != q.Language {
			continue
		}
		if o.Key < lower {
			continue
		}
		if upper != nil && o.Key >= *upper {
			continue
		}
		rows = append(rows, store.ObservationRow{
			Key:   o.Key,
			Name:  o.Name,
			Kind:  o.Kind,
			Count: o.Count,
		})
	}
	// Stable: ties keep insertion order, matching the sqlite backend's
	// ORDER BY key, id.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return &sliceCursor{rows: rows}, nil
}

type sliceCursor struct {
	rows []store.ObservationRow
	pos  int
}

func (c *sliceCursor) Next() (store.ObservationRow, bool, error) {
	if c.pos >= len(c.rows) {
		return store.ObservationRow{}, false, nil
	}
	row := c.rows[c.pos]
	c.pos++
	return row, true, nil
}

func (c *sliceCursor) Close() error { return nil }

// ScanTitleSequences iterates stored histories ordered by parent.
func (s *Store) ScanTitleSequences(ctx context.Context) (store.SequenceCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parents := make([]string, 0, len(s.sequences))
	for p := range s.sequences {
		parents = append(parents, p)
	}
	sort.Strings(parents)

	seqs := make([]store.TitleSequence, 0, len(parents))
	for _, p := range parents {
		keys := make([]string, len(s.sequences[p]))
		copy(keys, s.sequences[p])
		seqs = append(seqs, store.TitleSequence{ParentID: p, Keys: keys})
	}
	return &seqCursor{seqs: seqs}, nil
}

type seqCursor struct {
	seqs []store.TitleSequence
	pos  int
}

func (c *seqCursor) Next() (store.TitleSequence, bool, error) {
	if c.pos >= len(c.seqs) {
		return store.TitleSequence{}, false, nil
	}
	seq := c.seqs[c.pos]
	c.pos++
	return seq, true, nil
}

func (c *seqCursor) Close() error { return nil }

// UpsertCareerSteps replaces counted transitions.
func (s *Store) UpsertCareerSteps(ctx context.Context, steps []store.CareerStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range steps {
		s.careerSteps[[3]string{st.From, st.Title, st.Next}] = st.Count
	}
	return nil
}

// CareerStepCount returns the stored count for a transition; test
// helper, not part of store.Store.
func (s *Store) CareerStepCount(from, title, next string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.careerSteps[[3]string{from, title, next}]
}

// EntityLen returns the number of catalog rows; test helper.
func (s *Store) EntityLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// TotalParents counts distinct parents across all observations.
func (s *Store) TotalParents(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{})
	for _, o := range s.observations {
		set[o.ParentID] = struct{}{}
	}
	return int64(len(set)), nil
}

// CategoryParents counts distinct parents carrying the category key.
func (s *Store) CategoryParents(ctx context.Context, categoryKey string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{})
	for _, o := range s.observations {
		if o.Key == categoryKey {
			set[o.ParentID] = struct{}{}
		}
	}
	return int64(len(set)), nil
}

// EntityCounts computes per-key parent counts and category
// co-occurrence counts for one slice.
func (s *Store) EntityCounts(ctx context.Context, q store.Query, categoryKey string) ([]store.EntityCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categoryParents := make(map[string]struct{})
	for _, o := range s.observations {
		if o.Key == categoryKey {
			categoryParents[o.ParentID] = struct{}{}
		}
	}

	parentsByKey := make(map[string]map[string]struct{})
	for _, o := range s.observations {
		if o.Type != q.Type || o.Source != q.Source || o.Language != q.Language {
			continue
		}
		if parentsByKey[o.Key] == nil {
			parentsByKey[o.Key] = make(map[string]struct{})
		}
		parentsByKey[o.Key][o.ParentID] = struct{}{}
	}

	keys := make([]string, 0, len(parentsByKey))
	for k := range parentsByKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]store.EntityCount, 0, len(keys))
	for _, k := range keys {
		ec := store.EntityCount{Key: k, Count: int64(len(parentsByKey[k]))}
		for p := range parentsByKey[k] {
			if _, ok := categoryParents[p]; ok {
				ec.Coincidence++
			}
		}
		out = append(out, ec)
	}
	return out, nil
}
