package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cognicore/tabellarius/pkg/catalog/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func insertObservation(t *testing.T, st store.Store, key, name, parent string, kind store.Kind) {
	t.Helper()
	err := st.InsertObservation(context.Background(), store.Observation{
		Key: key, Type: "skill", Source: "linkedin", Language: "en",
		Name: name, Kind: kind, Count: 1, ParentID: parent,
	})
	if err != nil {
		t.Fatalf("InsertObservation(%s): %v", key, err)
	}
}

func TestSQLiteIntegrationBasic(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	q := store.Query{Type: "skill", Source: "linkedin", Language: "en"}

	insertObservation(t, st, "skill:linkedin:en:go", "Go", "p1", store.KindProfile)
	insertObservation(t, st, "skill:linkedin:en:go", "golang", "p2", store.KindProfile)
	insertObservation(t, st, "skill:linkedin:en:python", "Python", "p1", store.KindSubdocument)

	n, err := st.DistinctKeyCount(ctx, q)
	if err != nil {
		t.Fatalf("DistinctKeyCount: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 distinct keys, got %d", n)
	}

	key, err := st.KeyAtRank(ctx, q, 1)
	if err != nil {
		t.Fatalf("KeyAtRank: %v", err)
	}
	if key != "skill:linkedin:en:go" {
		t.Errorf("Expected go at rank 1, got %q", key)
	}
	if _, err := st.KeyAtRank(ctx, q, 3); err == nil {
		t.Error("Out-of-range rank should fail")
	}
}

func TestSQLiteScanOrderAndBounds(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	q := store.Query{Type: "skill", Source: "linkedin", Language: "en"}

	// Out of order on purpose.
	insertObservation(t, st, "skill:linkedin:en:python", "Python", "p1", store.KindProfile)
	insertObservation(t, st, "skill:linkedin:en:go", "Go", "p1", store.KindProfile)
	insertObservation(t, st, "skill:linkedin:en:go", "golang", "p2", store.KindProfile)
	insertObservation(t, st, "skill:linkedin:en:rust", "Rust", "p3", store.KindProfile)

	upper := "skill:linkedin:en:rust"
	cursor, err := st.ScanObservations(ctx, q, "skill:linkedin:en:go", &upper)
	if err != nil {
		t.Fatalf("ScanObservations: %v", err)
	}
	defer cursor.Close()

	var got []string
	for {
		row, ok, err := cursor.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, row.Key+"/"+row.Name)
	}

	want := []string{
		"skill:linkedin:en:go/Go",
		"skill:linkedin:en:go/golang",
		"skill:linkedin:en:python/Python",
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d rows, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Row %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestSQLiteUpsertEntitiesReplaces(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	first := store.Entity{
		Key: "skill:linkedin:en:go", Type: "skill", Source: "linkedin",
		Language: "en", Name: "golang", ProfileCount: 3, SubdocCount: 1,
	}
	if err := st.UpsertEntities(ctx, []store.Entity{first}); err != nil {
		t.Fatalf("UpsertEntities: %v", err)
	}

	second := first
	second.Name = "Go"
	second.ProfileCount = 7
	if err := st.UpsertEntities(ctx, []store.Entity{second}); err != nil {
		t.Fatalf("UpsertEntities: %v", err)
	}

	e, ok, err := st.GetEntity(ctx, first.Key)
	if err != nil || !ok {
		t.Fatalf("GetEntity: %v ok=%v", err, ok)
	}
	if e.Name != "Go" || e.ProfileCount != 7 || e.SubdocCount != 1 {
		t.Errorf("Expected full replace, got %+v", e)
	}

	if _, ok, err := st.GetEntity(ctx, "skill:linkedin:en:missing"); err != nil || ok {
		t.Errorf("Missing key: expected ok=false, got ok=%v err=%v", ok, err)
	}
}

func TestSQLiteDeleteEntityRange(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	q := store.Query{Type: "skill", Source: "linkedin", Language: "en"}

	entities := []store.Entity{
		{Key: "skill:linkedin:en:a", Type: "skill", Source: "linkedin", Language: "en", Name: "a"},
		{Key: "skill:linkedin:en:m", Type: "skill", Source: "linkedin", Language: "en", Name: "m"},
		{Key: "skill:linkedin:en:z", Type: "skill", Source: "linkedin", Language: "en", Name: "z"},
		{Key: "title:linkedin:en:m", Type: "title", Source: "linkedin", Language: "en", Name: "m"},
	}
	if err := st.UpsertEntities(ctx, entities); err != nil {
		t.Fatalf("UpsertEntities: %v", err)
	}

	upper := "skill:linkedin:en:z"
	if err := st.DeleteEntityRange(ctx, q, "skill:linkedin:en:m", &upper); err != nil {
		t.Fatalf("DeleteEntityRange: %v", err)
	}

	for key, want := range map[string]bool{
		"skill:linkedin:en:a": true,
		"skill:linkedin:en:m": false,
		"skill:linkedin:en:z": true,
		"title:linkedin:en:m": true,
	} {
		_, ok, err := st.GetEntity(ctx, key)
		if err != nil {
			t.Fatalf("GetEntity(%s): %v", key, err)
		}
		if ok != want {
			t.Errorf("Key %s: expected present=%v, got %v", key, want, ok)
		}
	}
}

func TestSQLiteTitleSequences(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	seqs := []store.TitleSequence{
		{ParentID: "p1", Keys: []string{"title:s:en:dev", "title:s:en:lead"}},
		{ParentID: "p2", Keys: []string{"title:s:en:dev"}},
	}
	for _, seq := range seqs {
		if err := st.InsertTitleSequence(ctx, seq); err != nil {
			t.Fatalf("InsertTitleSequence: %v", err)
		}
	}

	cursor, err := st.ScanTitleSequences(ctx)
	if err != nil {
		t.Fatalf("ScanTitleSequences: %v", err)
	}
	defer cursor.Close()

	var got []store.TitleSequence
	for {
		seq, ok, err := cursor.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, seq)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 sequences, got %d", len(got))
	}
	if got[0].ParentID != "p1" || len(got[0].Keys) != 2 || got[0].Keys[1] != "title:s:en:lead" {
		t.Errorf("Unexpected first sequence: %+v", got[0])
	}
	if got[1].ParentID != "p2" || len(got[1].Keys) != 1 {
		t.Errorf("Unexpected second sequence: %+v", got[1])
	}
}

func TestSQLiteTitleSequenceReinsertShorter(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	long := store.TitleSequence{
		ParentID: "p1",
		Keys:     []string{"title:s:en:dev", "title:s:en:lead", "title:s:en:cto"},
	}
	if err := st.InsertTitleSequence(ctx, long); err != nil {
		t.Fatalf("InsertTitleSequence: %v", err)
	}

	short := store.TitleSequence{
		ParentID: "p1",
		Keys:     []string{"title:s:en:dev"},
	}
	if err := st.InsertTitleSequence(ctx, short); err != nil {
		t.Fatalf("InsertTitleSequence: %v", err)
	}

	cursor, err := st.ScanTitleSequences(ctx)
	if err != nil {
		t.Fatalf("ScanTitleSequences: %v", err)
	}
	defer cursor.Close()

	seq, ok, err := cursor.Next()
	if err != nil || !ok {
		t.Fatalf("Next: %v ok=%v", err, ok)
	}
	if len(seq.Keys) != 1 || seq.Keys[0] != "title:s:en:dev" {
		t.Errorf("Re-insert must replace the whole history, got %+v", seq.Keys)
	}
	if _, ok, err := cursor.Next(); err != nil || ok {
		t.Errorf("Expected a single sequence, got more (err=%v)", err)
	}
}

func TestSQLiteEntityCounts(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	q := store.Query{Type: "skill", Source: "linkedin", Language: "en"}

	category := "sector:linkedin:en:it"
	insert := func(key, typ, parent string) {
		err := st.InsertObservation(ctx, store.Observation{
			Key: key, Type: typ, Source: "linkedin", Language: "en",
			Name: key, Kind: store.KindProfile, Count: 1, ParentID: parent,
		})
		if err != nil {
			t.Fatalf("InsertObservation: %v", err)
		}
	}

	insert(category, "sector", "p1")
	insert(category, "sector", "p2")
	insert("skill:linkedin:en:go", "skill", "p1")
	insert("skill:linkedin:en:go", "skill", "p2")
	insert("skill:linkedin:en:go", "skill", "p3")
	insert("skill:linkedin:en:java", "skill", "p3")

	total, err := st.TotalParents(ctx)
	if err != nil {
		t.Fatalf("TotalParents: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected 3 parents, got %d", total)
	}

	inCategory, err := st.CategoryParents(ctx, category)
	if err != nil {
		t.Fatalf("CategoryParents: %v", err)
	}
	if inCategory != 2 {
		t.Errorf("Expected 2 category parents, got %d", inCategory)
	}

	counts, err := st.EntityCounts(ctx, q, category)
	if err != nil {
		t.Fatalf("EntityCounts: %v", err)
	}
	byKey := make(map[string]store.EntityCount)
	for _, c := range counts {
		byKey[c.Key] = c
	}
	if c := byKey["skill:linkedin:en:go"]; c.Count != 3 || c.Coincidence != 2 {
		t.Errorf("go: expected count 3 coincidence 2, got %+v", c)
	}
	if c := byKey["skill:linkedin:en:java"]; c.Count != 1 || c.Coincidence != 0 {
		t.Errorf("java: expected count 1 coincidence 0, got %+v", c)
	}
}

func TestSQLiteCareerSteps(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	steps := []store.CareerStep{
		{From: "", Title: "a", Next: "b", Count: 2},
	}
	if err := st.UpsertCareerSteps(ctx, steps); err != nil {
		t.Fatalf("UpsertCareerSteps: %v", err)
	}
	steps[0].Count = 5
	if err := st.UpsertCareerSteps(ctx, steps); err != nil {
		t.Fatalf("UpsertCareerSteps: %v", err)
	}

	var count int64
	err := st.(*sqliteStore).db.QueryRowContext(ctx,
		`SELECT count FROM career_steps WHERE t1 = '' AND t2 = 'a' AND t3 = 'b';`).Scan(&count)
	if err != nil {
		t.Fatalf("query career_steps: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected replaced count 5, got %d", count)
	}
}
