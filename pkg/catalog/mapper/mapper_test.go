package mapper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/tabellarius/pkg/catalog/internalerr"
)

func load(t *testing.T, csv string) *Mapper {
	t.Helper()
	m := New(nil)
	if err := m.Load(strings.NewReader(csv)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestMapperResolve(t *testing.T) {
	m := load(t, `# regional spellings
skill,en,,theatre,theater
`)

	got := m.Resolve("skill:linkedin:en:theatre", "")
	if got != "skill:linkedin:en:theater" {
		t.Errorf("Expected mapped key, got %q", got)
	}

	// Identity when unmapped.
	if m.Resolve("skill:linkedin:en:python", "") != "skill:linkedin:en:python" {
		t.Error("Unmapped key should resolve to itself")
	}
}

func TestMapperSourcePreserved(t *testing.T) {
	m := load(t, `skill,en,,theatre,theater
`)

	if got := m.Resolve("skill:indeed:en:theatre", ""); got != "skill:indeed:en:theater" {
		t.Errorf("Mapping should apply across sources, got %q", got)
	}
}

func TestMapperSectorScope(t *testing.T) {
	m := load(t, `title,en,finance,analyst,financial analyst
title,en,,analyst,data analyst
`)

	if got := m.Resolve("title:linkedin:en:analyst", "finance"); got != "title:linkedin:en:financial analyst" {
		t.Errorf("Sector mapping should win in scope, got %q", got)
	}
	if got := m.Resolve("title:linkedin:en:analyst", ""); got != "title:linkedin:en:data analyst" {
		t.Errorf("Unscoped mapping should apply outside the sector, got %q", got)
	}
	if got := m.Resolve("title:linkedin:en:analyst", "retail"); got != "title:linkedin:en:data analyst" {
		t.Errorf("Other sectors fall back to the unscoped mapping, got %q", got)
	}
}

func TestMapperTwoCycleRejected(t *testing.T) {
	m := New(nil)
	err := m.Load(strings.NewReader(`skill,en,,a,b
skill,en,,b,a
`))
	if !errors.Is(err, internalerr.ErrCycle) {
		t.Fatalf("Expected cycle error, got %v", err)
	}
}

func TestMapperSelfMappingRejected(t *testing.T) {
	m := New(nil)
	err := m.Load(strings.NewReader(`skill,en,,a,a
`))
	if !errors.Is(err, internalerr.ErrCycle) {
		t.Fatalf("Expected cycle error, got %v", err)
	}
}

func TestMapperDuplicateSourceRejected(t *testing.T) {
	m := New(nil)
	err := m.Load(strings.NewReader(`skill,en,,a,b
skill,en,,a,c
`))
	if !errors.Is(err, internalerr.ErrDuplicate) {
		t.Fatalf("Expected duplicate error, got %v", err)
	}
}

func TestMapperChainCollapse(t *testing.T) {
	m := load(t, `skill,en,,a,b
skill,en,,b,c
`)

	if got := m.Resolve("skill:s:en:a", ""); got != "skill:s:en:c" {
		t.Errorf("Chain should collapse to the final target, got %q", got)
	}
	if got := m.Resolve("skill:s:en:b", ""); got != "skill:s:en:c" {
		t.Errorf("Middle of chain should map to final target, got %q", got)
	}

	inv := m.Inverse("skill:s:en:c", "", false)
	if len(inv) != 2 {
		t.Fatalf("Expected 2 inverse keys, got %v", inv)
	}
	if inv[0] != "skill:s:en:a" || inv[1] != "skill:s:en:b" {
		t.Errorf("Inverse of the chain head should include both sources: %v", inv)
	}
}

func TestMapperInverseSectorSpecific(t *testing.T) {
	m := load(t, `title,en,finance,quant,analyst
title,en,,number cruncher,analyst
`)

	all := m.Inverse("title:s:en:analyst", "finance", false)
	if len(all) != 2 {
		t.Errorf("Expected scoped + unscoped inverses, got %v", all)
	}

	scoped := m.Inverse("title:s:en:analyst", "finance", true)
	if len(scoped) != 1 || scoped[0] != "title:s:en:quant" {
		t.Errorf("Expected only the sector-scoped inverse, got %v", scoped)
	}
}

type stubNames struct {
	names map[string]string
}

func (s *stubNames) EntityName(ctx context.Context, key string) (string, bool, error) {
	name, ok := s.names[key]
	return name, ok, nil
}

func TestMapperName(t *testing.T) {
	ctx := context.Background()
	source := &stubNames{names: map[string]string{
		"skill:linkedin:en:python": "Python",
	}}

	m := New(source)
	if err := m.Load(strings.NewReader(`skill,en,,theatre,Theater
`)); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Declared in the mapping file.
	name, err := m.Name(ctx, "skill:linkedin:en:theater")
	if err != nil || name != "Theater" {
		t.Errorf("Expected declared name, got %q (%v)", name, err)
	}

	// Falls back to the catalog.
	name, err = m.Name(ctx, "skill:linkedin:en:python")
	if err != nil || name != "Python" {
		t.Errorf("Expected catalog name, got %q (%v)", name, err)
	}

	// Neither source knows the key.
	if _, err := m.Name(ctx, "skill:linkedin:en:cobol"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestMapperMalformedRows(t *testing.T) {
	m := New(nil)
	if err := m.Load(strings.NewReader("skill,en,only,four\n")); err == nil {
		t.Error("Wrong column count should fail")
	}

	m = New(nil)
	if err := m.Load(strings.NewReader("skill,en,, ,target\n")); err == nil {
		t.Error("Empty raw name should fail")
	}
}
