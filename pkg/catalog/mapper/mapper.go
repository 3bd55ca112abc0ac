// Package mapper loads the manual override table that collapses
// near-duplicate canonical entities (regional spellings, rebrands)
// into one, optionally scoped by sector.
//
// The file is 5-column CSV: entity_type, language, sector, raw_name,
// canonical_name. Lines starting with '#' are comments. An empty
// sector field makes the mapping sector-agnostic. Chains collapse at
// load time (A→B then B→C stores A→C and B→C); cycles and duplicate
// sources are rejected eagerly, because continuing with a corrupt
// mapping table poisons every downstream report.
package mapper

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cognicore/tabellarius/pkg/catalog/internalerr"
)

// NameSource resolves a key to its catalog display name; the fallback
// when the mapping file declares no name.
type NameSource interface {
	EntityName(ctx context.Context, key string) (string, bool, error)
}

// Mapper holds the loaded forward and inverse mappings. Read-only
// after Load.
type Mapper struct {
	// forward and inverse per scope; scope "" is sector-agnostic.
	forward map[string]map[string]string
	inverse map[string]map[string][]string
	names   map[string]string
	source  NameSource
}

// New creates an empty Mapper. The NameSource may be nil; Name then
// only answers for keys declared in the mapping file.
func New(source NameSource) *Mapper {
	return &Mapper{
		forward: make(map[string]map[string]string),
		inverse: make(map[string]map[string][]string),
		names:   make(map[string]string),
		source:  source,
	}
}

// LoadFile reads a mapping CSV from disk.
func (m *Mapper) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := m.Load(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Load parses mapping rows from r and validates them.
func (m *Mapper) Load(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 5
	cr.TrimLeadingSpace = true

	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("mapping row %d: %w", line+1, err)
		}
		line++

		entityType := strings.TrimSpace(record[0])
		language := strings.TrimSpace(record[1])
		sector := strings.TrimSpace(record[2])
		rawName := strings.TrimSpace(record[3])
		canonicalName := strings.TrimSpace(record[4])
		if entityType == "" || language == "" || rawName == "" || canonicalName == "" {
			return fmt.Errorf("mapping row %d: empty field: %w", line, internalerr.ErrInvalidInput)
		}

		// Lookup keys hold normalized text; the canonical column keeps
		// its case as the preferred display name.
		rawKey := entityType + ":" + language + ":" + strings.ToLower(normalizeSpace(rawName))
		canonKey := entityType + ":" + language + ":" + strings.ToLower(normalizeSpace(canonicalName))
		if err := m.insert(sector, rawKey, canonKey); err != nil {
			return fmt.Errorf("mapping row %d (%s -> %s): %w", line, rawName, canonicalName, err)
		}
		m.names[canonKey] = canonicalName
	}
	return nil
}

// insert adds one mapping within a scope, collapsing chains and
// rejecting duplicates and cycles.
func (m *Mapper) insert(scope, raw, canonical string) error {
	fwd := m.forward[scope]
	if fwd == nil {
		fwd = make(map[string]string)
		m.forward[scope] = fwd
	}

	if _, ok := fwd[raw]; ok {
		return internalerr.ErrDuplicate
	}
	if raw == canonical {
		return internalerr.ErrCycle
	}

	// Follow the canonical side to its final target; meeting the raw
	// key on the way means this row closes a cycle.
	target := canonical
	for {
		next, ok := fwd[target]
		if !ok {
			break
		}
		if next == raw {
			return internalerr.ErrCycle
		}
		target = next
	}
	if target == raw {
		return internalerr.ErrCycle
	}

	fwd[raw] = target

	// Redirect anything that previously pointed at the raw key; it is
	// no longer terminal.
	for src, dst := range fwd {
		if dst == raw {
			fwd[src] = target
		}
	}

	m.rebuildInverse(scope)
	return nil
}

func (m *Mapper) rebuildInverse(scope string) {
	inv := make(map[string][]string)
	for src, dst := range m.forward[scope] {
		inv[dst] = append(inv[dst], src)
	}
	for _, sources := range inv {
		sort.Strings(sources)
	}
	m.inverse[scope] = inv
}

// Resolve maps a key to its canonical form. Sector-scoped mappings
// take precedence; identity when nothing applies. The mapping file
// carries no source column, so a full catalog key keeps its source
// component across the mapping.
func (m *Mapper) Resolve(key, sector string) string {
	scoped, source := splitSource(key)
	lookup := func(scope string) (string, bool) {
		target, ok := m.forward[scope][scoped]
		return target, ok
	}
	if sector != "" {
		if target, ok := lookup(sector); ok {
			return attachSource(target, source)
		}
	}
	if target, ok := lookup(""); ok {
		return attachSource(target, source)
	}
	return key
}

// Inverse returns every key that maps onto key, sorted. With
// sectorSpecific set, only the sector's own mappings are consulted;
// otherwise the sector-agnostic set is included too.
func (m *Mapper) Inverse(key, sector string, sectorSpecific bool) []string {
	scoped, source := splitSource(key)
	seen := make(map[string]struct{})
	var out []string
	add := func(sources []string) {
		for _, s := range sources {
			full := attachSource(s, source)
			if _, ok := seen[full]; ok {
				continue
			}
			seen[full] = struct{}{}
			out = append(out, full)
		}
	}
	if sector != "" {
		add(m.inverse[sector][scoped])
	}
	if !sectorSpecific {
		add(m.inverse[""][scoped])
	}
	sort.Strings(out)
	return out
}

// splitSource turns a 4-part catalog key into the mapper's 3-part
// type:language:text form plus the detached source. A key already in
// 3-part form passes through with an empty source.
func splitSource(key string) (scoped, source string) {
	parts := strings.SplitN(key, ":", 4)
	if len(parts) != 4 {
		return key, ""
	}
	return parts[0] + ":" + parts[2] + ":" + parts[3], parts[1]
}

func attachSource(scoped, source string) string {
	if source == "" {
		return scoped
	}
	parts := strings.SplitN(scoped, ":", 3)
	if len(parts) != 3 {
		return scoped
	}
	return parts[0] + ":" + source + ":" + parts[1] + ":" + parts[2]
}

// Name returns the display name for a key: the CSV-declared name when
// the key appears in the mapping file, otherwise the catalog entity
// name.
func (m *Mapper) Name(ctx context.Context, key string) (string, error) {
	scoped, _ := splitSource(key)
	if name, ok := m.names[scoped]; ok {
		return name, nil
	}
	if m.source != nil {
		name, ok, err := m.source.EntityName(ctx, key)
		if err != nil {
			return "", err
		}
		if ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("no name for %q: %w", key, internalerr.ErrNotFound)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
