// Package aggregate collapses a sorted stream of raw entity
// observations into one best-representative record per distinct key.
//
// The input must already be ordered ascending by key; unsorted input
// silently fragments groups. That is a caller contract, not a checked
// invariant; the scan comes from an ORDER BY cursor.
package aggregate

// Kind discriminates the two sub-streams of the two-stream variant.
type Kind int

const (
	// KindProfile marks a top-level mention.
	KindProfile Kind = iota
	// KindSubdocument marks a mention inside a nested record.
	KindSubdocument
)

// Row is one raw observation from a sorted scan.
type Row struct {
	Key   string
	Name  string
	Kind  Kind
	Count int64
}

// Scan yields rows in ascending key order. Next returns false when
// exhausted.
type Scan interface {
	Next() (Row, bool, error)
}

// Record is one aggregated entity: the most frequent raw spelling and
// the summed count of all observations sharing the key.
type Record struct {
	Key   string
	Name  string
	Count int64
}

// Iterator streams aggregated records lazily.
type Iterator struct {
	scan Scan
	done bool

	current  string
	started  bool
	bestName string
	bestSeen int64
	total    int64
}

// Aggregate wraps a sorted scan in a single-stream aggregator. The
// display name chosen for each key is the raw spelling with the
// strictly highest single-row count; ties keep the first one seen.
func Aggregate(scan Scan) *Iterator {
	return &Iterator{scan: scan}
}

// Next returns the next aggregated record in ascending key order.
func (it *Iterator) Next() (Record, bool, error) {
	if it.done {
		return Record{}, false, nil
	}
	for {
		row, ok, err := it.scan.Next()
		if err != nil {
			return Record{}, false, err
		}
		if !ok {
			it.done = true
			if it.started && it.bestName != "" {
				return Record{Key: it.current, Name: it.bestName, Count: it.total}, true, nil
			}
			return Record{}, false, nil
		}

		if it.started && row.Key != it.current {
			rec := Record{Key: it.current, Name: it.bestName, Count: it.total}
			flush := it.bestName != ""
			it.reset(row)
			if flush {
				return rec, true, nil
			}
			continue
		}
		if !it.started {
			it.reset(row)
			continue
		}
		it.accumulate(row)
	}
}

func (it *Iterator) reset(row Row) {
	it.started = true
	it.current = row.Key
	it.bestName = row.Name
	it.bestSeen = row.Count
	it.total = row.Count
}

func (it *Iterator) accumulate(row Row) {
	if row.Count > it.bestSeen {
		it.bestName = row.Name
		it.bestSeen = row.Count
	}
	it.total += row.Count
}

// TwoStreamRecord carries independent counts for profile-level and
// sub-document-level observations of one key.
type TwoStreamRecord struct {
	Key          string
	Name         string
	ProfileCount int64
	SubdocCount  int64
}

// TwoStreamIterator streams two-stream aggregated records lazily.
type TwoStreamIterator struct {
	scan Scan
	done bool

	current string
	started bool
	profile accumulator
	subdoc  accumulator
}

type accumulator struct {
	name  string
	seen  int64
	total int64
}

func (a *accumulator) add(row Row) {
	if a.name == "" || row.Count > a.seen {
		a.name = row.Name
		a.seen = row.Count
	}
	a.total += row.Count
}

// AggregateTwoStream wraps a sorted scan whose rows carry a Kind
// discriminator. A best name is tracked per kind; the sub-document
// name wins whenever any sub-document observation exists for the key,
// regardless of counts. Both totals are reported independently.
func AggregateTwoStream(scan Scan) *TwoStreamIterator {
	return &TwoStreamIterator{scan: scan}
}

// Next returns the next aggregated record in ascending key order.
func (it *TwoStreamIterator) Next() (TwoStreamRecord, bool, error) {
	if it.done {
		return TwoStreamRecord{}, false, nil
	}
	for {
		row, ok, err := it.scan.Next()
		if err != nil {
			return TwoStreamRecord{}, false, err
		}
		if !ok {
			it.done = true
			if rec, valid := it.flush(); valid {
				return rec, true, nil
			}
			return TwoStreamRecord{}, false, nil
		}

		if it.started && row.Key != it.current {
			rec, valid := it.flush()
			it.reset(row)
			if valid {
				return rec, true, nil
			}
			continue
		}
		if !it.started {
			it.reset(row)
			continue
		}
		it.add(row)
	}
}

func (it *TwoStreamIterator) reset(row Row) {
	it.started = true
	it.current = row.Key
	it.profile = accumulator{}
	it.subdoc = accumulator{}
	it.add(row)
}

func (it *TwoStreamIterator) add(row Row) {
	if row.Kind == KindSubdocument {
		it.subdoc.add(row)
	} else {
		it.profile.add(row)
	}
}

func (it *TwoStreamIterator) flush() (TwoStreamRecord, bool) {
	if !it.started {
		return TwoStreamRecord{}, false
	}
	name := it.profile.name
	if it.subdoc.name != "" {
		name = it.subdoc.name
	}
	if name == "" {
		return TwoStreamRecord{}, false
	}
	return TwoStreamRecord{
		Key:          it.current,
		Name:         name,
		ProfileCount: it.profile.total,
		SubdocCount:  it.subdoc.total,
	}, true
}

// SliceScan adapts a slice of rows to the Scan interface; test and
// small-batch helper.
type SliceScan struct {
	rows []Row
	pos  int
}

// NewSliceScan wraps rows, which must already be sorted by key.
func NewSliceScan(rows []Row) *SliceScan {
	return &SliceScan{rows: rows}
}

// Next implements Scan.
func (s *SliceScan) Next() (Row, bool, error) {
	if s.pos >= len(s.rows) {
		return Row{}, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}
