// Package partition splits the sorted key domain of an observation
// slice into contiguous, disjoint ranges for parallel processing.
package partition

import (
	"context"
	"math"
)

// KeySource exposes the two queries the partitioner needs over a
// sorted key column.
type KeySource interface {
	// DistinctKeyCount returns the number of distinct keys.
	DistinctKeyCount(ctx context.Context) (int64, error)
	// KeyAtRank returns the rank-th distinct key, 1-based, ascending.
	KeyAtRank(ctx context.Context, rank int64) (string, error)
}

// Interval is a half-open key range [Lower, Upper). A nil Upper is
// unbounded; the final interval of every partitioning is unbounded so
// the union covers the whole domain.
type Interval struct {
	Lower string
	Upper *string
}

// Ranges computes n intervals each holding roughly the same number of
// distinct keys. An empty key domain yields no intervals; n <= 1
// yields a single unbounded interval. Boundaries fall on distinct-key
// edges, so no key spans two intervals. Under heavily skewed
// distributions two boundary ranks can resolve to the same key,
// producing a zero-width interval; that interval simply scans nothing.
func Ranges(ctx context.Context, src KeySource, n int) ([]Interval, error) {
	total, err := src.DistinctKeyCount(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}

	first, err := src.KeyAtRank(ctx, 1)
	if err != nil {
		return nil, err
	}
	if n <= 1 || total == 1 {
		return []Interval{{Lower: first}}, nil
	}
	if int64(n) > total {
		n = int(total)
	}

	// n+1 evenly spaced ranks from 1 to total, linearly interpolated.
	bounds := make([]string, 0, n+1)
	bounds = append(bounds, first)
	for i := 1; i < n; i++ {
		rank := int64(math.Round(1 + float64(i)*float64(total-1)/float64(n)))
		key, err := src.KeyAtRank(ctx, rank)
		if err != nil {
			return nil, err
		}
		bounds = append(bounds, key)
	}

	intervals := make([]Interval, 0, n)
	for i := 0; i < len(bounds)-1; i++ {
		upper := bounds[i+1]
		intervals = append(intervals, Interval{Lower: bounds[i], Upper: &upper})
	}
	intervals = append(intervals, Interval{Lower: bounds[len(bounds)-1]})
	return intervals, nil
}

// RangesBySize computes intervals holding approximately size distinct
// keys each.
func RangesBySize(ctx context.Context, src KeySource, size int64) ([]Interval, error) {
	if size <= 0 {
		return Ranges(ctx, src, 1)
	}
	total, err := src.DistinctKeyCount(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}
	n := int((total + size - 1) / size)
	return Ranges(ctx, src, n)
}
