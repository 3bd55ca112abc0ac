package partition

import (
	"context"
	"fmt"
	"testing"
)

// fakeKeySource serves a fixed sorted list of distinct keys.
type fakeKeySource struct {
	keys []string
}

func (s *fakeKeySource) DistinctKeyCount(ctx context.Context) (int64, error) {
	return int64(len(s.keys)), nil
}

func (s *fakeKeySource) KeyAtRank(ctx context.Context, rank int64) (string, error) {
	if rank < 1 || rank > int64(len(s.keys)) {
		return "", fmt.Errorf("no key at rank %d", rank)
	}
	return s.keys[rank-1], nil
}

func sequentialKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%04d", i)
	}
	return keys
}

func TestRangesBoundaryRanks(t *testing.T) {
	src := &fakeKeySource{keys: sequentialKeys(101)}

	intervals, err := Ranges(context.Background(), src, 4)
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	if len(intervals) != 4 {
		t.Fatalf("Expected 4 intervals, got %d", len(intervals))
	}

	// Lower bounds at ranks 1, 26, 51, 76 (0-based indexes 0/25/50/75).
	wantLowers := []string{src.keys[0], src.keys[25], src.keys[50], src.keys[75]}
	for i, want := range wantLowers {
		if intervals[i].Lower != want {
			t.Errorf("Interval %d: expected lower %q, got %q", i, want, intervals[i].Lower)
		}
	}
	if intervals[len(intervals)-1].Upper != nil {
		t.Error("Final interval must be unbounded above")
	}
}

func TestRangesCoverageAndDisjointness(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 50, 200} {
		src := &fakeKeySource{keys: sequentialKeys(50)}
		intervals, err := Ranges(context.Background(), src, n)
		if err != nil {
			t.Fatalf("Ranges(%d): %v", n, err)
		}

		counts := make(map[string]int)
		for _, key := range src.keys {
			for _, iv := range intervals {
				if key >= iv.Lower && (iv.Upper == nil || key < *iv.Upper) {
					counts[key]++
				}
			}
		}
		for _, key := range src.keys {
			if counts[key] != 1 {
				t.Fatalf("n=%d: key %q covered %d times", n, key, counts[key])
			}
		}

		// Intervals must ascend and abut.
		for i := 1; i < len(intervals); i++ {
			prev := intervals[i-1]
			if prev.Upper == nil {
				t.Fatalf("n=%d: non-final interval unbounded", n)
			}
			if *prev.Upper != intervals[i].Lower {
				t.Errorf("n=%d: gap between intervals %d and %d", n, i-1, i)
			}
		}
	}
}

func TestRangesEmptyDomain(t *testing.T) {
	intervals, err := Ranges(context.Background(), &fakeKeySource{}, 4)
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	if len(intervals) != 0 {
		t.Errorf("Empty domain should yield no intervals, got %d", len(intervals))
	}
}

func TestRangesSingleBatch(t *testing.T) {
	src := &fakeKeySource{keys: sequentialKeys(10)}
	intervals, err := Ranges(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("Expected 1 interval, got %d", len(intervals))
	}
	if intervals[0].Lower != src.keys[0] || intervals[0].Upper != nil {
		t.Errorf("Expected a single unbounded interval, got %+v", intervals[0])
	}
}

func TestRangesMoreBatchesThanKeys(t *testing.T) {
	src := &fakeKeySource{keys: sequentialKeys(3)}
	intervals, err := Ranges(context.Background(), src, 10)
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	if len(intervals) != 3 {
		t.Errorf("Batches clamp to the key count, got %d intervals", len(intervals))
	}
}

// A heavily skewed distribution can put the same key at two boundary
// ranks; the resulting zero-width interval scans nothing but coverage
// still holds. Known edge case, deliberately not guarded.
func TestRangesSkewedDuplicateBoundary(t *testing.T) {
	src := &fakeKeySource{keys: []string{"a", "b", "c"}}
	intervals, err := Ranges(context.Background(), src, 3)
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}

	counts := make(map[string]int)
	for _, key := range src.keys {
		for _, iv := range intervals {
			if key >= iv.Lower && (iv.Upper == nil || key < *iv.Upper) {
				counts[key]++
			}
		}
	}
	for _, key := range src.keys {
		if counts[key] != 1 {
			t.Errorf("Key %q covered %d times", key, counts[key])
		}
	}
}

func TestRangesBySize(t *testing.T) {
	src := &fakeKeySource{keys: sequentialKeys(100)}
	intervals, err := RangesBySize(context.Background(), src, 25)
	if err != nil {
		t.Fatalf("RangesBySize: %v", err)
	}
	if len(intervals) != 4 {
		t.Errorf("Expected 4 intervals of ~25 keys, got %d", len(intervals))
	}
}
