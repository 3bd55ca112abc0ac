// Package career turns per-person title histories into counted
// title->title->title transition records.
package career

import (
	"context"
	"sort"

	"github.com/cognicore/tabellarius/pkg/catalog/store"
)

// Step mirrors store.CareerStep: one observed transition window with
// its occurrence count. Empty strings mark the edges of a history, so
// the first title of a career appears as ("", "", first) then
// ("", first, second).
type Step struct {
	From  string
	Title string
	Next  string
	Count int64
}

// Windows expands one title history into its sliding three-title
// windows, boundaries padded with empty strings. A single-title
// history yields two windows; an empty history yields none.
func Windows(titles []string) [][3]string {
	if len(titles) == 0 {
		return nil
	}
	padded := make([]string, 0, len(titles)+3)
	padded = append(padded, "", "")
	padded = append(padded, titles...)
	padded = append(padded, "")

	windows := make([][3]string, 0, len(padded)-2)
	for i := 0; i+2 < len(padded); i++ {
		windows = append(windows, [3]string{padded[i], padded[i+1], padded[i+2]})
	}
	return windows
}

// Count groups the windows of many histories into counted steps,
// ordered by the triple.
func Count(histories [][]string) []Step {
	counts := make(map[[3]string]int64)
	for _, titles := range histories {
		for _, w := range Windows(titles) {
			counts[w]++
		}
	}

	steps := make([]Step, 0, len(counts))
	for w, c := range counts {
		steps = append(steps, Step{From: w[0], Title: w[1], Next: w[2], Count: c})
	}
	sort.Slice(steps, func(i, j int) bool {
		a, b := steps[i], steps[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.Next < b.Next
	})
	return steps
}

// Build scans every stored title sequence, counts transition windows
// in one pass, and upserts the resulting steps in batches. Returns
// the number of distinct steps written.
func Build(ctx context.Context, st store.Store, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	cursor, err := st.ScanTitleSequences(ctx)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	counts := make(map[[3]string]int64)
	for {
		seq, ok, err := cursor.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		for _, w := range Windows(seq.Keys) {
			counts[w]++
		}
	}

	batch := make([]store.CareerStep, 0, batchSize)
	var written int64
	for w, c := range counts {
		batch = append(batch, store.CareerStep{From: w[0], Title: w[1], Next: w[2], Count: c})
		if len(batch) >= batchSize {
			if err := st.UpsertCareerSteps(ctx, batch); err != nil {
				return written, err
			}
			written += int64(len(batch))
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := st.UpsertCareerSteps(ctx, batch); err != nil {
			return written, err
		}
		written += int64(len(batch))
	}
	return written, nil
}
