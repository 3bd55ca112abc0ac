// Package relevance computes the excess co-occurrence score between an
// entity and a category: how much more often the entity appears inside
// the category than outside it, with a standard error for significance
// filtering.
package relevance

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/tabellarius/pkg/catalog/internalerr"
)

// Score computes the signed association between an entity and a
// category.
//
//	c1 = coincidence, n1 = category
//	c2 = entity - coincidence, n2 = total - category
//	score = c1/n1 - c2/n2
//
// The score lies in [-1, 1]: near +1 the entity is characteristic of
// the category, near 0 unrelated, near -1 mutually exclusive. The
// standard error is the square root of the summed binomial proportion
// variances. When either population is empty the result is
// (0, +Inf): no signal rather than an error. Count inconsistencies
// (entity < coincidence, total < category, more out-of-category
// occurrences than out-of-category parents) are contract violations
// and fail loudly.
func Score(total, category, entity, coincidence int64) (float64, float64, error) {
	if coincidence < 0 || category < 0 || entity < coincidence || total < category ||
		entity-coincidence > total-category {
		return 0, 0, fmt.Errorf(
			"relevance: total=%d category=%d entity=%d coincidence=%d: %w",
			total, category, entity, coincidence, internalerr.ErrCountMismatch)
	}

	c1 := float64(coincidence)
	n1 := float64(category)
	c2 := float64(entity - coincidence)
	n2 := float64(total - category)

	if n1 == 0 || n2 == 0 {
		return 0, math.Inf(1), nil
	}

	f1 := c1 / n1
	f2 := c2 / n2
	score := f1 - f2
	variance := f1*(1-f1)/n1 + f2*(1-f2)/n2
	return score, math.Sqrt(variance), nil
}

// Candidate is one entity considered for a cloud.
type Candidate struct {
	Key         string
	Count       int64
	Coincidence int64
}

// CloudEntry is one significant entity in a cloud, with its score and
// standard error.
type CloudEntry struct {
	Key         string
	Count       int64
	Coincidence int64
	Score       float64
	Error       float64
}

// EntityCloud scores all candidates against one category, keeps those
// whose score exceeds sigma standard errors, sorts descending by
// score, and truncates to limit. limit <= 0 means no truncation.
func EntityCloud(total, category int64, candidates []Candidate, sigma float64, limit int) ([]CloudEntry, error) {
	entries := make([]CloudEntry, 0, len(candidates))
	for _, c := range candidates {
		score, stderr, err := Score(total, category, c.Count, c.Coincidence)
		if err != nil {
			return nil, err
		}
		if math.IsInf(stderr, 1) {
			continue
		}
		if score <= sigma*stderr {
			continue
		}
		entries = append(entries, CloudEntry{
			Key:         c.Key,
			Count:       c.Count,
			Coincidence: c.Coincidence,
			Score:       score,
			Error:       stderr,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Key < entries[j].Key
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
