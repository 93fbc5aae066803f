package memory

import (
	"math"
	"sort"
)

// scoredCandidate is the merge-sort unit ranking.go operates on, generalizing
// hybrid.go's two-score (vector, text) merge into an arbitrary per-model
// weighted sum: score = sum_m weight_m * cosine_m(query, candidate).
type scoredCandidate struct {
	item     ContextItem
	perModel map[string]float64
}

// cosine computes cosine similarity between two equal-length vectors,
// returning 0 for a zero-length or zero-norm vector rather than NaN.
func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// weightedScore applies the spec's ranking rule, sum_m w_m * s_m, against
// every embedding model the candidate and the query have in common.
// modelWeights with no entry for a given model default to 1.0.
func weightedScore(queryVecs map[string][]float64, candidate map[string][]float64, modelWeights map[string]float64) (float64, map[string]float64) {
	per := make(map[string]float64, len(candidate))
	var total float64
	for model, vec := range candidate {
		qvec, ok := queryVecs[model]
		if !ok {
			continue
		}
		s := cosine(qvec, vec)
		per[model] = s
		w, ok := modelWeights[model]
		if !ok {
			w = 1.0
		}
		total += w * s
	}
	return total, per
}

// rankAndCutoff sorts candidates by descending score, breaking ties by the
// newest CreatedAt then by id for determinism, applies the floor cutoff, and
// truncates to limit (<=0 means unlimited).
func rankAndCutoff(candidates []scoredCandidate, floor float64, limit int) []ContextItem {
	filtered := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.item.Score >= floor {
			filtered = append(filtered, c)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.item.Score != b.item.Score {
			return a.item.Score > b.item.Score
		}
		if !a.item.CreatedAt.Equal(b.item.CreatedAt) {
			return a.item.CreatedAt.After(b.item.CreatedAt)
		}
		return a.item.ID < b.item.ID
	})
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	out := make([]ContextItem, len(filtered))
	for i, c := range filtered {
		out[i] = c.item
	}
	return out
}
