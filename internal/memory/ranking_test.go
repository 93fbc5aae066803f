package memory

import (
	"testing"
	"time"
)

func timeAt(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestCosineIdentical(t *testing.T) {
	a := []float64{1, 0, 0}
	if got := cosine(a, a); got < 0.999 {
		t.Fatalf("expected ~1.0 for identical vectors, got %v", got)
	}
}

func TestCosineOrthogonal(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	if got := cosine(a, b); got != 0 {
		t.Fatalf("expected 0 for orthogonal vectors, got %v", got)
	}
}

func TestCosineMismatchedLength(t *testing.T) {
	if got := cosine([]float64{1, 2}, []float64{1}); got != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %v", got)
	}
}

func TestWeightedScoreSumsAcrossModels(t *testing.T) {
	query := map[string][]float64{
		"a": {1, 0},
		"b": {0, 1},
	}
	candidate := map[string][]float64{
		"a": {1, 0},
		"b": {0, 1},
	}
	score, per := weightedScore(query, candidate, map[string]float64{"a": 2.0, "b": 1.0})
	if score != 3.0 {
		t.Fatalf("expected weighted sum 3.0, got %v", score)
	}
	if per["a"] != 1.0 || per["b"] != 1.0 {
		t.Fatalf("expected per-model scores of 1.0 each, got %+v", per)
	}
}

func TestWeightedScoreSkipsModelsMissingFromQuery(t *testing.T) {
	query := map[string][]float64{"a": {1, 0}}
	candidate := map[string][]float64{"a": {1, 0}, "b": {0, 1}}
	score, per := weightedScore(query, candidate, nil)
	if score != 1.0 {
		t.Fatalf("expected score 1.0 counting only the shared model, got %v", score)
	}
	if _, ok := per["b"]; ok {
		t.Fatalf("did not expect a per-model score for a model absent from the query")
	}
}

func TestRankAndCutoffAppliesFloorAndLimit(t *testing.T) {
	now := timeAt(2026, 1, 1)
	candidates := []scoredCandidate{
		{item: ContextItem{ID: "a", Score: 0.9, CreatedAt: now}},
		{item: ContextItem{ID: "b", Score: 0.1, CreatedAt: now}},
		{item: ContextItem{ID: "c", Score: 0.5, CreatedAt: now}},
	}
	out := rankAndCutoff(candidates, 0.2, 1)
	if len(out) != 1 || out[0].ID != "a" {
		t.Fatalf("expected only the top-scoring item above the floor, got %+v", out)
	}
}

func TestRankAndCutoffTieBreaksByNewestThenID(t *testing.T) {
	older := timeAt(2026, 1, 1)
	newer := timeAt(2026, 1, 2)
	candidates := []scoredCandidate{
		{item: ContextItem{ID: "z", Score: 0.5, CreatedAt: older}},
		{item: ContextItem{ID: "a", Score: 0.5, CreatedAt: newer}},
	}
	out := rankAndCutoff(candidates, 0, 0)
	if out[0].ID != "a" {
		t.Fatalf("expected the newer item to rank first on a score tie, got %+v", out)
	}
}
