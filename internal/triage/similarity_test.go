package triage

import (
	"errors"
	"math"
	"testing"
)

func TestTokenJaccard(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want float64
	}{
		{"New Transformer Architecture Released", "New Transformer Architecture Unveiled", 0.6},
		{"Agents in production", "Production agents in", 1},
		{"same", "same", 1},
		{"", "anything", 0},
		{"Rust 2.0 announced", "Go 1.25 released", 0},
	}

	for _, tc := range cases {
		if got := TokenJaccard(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("TokenJaccard(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestEditSimilarityIgnoresCaseAndPunctuation(t *testing.T) {
	t.Parallel()

	if got := EditSimilarity("LLM inference, on a budget!", "llm inference on a budget"); got != 1 {
		t.Fatalf("expected identical canonical titles, got %v", got)
	}
	if got := EditSimilarity("", "x"); got != 0 {
		t.Fatalf("empty title must score 0, got %v", got)
	}
}

func TestHybridCatchesSingleWordSubstitution(t *testing.T) {
	t.Parallel()

	a := "New Transformer Architecture Released"
	b := "New Transformer Architecture Unveiled"
	if got := HybridSimilarity(a, b); got < DefaultTitleThreshold {
		t.Fatalf("expected near-duplicate, got %v", got)
	}
	if got := HybridSimilarity("Rust 2.0 announced", "Go 1.25 released"); got >= DefaultTitleThreshold {
		t.Fatalf("unrelated titles scored %v", got)
	}
	if got := HybridSimilarity("Agents in production", "Production agents in"); got != 1 {
		t.Fatalf("reordered titles should match fully, got %v", got)
	}
}

func TestSimilarityForUnknownMethod(t *testing.T) {
	t.Parallel()

	if _, err := SimilarityFor("cosine"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	for _, m := range []SimilarityMethod{"", SimilarityJaccard, SimilarityEdit, SimilarityHybrid} {
		if fn, err := SimilarityFor(m); err != nil || fn == nil {
			t.Fatalf("method %q: fn=%v err=%v", m, fn != nil, err)
		}
	}
}

func TestHybridKeepsDistinctVersions(t *testing.T) {
	t.Parallel()

	a := "GPT-4 released"
	b := "GPT-5 released"
	if got := EditSimilarity(a, b); got < DefaultTitleThreshold {
		t.Fatalf("edit distance alone should rate versions as near-duplicates, got %v", got)
	}
	if got := HybridSimilarity(a, b); got >= DefaultTitleThreshold {
		t.Fatalf("different version numbers must not be near-duplicates, got %v", got)
	}
	if got := HybridSimilarity("Llama 3 released!", "llama 3 released"); got != 1 {
		t.Fatalf("same numbers keep the edit branch, got %v", got)
	}
}
