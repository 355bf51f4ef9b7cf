package main

import (
	"strings"
	"testing"

	"ResearchPublisher/internal/domain"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("truncate long = %q", got)
	}
}

func TestRenderCandidatesListsRows(t *testing.T) {
	t.Parallel()

	out := renderCandidates([]domain.RankedItem{
		{Item: domain.Item{Title: "Sparse attention", Site: "arxiv"}, Score: 0.8123},
		{Item: domain.Item{Title: "Agents in prod", Source: domain.SourceForumStory}, Score: 0.5},
		{Item: domain.Item{Title: "Hidden by limit"}, Score: 0.1},
	}, 2)

	for _, want := range []string{"SCORE", "0.812", "arxiv", "Sparse attention", "forum-story"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Hidden by limit") {
		t.Fatalf("limit not applied:\n%s", out)
	}
}

func TestRenderAnalysesShowsFailures(t *testing.T) {
	t.Parallel()

	out := renderAnalyses([]domain.Analysis{{
		Item:            domain.Item{Title: "Paper"},
		CompletedStages: []string{"fact_extraction"},
		FailedStages:    []domain.StageFailure{{Stage: "blog_synthesis", Reason: "timed out"}},
		Results:         make([]domain.StageResult, 2),
	}})

	for _, want := range []string{"Paper", "1/2 stages", "blog_synthesis:", "timed out"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
