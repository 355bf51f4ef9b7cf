package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ResearchPublisher/internal/domain"
	"ResearchPublisher/internal/triage"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()

	store, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "research.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ranked(id string, score float64, at time.Time) domain.RankedItem {
	return domain.RankedItem{
		Item: domain.Item{
			ID:             id,
			Title:          "Title " + id,
			URL:            "https://example.com/" + id,
			PublishedAt:    at.Add(-time.Hour),
			Source:         domain.SourcePaper,
			SourcePriority: domain.PriorityHigh,
			Authors:        []string{"A. Author"},
		},
		Score:     score,
		Breakdown: domain.ScoreBreakdown{domain.ScoreRecency: 1},
		RankedAt:  at,
	}
}

func TestSQLStoreSeenURLs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	url := triage.NormalizeURL("https://Example.com/a/?utm_source=x")
	if ok, err := store.Contains(ctx, url); err != nil || ok {
		t.Fatalf("Contains before Add = %v, %v", ok, err)
	}
	if err := store.Add(ctx, url); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add(ctx, url); err != nil {
		t.Fatalf("second Add must be a no-op: %v", err)
	}
	if ok, err := store.Contains(ctx, url); err != nil || !ok {
		t.Fatalf("Contains after Add = %v, %v", ok, err)
	}
}

func TestSQLStoreDeduplicatorRemembersAcrossRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	dedup, err := triage.NewDeduplicator(store, triage.DefaultDedupConfig(), nil)
	if err != nil {
		t.Fatalf("NewDeduplicator: %v", err)
	}

	batch := []domain.Item{{ID: "1", Title: "Sparse attention at scale", URL: "https://example.com/p/1"}}
	if got, err := dedup.Dedupe(ctx, batch); err != nil || len(got) != 1 {
		t.Fatalf("first run = %v, %v", got, err)
	}
	if got, err := dedup.Dedupe(ctx, batch); err != nil || len(got) != 0 {
		t.Fatalf("second run must drop the seen URL, got %v, %v", got, err)
	}
}

func TestSQLStoreTopCandidatesSkipsAnalyzed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2025, time.November, 10, 6, 0, 0, 0, time.UTC)

	candidates := []domain.RankedItem{ranked("a", 0.9, now), ranked("b", 0.7, now), ranked("c", 0.8, now)}
	if err := store.SaveCandidates(ctx, candidates); err != nil {
		t.Fatalf("SaveCandidates: %v", err)
	}

	top, err := store.TopCandidates(ctx, 2)
	if err != nil {
		t.Fatalf("TopCandidates: %v", err)
	}
	if diff := cmp.Diff(candidates[0], top[0]); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if got := []string{top[0].Item.ID, top[1].Item.ID}; !cmp.Equal(got, []string{"a", "c"}) {
		t.Fatalf("order = %v", got)
	}

	analysis := domain.Analysis{
		RunID:          "run-1",
		Item:           candidates[0].Item,
		StageOutputs:   []domain.StageOutput{{Stage: "linkedin_formatting", Text: "post"}},
		OverallSuccess: true,
		StartedAt:      now,
		FinishedAt:     now.Add(time.Minute),
	}
	if err := store.SaveAnalysis(ctx, analysis); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	top, err = store.TopCandidates(ctx, 5)
	if err != nil {
		t.Fatalf("TopCandidates: %v", err)
	}
	var got []string
	for _, r := range top {
		got = append(got, r.Item.ID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, got); diff != "" {
		t.Fatalf("analyzed item must be excluded (-want +got):\n%s", diff)
	}

	if err := store.MarkStatus(ctx, []string{"a"}, domain.StatusAnalyzed); err != nil {
		t.Fatalf("MarkStatus: %v", err)
	}
	if status, err := store.CandidateStatus(ctx, "a"); err != nil || status != domain.StatusAnalyzed {
		t.Fatalf("CandidateStatus(a) = %q, %v", status, err)
	}
	if status, err := store.CandidateStatus(ctx, "b"); err != nil || status != domain.StatusRanked {
		t.Fatalf("CandidateStatus(b) = %q, %v", status, err)
	}

	done, err := store.AlreadyAnalyzed(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("AlreadyAnalyzed: %v", err)
	}
	if diff := cmp.Diff(map[string]bool{"a": true}, done); diff != "" {
		t.Fatalf("AlreadyAnalyzed mismatch (-want +got):\n%s", diff)
	}

	latest, ok, err := store.LatestAnalysis(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("LatestAnalysis = %v, %v", ok, err)
	}
	if text, _ := latest.Output("linkedin_formatting"); text != "post" {
		t.Fatalf("stored analysis lost its outputs: %+v", latest)
	}
}

func TestSQLStoreUpsertKeepsLatestScore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2025, time.November, 10, 6, 0, 0, 0, time.UTC)

	if err := store.SaveCandidates(ctx, []domain.RankedItem{ranked("a", 0.4, now)}); err != nil {
		t.Fatalf("SaveCandidates: %v", err)
	}
	if err := store.SaveCandidates(ctx, []domain.RankedItem{ranked("a", 0.6, now.Add(24*time.Hour))}); err != nil {
		t.Fatalf("SaveCandidates: %v", err)
	}

	top, err := store.TopCandidates(ctx, 10)
	if err != nil {
		t.Fatalf("TopCandidates: %v", err)
	}
	if len(top) != 1 || top[0].Score != 0.6 {
		t.Fatalf("expected one upserted candidate, got %+v", top)
	}
}

func TestSQLStoreEmptyInputs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	if err := store.SaveCandidates(ctx, nil); err != nil {
		t.Fatalf("SaveCandidates(nil): %v", err)
	}
	if top, err := store.TopCandidates(ctx, 0); err != nil || top != nil {
		t.Fatalf("TopCandidates(0) = %v, %v", top, err)
	}
	if done, err := store.AlreadyAnalyzed(ctx, nil); err != nil || len(done) != 0 {
		t.Fatalf("AlreadyAnalyzed(nil) = %v, %v", done, err)
	}
	if _, ok, err := store.LatestAnalysis(ctx, "missing"); err != nil || ok {
		t.Fatalf("LatestAnalysis(missing) = %v, %v", ok, err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "oracle", "dsn"); err == nil {
		t.Fatalf("expected error")
	}
}
