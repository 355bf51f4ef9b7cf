package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ResearchPublisher/internal/domain"
)

type failingSeenStore struct{ err error }

func (s failingSeenStore) Contains(context.Context, string) (bool, error) { return false, s.err }
func (s failingSeenStore) Add(context.Context, string) error { return s.err }

func newTestDeduplicator(t *testing.T, store SeenStore) *Deduplicator {
	t.Helper()
	d, err := NewDeduplicator(store, DefaultDedupConfig(), nil)
	if err != nil {
		t.Fatalf("NewDeduplicator: %v", err)
	}
	return d
}

func TestDedupeDropsNearDuplicateTitles(t *testing.T) {
	t.Parallel()

	items := []domain.Item{
		{ID: "first", Title: "New Transformer Architecture Released", URL: "https://blog-a.example/post"},
		{ID: "second", Title: "New Transformer Architecture Unveiled", URL: "https://blog-b.example/post"},
	}

	got, err := newTestDeduplicator(t, NewMemorySeenStore()).Dedupe(context.Background(), items)
	if err != nil {
		t.Fatalf("Dedupe: %v", err)
	}
	if diff := cmp.Diff([]string{"first"}, ids(got)); diff != "" {
		t.Fatalf("dedupe mismatch (-want +got):\n%s", diff)
	}
}

func TestDedupeNormalizesURLsWithinBatch(t *testing.T) {
	t.Parallel()

	items := []domain.Item{
		{ID: "a", Title: "Post about inference", URL: "https://example.com/post?utm_source=hn"},
		{ID: "b", Title: "Completely different words here", URL: "HTTP://EXAMPLE.com/post/"},
		{ID: "c", Title: "Another topic entirely", URL: "https://example.com/other"},
	}

	got, err := newTestDeduplicator(t, NewMemorySeenStore()).Dedupe(context.Background(), items)
	if err != nil {
		t.Fatalf("Dedupe: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "c"}, ids(got)); diff != "" {
		t.Fatalf("dedupe mismatch (-want +got):\n%s", diff)
	}
}

func TestDedupeRemembersAcrossRuns(t *testing.T) {
	t.Parallel()

	store := NewMemorySeenStore("https://example.com/old")
	d := newTestDeduplicator(t, store)
	ctx := context.Background()

	items := []domain.Item{
		{ID: "old", Title: "Seen yesterday", URL: "https://example.com/old/"},
		{ID: "new", Title: "Fresh today", URL: "https://example.com/new"},
	}

	got, err := d.Dedupe(ctx, items)
	if err != nil {
		t.Fatalf("Dedupe: %v", err)
	}
	if diff := cmp.Diff([]string{"new"}, ids(got)); diff != "" {
		t.Fatalf("first run mismatch (-want +got):\n%s", diff)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 seen urls, got %d", store.Len())
	}

	again, err := d.Dedupe(ctx, items)
	if err != nil {
		t.Fatalf("second Dedupe: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second run should drop everything, got %v", ids(again))
	}
}

func TestDedupeIsFixedPoint(t *testing.T) {
	t.Parallel()

	items := []domain.Item{
		{ID: "1", Title: "LLM inference on a budget", URL: "https://a.example/1"},
		{ID: "2", Title: "LLM inference on a budget, part 2", URL: "https://a.example/2"},
		{ID: "3", Title: "Agents in production", URL: "https://b.example/3"},
		{ID: "4", Title: "Production agents in", URL: "https://b.example/4"},
		{ID: "5", Title: "No URL at all"},
		{ID: "6", Title: "Agents in production", URL: "https://a.example/1?utm_medium=x"},
	}

	ctx := context.Background()
	once, err := newTestDeduplicator(t, NewMemorySeenStore()).Dedupe(ctx, items)
	if err != nil {
		t.Fatalf("Dedupe: %v", err)
	}
	twice, err := newTestDeduplicator(t, NewMemorySeenStore()).Dedupe(ctx, once)
	if err != nil {
		t.Fatalf("Dedupe: %v", err)
	}
	if diff := cmp.Diff(ids(once), ids(twice)); diff != "" {
		t.Fatalf("dedupe is not a fixed point (-once +twice):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "5"}, ids(once)); diff != "" {
		t.Fatalf("unexpected survivors (-want +got):\n%s", diff)
	}
}

func TestDedupeItemsWithoutURLStillGetTitleCheck(t *testing.T) {
	t.Parallel()

	items := []domain.Item{
		{ID: "a", Title: "Scaling laws revisited"},
		{ID: "b", Title: "Scaling Laws Revisited!"},
	}
	got, err := newTestDeduplicator(t, NewMemorySeenStore()).Dedupe(context.Background(), items)
	if err != nil {
		t.Fatalf("Dedupe: %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, ids(got)); diff != "" {
		t.Fatalf("dedupe mismatch (-want +got):\n%s", diff)
	}
}

func TestDedupePropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("store down")
	d := newTestDeduplicator(t, failingSeenStore{err: boom})

	_, err := d.Dedupe(context.Background(), []domain.Item{{ID: "x", Title: "t", URL: "https://x.example"}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestDedupeEmptyInput(t *testing.T) {
	t.Parallel()

	got, err := newTestDeduplicator(t, NewMemorySeenStore()).Dedupe(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v, %v", got, err)
	}
}

func TestNewDeduplicatorValidates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		store SeenStore
		cfg   DedupConfig
	}{
		{name: "nil store", store: nil, cfg: DefaultDedupConfig()},
		{name: "zero threshold", store: NewMemorySeenStore(), cfg: DedupConfig{TitleThreshold: 0}},
		{name: "threshold above one", store: NewMemorySeenStore(), cfg: DedupConfig{TitleThreshold: 1.2}},
		{name: "unknown method", store: NewMemorySeenStore(), cfg: DedupConfig{TitleThreshold: 0.9, Method: "soundex"}},
	}
	for _, tc := range cases {
		if _, err := NewDeduplicator(tc.store, tc.cfg, nil); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", tc.name, err)
		}
	}
}

func TestCheckLeavesSeenStoreUntilCommit(t *testing.T) {
	t.Parallel()

	store := NewMemorySeenStore()
	d := newTestDeduplicator(t, store)
	ctx := context.Background()

	items := []domain.Item{
		{ID: "a", Title: "Agents in production", URL: "https://a.example/1"},
		{ID: "b", Title: "Other words entirely", URL: "https://a.example/1?utm_source=x"},
		{ID: "c", Title: "Cheaper serving", URL: "https://c.example/2"},
	}

	res, err := d.Check(ctx, items)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "c"}, ids(res.Items)); diff != "" {
		t.Fatalf("check mismatch (-want +got):\n%s", diff)
	}
	if store.Len() != 0 {
		t.Fatalf("Check must not write to the store, got %d urls", store.Len())
	}

	if err := d.Commit(ctx, res.Keys); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if diff := cmp.Diff([]string{"https://a.example/1", "https://c.example/2"}, res.Keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 committed urls, got %d", store.Len())
	}
}
