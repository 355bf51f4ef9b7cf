package triage

import (
	"context"
	"fmt"
	"log/slog"

	"ResearchPublisher/internal/domain"
)

// DefaultTitleThreshold is the similarity at or above which two titles are near-duplicates.
const DefaultTitleThreshold = 0.85

// DedupConfig tunes near-duplicate detection.
type DedupConfig struct {
	TitleThreshold float64
	Method         SimilarityMethod
}

// DefaultDedupConfig returns hybrid similarity at the default threshold.
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{TitleThreshold: DefaultTitleThreshold, Method: SimilarityHybrid}
}

// Deduplicator drops items already seen by URL and batch-local title near-duplicates.
type Deduplicator struct {
	seen       SeenStore
	similarity SimilarityFunc
	threshold  float64
	logger     *slog.Logger
}

// NewDeduplicator validates the config and binds the seen-URL store.
func NewDeduplicator(seen SeenStore, cfg DedupConfig, logger *slog.Logger) (*Deduplicator, error) {
	if seen == nil {
		return nil, fmt.Errorf("%w: seen store is required", ErrInvalidConfig)
	}
	if cfg.TitleThreshold <= 0 || cfg.TitleThreshold > 1 {
		return nil, fmt.Errorf("%w: title threshold %.2f outside (0,1]", ErrInvalidConfig, cfg.TitleThreshold)
	}

	similarity, err := SimilarityFor(cfg.Method)
	if err != nil {
		return nil, err
	}

	return &Deduplicator{
		seen:       seen,
		similarity: similarity,
		threshold:  cfg.TitleThreshold,
		logger:     logger,
	}, nil
}

// DedupResult is the outcome of Check: the surviving items and the normalized URLs
// that still have to be committed to the seen store.
type DedupResult struct {
	Items []domain.Item
	Keys  []string
}

// Dedupe keeps the first occurrence of every item in input order.
// Surviving URLs are added to the seen store; titles are only compared within the batch.
func (d *Deduplicator) Dedupe(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	res, err := d.Check(ctx, items)
	if err != nil {
		return nil, err
	}
	if err := d.Commit(ctx, res.Keys); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Check runs both dedup passes without writing to the seen store.
// Callers persist the survivors first and then Commit the returned keys.
func (d *Deduplicator) Check(ctx context.Context, items []domain.Item) (DedupResult, error) {
	if len(items) == 0 {
		return DedupResult{}, nil
	}

	var (
		urlUnique []domain.Item
		keys      []string
		batch     = make(map[string]struct{}, len(items))
	)
	for _, item := range items {
		key := NormalizeURL(item.URL)
		if key == "" {
			urlUnique = append(urlUnique, item)
			continue
		}
		if _, dup := batch[key]; dup {
			d.debug("duplicate url in batch", "id", item.ID, "url", key)
			continue
		}

		seen, err := d.seen.Contains(ctx, key)
		if err != nil {
			return DedupResult{}, fmt.Errorf("check seen url %s: %w", key, err)
		}
		if seen {
			d.debug("duplicate url", "id", item.ID, "url", key)
			continue
		}
		batch[key] = struct{}{}
		keys = append(keys, key)
		urlUnique = append(urlUnique, item)
	}

	kept := make([]domain.Item, 0, len(urlUnique))
	for _, item := range urlUnique {
		if match, score, ok := d.nearDuplicate(item, kept); ok {
			d.debug("near-duplicate title", "id", item.ID, "kept_id", match.ID, "similarity", score)
			continue
		}
		kept = append(kept, item)
	}

	d.debug("dedup done", "input", len(items), "url_unique", len(urlUnique), "kept", len(kept))
	return DedupResult{Items: kept, Keys: keys}, nil
}

// Commit records normalized URLs returned by Check in the seen store.
func (d *Deduplicator) Commit(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := d.seen.Add(ctx, key); err != nil {
			return fmt.Errorf("record seen url %s: %w", key, err)
		}
	}
	return nil
}

func (d *Deduplicator) nearDuplicate(item domain.Item, kept []domain.Item) (domain.Item, float64, bool) {
	for _, prior := range kept {
		if score := d.similarity(item.Title, prior.Title); score >= d.threshold {
			return prior, score, true
		}
	}
	return domain.Item{}, 0, false
}

func (d *Deduplicator) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
