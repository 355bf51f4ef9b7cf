package triage

import (
	"log/slog"
	"strings"
	"time"

	"ResearchPublisher/internal/domain"
)

// DefaultEngagementBypass is the empirically tuned engagement level above which
// keyword checks are skipped.
const DefaultEngagementBypass = 100

// RelevanceConfig drives the keep/drop policy.
type RelevanceConfig struct {
	MaxAgeDays                int
	HighPriorityKeywords      []string
	GeneralKeywords           []string
	ExcludeKeywords           []string
	EngagementBypassThreshold float64
}

// DefaultRelevanceConfig returns the settings used when nothing is configured.
func DefaultRelevanceConfig() RelevanceConfig {
	return RelevanceConfig{
		MaxAgeDays:                7,
		EngagementBypassThreshold: DefaultEngagementBypass,
	}
}

// RelevanceFilter decides which items are worth ranking at all.
type RelevanceFilter struct {
	maxAge   time.Duration
	keywords []string
	excludes []string
	bypass   float64
	clock    func() time.Time
	logger   *slog.Logger
}

// NewRelevanceFilter lowercases and de-duplicates the configured term lists.
func NewRelevanceFilter(cfg RelevanceConfig, logger *slog.Logger) *RelevanceFilter {
	return &RelevanceFilter{
		maxAge:   time.Duration(cfg.MaxAgeDays) * 24 * time.Hour,
		keywords: normalizeTerms(append(append([]string{}, cfg.HighPriorityKeywords...), cfg.GeneralKeywords...)),
		excludes: normalizeTerms(cfg.ExcludeKeywords),
		bypass:   cfg.EngagementBypassThreshold,
		clock:    time.Now,
		logger:   logger,
	}
}

// WithClock replaces the time source; used by tests and replays.
func (f *RelevanceFilter) WithClock(clock func() time.Time) *RelevanceFilter {
	if clock != nil {
		f.clock = clock
	}
	return f
}

// Filter returns the relevant items in their original order.
func (f *RelevanceFilter) Filter(items []domain.Item) []domain.Item {
	if len(items) == 0 {
		return nil
	}

	now := f.clock()
	kept := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if f.keep(item, now) {
			kept = append(kept, item)
		}
	}

	f.debug("relevance filter done", "input", len(items), "kept", len(kept))
	return kept
}

func (f *RelevanceFilter) keep(item domain.Item, now time.Time) bool {
	// Unknown publication date counts as fresh.
	if !item.PublishedAt.IsZero() && now.Sub(item.PublishedAt) > f.maxAge {
		return false
	}

	if f.bypass > 0 && item.EngagementScore >= f.bypass {
		f.debug("engagement bypass", "id", item.ID, "engagement", item.EngagementScore)
		return true
	}

	text := strings.ToLower(item.Text())
	if containsAny(text, f.excludes) {
		f.debug("excluded", "id", item.ID)
		return false
	}

	if len(f.keywords) == 0 {
		return true
	}
	return containsAny(text, f.keywords)
}

func (f *RelevanceFilter) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func normalizeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}
