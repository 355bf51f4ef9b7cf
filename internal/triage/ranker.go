package triage

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"ResearchPublisher/internal/domain"
)

const weightTolerance = 1e-6

// Weights of the four sub-scores; they must sum to 1.
type Weights struct {
	Recency        float64
	SourcePriority float64
	KeywordDensity float64
	Engagement     float64
}

// DefaultWeights mirrors the tuned editorial balance.
func DefaultWeights() Weights {
	return Weights{Recency: 0.3, SourcePriority: 0.3, KeywordDensity: 0.2, Engagement: 0.2}
}

// Validate fails fast instead of renormalizing.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		domain.ScoreRecency:        w.Recency,
		domain.ScoreSourcePriority: w.SourcePriority,
		domain.ScoreKeywordDensity: w.KeywordDensity,
		domain.ScoreEngagement:     w.Engagement,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: weight %s is %v", ErrInvalidConfig, name, v)
		}
	}

	sum := w.Recency + w.SourcePriority + w.KeywordDensity + w.Engagement
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: ranking weights sum to %.4f, want 1.0", ErrInvalidConfig, sum)
	}
	return nil
}

// RankerConfig holds everything the composite score depends on.
type RankerConfig struct {
	Weights           Weights
	MaxAgeDays        int
	Keywords          []string
	EngagementCeiling float64
}

// DefaultRankerConfig returns default weights, a 7 day window and a 500 engagement ceiling.
func DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		Weights:           DefaultWeights(),
		MaxAgeDays:        7,
		EngagementCeiling: 500,
	}
}

var priorityScores = map[domain.Priority]float64{
	domain.PriorityHigh:   1.0,
	domain.PriorityMedium: 0.6,
	domain.PriorityLow:    0.3,
}

// Ranker orders items by a weighted composite score.
type Ranker struct {
	weights  Weights
	maxAge   time.Duration
	keywords []string
	ceiling  float64
	clock    func() time.Time
	logger   *slog.Logger
}

// NewRanker validates the configuration; invalid weights are a startup error.
func NewRanker(cfg RankerConfig, logger *slog.Logger) (*Ranker, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxAgeDays <= 0 {
		return nil, fmt.Errorf("%w: max age must be positive, got %d days", ErrInvalidConfig, cfg.MaxAgeDays)
	}
	if cfg.EngagementCeiling <= 0 {
		return nil, fmt.Errorf("%w: engagement ceiling must be positive, got %v", ErrInvalidConfig, cfg.EngagementCeiling)
	}

	return &Ranker{
		weights:  cfg.Weights,
		maxAge:   time.Duration(cfg.MaxAgeDays) * 24 * time.Hour,
		keywords: normalizeTerms(cfg.Keywords),
		ceiling:  cfg.EngagementCeiling,
		clock:    time.Now,
		logger:   logger,
	}, nil
}

// WithClock replaces the time source used for recency.
func (r *Ranker) WithClock(clock func() time.Time) *Ranker {
	if clock != nil {
		r.clock = clock
	}
	return r
}

// Rank returns decorated copies sorted by descending score; ties keep input order.
func (r *Ranker) Rank(items []domain.Item) []domain.RankedItem {
	if len(items) == 0 {
		return nil
	}

	now := r.clock()
	ranked := make([]domain.RankedItem, 0, len(items))
	for _, item := range items {
		ranked = append(ranked, r.score(item, now))
	}

	slices.SortStableFunc(ranked, func(a, b domain.RankedItem) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if r.logger != nil {
		r.logger.Debug("ranked items", "count", len(ranked), "top_score", ranked[0].Score)
	}
	return ranked
}

func (r *Ranker) score(item domain.Item, now time.Time) domain.RankedItem {
	breakdown := domain.ScoreBreakdown{
		domain.ScoreRecency:        r.recency(item, now),
		domain.ScoreSourcePriority: sourcePriority(item.SourcePriority),
		domain.ScoreKeywordDensity: r.keywordDensity(item),
		domain.ScoreEngagement:     math.Min(item.EngagementScore/r.ceiling, 1),
	}
	if breakdown[domain.ScoreEngagement] < 0 {
		breakdown[domain.ScoreEngagement] = 0
	}

	total := breakdown[domain.ScoreRecency]*r.weights.Recency +
		breakdown[domain.ScoreSourcePriority]*r.weights.SourcePriority +
		breakdown[domain.ScoreKeywordDensity]*r.weights.KeywordDensity +
		breakdown[domain.ScoreEngagement]*r.weights.Engagement

	return domain.RankedItem{
		Item:      item,
		Score:     total,
		Breakdown: breakdown,
		RankedAt:  now,
	}
}

// recency decays linearly to zero at the age limit; unknown dates sit in the middle.
func (r *Ranker) recency(item domain.Item, now time.Time) float64 {
	if item.PublishedAt.IsZero() {
		return 0.5
	}
	age := now.Sub(item.PublishedAt)
	if age <= 0 {
		return 1
	}
	return math.Max(0, 1-float64(age)/float64(r.maxAge))
}

func (r *Ranker) keywordDensity(item domain.Item) float64 {
	if len(r.keywords) == 0 {
		return 0
	}
	text := strings.ToLower(item.Text())
	matched := 0
	for _, kw := range r.keywords {
		if strings.Contains(text, kw) {
			matched++
		}
	}
	return math.Min(float64(matched)/float64(len(r.keywords)), 1)
}

func sourcePriority(p domain.Priority) float64 {
	if score, ok := priorityScores[p]; ok {
		return score
	}
	return priorityScores[domain.PriorityMedium]
}
