package ports

import (
	"context"
	"time"

	"ResearchPublisher/internal/domain"
)

// ItemSource pulls fresh items from upstream providers.
type ItemSource interface {
	Fetch(ctx context.Context, now time.Time) ([]domain.Item, error)
}

// GenerationParams tune a single text-generation call. Zero values and a nil
// Temperature mean provider defaults.
type GenerationParams struct {
	System      string
	Temperature *float64
	MaxTokens   int
}

// Float returns a pointer to v, for optional parameters such as Temperature.
func Float(v float64) *float64 {
	return &v
}

// TextGenerator turns a rendered prompt into text (OpenAI, Perplexity, Anthropic, self-hosted).
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// SeenURLStore remembers normalized URLs across runs for deduplication.
type SeenURLStore interface {
	Contains(ctx context.Context, url string) (bool, error)
	Add(ctx context.Context, url string) error
}

// CandidateRepository persists ranked items between the fetch and generate steps.
type CandidateRepository interface {
	SaveCandidates(ctx context.Context, items []domain.RankedItem) error
	TopCandidates(ctx context.Context, limit int) ([]domain.RankedItem, error)
	MarkStatus(ctx context.Context, ids []string, status domain.ProcessingStatus) error
}

// AnalysisRepository persists finished analyses for history and skip checks.
type AnalysisRepository interface {
	AlreadyAnalyzed(ctx context.Context, ids []string) (map[string]bool, error)
	SaveAnalysis(ctx context.Context, analysis domain.Analysis) error
}

// Notifier streams selected digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
