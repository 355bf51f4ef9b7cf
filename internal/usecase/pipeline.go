package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ResearchPublisher/internal/analysis"
	"ResearchPublisher/internal/domain"
	"ResearchPublisher/internal/ports"
	"ResearchPublisher/internal/prompts"
	"ResearchPublisher/internal/triage"
)

// ErrNoCandidates is returned by Generate when nothing is left to analyze.
var ErrNoCandidates = errors.New("no unanalyzed candidates")

// digestStages lists the outputs a digest entry is built from, most preferred first.
var digestStages = []string{prompts.LinkedInFormatting, prompts.BlogSynthesis}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source       ports.ItemSource
	Filter       *triage.RelevanceFilter
	Deduplicator *triage.Deduplicator
	Ranker       *triage.Ranker
	Candidates   ports.CandidateRepository
	Analyses     ports.AnalysisRepository
	Orchestrator *analysis.Orchestrator
	Plan         analysis.Plan
	Notifier     ports.Notifier
	TopN         int
	Concurrency  int
	Logger       *slog.Logger
}

// Pipeline implements the fetch, triage, analyze and notify workflow.
type Pipeline struct {
	source       ports.ItemSource
	filter       *triage.RelevanceFilter
	deduplicator *triage.Deduplicator
	ranker       *triage.Ranker
	candidates   ports.CandidateRepository
	analyses     ports.AnalysisRepository
	orchestrator *analysis.Orchestrator
	plan         analysis.Plan
	notifier     ports.Notifier
	topN         int
	concurrency  int
	logger       *slog.Logger
	clock        func() time.Time
}

// TriageReport counts what survived each triage step.
type TriageReport struct {
	Fetched  int
	Relevant int
	Unique   int
	Ranked   []domain.RankedItem
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) (*Pipeline, error) {
	if deps.Source == nil || deps.Filter == nil || deps.Deduplicator == nil || deps.Ranker == nil {
		return nil, fmt.Errorf("pipeline: source, filter, deduplicator and ranker are required")
	}
	if deps.Candidates == nil {
		return nil, fmt.Errorf("pipeline: candidate repository is required")
	}

	topN := deps.TopN
	if topN <= 0 {
		topN = 3
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Pipeline{
		source:       deps.Source,
		filter:       deps.Filter,
		deduplicator: deps.Deduplicator,
		ranker:       deps.Ranker,
		candidates:   deps.Candidates,
		analyses:     deps.Analyses,
		orchestrator: deps.Orchestrator,
		plan:         deps.Plan,
		notifier:     deps.Notifier,
		topN:         topN,
		concurrency:  concurrency,
		logger:       deps.Logger,
		clock:        time.Now,
	}, nil
}

// Triage fetches fresh items, filters, dedupes and ranks them, and stores the ranking.
func (p *Pipeline) Triage(ctx context.Context, now time.Time) (TriageReport, error) {
	items, err := p.source.Fetch(ctx, now)
	if err != nil {
		return TriageReport{}, fmt.Errorf("fetch items: %w", err)
	}

	relevant := p.filter.Filter(items)
	dedup, err := p.deduplicator.Check(ctx, relevant)
	if err != nil {
		return TriageReport{}, fmt.Errorf("dedupe: %w", err)
	}
	unique := dedup.Items
	ranked := p.ranker.Rank(unique)

	// URLs are marked seen only once their candidates are stored.
	if err := p.candidates.SaveCandidates(ctx, ranked); err != nil {
		return TriageReport{}, fmt.Errorf("save candidates: %w", err)
	}
	if err := p.deduplicator.Commit(ctx, dedup.Keys); err != nil {
		return TriageReport{}, fmt.Errorf("commit seen urls: %w", err)
	}

	report := TriageReport{
		Fetched:  len(items),
		Relevant: len(relevant),
		Unique:   len(unique),
		Ranked:   ranked,
	}
	p.info("triage finished",
		"fetched", report.Fetched,
		"relevant", report.Relevant,
		"unique", report.Unique,
		"ranked", len(report.Ranked))
	return report, nil
}

// Generate analyzes the top count unanalyzed candidates, persists each analysis and
// publishes a digest of the successful ones. Results follow rank order.
func (p *Pipeline) Generate(ctx context.Context, count int) ([]domain.Analysis, error) {
	if p.orchestrator == nil {
		return nil, fmt.Errorf("generate: no orchestrator configured")
	}
	if count <= 0 {
		count = p.topN
	}

	picked, err := p.pick(ctx, count)
	if err != nil {
		return nil, err
	}
	if len(picked) == 0 {
		return nil, ErrNoCandidates
	}

	results := make([]domain.Analysis, len(picked))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, candidate := range picked {
		g.Go(func() error {
			result := p.orchestrator.Analyze(gctx, candidate.Item, p.plan)
			if p.analyses != nil {
				if err := p.analyses.SaveAnalysis(gctx, result); err != nil {
					return fmt.Errorf("persist analysis %s: %w", candidate.Item.ID, err)
				}
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := p.candidates.MarkStatus(ctx, idsOf(results, false), domain.StatusAnalyzed); err != nil {
		return results, fmt.Errorf("mark analyzed: %w", err)
	}
	if err := p.publish(ctx, results); err != nil {
		return results, err
	}
	return results, nil
}

// ProcessDay runs Triage followed by Generate for the configured top N.
func (p *Pipeline) ProcessDay(ctx context.Context, day time.Time) ([]domain.Analysis, error) {
	if _, err := p.Triage(ctx, day); err != nil {
		return nil, err
	}

	results, err := p.Generate(ctx, p.topN)
	if errors.Is(err, ErrNoCandidates) {
		p.info("nothing to analyze", "day", day.Format(time.DateOnly))
		return nil, nil
	}
	return results, err
}

func (p *Pipeline) pick(ctx context.Context, count int) ([]domain.RankedItem, error) {
	top, err := p.candidates.TopCandidates(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if p.analyses == nil || len(top) == 0 {
		return top, nil
	}

	ids := make([]string, len(top))
	for i, c := range top {
		ids[i] = c.Item.ID
	}
	done, err := p.analyses.AlreadyAnalyzed(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load analyzed: %w", err)
	}

	picked := make([]domain.RankedItem, 0, len(top))
	for _, c := range top {
		if !done[c.Item.ID] {
			picked = append(picked, c)
		}
	}
	return picked, nil
}

func (p *Pipeline) publish(ctx context.Context, results []domain.Analysis) error {
	if p.notifier == nil {
		return nil
	}

	message := buildDigestMessage(p.clock(), results)
	if message == "" {
		p.info("digest skipped, no successful analyses")
		return nil
	}
	if err := p.notifier.PublishDigest(ctx, message); err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}
	if err := p.candidates.MarkStatus(ctx, idsOf(results, true), domain.StatusDelivered); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

func idsOf(results []domain.Analysis, successfulOnly bool) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if successfulOnly && !r.OverallSuccess {
			continue
		}
		ids = append(ids, r.Item.ID)
	}
	return ids
}

func buildDigestMessage(day time.Time, results []domain.Analysis) string {
	var entries []string
	for _, result := range results {
		if !result.OverallSuccess {
			continue
		}
		text, ok := digestText(result)
		if !ok {
			continue
		}
		entries = append(entries, fmt.Sprintf("%d. %s\n%s\n%s",
			len(entries)+1,
			result.Item.Title,
			strings.TrimSpace(text),
			result.Item.URL))
	}
	if len(entries) == 0 {
		return ""
	}

	header := fmt.Sprintf("Research digest %s", day.Format(time.DateOnly))
	return header + "\n\n" + strings.Join(entries, "\n\n")
}

func digestText(result domain.Analysis) (string, bool) {
	for _, stage := range digestStages {
		if text, ok := result.Output(stage); ok {
			return text, true
		}
	}
	return "", false
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}
