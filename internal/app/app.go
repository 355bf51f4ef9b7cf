package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ResearchPublisher/internal/analysis"
	"ResearchPublisher/internal/config"
	"ResearchPublisher/internal/domain"
	"ResearchPublisher/internal/infrastructure/feeds"
	"ResearchPublisher/internal/infrastructure/github"
	"ResearchPublisher/internal/infrastructure/hackernews"
	"ResearchPublisher/internal/infrastructure/llm"
	"ResearchPublisher/internal/infrastructure/parser"
	"ResearchPublisher/internal/infrastructure/scheduler"
	"ResearchPublisher/internal/infrastructure/storage"
	"ResearchPublisher/internal/infrastructure/telegram"
	"ResearchPublisher/internal/logging"
	"ResearchPublisher/internal/ports"
	"ResearchPublisher/internal/prompts"
	"ResearchPublisher/internal/scanner"
	"ResearchPublisher/internal/triage"
	"ResearchPublisher/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.SQLStore
	redis    *redis.Client
	pipeline *usecase.Pipeline
	// analysisErr is set when no text generator could be built; triage still works.
	analysisErr error
}

// Deps lets callers replace the network-facing collaborators.
type Deps struct {
	Source    ports.ItemSource
	Generator ports.TextGenerator
	Notifier  ports.Notifier
}

// New builds a runnable application from configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	return NewWithDeps(ctx, cfg, baseLogger, Deps{})
}

// NewWithDeps is New with optional overrides; nil fields are built from cfg.
func NewWithDeps(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, deps Deps) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.store = store

	seen, err := a.seenStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	filter := triage.NewRelevanceFilter(triage.RelevanceConfig{
		MaxAgeDays:                cfg.Filters.Relevance.MaxAgeDays,
		HighPriorityKeywords:      cfg.Filters.Relevance.Keywords.HighPriority,
		GeneralKeywords:           cfg.Filters.Relevance.Keywords.General,
		ExcludeKeywords:           cfg.Filters.Relevance.Exclude,
		EngagementBypassThreshold: cfg.Filters.Relevance.EngagementBypassThreshold,
	}, baseLogger.With("component", "triage.relevance"))

	dedup, err := triage.NewDeduplicator(seen, triage.DedupConfig{
		TitleThreshold: cfg.Filters.Dedup.Threshold,
		Method:         triage.SimilarityMethod(cfg.Filters.Dedup.Method),
	}, baseLogger.With("component", "triage.dedup"))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	weights := cfg.Filters.Ranking.Weights
	ranker, err := triage.NewRanker(triage.RankerConfig{
		Weights: triage.Weights{
			Recency:        weights.Recency,
			SourcePriority: weights.SourcePriority,
			KeywordDensity: weights.KeywordDensity,
			Engagement:     weights.Engagement,
		},
		MaxAgeDays:        cfg.Filters.Relevance.MaxAgeDays,
		Keywords:          cfg.Filters.Relevance.Keywords.All(),
		EngagementCeiling: cfg.Filters.Ranking.EngagementCeiling,
	}, baseLogger.With("component", "triage.ranker"))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	source := deps.Source
	if source == nil {
		lookback := time.Duration(cfg.Filters.Relevance.MaxAgeDays) * 24 * time.Hour
		source = parser.NewStrategySource(newScannerRegistry(cfg, baseLogger), cfg.Sites, lookback, baseLogger.With("component", "source"))
	}

	orchestrator, plan, err := a.analysisParts(deps.Generator)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	notifier := deps.Notifier
	if notifier == nil && cfg.Notifications.Telegram.Enabled() {
		tg := cfg.Notifications.Telegram
		notifier = telegram.NewNotifier(tg.APIBase, tg.BotToken, tg.ChatID)
	}

	pipeline, err := usecase.NewPipeline(usecase.PipelineDeps{
		Source:       source,
		Filter:       filter,
		Deduplicator: dedup,
		Ranker:       ranker,
		Candidates:   store,
		Analyses:     store,
		Orchestrator: orchestrator,
		Plan:         plan,
		Notifier:     notifier,
		TopN:         cfg.Analysis.TopN,
		Concurrency:  cfg.Analysis.Concurrency,
		Logger:       baseLogger.With("component", "pipeline"),
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.pipeline = pipeline
	return a, nil
}

func newScannerRegistry(cfg config.Config, logger *slog.Logger) *scanner.Registry {
	return scanner.NewRegistry(
		parser.NewArxivScanner(nil, logger.With("component", "scanner.arxiv")),
		feeds.NewRSSScanner(nil, logger.With("component", "scanner.rss")),
		hackernews.NewScanner(nil, "", logger.With("component", "scanner.hackernews")),
		github.NewScanner(nil, "", cfg.GitHub.Token, logger.With("component", "scanner.github")),
	)
}

func (a *Application) seenStore(ctx context.Context) (triage.SeenStore, error) {
	switch a.cfg.SeenStore.Backend {
	case "memory":
		return triage.NewMemorySeenStore(), nil
	case "redis":
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", a.cfg.Redis.Addr, err)
		}
		return storage.NewRedisSeenStore(a.redis, a.cfg.Redis.Key), nil
	default:
		return a.store, nil
	}
}

// analysisParts builds the orchestrator and stage plan. A generator that cannot be built
// (usually a missing API key) is recorded instead of failing, so fetch keeps working.
func (a *Application) analysisParts(generator ports.TextGenerator) (*analysis.Orchestrator, analysis.Plan, error) {
	registry := prompts.NewRegistry(a.cfg.LLM.SystemPrompt, a.cfg.Prompts.Templates)

	plan, err := buildPlan(a.cfg.Analysis.Stages)
	if err != nil {
		return nil, analysis.Plan{}, err
	}
	if err := plan.Validate(registry); err != nil {
		return nil, analysis.Plan{}, err
	}

	if generator == nil {
		generator, err = llm.New(a.cfg.LLM, a.logger.With("component", "llm"))
		if err != nil {
			a.analysisErr = fmt.Errorf("text generator unavailable: %w", err)
			a.logger.Warn("analysis disabled", "provider", a.cfg.LLM.Provider, "error", err)
			return nil, plan, nil
		}
	}

	executor, err := analysis.NewStageExecutor(analysis.ExecutorDeps{
		Generator: generator,
		Templates: registry,
		Defaults: ports.GenerationParams{
			Temperature: a.cfg.LLM.Temperature,
			MaxTokens:   a.cfg.LLM.MaxTokens,
		},
		Timeout: a.cfg.Analysis.StageTimeout,
		Logger:  a.logger.With("component", "analysis.executor"),
	})
	if err != nil {
		return nil, analysis.Plan{}, err
	}
	return analysis.NewOrchestrator(executor, a.logger.With("component", "analysis")), plan, nil
}

func buildPlan(stages []config.StageConfig) (analysis.Plan, error) {
	if len(stages) == 0 {
		return analysis.DefaultPlan(), nil
	}
	out := make([]analysis.Stage, 0, len(stages))
	for _, s := range stages {
		out = append(out, analysis.Stage{
			Name:        s.Name,
			Template:    s.Template,
			Optional:    s.Optional,
			Temperature: s.Temperature,
			MaxTokens:   s.MaxTokens,
		})
	}
	return analysis.NewPlan(out...)
}

// Fetch runs triage and stores the ranked candidates.
func (a *Application) Fetch(ctx context.Context) (usecase.TriageReport, error) {
	return a.pipeline.Triage(ctx, a.now())
}

// Generate analyzes up to count top candidates; zero means the configured top N.
func (a *Application) Generate(ctx context.Context, count int) ([]domain.Analysis, error) {
	if a.analysisErr != nil {
		return nil, a.analysisErr
	}
	return a.pipeline.Generate(ctx, count)
}

// Run performs Fetch and Generate once.
func (a *Application) Run(ctx context.Context) ([]domain.Analysis, error) {
	if a.analysisErr != nil {
		return nil, a.analysisErr
	}
	return a.pipeline.ProcessDay(ctx, a.now())
}

// Candidates lists the best stored candidates that still await analysis.
func (a *Application) Candidates(ctx context.Context, limit int) ([]domain.RankedItem, error) {
	return a.store.TopCandidates(ctx, limit)
}

// Schedule runs the pipeline on the configured cron expression until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	if a.analysisErr != nil {
		return a.analysisErr
	}

	driver, err := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(),
		a.logger.With("component", "scheduler"))
	if err != nil {
		return err
	}

	jobs := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := jobs.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("waiting for scheduled runs", "next_run", driver.NextRun())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return jobs.Stop(stopCtx)
}

// Close releases storage connections.
func (a *Application) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

func (a *Application) now() time.Time {
	return time.Now().In(a.cfg.Scheduler.Location())
}
