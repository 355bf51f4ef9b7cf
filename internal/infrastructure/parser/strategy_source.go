package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ResearchPublisher/internal/config"
	"ResearchPublisher/internal/domain"
	"ResearchPublisher/internal/ports"
	"ResearchPublisher/internal/scanner"
)

const (
	userAgent = "ResearchPublisher/1.0"

	// DefaultSiteConcurrency caps how many sites are scanned at once.
	DefaultSiteConcurrency = 4
)

// StrategySource implements ItemSource via registered scanner strategies.
type StrategySource struct {
	registry    *scanner.Registry
	sites       []config.SiteConfig
	lookback    time.Duration
	concurrency int
	logger      *slog.Logger
}

var _ ports.ItemSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
// lookback bounds how far back scanners go; it normally equals the relevance max age.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, lookback time.Duration, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:    reg,
		sites:       sites,
		lookback:    lookback,
		concurrency: DefaultSiteConcurrency,
		logger:      log,
	}
}

// Fetch scans all configured sites concurrently and merges results in config order.
// A site that fails is logged and skipped; only a misconfigured registry is an error.
func (s *StrategySource) Fetch(ctx context.Context, now time.Time) ([]domain.Item, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	since := now.Add(-s.lookback)
	s.debug("fetch", "sites", len(s.sites), "since", since.Format(time.DateOnly))

	perSite := make([][]domain.Item, len(s.sites))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	for i, site := range s.sites {
		group.Go(func() error {
			items, err := s.scanSite(groupCtx, site, since)
			if err != nil {
				s.warn("site scan failed", "site", site.Name, "scanner", site.Scanner, "error", err)
				return nil
			}
			perSite[i] = items
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var aggregated []domain.Item
	for _, items := range perSite {
		aggregated = append(aggregated, items...)
	}

	s.debug("strategy source done", "total_items", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) scanSite(ctx context.Context, site config.SiteConfig, since time.Time) ([]domain.Item, error) {
	strategy, err := s.registry.Resolve(site.Scanner)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	priority := domain.ParsePriority(site.Priority)
	req := scanner.Request{
		Since:      since,
		SiteName:   site.Name,
		Priority:   priority,
		Options:    site.Options,
		Categories: toScannerCategories(site.Categories),
	}

	results, err := strategy.Scan(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scan site %s: %w", site.Name, err)
	}

	for i := range results {
		if results[i].Site == "" {
			results[i].Site = site.Name
		}
		if results[i].SourcePriority == "" {
			results[i].SourcePriority = priority
		}
		results[i] = results[i].WithDefaults()
	}
	s.debug("site produced items", "site", site.Name, "count", len(results))
	return results, nil
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
