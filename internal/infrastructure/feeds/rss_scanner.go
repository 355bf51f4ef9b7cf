package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"ResearchPublisher/internal/domain"
	"ResearchPublisher/internal/scanner"
)

const userAgent = "ResearchPublisher/1.0"

// RSSScanner reads blog RSS/Atom feeds; each category URL is one feed.
type RSSScanner struct {
	client *http.Client
	logger *slog.Logger
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client used for feed downloads.
func NewRSSScanner(client *http.Client, logger *slog.Logger) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSScanner{client: client, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan parses every configured feed and keeps entries published since req.Since.
// Entries without a date are kept; the relevance filter decides on them.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Item, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no feeds provided for site %s", req.SiteName)
	}

	parser := gofeed.NewParser()
	parser.Client = s.client
	parser.UserAgent = userAgent

	var items []domain.Item
	for _, feedCfg := range req.Categories {
		feed, err := parser.ParseURLWithContext(feedCfg.URL, ctx)
		if err != nil {
			return nil, fmt.Errorf("parse feed %s: %w", feedCfg.URL, err)
		}

		kept := 0
		for _, entry := range feed.Items {
			item, ok := toItem(entry, req, feedCfg.Name)
			if !ok {
				continue
			}
			if !item.PublishedAt.IsZero() && item.PublishedAt.Before(req.Since) {
				continue
			}
			items = append(items, item)
			kept++
		}
		s.debug("feed parsed", "feed", feed.Title, "entries", len(feed.Items), "kept", kept)
	}
	return items, nil
}

func toItem(entry *gofeed.Item, req scanner.Request, category string) (domain.Item, bool) {
	if entry == nil || strings.TrimSpace(entry.Title) == "" || entry.Link == "" {
		return domain.Item{}, false
	}

	var published time.Time
	switch {
	case entry.PublishedParsed != nil:
		published = entry.PublishedParsed.UTC()
	case entry.UpdatedParsed != nil:
		published = entry.UpdatedParsed.UTC()
	}

	var authors []string
	for _, person := range entry.Authors {
		if person != nil && person.Name != "" {
			authors = append(authors, person.Name)
		}
	}

	id := entry.GUID
	if id == "" {
		id = entry.Link
	}

	summary := entry.Description
	if summary == "" {
		summary = entry.Content
	}

	return domain.Item{
		ID:             id,
		Title:          strings.TrimSpace(entry.Title),
		URL:            entry.Link,
		Summary:        plainText(summary),
		PublishedAt:    published,
		Source:         domain.SourceBlog,
		SourcePriority: req.Priority,
		Authors:        authors,
		Category:       category,
		Site:           req.SiteName,
	}, true
}

// plainText strips markup from feed descriptions.
func plainText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return strings.TrimSpace(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func (s *RSSScanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
