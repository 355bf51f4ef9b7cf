package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ResearchPublisher/internal/domain"
	"ResearchPublisher/internal/scanner"
)

const (
	defaultBaseURL = "https://hn.algolia.com/api/v1"
	itemURL        = "https://news.ycombinator.com/item?id="
)

// Scanner queries the Algolia Hacker News search API for recent stories.
// Options: "query" (comma separated, one request each), "min_points", "hits".
type Scanner struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

var _ scanner.Scanner = (*Scanner)(nil)

// NewScanner builds a scanner; an empty baseURL uses the public Algolia endpoint.
func NewScanner(client *http.Client, baseURL string, logger *slog.Logger) *Scanner {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Scanner{client: client, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *Scanner) Name() string {
	return "hackernews"
}

type searchResponse struct {
	Hits []hit `json:"hits"`
}

type hit struct {
	ObjectID   string `json:"objectID"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Author     string `json:"author"`
	Points     int    `json:"points"`
	CreatedAtI int64  `json:"created_at_i"`
	StoryText  string `json:"story_text"`
}

// Scan runs one search per configured query; points become the engagement score.
func (s *Scanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Item, error) {
	queries := splitList(req.Option("query", ""))
	if len(queries) == 0 {
		queries = []string{""}
	}

	minPoints, err := strconv.Atoi(req.Option("min_points", "0"))
	if err != nil {
		return nil, fmt.Errorf("site %s: invalid min_points: %w", req.SiteName, err)
	}
	hits := req.Option("hits", "50")

	seen := map[string]struct{}{}
	var items []domain.Item
	for _, q := range queries {
		resp, err := s.search(ctx, q, req.Since, minPoints, hits)
		if err != nil {
			return nil, err
		}
		for _, h := range resp.Hits {
			if _, dup := seen[h.ObjectID]; dup || strings.TrimSpace(h.Title) == "" {
				continue
			}
			seen[h.ObjectID] = struct{}{}
			items = append(items, toItem(h, req))
		}
		s.debug("hn search done", "query", q, "hits", len(resp.Hits))
	}
	return items, nil
}

func (s *Scanner) search(ctx context.Context, query string, since time.Time, minPoints int, hits string) (searchResponse, error) {
	filters := []string{}
	if !since.IsZero() {
		filters = append(filters, "created_at_i>"+strconv.FormatInt(since.Unix(), 10))
	}
	if minPoints > 0 {
		filters = append(filters, "points>="+strconv.Itoa(minPoints))
	}

	params := url.Values{}
	params.Set("tags", "story")
	params.Set("hitsPerPage", hits)
	if query != "" {
		params.Set("query", query)
	}
	if len(filters) > 0 {
		params.Set("numericFilters", strings.Join(filters, ","))
	}

	endpoint := s.baseURL + "/search_by_date?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return searchResponse{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return searchResponse{}, fmt.Errorf("search hackernews: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return searchResponse{}, fmt.Errorf("hackernews returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return searchResponse{}, fmt.Errorf("decode hackernews response: %w", err)
	}
	return out, nil
}

func toItem(h hit, req scanner.Request) domain.Item {
	link := h.URL
	if link == "" {
		link = itemURL + h.ObjectID
	}

	var published time.Time
	if h.CreatedAtI > 0 {
		published = time.Unix(h.CreatedAtI, 0).UTC()
	}

	var authors []string
	if h.Author != "" {
		authors = []string{h.Author}
	}

	return domain.Item{
		ID:              "hn-" + h.ObjectID,
		Title:           strings.TrimSpace(h.Title),
		URL:             link,
		Summary:         strings.TrimSpace(h.StoryText),
		PublishedAt:     published,
		Source:          domain.SourceForumStory,
		SourcePriority:  req.Priority,
		EngagementScore: float64(h.Points),
		Authors:         authors,
		Site:            req.SiteName,
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s *Scanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
