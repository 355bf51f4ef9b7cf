package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ResearchPublisher/internal/domain"
	"ResearchPublisher/internal/scanner"
)

const defaultBaseURL = "https://api.github.com"

// Scanner searches GitHub repositories; stars become the engagement score.
// Options: "query" (search terms), "min_stars", "date_field" (created or pushed), "per_page".
type Scanner struct {
	client  *http.Client
	baseURL string
	token   string
	logger  *slog.Logger
}

var _ scanner.Scanner = (*Scanner)(nil)

// NewScanner builds a scanner; token is optional but raises rate limits.
func NewScanner(client *http.Client, baseURL, token string, logger *slog.Logger) *Scanner {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Scanner{client: client, baseURL: strings.TrimRight(baseURL, "/"), token: token, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *Scanner) Name() string {
	return "github"
}

type searchResponse struct {
	Items []repository `json:"items"`
}

type repository struct {
	FullName    string    `json:"full_name"`
	HTMLURL     string    `json:"html_url"`
	Description string    `json:"description"`
	Stars       int       `json:"stargazers_count"`
	Language    string    `json:"language"`
	Topics      []string  `json:"topics"`
	CreatedAt   time.Time `json:"created_at"`
	PushedAt    time.Time `json:"pushed_at"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// Scan runs a single repository search restricted to activity since req.Since.
func (s *Scanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Item, error) {
	dateField := req.Option("date_field", "created")
	if dateField != "created" && dateField != "pushed" {
		return nil, fmt.Errorf("site %s: date_field must be created or pushed, got %q", req.SiteName, dateField)
	}

	q := strings.TrimSpace(req.Option("query", "llm"))
	if !req.Since.IsZero() {
		q += fmt.Sprintf(" %s:>=%s", dateField, req.Since.UTC().Format(time.DateOnly))
	}
	if stars := req.Option("min_stars", ""); stars != "" {
		q += " stars:>=" + stars
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("sort", "stars")
	params.Set("order", "desc")
	params.Set("per_page", req.Option("per_page", "30"))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search/repositories?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/vnd.github+json")
	httpReq.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search github: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("github returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode github response: %w", err)
	}

	items := make([]domain.Item, 0, len(out.Items))
	for _, repo := range out.Items {
		published := repo.CreatedAt
		if dateField == "pushed" {
			published = repo.PushedAt
		}
		items = append(items, domain.Item{
			ID:              "gh-" + repo.FullName,
			Title:           repo.FullName,
			URL:             repo.HTMLURL,
			Summary:         describe(repo),
			PublishedAt:     published.UTC(),
			Source:          domain.SourceRepository,
			SourcePriority:  req.Priority,
			EngagementScore: float64(repo.Stars),
			Authors:         nonEmpty(repo.Owner.Login),
			Category:        repo.Language,
			Site:            req.SiteName,
		})
	}

	s.debug("github search done", "query", q, "repositories", len(items))
	return items, nil
}

func describe(repo repository) string {
	parts := []string{strings.TrimSpace(repo.Description)}
	if len(repo.Topics) > 0 {
		parts = append(parts, "Topics: "+strings.Join(repo.Topics, ", "))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func nonEmpty(value string) []string {
	if value == "" {
		return nil
	}
	return []string{value}
}

func (s *Scanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
