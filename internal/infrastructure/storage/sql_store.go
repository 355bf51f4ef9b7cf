package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"ResearchPublisher/internal/domain"
	"ResearchPublisher/internal/ports"
	"ResearchPublisher/internal/triage"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS seen_urls (
	url        TEXT PRIMARY KEY,
	first_seen TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS candidates (
	item_id   TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	url       TEXT NOT NULL,
	score     DOUBLE PRECISION NOT NULL,
	breakdown TEXT NOT NULL,
	item      TEXT NOT NULL,
	status    TEXT NOT NULL,
	ranked_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS analyses (
	run_id          TEXT PRIMARY KEY,
	item_id         TEXT NOT NULL,
	overall_success INTEGER NOT NULL,
	analysis        TEXT NOT NULL,
	started_at      TEXT NOT NULL,
	finished_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidates_score ON candidates(score);
CREATE INDEX IF NOT EXISTS idx_analyses_item ON analyses(item_id);
`

// SQLStore persists seen URLs, ranked candidates and analyses in sqlite or Postgres.
type SQLStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ triage.SeenStore          = (*SQLStore)(nil)
	_ ports.SeenURLStore        = (*SQLStore)(nil)
	_ ports.CandidateRepository = (*SQLStore)(nil)
	_ ports.AnalysisRepository  = (*SQLStore)(nil)
)

// Open connects with the given driver and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var (
		driverName  string
		placeholder sq.PlaceholderFormat
	)
	switch driver {
	case DriverSQLite, "":
		driverName, placeholder = "sqlite", sq.Question
	case DriverPostgres:
		driverName, placeholder = "pgx", sq.Dollar
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	store := NewSQLStore(db, placeholder)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an existing connection.
func NewSQLStore(db *sql.DB, placeholder sq.PlaceholderFormat) *SQLStore {
	return &SQLStore{db: db, sb: sq.StatementBuilder.PlaceholderFormat(placeholder)}
}

// Migrate creates missing tables.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Contains reports whether the normalized URL was stored before.
func (s *SQLStore) Contains(ctx context.Context, url string) (bool, error) {
	query, args, err := s.sb.Select("1").From("seen_urls").Where(sq.Eq{"url": url}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build seen query: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query seen url: %w", err)
	}
	return true, nil
}

// Add records the URL; adding it twice is a no-op.
func (s *SQLStore) Add(ctx context.Context, url string) error {
	query, args, err := s.sb.Insert("seen_urls").
		Columns("url", "first_seen").
		Values(url, formatTime(time.Now())).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build seen insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert seen url: %w", err)
	}
	return nil
}

// SaveCandidates upserts ranked items in one transaction.
func (s *SQLStore) SaveCandidates(ctx context.Context, items []domain.RankedItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, ranked := range items {
		itemJSON, err := json.Marshal(ranked.Item)
		if err != nil {
			return fmt.Errorf("marshal item %s: %w", ranked.Item.ID, err)
		}
		breakdownJSON, err := json.Marshal(ranked.Breakdown)
		if err != nil {
			return fmt.Errorf("marshal breakdown %s: %w", ranked.Item.ID, err)
		}

		query, args, err := s.sb.Insert("candidates").
			Columns("item_id", "title", "url", "score", "breakdown", "item", "status", "ranked_at").
			Values(ranked.Item.ID, ranked.Item.Title, ranked.Item.URL, ranked.Score,
				string(breakdownJSON), string(itemJSON), string(domain.StatusRanked), formatTime(ranked.RankedAt)).
			Suffix(`ON CONFLICT (item_id) DO UPDATE SET
				score = EXCLUDED.score,
				breakdown = EXCLUDED.breakdown,
				item = EXCLUDED.item,
				ranked_at = EXCLUDED.ranked_at`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build candidate upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert candidate %s: %w", ranked.Item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit candidates: %w", err)
	}
	return nil
}

// TopCandidates returns the best-scored candidates that have no saved analysis yet.
func (s *SQLStore) TopCandidates(ctx context.Context, limit int) ([]domain.RankedItem, error) {
	if limit <= 0 {
		return nil, nil
	}

	query, args, err := s.sb.Select("c.item", "c.score", "c.breakdown", "c.ranked_at").
		From("candidates c").
		LeftJoin("analyses a ON a.item_id = c.item_id").
		Where(sq.Eq{"a.item_id": nil}).
		OrderBy("c.score DESC", "c.ranked_at DESC", "c.item_id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidates query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var result []domain.RankedItem
	for rows.Next() {
		var (
			itemJSON, breakdownJSON, rankedAt string
			ranked                            domain.RankedItem
		)
		if err := rows.Scan(&itemJSON, &ranked.Score, &breakdownJSON, &rankedAt); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if err := json.Unmarshal([]byte(itemJSON), &ranked.Item); err != nil {
			return nil, fmt.Errorf("decode candidate item: %w", err)
		}
		if err := json.Unmarshal([]byte(breakdownJSON), &ranked.Breakdown); err != nil {
			return nil, fmt.Errorf("decode candidate breakdown: %w", err)
		}
		if ranked.RankedAt, err = parseTime(rankedAt); err != nil {
			return nil, fmt.Errorf("decode ranked_at: %w", err)
		}
		result = append(result, ranked)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// MarkStatus moves the given candidates to status.
func (s *SQLStore) MarkStatus(ctx context.Context, ids []string, status domain.ProcessingStatus) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := s.sb.Update("candidates").
		Set("status", string(status)).
		Where(sq.Eq{"item_id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build status update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update candidate status: %w", err)
	}
	return nil
}

// CandidateStatus returns the stored status of one candidate.
func (s *SQLStore) CandidateStatus(ctx context.Context, id string) (domain.ProcessingStatus, error) {
	query, args, err := s.sb.Select("status").From("candidates").Where(sq.Eq{"item_id": id}).ToSql()
	if err != nil {
		return "", fmt.Errorf("build status query: %w", err)
	}

	var status string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&status); err != nil {
		return "", fmt.Errorf("query candidate status: %w", err)
	}
	return domain.ProcessingStatus(status), nil
}

// AlreadyAnalyzed returns the subset of ids that have at least one stored analysis.
func (s *SQLStore) AlreadyAnalyzed(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := s.sb.Select("DISTINCT item_id").From("analyses").Where(sq.Eq{"item_id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build analyzed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyzed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// SaveAnalysis stores the full analysis snapshot keyed by run id.
func (s *SQLStore) SaveAnalysis(ctx context.Context, analysis domain.Analysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	success := 0
	if analysis.OverallSuccess {
		success = 1
	}

	query, args, err := s.sb.Insert("analyses").
		Columns("run_id", "item_id", "overall_success", "analysis", "started_at", "finished_at").
		Values(analysis.RunID, analysis.Item.ID, success, string(payload),
			formatTime(analysis.StartedAt), formatTime(analysis.FinishedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build analysis insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// LatestAnalysis returns the most recent stored analysis for an item.
func (s *SQLStore) LatestAnalysis(ctx context.Context, itemID string) (domain.Analysis, bool, error) {
	query, args, err := s.sb.Select("analysis").
		From("analyses").
		Where(sq.Eq{"item_id": itemID}).
		OrderBy("finished_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Analysis{}, false, fmt.Errorf("build analysis query: %w", err)
	}

	var payload string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.Analysis{}, false, nil
	case err != nil:
		return domain.Analysis{}, false, fmt.Errorf("query analysis: %w", err)
	}

	var analysis domain.Analysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return domain.Analysis{}, false, fmt.Errorf("decode analysis: %w", err)
	}
	return analysis, true, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
