package news

import (
	"context"
	"strings"
	"time"

	"stockcast/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/trace"
)

const createNewsItemsTable = `
CREATE TABLE IF NOT EXISTS news_items (
    id           BIGSERIAL PRIMARY KEY,
    symbol       TEXT NOT NULL,
    source       TEXT NOT NULL,
    source_id    TEXT NOT NULL,
    title        TEXT NOT NULL,
    url          TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ NOT NULL,
    score        DOUBLE PRECISION,
    strength     DOUBLE PRECISION,
    label        TEXT,
    scored_by    TEXT,
    scored_at    TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (symbol, source, source_id)
);
CREATE INDEX IF NOT EXISTS idx_news_items_symbol_published
    ON news_items (symbol, published_at DESC);
`

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Repository struct {
	pool   pool
	tracer trace.Tracer
}

func NewRepository(pool pool, tracer trace.Tracer) *Repository {
	return &Repository{pool: pool, tracer: tracer}
}

func (r *Repository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "news-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createNewsItemsTable)
	return err
}

// UpsertItems inserts fresh headlines and refreshes re-fetched ones.
// Sentiment columns COALESCE to the stored values so a refetch never
// wipes out scores that were already assigned.
func (r *Repository) UpsertItems(ctx context.Context, items []domain.NewsItem) ([]domain.NewsItem, error) {
	if len(items) == 0 {
		return nil, nil
	}
	_, span := r.tracer.Start(ctx, "news-repo.upsert-items")
	defer span.End()

	batch := &pgx.Batch{}
	for _, item := range items {
		var score, strength, label, scoredBy, scoredAt any
		if item.ScoredAt != nil {
			score = item.Score
			strength = item.Strength
			label = item.Label
			scoredBy = item.ScoredBy
			scoredAt = item.ScoredAt.UTC()
		}
		batch.Queue(`
INSERT INTO news_items (
    symbol, source, source_id, title, url, published_at,
    score, strength, label, scored_by, scored_at
) VALUES (
    $1, $2, $3, $4, $5, $6,
    $7, $8, $9, $10, $11
)
ON CONFLICT (symbol, source, source_id) DO UPDATE SET
    title = EXCLUDED.title,
    url = EXCLUDED.url,
    published_at = EXCLUDED.published_at,
    score = COALESCE(EXCLUDED.score, news_items.score),
    strength = COALESCE(EXCLUDED.strength, news_items.strength),
    label = COALESCE(EXCLUDED.label, news_items.label),
    scored_by = COALESCE(EXCLUDED.scored_by, news_items.scored_by),
    scored_at = COALESCE(EXCLUDED.scored_at, news_items.scored_at),
    updated_at = NOW()
RETURNING id, symbol, source, source_id, title, url, published_at,
          score, strength, label, scored_by, scored_at, created_at`,
			normalizeSymbol(item.Symbol),
			item.Source,
			item.SourceID,
			item.Title,
			item.URL,
			item.PublishedAt.UTC(),
			score,
			strength,
			label,
			scoredBy,
			scoredAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	out := make([]domain.NewsItem, 0, len(items))
	for range items {
		item, err := scanNewsItemRow(br.QueryRow())
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *Repository) ListUnscored(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	_, span := r.tracer.Start(ctx, "news-repo.list-unscored")
	defer span.End()

	if limit <= 0 {
		limit = 200
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, symbol, source, source_id, title, url, published_at,
       score, strength, label, scored_by, scored_at, created_at
FROM news_items
WHERE scored_at IS NULL
ORDER BY published_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.NewsItem, 0, limit)
	for rows.Next() {
		item, err := scanNewsItemRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateSentiment(
	ctx context.Context,
	itemID int64,
	score float64,
	strength float64,
	label string,
	scoredBy string,
	scoredAt time.Time,
) error {
	_, span := r.tracer.Start(ctx, "news-repo.update-sentiment")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `
UPDATE news_items
SET score = $2,
    strength = $3,
    label = $4,
    scored_by = $5,
    scored_at = $6,
    updated_at = NOW()
WHERE id = $1`, itemID, score, strength, label, scoredBy, scoredAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetSummary aggregates scored headlines for a symbol over a window.
// It returns nil when no scored rows fall inside the window, which the
// caller treats as "no sentiment available" rather than neutral.
func (r *Repository) GetSummary(ctx context.Context, symbol string, from, to time.Time) (*domain.SentimentSummary, error) {
	_, span := r.tracer.Start(ctx, "news-repo.get-summary")
	defer span.End()

	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, nil
	}

	var avg, strength float64
	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(AVG(score), 0),
       COALESCE(AVG(strength), 0),
       COUNT(*)::INT
FROM news_items
WHERE symbol = $1
  AND scored_at IS NOT NULL
  AND published_at >= $2
  AND published_at <= $3`, symbol, from.UTC(), to.UTC()).Scan(&avg, &strength, &count)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	return &domain.SentimentSummary{
		Symbol:    symbol,
		AsOf:      to.UTC(),
		Average:   avg,
		Strength:  strength,
		Label:     labelFor(avg),
		NewsCount: count,
	}, nil
}

func (r *Repository) ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.NewsItem, error) {
	_, span := r.tracer.Start(ctx, "news-repo.list-by-symbol")
	defer span.End()

	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, symbol, source, source_id, title, url, published_at,
       score, strength, label, scored_by, scored_at, created_at
FROM news_items
WHERE symbol = $1
ORDER BY published_at DESC
LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.NewsItem, 0, limit)
	for rows.Next() {
		item, err := scanNewsItemRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanNewsItemRow(s interface{ Scan(dest ...any) error }) (domain.NewsItem, error) {
	var out domain.NewsItem
	var score pgtype.Float8
	var strength pgtype.Float8
	var label pgtype.Text
	var scoredBy pgtype.Text
	var scoredAt pgtype.Timestamptz

	if err := s.Scan(
		&out.ID,
		&out.Symbol,
		&out.Source,
		&out.SourceID,
		&out.Title,
		&out.URL,
		&out.PublishedAt,
		&score,
		&strength,
		&label,
		&scoredBy,
		&scoredAt,
		&out.CreatedAt,
	); err != nil {
		return domain.NewsItem{}, err
	}

	out.PublishedAt = out.PublishedAt.UTC()
	out.CreatedAt = out.CreatedAt.UTC()
	if score.Valid {
		out.Score = score.Float64
	}
	if strength.Valid {
		out.Strength = strength.Float64
	}
	if label.Valid {
		out.Label = label.String
	}
	if scoredBy.Valid {
		out.ScoredBy = scoredBy.String
	}
	if scoredAt.Valid {
		t := scoredAt.Time.UTC()
		out.ScoredAt = &t
	}
	return out, nil
}

func normalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return ""
	}
	if _, ok := domain.CompanyName[symbol]; !ok {
		return ""
	}
	return symbol
}
