package repository

import (
	"context"
	"errors"
	"time"

	"stockcast/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createPricePointsTable = `
CREATE TABLE IF NOT EXISTS price_points (
    symbol      TEXT        NOT NULL,
    trade_date  TIMESTAMPTZ NOT NULL,
    open        NUMERIC     NOT NULL,
    high        NUMERIC     NOT NULL,
    low         NUMERIC     NOT NULL,
    close       NUMERIC     NOT NULL,
    volume      NUMERIC     NOT NULL,
    PRIMARY KEY (symbol, trade_date)
);

CREATE INDEX IF NOT EXISTS idx_price_points_symbol_date
    ON price_points (symbol, trade_date DESC);
`

// PgxPool is the slice of pgxpool.Pool the repositories consume.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type PriceRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPriceRepository(pool PgxPool, tracer trace.Tracer) *PriceRepository {
	return &PriceRepository{pool: pool, tracer: tracer}
}

func (r *PriceRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "price-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createPricePointsTable)
	return err
}

func (r *PriceRepository) UpsertPricePoints(ctx context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "price-repo.upsert-price-points")
	defer span.End()

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(
			`INSERT INTO price_points (symbol, trade_date, open, high, low, close, volume)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (symbol, trade_date) DO UPDATE SET
			     open = EXCLUDED.open,
			     high = EXCLUDED.high,
			     low = EXCLUDED.low,
			     close = EXCLUDED.close,
			     volume = EXCLUDED.volume`,
			p.Symbol, domain.Day(p.TradeDate), p.Open, p.High, p.Low, p.Close, p.Volume,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range points {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetHistory returns up to limit daily bars for a symbol in ascending
// trade-date order, ending at the most recent stored bar.
func (r *PriceRepository) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricePoint, error) {
	_, span := r.tracer.Start(ctx, "price-repo.get-history")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, trade_date, open, high, low, close, volume
		 FROM (
		     SELECT symbol, trade_date, open, high, low, close, volume
		     FROM price_points
		     WHERE symbol = $1
		     ORDER BY trade_date DESC
		     LIMIT $2
		 ) recent
		 ORDER BY trade_date ASC`,
		symbol, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPricePoints(rows)
}

// GetHistoryRange returns daily bars between from and to inclusive, in
// ascending trade-date order.
func (r *PriceRepository) GetHistoryRange(ctx context.Context, symbol string, from, to time.Time) ([]*domain.PricePoint, error) {
	_, span := r.tracer.Start(ctx, "price-repo.get-history-range")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, trade_date, open, high, low, close, volume
		 FROM price_points
		 WHERE symbol = $1 AND trade_date >= $2 AND trade_date <= $3
		 ORDER BY trade_date ASC`,
		symbol, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPricePoints(rows)
}

// GetLatest returns the most recent bar for a symbol, or nil when the
// symbol has no stored history.
func (r *PriceRepository) GetLatest(ctx context.Context, symbol string) (*domain.PricePoint, error) {
	_, span := r.tracer.Start(ctx, "price-repo.get-latest")
	defer span.End()

	p := &domain.PricePoint{}
	err := r.pool.QueryRow(ctx,
		`SELECT symbol, trade_date, open, high, low, close, volume
		 FROM price_points
		 WHERE symbol = $1
		 ORDER BY trade_date DESC
		 LIMIT 1`,
		symbol,
	).Scan(&p.Symbol, &p.TradeDate, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.TradeDate = p.TradeDate.UTC()
	return p, nil
}

func collectPricePoints(rows pgx.Rows) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint
	for rows.Next() {
		p := &domain.PricePoint{}
		if err := rows.Scan(&p.Symbol, &p.TradeDate, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, err
		}
		p.TradeDate = p.TradeDate.UTC()
		points = append(points, p)
	}
	return points, rows.Err()
}
