package repository

import (
	"context"
	"time"

	"stockcast/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/trace"
)

const createEnsembleForecastsTable = `
CREATE TABLE IF NOT EXISTS ensemble_forecasts (
    id               BIGSERIAL PRIMARY KEY,
    symbol           TEXT             NOT NULL,
    forecast_date    TIMESTAMPTZ      NOT NULL,
    target_date      TIMESTAMPTZ      NOT NULL,
    horizon_days     INT              NOT NULL,
    current_price    DOUBLE PRECISION NOT NULL,
    lstm_price       DOUBLE PRECISION,
    arima_price      DOUBLE PRECISION,
    ma_price         DOUBLE PRECISION,
    combined_price   DOUBLE PRECISION NOT NULL,
    confidence       DOUBLE PRECISION NOT NULL,
    sentiment_avg    DOUBLE PRECISION,
    sentiment_impact DOUBLE PRECISION,
    adjusted_price   DOUBLE PRECISION NOT NULL,
    actual_close     DOUBLE PRECISION,
    created_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
    evaluated_at     TIMESTAMPTZ,
    UNIQUE (symbol, target_date, horizon_days)
);

CREATE INDEX IF NOT EXISTS idx_ensemble_forecasts_symbol_target
    ON ensemble_forecasts (symbol, target_date DESC);
`

const forecastColumns = `id, symbol, forecast_date, target_date, horizon_days,
          current_price, lstm_price, arima_price, ma_price,
          combined_price, confidence, sentiment_avg, sentiment_impact,
          adjusted_price, actual_close, created_at, updated_at, evaluated_at`

type ForecastRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewForecastRepository(pool PgxPool, tracer trace.Tracer) *ForecastRepository {
	return &ForecastRepository{pool: pool, tracer: tracer}
}

func (r *ForecastRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "forecast-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createEnsembleForecastsTable)
	return err
}

// Upsert writes one forecast keyed by (symbol, target_date, horizon_days).
// Re-running a pass for the same key overwrites the previous values in
// place; the write is atomic either way.
func (r *ForecastRepository) Upsert(ctx context.Context, f domain.EnsembleForecast) (*domain.EnsembleForecast, error) {
	_, span := r.tracer.Start(ctx, "forecast-repo.upsert")
	defer span.End()

	row := r.pool.QueryRow(ctx, `
INSERT INTO ensemble_forecasts (
    symbol, forecast_date, target_date, horizon_days,
    current_price, lstm_price, arima_price, ma_price,
    combined_price, confidence, sentiment_avg, sentiment_impact,
    adjusted_price
) VALUES (
    $1, $2, $3, $4,
    $5, $6, $7, $8,
    $9, $10, $11, $12,
    $13
)
ON CONFLICT (symbol, target_date, horizon_days) DO UPDATE SET
    forecast_date = EXCLUDED.forecast_date,
    current_price = EXCLUDED.current_price,
    lstm_price = EXCLUDED.lstm_price,
    arima_price = EXCLUDED.arima_price,
    ma_price = EXCLUDED.ma_price,
    combined_price = EXCLUDED.combined_price,
    confidence = EXCLUDED.confidence,
    sentiment_avg = EXCLUDED.sentiment_avg,
    sentiment_impact = EXCLUDED.sentiment_impact,
    adjusted_price = EXCLUDED.adjusted_price,
    updated_at = NOW()
RETURNING `+forecastColumns,
		f.Symbol,
		domain.Day(f.ForecastDate),
		domain.Day(f.TargetDate),
		f.HorizonDays,
		f.CurrentPrice,
		f.LSTMPrice,
		f.ARIMAPrice,
		f.MAPrice,
		f.CombinedPrice,
		f.Confidence,
		f.SentimentAvg,
		f.SentimentImpact,
		f.AdjustedPrice,
	)
	return scanForecastRow(row)
}

// ListBySymbol returns recent forecasts for a symbol, newest target first.
func (r *ForecastRepository) ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.EnsembleForecast, error) {
	_, span := r.tracer.Start(ctx, "forecast-repo.list-by-symbol")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+forecastColumns+`
FROM ensemble_forecasts
WHERE symbol = $1
ORDER BY target_date DESC, horizon_days ASC
LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.EnsembleForecast, 0, limit)
	for rows.Next() {
		f, err := scanForecastRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// ListLatestPerHorizon returns the freshest forecast for each horizon of
// a symbol, shortest horizon first.
func (r *ForecastRepository) ListLatestPerHorizon(ctx context.Context, symbol string) ([]domain.EnsembleForecast, error) {
	_, span := r.tracer.Start(ctx, "forecast-repo.list-latest-per-horizon")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT `+forecastColumns+`
FROM (
    SELECT DISTINCT ON (horizon_days) `+forecastColumns+`
    FROM ensemble_forecasts
    WHERE symbol = $1
    ORDER BY horizon_days ASC, forecast_date DESC
) latest
ORDER BY horizon_days ASC`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EnsembleForecast
	for rows.Next() {
		f, err := scanForecastRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// ListMatched returns forecasts whose target date falls inside [from, to]
// and has a realized close in price_points, ascending by target date.
// ActualClose is always set on the returned rows.
func (r *ForecastRepository) ListMatched(ctx context.Context, symbol string, from, to time.Time) ([]domain.EnsembleForecast, error) {
	_, span := r.tracer.Start(ctx, "forecast-repo.list-matched")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT ef.id, ef.symbol, ef.forecast_date, ef.target_date, ef.horizon_days,
       ef.current_price, ef.lstm_price, ef.arima_price, ef.ma_price,
       ef.combined_price, ef.confidence, ef.sentiment_avg, ef.sentiment_impact,
       ef.adjusted_price, pp.close::DOUBLE PRECISION, ef.created_at, ef.updated_at, ef.evaluated_at
FROM ensemble_forecasts ef
JOIN price_points pp
  ON pp.symbol = ef.symbol AND pp.trade_date = ef.target_date
WHERE ef.symbol = $1
  AND ef.target_date >= $2
  AND ef.target_date <= $3
ORDER BY ef.target_date ASC, ef.horizon_days ASC`, symbol, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EnsembleForecast
	for rows.Next() {
		f, err := scanForecastRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// ResolveActuals copies realized closes onto forecast rows whose target
// date now has a stored bar. Returns the number of rows resolved.
func (r *ForecastRepository) ResolveActuals(ctx context.Context, symbol string) (int64, error) {
	_, span := r.tracer.Start(ctx, "forecast-repo.resolve-actuals")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `
UPDATE ensemble_forecasts ef
SET actual_close = pp.close::DOUBLE PRECISION,
    evaluated_at = NOW(),
    updated_at = NOW()
FROM price_points pp
WHERE ef.symbol = $1
  AND pp.symbol = ef.symbol
  AND pp.trade_date = ef.target_date
  AND ef.actual_close IS NULL`, symbol)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanForecastRow(s scanner) (*domain.EnsembleForecast, error) {
	var out domain.EnsembleForecast
	var lstm, arima, ma pgtype.Float8
	var sentAvg, sentImpact pgtype.Float8
	var actualClose pgtype.Float8
	var evaluatedAt pgtype.Timestamptz

	if err := s.Scan(
		&out.ID,
		&out.Symbol,
		&out.ForecastDate,
		&out.TargetDate,
		&out.HorizonDays,
		&out.CurrentPrice,
		&lstm,
		&arima,
		&ma,
		&out.CombinedPrice,
		&out.Confidence,
		&sentAvg,
		&sentImpact,
		&out.AdjustedPrice,
		&actualClose,
		&out.CreatedAt,
		&out.UpdatedAt,
		&evaluatedAt,
	); err != nil {
		return nil, err
	}
	out.ForecastDate = out.ForecastDate.UTC()
	out.TargetDate = out.TargetDate.UTC()
	out.CreatedAt = out.CreatedAt.UTC()
	out.UpdatedAt = out.UpdatedAt.UTC()

	if lstm.Valid {
		v := lstm.Float64
		out.LSTMPrice = &v
	}
	if arima.Valid {
		v := arima.Float64
		out.ARIMAPrice = &v
	}
	if ma.Valid {
		v := ma.Float64
		out.MAPrice = &v
	}
	if sentAvg.Valid {
		v := sentAvg.Float64
		out.SentimentAvg = &v
	}
	if sentImpact.Valid {
		v := sentImpact.Float64
		out.SentimentImpact = &v
	}
	if actualClose.Valid {
		v := actualClose.Float64
		out.ActualClose = &v
	}
	if evaluatedAt.Valid {
		t := evaluatedAt.Time.UTC()
		out.EvaluatedAt = &t
	}
	return &out, nil
}
