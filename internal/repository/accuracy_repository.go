package repository

import (
	"context"
	"time"

	"stockcast/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const createAccuracyRecordsTable = `
CREATE TABLE IF NOT EXISTS accuracy_records (
    id              BIGSERIAL PRIMARY KEY,
    symbol          TEXT             NOT NULL,
    bucket_time     TIMESTAMPTZ      NOT NULL,
    evaluated_at    TIMESTAMPTZ      NOT NULL,
    window_days     INT              NOT NULL,
    sample_count    INT              NOT NULL,
    mae             DOUBLE PRECISION NOT NULL,
    rmse            DOUBLE PRECISION NOT NULL,
    mape            DOUBLE PRECISION NOT NULL,
    r2              DOUBLE PRECISION NOT NULL,
    directional_acc DOUBLE PRECISION NOT NULL,
    confidence      DOUBLE PRECISION NOT NULL,
    created_at      TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
    UNIQUE (symbol, bucket_time)
);

CREATE INDEX IF NOT EXISTS idx_accuracy_records_bucket
    ON accuracy_records (bucket_time DESC);
`

const accuracyColumns = `id, symbol, bucket_time, evaluated_at, window_days, sample_count,
          mae, rmse, mape, r2, directional_acc, confidence, created_at, updated_at`

type AccuracyRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewAccuracyRepository(pool PgxPool, tracer trace.Tracer) *AccuracyRepository {
	return &AccuracyRepository{pool: pool, tracer: tracer}
}

func (r *AccuracyRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "accuracy-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createAccuracyRecordsTable)
	return err
}

// Upsert writes one record keyed by (symbol, bucket_time); repeated
// evaluations inside the same hour overwrite rather than append.
func (r *AccuracyRepository) Upsert(ctx context.Context, rec domain.AccuracyRecord) (*domain.AccuracyRecord, error) {
	_, span := r.tracer.Start(ctx, "accuracy-repo.upsert")
	defer span.End()

	row := r.pool.QueryRow(ctx, `
INSERT INTO accuracy_records (
    symbol, bucket_time, evaluated_at, window_days, sample_count,
    mae, rmse, mape, r2, directional_acc, confidence
) VALUES (
    $1, $2, $3, $4, $5,
    $6, $7, $8, $9, $10, $11
)
ON CONFLICT (symbol, bucket_time) DO UPDATE SET
    evaluated_at = EXCLUDED.evaluated_at,
    window_days = EXCLUDED.window_days,
    sample_count = EXCLUDED.sample_count,
    mae = EXCLUDED.mae,
    rmse = EXCLUDED.rmse,
    mape = EXCLUDED.mape,
    r2 = EXCLUDED.r2,
    directional_acc = EXCLUDED.directional_acc,
    confidence = EXCLUDED.confidence,
    updated_at = NOW()
RETURNING `+accuracyColumns,
		rec.Symbol,
		rec.BucketTime.UTC(),
		rec.EvaluatedAt.UTC(),
		rec.WindowDays,
		rec.SampleCount,
		rec.MAE,
		rec.RMSE,
		rec.MAPE,
		rec.R2,
		rec.DirectionalAcc,
		rec.Confidence,
	)
	return scanAccuracyRow(row)
}

// ListBySymbol returns recent records for a symbol, newest bucket first.
func (r *AccuracyRepository) ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.AccuracyRecord, error) {
	_, span := r.tracer.Start(ctx, "accuracy-repo.list-by-symbol")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+accuracyColumns+`
FROM accuracy_records
WHERE symbol = $1
ORDER BY bucket_time DESC
LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.AccuracyRecord, 0, limit)
	for rows.Next() {
		rec, err := scanAccuracyRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// HourlyTrend averages the stored metrics per hour bucket inside
// [from, to], oldest bucket first. Buckets with no records are absent
// rather than zero-filled.
func (r *AccuracyRepository) HourlyTrend(ctx context.Context, from, to time.Time) ([]domain.TrendBucket, error) {
	_, span := r.tracer.Start(ctx, "accuracy-repo.hourly-trend")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT bucket_time,
       AVG(mae) AS avg_mae,
       AVG(mape) AS avg_mape,
       AVG(r2) AS avg_r2,
       AVG(confidence) AS avg_confidence,
       COUNT(DISTINCT symbol)::INT AS symbol_count
FROM accuracy_records
WHERE bucket_time >= $1
  AND bucket_time <= $2
GROUP BY bucket_time
ORDER BY bucket_time ASC`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrendBucket
	for rows.Next() {
		var b domain.TrendBucket
		if err := rows.Scan(&b.HourStart, &b.AvgMAE, &b.AvgMAPE, &b.AvgR2, &b.AvgConfidence, &b.SymbolCount); err != nil {
			return nil, err
		}
		b.HourStart = b.HourStart.UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// LatestPerSymbol returns each symbol's freshest record since the given
// time, ordered by confidence descending for leaderboard assembly.
func (r *AccuracyRepository) LatestPerSymbol(ctx context.Context, since time.Time, limit int) ([]domain.AccuracyRecord, error) {
	_, span := r.tracer.Start(ctx, "accuracy-repo.latest-per-symbol")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+accuracyColumns+`
FROM (
    SELECT DISTINCT ON (symbol) `+accuracyColumns+`
    FROM accuracy_records
    WHERE bucket_time >= $1
    ORDER BY symbol ASC, bucket_time DESC
) latest
ORDER BY confidence DESC, symbol ASC
LIMIT $2`, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.AccuracyRecord, 0, limit)
	for rows.Next() {
		rec, err := scanAccuracyRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanAccuracyRow(s scanner) (*domain.AccuracyRecord, error) {
	var out domain.AccuracyRecord
	if err := s.Scan(
		&out.ID,
		&out.Symbol,
		&out.BucketTime,
		&out.EvaluatedAt,
		&out.WindowDays,
		&out.SampleCount,
		&out.MAE,
		&out.RMSE,
		&out.MAPE,
		&out.R2,
		&out.DirectionalAcc,
		&out.Confidence,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		return nil, err
	}
	out.BucketTime = out.BucketTime.UTC()
	out.EvaluatedAt = out.EvaluatedAt.UTC()
	out.CreatedAt = out.CreatedAt.UTC()
	out.UpdatedAt = out.UpdatedAt.UTC()
	return &out, nil
}
