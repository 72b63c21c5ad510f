package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockcast/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Leaderboard entries must come from the trailing day; older records
// are stale and dropped.
const leaderboardWindowHours = 24

type TrendStore interface {
	HourlyTrend(ctx context.Context, from, to time.Time) ([]domain.TrendBucket, error)
	LatestPerSymbol(ctx context.Context, since time.Time, limit int) ([]domain.AccuracyRecord, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

type ReportConfig struct {
	LeaderboardSize int
	CacheTTL        time.Duration
}

// ReportService serves the aggregate views (hourly trend, leaderboard)
// with a short Redis cache in front of the aggregation queries.
type ReportService struct {
	tracer trace.Tracer
	store  TrendStore
	redis  RedisClient
	cfg    ReportConfig
}

func NewReportService(tracer trace.Tracer, store TrendStore, redisClient RedisClient, cfg ReportConfig) *ReportService {
	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = 10
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 60 * time.Second
	}
	return &ReportService{tracer: tracer, store: store, redis: redisClient, cfg: cfg}
}

// Leaderboard ranks symbols by the confidence of their freshest
// accuracy record, best first.
func (s *ReportService) Leaderboard(ctx context.Context, now time.Time) ([]domain.LeaderboardEntry, error) {
	_, span := s.tracer.Start(ctx, "report-service.leaderboard")
	defer span.End()

	const cacheKey = "report:leaderboard"
	var cached []domain.LeaderboardEntry
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	since := now.UTC().Add(-leaderboardWindowHours * time.Hour)
	records, err := s.store.LatestPerSymbol(ctx, since, s.cfg.LeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard records: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(records))
	for i, rec := range records {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:        i + 1,
			Symbol:      rec.Symbol,
			Confidence:  rec.Confidence,
			MAE:         rec.MAE,
			MAPE:        rec.MAPE,
			R2:          rec.R2,
			Tier:        rec.Tier(),
			EvaluatedAt: rec.EvaluatedAt,
		})
	}

	s.writeCache(ctx, cacheKey, entries)
	return entries, nil
}

// Trend returns hourly averages of the accuracy metrics over the
// trailing hours, oldest bucket first.
func (s *ReportService) Trend(ctx context.Context, now time.Time, hours int) ([]domain.TrendBucket, error) {
	_, span := s.tracer.Start(ctx, "report-service.trend")
	defer span.End()

	if hours <= 0 {
		hours = 24
	}

	cacheKey := fmt.Sprintf("report:trend:%dh", hours)
	var cached []domain.TrendBucket
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	to := now.UTC()
	from := to.Add(-time.Duration(hours) * time.Hour)
	buckets, err := s.store.HourlyTrend(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load hourly trend: %w", err)
	}

	s.writeCache(ctx, cacheKey, buckets)
	return buckets, nil
}

func (s *ReportService) readCache(ctx context.Context, key string, dest any) bool {
	if s.redis == nil {
		return false
	}
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache read failed")
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache payload invalid")
		return false
	}
	return true
}

func (s *ReportService) writeCache(ctx context.Context, key string, value any) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.cfg.CacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache write failed")
	}
}
