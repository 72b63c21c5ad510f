package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"stockcast/internal/domain"

	"github.com/redis/go-redis/v9"
)

func TestLeaderboardRanksAndTiers(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	store := &fakeTrendStore{records: []domain.AccuracyRecord{
		{Symbol: "NVDA", Confidence: 92, MAE: 1.2, MAPE: 1.1, R2: 0.95, EvaluatedAt: now},
		{Symbol: "AAPL", Confidence: 61, MAE: 4.0, MAPE: 3.8, R2: 0.75, EvaluatedAt: now},
		{Symbol: "TSLA", Confidence: 20, MAE: 14.0, MAPE: 12.0, R2: 0.1, EvaluatedAt: now},
	}}
	cache := newMemoryRedis()
	svc := NewReportService(testTracer, store, cache, ReportConfig{})

	entries, err := svc.Leaderboard(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Rank != 1 || entries[0].Symbol != "NVDA" || entries[0].Tier != domain.TierExcellent {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Rank != 2 || entries[1].Tier != domain.TierGood {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
	if entries[2].Rank != 3 || entries[2].Tier != domain.TierPoor {
		t.Fatalf("unexpected third entry: %+v", entries[2])
	}
	if _, ok := cache.data["report:leaderboard"]; !ok {
		t.Fatal("expected leaderboard cached after miss")
	}
	wantSince := now.Add(-leaderboardWindowHours * time.Hour)
	if !store.gotSince.Equal(wantSince) {
		t.Fatalf("expected trailing-day cutoff %v, got %v", wantSince, store.gotSince)
	}
}

func TestLeaderboardServedFromCache(t *testing.T) {
	now := time.Now().UTC()
	cached := []domain.LeaderboardEntry{{Rank: 1, Symbol: "MSFT", Tier: domain.TierGood}}
	payload, err := json.Marshal(cached)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	cache := newMemoryRedis()
	cache.data["report:leaderboard"] = payload
	store := &fakeTrendStore{}
	svc := NewReportService(testTracer, store, cache, ReportConfig{})

	entries, err := svc.Leaderboard(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Symbol != "MSFT" {
		t.Fatalf("expected cached entries, got %+v", entries)
	}
	if store.latestCalls != 0 {
		t.Fatalf("expected store untouched on cache hit, got %d calls", store.latestCalls)
	}
}

func TestLeaderboardIgnoresCorruptCache(t *testing.T) {
	now := time.Now().UTC()
	cache := newMemoryRedis()
	cache.data["report:leaderboard"] = []byte("{not json")
	store := &fakeTrendStore{records: []domain.AccuracyRecord{
		{Symbol: "AAPL", Confidence: 50, EvaluatedAt: now},
	}}
	svc := NewReportService(testTracer, store, cache, ReportConfig{})

	entries, err := svc.Leaderboard(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || store.latestCalls != 1 {
		t.Fatalf("expected fallthrough to store, got %+v calls=%d", entries, store.latestCalls)
	}
}

func TestTrendDefaultsWindowAndCaches(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	store := &fakeTrendStore{buckets: []domain.TrendBucket{
		{HourStart: now.Add(-2 * time.Hour), AvgMAE: 3.2, SymbolCount: 4},
	}}
	cache := newMemoryRedis()
	svc := NewReportService(testTracer, store, cache, ReportConfig{})

	buckets, err := svc.Trend(context.Background(), now, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	if !store.gotFrom.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("expected default 24h window, got from=%v", store.gotFrom)
	}
	if !store.gotTo.Equal(now) {
		t.Fatalf("expected window end at now, got %v", store.gotTo)
	}
	if _, ok := cache.data["report:trend:24h"]; !ok {
		t.Fatal("expected trend cached under hour keyed entry")
	}

	if _, err := svc.Trend(context.Background(), now, 0); err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
	if store.trendCalls != 1 {
		t.Fatalf("expected second call served from cache, got %d store calls", store.trendCalls)
	}
}

func TestReportServiceWorksWithoutRedis(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeTrendStore{records: []domain.AccuracyRecord{
		{Symbol: "AAPL", Confidence: 55, EvaluatedAt: now},
	}}
	svc := NewReportService(testTracer, store, nil, ReportConfig{})

	entries, err := svc.Leaderboard(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected entries without cache, got %+v", entries)
	}
}

func TestLeaderboardHonorsConfiguredSize(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeTrendStore{}
	svc := NewReportService(testTracer, store, nil, ReportConfig{LeaderboardSize: 3})

	if _, err := svc.Leaderboard(context.Background(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.gotLimit != 3 {
		t.Fatalf("expected limit 3 passed to store, got %d", store.gotLimit)
	}
}

type fakeTrendStore struct {
	records     []domain.AccuracyRecord
	buckets     []domain.TrendBucket
	latestCalls int
	trendCalls  int
	gotSince    time.Time
	gotLimit    int
	gotFrom     time.Time
	gotTo       time.Time
}

func (f *fakeTrendStore) HourlyTrend(ctx context.Context, from, to time.Time) ([]domain.TrendBucket, error) {
	f.trendCalls++
	f.gotFrom = from
	f.gotTo = to
	return append([]domain.TrendBucket(nil), f.buckets...), nil
}

func (f *fakeTrendStore) LatestPerSymbol(ctx context.Context, since time.Time, limit int) ([]domain.AccuracyRecord, error) {
	f.latestCalls++
	f.gotSince = since
	f.gotLimit = limit
	return append([]domain.AccuracyRecord(nil), f.records...), nil
}

type memoryRedis struct {
	data   map[string][]byte
	setErr error
	getErr error
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: make(map[string][]byte)}
}

func (m *memoryRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if m.setErr != nil {
		return redis.NewStatusResult("", m.setErr)
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = v
	case string:
		m.data[key] = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return redis.NewStatusResult("", err)
		}
		m.data[key] = b
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

var (
	_ TrendStore  = (*fakeTrendStore)(nil)
	_ RedisClient = (*memoryRedis)(nil)
)
