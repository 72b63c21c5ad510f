package news

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"stockcast/internal/domain"
	"stockcast/internal/provider"

	"go.opentelemetry.io/otel/trace"
)

func TestRunCycleIngestsAndScores(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	store := &newsStoreStub{}
	reader := headlineReaderStub{bySymbol: map[string][]provider.Headline{
		"AAPL": {
			{Source: "rss", SourceID: "a1", Title: "Apple beats estimates", PublishedAt: now.Add(-time.Hour)},
			{Source: "rss", SourceID: "a2", Title: "Supplier probe widens", PublishedAt: now.Add(-2 * time.Hour)},
		},
	}}
	svc := NewService(
		trace.NewNoopTracerProvider().Tracer("test"),
		store,
		NewScorer(nil, 10),
		reader,
		Config{Symbols: []string{"AAPL"}},
	)

	res, err := svc.RunCycle(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ItemsIngested != 2 {
		t.Fatalf("expected 2 ingested, got %d", res.ItemsIngested)
	}
	if res.ItemsScored != 2 {
		t.Fatalf("expected 2 scored, got %d", res.ItemsScored)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(store.updates) != 2 {
		t.Fatalf("expected 2 sentiment updates, got %d", len(store.updates))
	}
	if !store.updates[0].scoredAt.Equal(now) {
		t.Fatalf("expected scoredAt pinned to cycle time, got %v", store.updates[0].scoredAt)
	}
}

func TestRunCycleKeepsGoingOnFeedError(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	store := &newsStoreStub{}
	reader := headlineReaderStub{
		bySymbol: map[string][]provider.Headline{
			"MSFT": {{Source: "rss", SourceID: "m1", Title: "Microsoft rally continues", PublishedAt: now}},
		},
		errFor: map[string]error{"AAPL": errors.New("feed timeout")},
	}
	svc := NewService(
		trace.NewNoopTracerProvider().Tracer("test"),
		store,
		NewScorer(nil, 10),
		reader,
		Config{Symbols: []string{"AAPL", "MSFT"}},
	)

	res, err := svc.RunCycle(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if res.ItemsIngested != 1 {
		t.Fatalf("expected only MSFT headline ingested, got %d", res.ItemsIngested)
	}
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "feed:AAPL") {
		t.Fatalf("expected one feed error for AAPL, got %v", res.Errors)
	}
}

func TestRunCycleRequiresStore(t *testing.T) {
	svc := NewService(trace.NewNoopTracerProvider().Tracer("test"), nil, nil, nil, Config{})
	if _, err := svc.RunCycle(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error when store is missing")
	}
}

func TestSummaryUsesLookbackWindow(t *testing.T) {
	asOf := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	store := &newsStoreStub{summary: &domain.SentimentSummary{Symbol: "AAPL", Average: 0.4, NewsCount: 3}}
	svc := NewService(
		trace.NewNoopTracerProvider().Tracer("test"),
		store,
		NewScorer(nil, 10),
		nil,
		Config{LookbackHours: 48},
	)

	got, err := svc.Summary(context.Background(), "AAPL", asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.NewsCount != 3 {
		t.Fatalf("expected stub summary back, got %+v", got)
	}
	wantFrom := asOf.Add(-48 * time.Hour)
	if !store.gotFrom.Equal(wantFrom) || !store.gotTo.Equal(asOf) {
		t.Fatalf("expected window [%v, %v], got [%v, %v]", wantFrom, asOf, store.gotFrom, store.gotTo)
	}
}

type sentimentUpdate struct {
	itemID   int64
	score    float64
	strength float64
	label    string
	scoredBy string
	scoredAt time.Time
}

type newsStoreStub struct {
	itemSeq  int64
	upserted []domain.NewsItem
	updates  []sentimentUpdate
	summary  *domain.SentimentSummary
	gotFrom  time.Time
	gotTo    time.Time
}

func (s *newsStoreStub) UpsertItems(ctx context.Context, items []domain.NewsItem) ([]domain.NewsItem, error) {
	out := make([]domain.NewsItem, len(items))
	for i := range items {
		s.itemSeq++
		out[i] = items[i]
		out[i].ID = s.itemSeq
	}
	s.upserted = append(s.upserted, out...)
	return out, nil
}

func (s *newsStoreStub) ListUnscored(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	return append([]domain.NewsItem(nil), s.upserted...), nil
}

func (s *newsStoreStub) UpdateSentiment(ctx context.Context, itemID int64, score float64, strength float64, label string, scoredBy string, scoredAt time.Time) error {
	s.updates = append(s.updates, sentimentUpdate{itemID, score, strength, label, scoredBy, scoredAt})
	return nil
}

func (s *newsStoreStub) GetSummary(ctx context.Context, symbol string, from, to time.Time) (*domain.SentimentSummary, error) {
	s.gotFrom = from
	s.gotTo = to
	return s.summary, nil
}

type headlineReaderStub struct {
	bySymbol map[string][]provider.Headline
	errFor   map[string]error
}

func (s headlineReaderStub) FetchHeadlines(ctx context.Context, symbol string, maxItems int) ([]provider.Headline, error) {
	if err := s.errFor[symbol]; err != nil {
		return nil, err
	}
	return append([]provider.Headline(nil), s.bySymbol[symbol]...), nil
}

var _ Store = (*newsStoreStub)(nil)
var _ HeadlineReader = (headlineReaderStub{})
