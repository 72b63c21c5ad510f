package forecaster

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockcast/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type historyStub struct {
	points []*domain.PricePoint
	err    error
}

func (s historyStub) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricePoint, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.points) {
		return append([]*domain.PricePoint(nil), s.points[:limit]...), nil
	}
	return append([]*domain.PricePoint(nil), s.points...), nil
}

func TestMovingAveragePredict(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	points := []*domain.PricePoint{
		{Symbol: "AAPL", TradeDate: day.AddDate(0, 0, -2), Close: 100},
		{Symbol: "AAPL", TradeDate: day.AddDate(0, 0, -1), Close: 110},
		{Symbol: "AAPL", TradeDate: day, Close: 120},
	}
	f := NewMovingAverage(trace.NewNoopTracerProvider().Tracer("test"), historyStub{points: points}, 3)

	price, err := f.Predict(context.Background(), "AAPL", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price == nil || *price != 110 {
		t.Fatalf("expected mean close 110, got %v", price)
	}
	if f.Source() != domain.SourceMA {
		t.Fatalf("unexpected source %s", f.Source())
	}
}

func TestMovingAverageAbstainsOnShortHistory(t *testing.T) {
	points := []*domain.PricePoint{
		{Symbol: "AAPL", Close: 100},
		{Symbol: "AAPL", Close: 110},
	}
	f := NewMovingAverage(trace.NewNoopTracerProvider().Tracer("test"), historyStub{points: points}, 20)

	price, err := f.Predict(context.Background(), "AAPL", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != nil {
		t.Fatalf("expected abstain, got %v", *price)
	}
}

func TestMovingAveragePropagatesStoreError(t *testing.T) {
	f := NewMovingAverage(trace.NewNoopTracerProvider().Tracer("test"), historyStub{err: errors.New("db down")}, 20)

	if _, err := f.Predict(context.Background(), "AAPL", 1); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

var _ Forecaster = (*MovingAverage)(nil)
var _ Forecaster = (*ModelClient)(nil)
