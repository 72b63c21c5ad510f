package forecaster

import (
	"context"

	"stockcast/internal/domain"

	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/stat"
)

type HistoryReader interface {
	GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricePoint, error)
}

// MovingAverage projects the mean of the last window daily closes flat
// across every horizon. It abstains until a full window has accumulated.
type MovingAverage struct {
	prices HistoryReader
	window int
	tracer trace.Tracer
}

func NewMovingAverage(tracer trace.Tracer, prices HistoryReader, window int) *MovingAverage {
	if window <= 0 {
		window = 20
	}
	return &MovingAverage{prices: prices, window: window, tracer: tracer}
}

func (f *MovingAverage) Source() string {
	return domain.SourceMA
}

func (f *MovingAverage) Predict(ctx context.Context, symbol string, horizonDays int) (*float64, error) {
	_, span := f.tracer.Start(ctx, "moving-average.predict")
	defer span.End()

	history, err := f.prices.GetHistory(ctx, symbol, f.window)
	if err != nil {
		return nil, err
	}
	if len(history) < f.window {
		return nil, nil
	}

	closes := make([]float64, 0, len(history))
	for _, point := range history {
		closes = append(closes, point.Close)
	}
	mean := stat.Mean(closes, nil)
	return &mean, nil
}
