package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"stockcast/internal/domain"
	"stockcast/internal/ensemble"
	"stockcast/internal/forecaster"
	"stockcast/internal/metrics"
	"stockcast/internal/sentiment"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type PriceStore interface {
	GetLatest(ctx context.Context, symbol string) (*domain.PricePoint, error)
}

type ForecastStore interface {
	Upsert(ctx context.Context, forecast domain.EnsembleForecast) (*domain.EnsembleForecast, error)
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.EnsembleForecast, error)
	ListLatestPerHorizon(ctx context.Context, symbol string) ([]domain.EnsembleForecast, error)
}

type SentimentReader interface {
	Summary(ctx context.Context, symbol string, asOf time.Time) (*domain.SentimentSummary, error)
}

type ForecastConfig struct {
	Symbols        []string
	Horizons       []int
	WorkerCount    int
	StorageRetries int
}

// ForecastService runs the ensemble pipeline: per-source predictions,
// the weighted combination, the sentiment adjustment, and persistence.
type ForecastService struct {
	tracer      trace.Tracer
	prices      PriceStore
	forecasts   ForecastStore
	sentiment   SentimentReader
	forecasters []forecaster.Forecaster
	cfg         ForecastConfig
}

func NewForecastService(
	tracer trace.Tracer,
	prices PriceStore,
	forecasts ForecastStore,
	sentimentReader SentimentReader,
	forecasters []forecaster.Forecaster,
	cfg ForecastConfig,
) *ForecastService {
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = append([]string(nil), domain.SupportedSymbols...)
	}
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = append([]int(nil), domain.DefaultHorizons...)
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.StorageRetries <= 0 {
		cfg.StorageRetries = 3
	}
	return &ForecastService{
		tracer:      tracer,
		prices:      prices,
		forecasts:   forecasts,
		sentiment:   sentimentReader,
		forecasters: forecasters,
		cfg:         cfg,
	}
}

// RunForecastPass forecasts every configured symbol across all horizons.
// Symbols run concurrently under a bounded pool; one symbol failing
// never stops the others.
func (s *ForecastService) RunForecastPass(ctx context.Context, now time.Time) (domain.RunResult, error) {
	ctx, span := s.tracer.Start(ctx, "forecast-service.run-pass")
	defer span.End()

	if s.prices == nil || s.forecasts == nil {
		return domain.RunResult{}, fmt.Errorf("forecast service dependencies are not initialized")
	}

	now = now.UTC()
	start := time.Now()
	result := domain.RunResult{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", result.RunID).Logger()
	logger.Info().Int("symbols", len(s.cfg.Symbols)).Ints("horizons", s.cfg.Horizons).Msg("forecast pass started")

	var mu sync.Mutex
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.cfg.WorkerCount)

	for _, symbol := range s.cfg.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				mu.Lock()
				result.Failed++
				result.Errors = append(result.Errors, symbol+": "+ctx.Err().Error())
				mu.Unlock()
				return
			}

			stored, err := s.forecastSymbol(ctx, logger, symbol, now)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				result.Errors = append(result.Errors, symbol+": "+err.Error())
				metrics.SymbolsProcessed.WithLabelValues("forecast", "failed").Inc()
				logger.Error().Err(err).Str("symbol", symbol).Msg("symbol failed")
			case stored == 0:
				result.Skipped++
				metrics.SymbolsProcessed.WithLabelValues("forecast", "skipped").Inc()
			default:
				result.Processed++
				metrics.SymbolsProcessed.WithLabelValues("forecast", "processed").Inc()
			}
		}(symbol)
	}
	wg.Wait()

	metrics.ObserveRun("forecast", start, nil)
	logger.Info().
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("took", time.Since(start)).
		Msg("forecast pass finished")
	return result, nil
}

// forecastSymbol returns how many horizon rows were stored. Zero with a
// nil error means the symbol was skipped for lack of data.
func (s *ForecastService) forecastSymbol(ctx context.Context, logger zerolog.Logger, symbol string, now time.Time) (int, error) {
	ctx, span := s.tracer.Start(ctx, "forecast-service.forecast-symbol")
	defer span.End()

	latest, err := s.prices.GetLatest(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("load latest close: %w", err)
	}
	if latest == nil {
		logger.Debug().Str("symbol", symbol).Msg("no price history, symbol skipped")
		return 0, nil
	}
	currentPrice := latest.Close
	if math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) || currentPrice <= 0 {
		return 0, fmt.Errorf("current price %v is not usable", currentPrice)
	}

	var summary *domain.SentimentSummary
	if s.sentiment != nil {
		summary, err = s.sentiment.Summary(ctx, symbol, now)
		if err != nil {
			logger.Warn().Err(err).Str("symbol", symbol).Msg("sentiment unavailable, forecasting without it")
			summary = nil
		}
	}
	if err := sentiment.Validate(summary); err != nil {
		return 0, fmt.Errorf("sentiment summary: %w", err)
	}

	stored := 0
	for _, horizon := range s.cfg.Horizons {
		set := s.collectForecasts(ctx, logger, symbol, horizon)
		comb := ensemble.Combine(set, currentPrice)
		if comb == nil {
			logger.Debug().Str("symbol", symbol).Int("horizon_days", horizon).Msg("every source abstained for horizon")
			continue
		}

		adj := sentiment.Adjust(comb.Price, currentPrice, summary)
		row := domain.EnsembleForecast{
			Symbol:        symbol,
			ForecastDate:  now,
			TargetDate:    domain.Day(now).AddDate(0, 0, horizon),
			HorizonDays:   horizon,
			CurrentPrice:  currentPrice,
			LSTMPrice:     set.LSTM,
			ARIMAPrice:    set.ARIMA,
			MAPrice:       set.MA,
			CombinedPrice: comb.Price,
			Confidence:    comb.Confidence,
			AdjustedPrice: adj.Price,
		}
		if summary != nil && summary.NewsCount > 0 {
			avg := adj.Applied
			impact := adj.Impact
			row.SentimentAvg = &avg
			row.SentimentImpact = &impact
		}

		if _, err := retryStorage(ctx, s.cfg.StorageRetries, func() (*domain.EnsembleForecast, error) {
			return s.forecasts.Upsert(ctx, row)
		}); err != nil {
			return stored, fmt.Errorf("store horizon %d: %w", horizon, err)
		}
		metrics.SetCombinedPrice(symbol, horizon, comb.Price)
		stored++
	}
	return stored, nil
}

func (s *ForecastService) collectForecasts(ctx context.Context, logger zerolog.Logger, symbol string, horizonDays int) ensemble.ForecastSet {
	var set ensemble.ForecastSet
	for _, f := range s.forecasters {
		price, err := f.Predict(ctx, symbol, horizonDays)
		if err != nil {
			logger.Warn().Err(err).
				Str("symbol", symbol).
				Str("source", f.Source()).
				Int("horizon_days", horizonDays).
				Msg("forecaster failed, slot left empty")
			continue
		}
		if price == nil {
			continue
		}
		switch f.Source() {
		case domain.SourceLSTM:
			set.LSTM = price
		case domain.SourceARIMA:
			set.ARIMA = price
		case domain.SourceMA:
			set.MA = price
		default:
			logger.Warn().Str("source", f.Source()).Msg("unknown forecast source ignored")
		}
	}
	return set
}

// GetForecasts returns stored forecasts for a symbol, newest target first.
func (s *ForecastService) GetForecasts(ctx context.Context, symbol string, limit int) ([]domain.EnsembleForecast, error) {
	_, span := s.tracer.Start(ctx, "forecast-service.get-forecasts")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !domain.IsSupportedSymbol(symbol) {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}
	return s.forecasts.ListBySymbol(ctx, symbol, limit)
}

// GetLatestForecasts returns the freshest forecast per horizon.
func (s *ForecastService) GetLatestForecasts(ctx context.Context, symbol string) ([]domain.EnsembleForecast, error) {
	_, span := s.tracer.Start(ctx, "forecast-service.get-latest-forecasts")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !domain.IsSupportedSymbol(symbol) {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}
	return s.forecasts.ListLatestPerHorizon(ctx, symbol)
}
