package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"stockcast/internal/accuracy"
	"stockcast/internal/domain"
	"stockcast/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type MatchedForecastStore interface {
	ResolveActuals(ctx context.Context, symbol string) (int64, error)
	ListMatched(ctx context.Context, symbol string, from, to time.Time) ([]domain.EnsembleForecast, error)
}

type AccuracyStore interface {
	Upsert(ctx context.Context, record domain.AccuracyRecord) (*domain.AccuracyRecord, error)
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.AccuracyRecord, error)
}

type AccuracyConfig struct {
	Symbols        []string
	WindowDays     int
	WorkerCount    int
	StorageRetries int
}

// AccuracyService grades stored forecasts once their target dates have
// realized closes, and persists one metrics record per symbol and hour.
type AccuracyService struct {
	tracer    trace.Tracer
	forecasts MatchedForecastStore
	records   AccuracyStore
	cfg       AccuracyConfig
}

func NewAccuracyService(tracer trace.Tracer, forecasts MatchedForecastStore, records AccuracyStore, cfg AccuracyConfig) *AccuracyService {
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = append([]string(nil), domain.SupportedSymbols...)
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = domain.DefaultAccuracyWindowDays
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.StorageRetries <= 0 {
		cfg.StorageRetries = 3
	}
	return &AccuracyService{tracer: tracer, forecasts: forecasts, records: records, cfg: cfg}
}

// RunAccuracyPass resolves fresh actuals and re-evaluates every symbol
// over the trailing window. Records land in the hour bucket of now, so
// repeated runs inside one hour overwrite rather than append.
func (s *AccuracyService) RunAccuracyPass(ctx context.Context, now time.Time) (domain.RunResult, error) {
	ctx, span := s.tracer.Start(ctx, "accuracy-service.run-pass")
	defer span.End()

	if s.forecasts == nil || s.records == nil {
		return domain.RunResult{}, fmt.Errorf("accuracy service dependencies are not initialized")
	}

	now = now.UTC()
	start := time.Now()
	result := domain.RunResult{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", result.RunID).Logger()
	logger.Info().Int("symbols", len(s.cfg.Symbols)).Int("window_days", s.cfg.WindowDays).Msg("accuracy pass started")

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

			evaluated, err := s.evaluateSymbol(ctx, logger, symbol, now)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				result.Errors = append(result.Errors, symbol+": "+err.Error())
				metrics.SymbolsProcessed.WithLabelValues("accuracy", "failed").Inc()
				logger.Error().Err(err).Str("symbol", symbol).Msg("symbol failed")
			case !evaluated:
				result.Skipped++
				metrics.SymbolsProcessed.WithLabelValues("accuracy", "skipped").Inc()
			default:
				result.Processed++
				metrics.SymbolsProcessed.WithLabelValues("accuracy", "processed").Inc()
			}
		}(symbol)
	}
	wg.Wait()

	metrics.ObserveRun("accuracy", start, nil)
	logger.Info().
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("took", time.Since(start)).
		Msg("accuracy pass finished")
	return result, nil
}

// evaluateSymbol reports false with a nil error when fewer than two
// matched forecasts exist, which skips the symbol for this pass.
func (s *AccuracyService) evaluateSymbol(ctx context.Context, logger zerolog.Logger, symbol string, now time.Time) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "accuracy-service.evaluate-symbol")
	defer span.End()

	resolved, err := retryStorage(ctx, s.cfg.StorageRetries, func() (int64, error) {
		return s.forecasts.ResolveActuals(ctx, symbol)
	})
	if err != nil {
		return false, fmt.Errorf("resolve actuals: %w", err)
	}
	if resolved > 0 {
		logger.Debug().Str("symbol", symbol).Int64("resolved", resolved).Msg("matched forecasts to realized closes")
	}

	from := now.AddDate(0, 0, -s.cfg.WindowDays)
	matched, err := s.forecasts.ListMatched(ctx, symbol, from, now)
	if err != nil {
		return false, fmt.Errorf("load matched forecasts: %w", err)
	}

	pairs := make([]accuracy.Pair, 0, len(matched))
	for _, f := range matched {
		if f.ActualClose == nil {
			continue
		}
		pairs = append(pairs, accuracy.Pair{
			TargetTime: f.TargetDate,
			Predicted:  f.AdjustedPrice,
			Actual:     *f.ActualClose,
		})
	}

	m := accuracy.Summarize(pairs)
	if m == nil {
		logger.Debug().Str("symbol", symbol).Int("pairs", len(pairs)).Msg("not enough matched forecasts to evaluate")
		return false, nil
	}

	record := domain.AccuracyRecord{
		Symbol:         symbol,
		BucketTime:     now.Truncate(time.Hour),
		EvaluatedAt:    now,
		WindowDays:     s.cfg.WindowDays,
		SampleCount:    m.SampleCount,
		MAE:            m.MAE,
		RMSE:           m.RMSE,
		MAPE:           m.MAPE,
		R2:             m.R2,
		DirectionalAcc: m.DirectionalAcc,
		Confidence:     m.Confidence,
	}
	if _, err := retryStorage(ctx, s.cfg.StorageRetries, func() (*domain.AccuracyRecord, error) {
		return s.records.Upsert(ctx, record)
	}); err != nil {
		return false, fmt.Errorf("store accuracy record: %w", err)
	}
	return true, nil
}

// GetAccuracyHistory returns stored records for a symbol, newest first.
func (s *AccuracyService) GetAccuracyHistory(ctx context.Context, symbol string, limit int) ([]domain.AccuracyRecord, error) {
	_, span := s.tracer.Start(ctx, "accuracy-service.get-history")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !domain.IsSupportedSymbol(symbol) {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}
	return s.records.ListBySymbol(ctx, symbol, limit)
}
