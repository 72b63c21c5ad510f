package service

import (
	"context"
	"fmt"
	"time"

	"stockcast/internal/domain"
	"stockcast/internal/metrics"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// QuoteFetcher pulls daily bars from the upstream quote API.
type QuoteFetcher interface {
	FetchDailyHistory(ctx context.Context, symbol string, days int) ([]*domain.PricePoint, error)
}

// PriceWriter persists fetched bars.
type PriceWriter interface {
	UpsertPricePoints(ctx context.Context, points []*domain.PricePoint) error
}

type IngestConfig struct {
	Symbols     []string
	HistoryDays int
}

// IngestService refreshes the daily close history that forecasting and
// accuracy resolution read from.
type IngestService struct {
	tracer   trace.Tracer
	provider QuoteFetcher
	prices   PriceWriter
	cfg      IngestConfig
}

func NewIngestService(tracer trace.Tracer, provider QuoteFetcher, prices PriceWriter, cfg IngestConfig) *IngestService {
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = domain.SupportedSymbols
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 90
	}
	return &IngestService{tracer: tracer, provider: provider, prices: prices, cfg: cfg}
}

// RefreshDailyBars fetches and stores recent daily bars for every
// configured symbol. One symbol failing does not stop the others; an
// error is returned only when no symbol could be refreshed at all.
func (s *IngestService) RefreshDailyBars(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "ingest-service.refresh-daily-bars")
	defer span.End()

	if s.provider == nil || s.prices == nil {
		return fmt.Errorf("ingest service dependencies are not initialized")
	}

	start := time.Now()
	refreshed := 0
	for _, symbol := range s.cfg.Symbols {
		if err := ctx.Err(); err != nil {
			return err
		}

		points, err := s.provider.FetchDailyHistory(ctx, symbol, s.cfg.HistoryDays)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("daily bar fetch failed")
			continue
		}
		if len(points) == 0 {
			log.Debug().Str("symbol", symbol).Msg("no daily bars returned")
			continue
		}
		if err := s.prices.UpsertPricePoints(ctx, points); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("daily bar store failed")
			continue
		}
		refreshed++
	}

	var err error
	if refreshed == 0 && len(s.cfg.Symbols) > 0 {
		err = fmt.Errorf("no symbols refreshed")
	}
	metrics.ObserveRun("ingest", start, err)
	return err
}
