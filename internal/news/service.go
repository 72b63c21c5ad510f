package news

import (
	"context"
	"fmt"
	"time"

	"stockcast/internal/domain"
	"stockcast/internal/metrics"
	"stockcast/internal/provider"

	"go.opentelemetry.io/otel/trace"
)

type HeadlineReader interface {
	FetchHeadlines(ctx context.Context, symbol string, maxItems int) ([]provider.Headline, error)
}

type Store interface {
	UpsertItems(ctx context.Context, items []domain.NewsItem) ([]domain.NewsItem, error)
	ListUnscored(ctx context.Context, limit int) ([]domain.NewsItem, error)
	UpdateSentiment(ctx context.Context, itemID int64, score float64, strength float64, label string, scoredBy string, scoredAt time.Time) error
	GetSummary(ctx context.Context, symbol string, from, to time.Time) (*domain.SentimentSummary, error)
}

type Config struct {
	Symbols          []string
	MaxItemsPerFeed  int
	ScoringBatchSize int
	LookbackHours    int
}

type Service struct {
	tracer trace.Tracer
	repo   Store
	scorer *Scorer
	reader HeadlineReader

	cfg Config
}

func NewService(tracer trace.Tracer, repo Store, scorer *Scorer, reader HeadlineReader, cfg Config) *Service {
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = append([]string(nil), domain.SupportedSymbols...)
	}
	if cfg.MaxItemsPerFeed <= 0 {
		cfg.MaxItemsPerFeed = 40
	}
	if cfg.ScoringBatchSize <= 0 {
		cfg.ScoringBatchSize = 10
	}
	if cfg.LookbackHours <= 0 {
		cfg.LookbackHours = 48
	}
	if scorer == nil {
		scorer = NewScorer(nil, cfg.ScoringBatchSize)
	}

	return &Service{
		tracer: tracer,
		repo:   repo,
		scorer: scorer,
		reader: reader,
		cfg:    cfg,
	}
}

// RunCycle ingests fresh headlines for every tracked symbol, then scores
// whatever is still unscored. A feed that fails only adds an error entry;
// the cycle keeps going for the remaining symbols.
func (s *Service) RunCycle(ctx context.Context, now time.Time) (domain.NewsRunResult, error) {
	_, span := s.tracer.Start(ctx, "news.run-cycle")
	defer span.End()

	if s.repo == nil || s.scorer == nil {
		return domain.NewsRunResult{}, fmt.Errorf("news service dependencies are not initialized")
	}

	now = now.UTC()
	start := time.Now()
	result := domain.NewsRunResult{}

	if s.reader != nil {
		for _, symbol := range s.cfg.Symbols {
			headlines, err := s.reader.FetchHeadlines(ctx, symbol, s.cfg.MaxItemsPerFeed)
			if err != nil {
				result.Errors = append(result.Errors, "feed:"+symbol+": "+err.Error())
				continue
			}
			items := make([]domain.NewsItem, 0, len(headlines))
			for _, row := range headlines {
				items = append(items, headlineToItem(symbol, row))
			}
			persisted, err := s.repo.UpsertItems(ctx, items)
			if err != nil {
				result.Errors = append(result.Errors, "upsert:"+symbol+": "+err.Error())
				continue
			}
			result.ItemsIngested += len(persisted)
		}
	}

	unscored, err := s.repo.ListUnscored(ctx, max(200, s.cfg.ScoringBatchSize*4))
	if err != nil {
		return result, err
	}
	scored, err := s.scorer.Score(ctx, unscored)
	if err != nil {
		result.Errors = append(result.Errors, "score: "+err.Error())
	}
	for _, row := range scored {
		if err := s.repo.UpdateSentiment(ctx, row.ItemID, row.Score, row.Strength, row.Label, row.Model, now); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("score_update:item=%d: %v", row.ItemID, err))
			continue
		}
		result.ItemsScored++
	}

	metrics.ObserveRun("news", start, nil)
	return result, nil
}

// Summary aggregates scored sentiment for a symbol over the configured
// lookback ending at asOf. Nil means no scored headlines in the window.
func (s *Service) Summary(ctx context.Context, symbol string, asOf time.Time) (*domain.SentimentSummary, error) {
	_, span := s.tracer.Start(ctx, "news.summary")
	defer span.End()

	if s.repo == nil {
		return nil, fmt.Errorf("news service dependencies are not initialized")
	}
	asOf = asOf.UTC()
	from := asOf.Add(-time.Duration(s.cfg.LookbackHours) * time.Hour)
	return s.repo.GetSummary(ctx, symbol, from, asOf)
}

func headlineToItem(symbol string, row provider.Headline) domain.NewsItem {
	return domain.NewsItem{
		Symbol:      symbol,
		Source:      row.Source,
		SourceID:    row.SourceID,
		Title:       row.Title,
		URL:         row.URL,
		PublishedAt: row.PublishedAt.UTC(),
	}
}
