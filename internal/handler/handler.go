package handler

import (
	"context"
	"net/http"
	"time"

	"stockcast/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type ForecastReader interface {
	GetForecasts(ctx context.Context, symbol string, limit int) ([]domain.EnsembleForecast, error)
	GetLatestForecasts(ctx context.Context, symbol string) ([]domain.EnsembleForecast, error)
}

type AccuracyReader interface {
	GetAccuracyHistory(ctx context.Context, symbol string, limit int) ([]domain.AccuracyRecord, error)
}

type ReportReader interface {
	Leaderboard(ctx context.Context, now time.Time) ([]domain.LeaderboardEntry, error)
	Trend(ctx context.Context, now time.Time, hours int) ([]domain.TrendBucket, error)
}

type PriceHistoryReader interface {
	GetHistoryRange(ctx context.Context, symbol string, from, to time.Time) ([]*domain.PricePoint, error)
}

type SentimentSummaryReader interface {
	Summary(ctx context.Context, symbol string, asOf time.Time) (*domain.SentimentSummary, error)
}

type ForecastTrigger interface {
	RunForecastPass(ctx context.Context, now time.Time) (domain.RunResult, error)
}

type AccuracyTrigger interface {
	RunAccuracyPass(ctx context.Context, now time.Time) (domain.RunResult, error)
}

type NewsTrigger interface {
	RunCycle(ctx context.Context, now time.Time) (domain.NewsRunResult, error)
}

type Handler struct {
	tracer          trace.Tracer
	forecasts       ForecastReader
	accuracy        AccuracyReader
	reports         ReportReader
	prices          PriceHistoryReader
	sentiment       SentimentSummaryReader
	forecastTrigger ForecastTrigger
	accuracyTrigger AccuracyTrigger
	newsTrigger     NewsTrigger
	apiKey          string
}

func New(tracer trace.Tracer, forecasts ForecastReader, accuracy AccuracyReader, reports ReportReader, prices PriceHistoryReader, sentiment SentimentSummaryReader, apiKey string) *Handler {
	return &Handler{
		tracer:    tracer,
		forecasts: forecasts,
		accuracy:  accuracy,
		reports:   reports,
		prices:    prices,
		sentiment: sentiment,
		apiKey:    apiKey,
	}
}

func (h *Handler) SetForecastTrigger(t ForecastTrigger) { h.forecastTrigger = t }
func (h *Handler) SetAccuracyTrigger(t AccuracyTrigger) { h.accuracyTrigger = t }
func (h *Handler) SetNewsTrigger(t NewsTrigger)         { h.newsTrigger = t }

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/forecasts/:symbol", h.GetForecasts)
	api.GET("/forecasts/:symbol/latest", h.GetLatestForecasts)
	api.GET("/accuracy/:symbol", h.GetAccuracyHistory)
	api.GET("/reports/leaderboard", h.GetLeaderboard)
	api.GET("/reports/trend", h.GetTrend)
	api.GET("/prices/:symbol/history", h.GetPriceHistory)
	api.GET("/sentiment/:symbol", h.GetSentiment)

	runs := api.Group("", APIKeyAuth(h.apiKey))
	runs.POST("/forecast/run", h.TriggerForecastRun)
	runs.POST("/accuracy/run", h.TriggerAccuracyRun)
	runs.POST("/news/run", h.TriggerNewsRun)
}

func unsupportedSymbol(c *gin.Context, symbol string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":             "unsupported symbol: " + symbol,
		"supported_symbols": domain.SupportedSymbols,
	})
}
