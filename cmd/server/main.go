package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockcast/internal/advisor"
	"stockcast/internal/bot"
	"stockcast/internal/cache"
	"stockcast/internal/config"
	"stockcast/internal/db"
	"stockcast/internal/forecaster"
	"stockcast/internal/handler"
	"stockcast/internal/job"
	"stockcast/internal/metrics"
	"stockcast/internal/news"
	"stockcast/internal/provider"
	"stockcast/internal/repository"
	"stockcast/internal/service"
	"stockcast/pkg/logging"
	"stockcast/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "stockcast/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	startJobFunc           = func(ctx context.Context, start func(context.Context)) { go start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Stockcast API
// @version         1.0
// @description     Ensemble stock forecasts with sentiment adjustment and accuracy tracking.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()
	logging.New(cfg.LogLevel, cfg.LogJSON)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	priceRepo := repository.NewPriceRepository(db.Pool, tracer)
	forecastRepo := repository.NewForecastRepository(db.Pool, tracer)
	accuracyRepo := repository.NewAccuracyRepository(db.Pool, tracer)
	convRepo := repository.NewConversationRepository(db.Pool, tracer)
	newsRepo := news.NewRepository(db.Pool, tracer)

	if db.Pool != nil {
		for _, migrate := range []func(context.Context) error{
			priceRepo.RunMigrations,
			forecastRepo.RunMigrations,
			accuracyRepo.RunMigrations,
			convRepo.RunMigrations,
			newsRepo.RunMigrations,
		} {
			if err := migrate(ctx); err != nil {
				log.Fatal().Err(err).Msg("failed to run migrations")
			}
		}
	}

	quoteProvider := provider.NewQuoteProvider(tracer)
	headlineProvider := provider.NewHeadlineProvider(tracer, cfg.HeadlineFeedTemplate)

	scorer := news.NewScorer(news.NewOpenAIScorer(cfg.OpenAIAPIKey, cfg.OpenAIModel), cfg.ScoringBatchSize)
	newsService := news.NewService(tracer, newsRepo, scorer, headlineProvider, news.Config{
		MaxItemsPerFeed:  cfg.NewsMaxItems,
		ScoringBatchSize: cfg.ScoringBatchSize,
		LookbackHours:    cfg.SentimentLookbackHrs,
	})

	ingestService := service.NewIngestService(tracer, quoteProvider, priceRepo, service.IngestConfig{})

	forecasters := []forecaster.Forecaster{
		forecaster.NewMovingAverage(tracer, priceRepo, cfg.MAWindowDays),
	}
	if cfg.ModelServiceURL != "" {
		timeout := time.Duration(cfg.ModelServiceTimeoutSecs) * time.Second
		forecasters = append(forecasters,
			forecaster.NewModelClient(tracer, cfg.ModelServiceURL, "lstm", timeout),
			forecaster.NewModelClient(tracer, cfg.ModelServiceURL, "arima", timeout),
		)
	}

	forecastService := service.NewForecastService(tracer, priceRepo, forecastRepo, newsService, forecasters, service.ForecastConfig{
		Horizons:       cfg.ForecastHorizons,
		WorkerCount:    cfg.WorkerCount,
		StorageRetries: cfg.StorageRetries,
	})
	accuracyService := service.NewAccuracyService(tracer, forecastRepo, accuracyRepo, service.AccuracyConfig{
		WindowDays:     cfg.AccuracyWindowDays,
		WorkerCount:    cfg.WorkerCount,
		StorageRetries: cfg.StorageRetries,
	})
	reportService := service.NewReportService(tracer, accuracyRepo, cache.Client, service.ReportConfig{
		LeaderboardSize: cfg.LeaderboardSize,
		CacheTTL:        time.Duration(cfg.ReportCacheSecs) * time.Second,
	})

	quoteJob := job.NewQuoteJob(tracer, ingestService, time.Duration(cfg.QuotePollSecs)*time.Second)
	newsJob := job.NewNewsJob(tracer, newsService, time.Duration(cfg.NewsPollSecs)*time.Second)
	forecastJob := job.NewForecastJob(tracer, forecastService, time.Duration(cfg.ForecastPollSecs)*time.Second)
	accuracyJob := job.NewAccuracyJob(tracer, accuracyService, time.Duration(cfg.AccuracyPollSecs)*time.Second)
	startJobFunc(ctx, quoteJob.Start)
	startJobFunc(ctx, newsJob.Start)
	startJobFunc(ctx, forecastJob.Start)
	startJobFunc(ctx, accuracyJob.Start)

	var asker bot.Asker
	if cfg.OpenAIAPIKey != "" {
		llmClient := advisor.NewOpenAIClient(cfg.OpenAIAPIKey)
		asker = advisor.NewAdvisorService(tracer, llmClient, forecastService, accuracyService,
			reportService, convRepo, cfg.OpenAIModel, cfg.AdvisorMaxHistory)
		log.Info().Msg("advisor service enabled")
	}
	startTelegramBotFunc(cfg.TelegramBotToken, forecastService, accuracyService, reportService, forecastService, asker)

	h := handler.New(tracer, forecastService, accuracyService, reportService, priceRepo, newsService, cfg.APIKey)
	h.SetForecastTrigger(forecastService)
	h.SetAccuracyTrigger(accuracyService)
	h.SetNewsTrigger(newsService)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("stockcast"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting")
}
