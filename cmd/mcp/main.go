package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"stockcast/internal/cache"
	"stockcast/internal/config"
	"stockcast/internal/db"
	"stockcast/internal/mcptools"
	"stockcast/internal/repository"
	"stockcast/internal/service"
	"stockcast/pkg/logging"
	"stockcast/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	runStdioFunc     = func(ctx context.Context, server *mcp.Server) error {
		return server.Run(ctx, &mcp.StdioTransport{})
	}
	listenAndServeFunc = func(srv *http.Server) error {
		return srv.ListenAndServe()
	}
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()
	// stdio transport owns stdout, so logs stay on stderr.
	logging.New(cfg.LogLevel, false)

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	priceRepo := repository.NewPriceRepository(db.Pool, tracer)
	forecastRepo := repository.NewForecastRepository(db.Pool, tracer)
	accuracyRepo := repository.NewAccuracyRepository(db.Pool, tracer)

	forecastService := service.NewForecastService(tracer, priceRepo, forecastRepo, nil, nil, service.ForecastConfig{})
	accuracyService := service.NewAccuracyService(tracer, forecastRepo, accuracyRepo, service.AccuracyConfig{
		WindowDays: cfg.AccuracyWindowDays,
	})
	reportService := service.NewReportService(tracer, accuracyRepo, cache.Client, service.ReportConfig{
		LeaderboardSize: cfg.LeaderboardSize,
		CacheTTL:        time.Duration(cfg.ReportCacheSecs) * time.Second,
	})

	server := mcp.NewServer(&mcp.Implementation{Name: "stockcast", Version: "1.0.0"}, nil)
	mcptools.Register(server, mcptools.Services{
		Forecasts: forecastService,
		Accuracy:  accuracyService,
		Reports:   reportService,
		Timeout:   time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
	})

	switch cfg.MCPTransport {
	case "http":
		runHTTP(ctx, cfg, server)
	default:
		log.Info().Msg("MCP server listening on stdio")
		if err := runStdioFunc(ctx, server); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("MCP stdio server stopped")
		}
	}

	log.Info().Msg("MCP server exited")
}

func runHTTP(ctx context.Context, cfg *config.Config, server *mcp.Server) {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)

	addr := fmt.Sprintf("%s:%d", cfg.MCPHTTPBind, cfg.MCPHTTPPort)
	srv := &http.Server{
		Addr:    addr,
		Handler: authMiddleware(cfg.MCPAuthToken, handler),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("MCP HTTP shutdown error")
		}
	}()

	log.Info().Str("addr", addr).Msg("MCP server listening on HTTP")
	if err := listenAndServeFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("MCP HTTP server stopped")
	}
}

// authMiddleware enforces a bearer token when one is configured. An
// empty token leaves the endpoint open for local use.
func authMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
