package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string
	APIKey           string
	LogLevel         string
	LogJSON          bool

	QuotePollSecs        int
	NewsPollSecs         int
	HeadlineFeedTemplate string
	NewsMaxItems         int
	SentimentLookbackHrs int
	ScoringBatchSize     int

	ModelServiceURL         string
	ModelServiceTimeoutSecs int

	ForecastPollSecs   int
	AccuracyPollSecs   int
	ForecastHorizons   []int
	AccuracyWindowDays int
	MAWindowDays       int
	WorkerCount        int
	StorageRetries     int

	LeaderboardSize int
	ReportCacheSecs int

	SSHPort        int
	SSHHostKeyPath string

	OpenAIAPIKey      string
	OpenAIModel       string
	AdvisorMaxHistory int

	MCPTransport          string
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		APIKey:           strings.TrimSpace(os.Getenv("API_KEY")),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
	}

	if cfg.TelegramBotToken == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, bot disabled")
	}
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogJSON = strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_JSON")), "true")

	cfg.QuotePollSecs = 900
	if v := strings.TrimSpace(os.Getenv("QUOTE_POLL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QuotePollSecs = n
		}
	}

	cfg.NewsPollSecs = 1800
	if v := strings.TrimSpace(os.Getenv("NEWS_POLL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NewsPollSecs = n
		}
	}

	cfg.HeadlineFeedTemplate = strings.TrimSpace(os.Getenv("HEADLINE_FEED_TEMPLATE"))
	if cfg.HeadlineFeedTemplate == "" {
		cfg.HeadlineFeedTemplate = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"
	}

	cfg.NewsMaxItems = 40
	if v := strings.TrimSpace(os.Getenv("NEWS_MAX_ITEMS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NewsMaxItems = n
		}
	}

	cfg.SentimentLookbackHrs = 48
	if v := strings.TrimSpace(os.Getenv("SENTIMENT_LOOKBACK_HOURS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SentimentLookbackHrs = n
		}
	}

	cfg.ScoringBatchSize = 10
	if v := strings.TrimSpace(os.Getenv("SCORING_BATCH_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ScoringBatchSize = n
		}
	}

	cfg.ModelServiceURL = strings.TrimRight(strings.TrimSpace(os.Getenv("MODEL_SERVICE_URL")), "/")
	if cfg.ModelServiceURL == "" {
		log.Warn().Msg("MODEL_SERVICE_URL not set, lstm and arima forecasters will abstain")
	}

	cfg.ModelServiceTimeoutSecs = 20
	if v := strings.TrimSpace(os.Getenv("MODEL_SERVICE_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ModelServiceTimeoutSecs = n
		}
	}

	cfg.ForecastPollSecs = 3600
	if v := strings.TrimSpace(os.Getenv("FORECAST_POLL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ForecastPollSecs = n
		}
	}

	cfg.AccuracyPollSecs = 1800
	if v := strings.TrimSpace(os.Getenv("ACCURACY_POLL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AccuracyPollSecs = n
		}
	}

	cfg.ForecastHorizons = []int{1, 7, 30}
	if v := strings.TrimSpace(os.Getenv("FORECAST_HORIZONS")); v != "" {
		if horizons := parseHorizons(v); len(horizons) > 0 {
			cfg.ForecastHorizons = horizons
		} else {
			log.Warn().Str("value", v).Msg("FORECAST_HORIZONS unparseable, keeping defaults")
		}
	}

	cfg.AccuracyWindowDays = 30
	if v := strings.TrimSpace(os.Getenv("ACCURACY_WINDOW_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AccuracyWindowDays = n
		}
	}

	cfg.MAWindowDays = 20
	if v := strings.TrimSpace(os.Getenv("MA_WINDOW_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MAWindowDays = n
		}
	}

	cfg.WorkerCount = 4
	if v := strings.TrimSpace(os.Getenv("WORKER_COUNT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WorkerCount = n
		}
	}

	cfg.StorageRetries = 3
	if v := strings.TrimSpace(os.Getenv("STORAGE_RETRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.StorageRetries = n
		}
	}

	cfg.LeaderboardSize = 10
	if v := strings.TrimSpace(os.Getenv("LEADERBOARD_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LeaderboardSize = n
		}
	}

	cfg.ReportCacheSecs = 60
	if v := strings.TrimSpace(os.Getenv("REPORT_CACHE_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ReportCacheSecs = n
		}
	}

	cfg.SSHPort = 2323
	if v := strings.TrimSpace(os.Getenv("SSH_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SSHPort = n
		}
	}

	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/stockcast_host_key"
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, falling back to heuristic headline scoring")
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.AdvisorMaxHistory = 20
	if v := strings.TrimSpace(os.Getenv("ADVISOR_MAX_HISTORY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AdvisorMaxHistory = n
		}
	}

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Warn().Str("transport", cfg.MCPTransport).Msg("unsupported MCP_TRANSPORT, defaulting to stdio")
		cfg.MCPTransport = "stdio"
	}

	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}

	cfg.MCPHTTPPort = 8090
	if v := strings.TrimSpace(os.Getenv("MCP_HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPHTTPPort = n
		}
	}

	cfg.MCPRequestTimeoutSecs = 5
	if v := strings.TrimSpace(os.Getenv("MCP_REQUEST_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPRequestTimeoutSecs = n
		}
	}

	return cfg
}

// parseHorizons parses a comma-separated list of positive day counts,
// dropping duplicates while keeping order.
func parseHorizons(v string) []int {
	parts := strings.Split(v, ",")
	horizons := make([]int, 0, len(parts))
	seen := make(map[int]bool, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		horizons = append(horizons, n)
	}
	return horizons
}
