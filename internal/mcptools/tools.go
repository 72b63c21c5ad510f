package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockcast/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ForecastReader serves stored forecasts to MCP clients.
type ForecastReader interface {
	GetLatestForecasts(ctx context.Context, symbol string) ([]domain.EnsembleForecast, error)
}

// AccuracyReader serves evaluation history to MCP clients.
type AccuracyReader interface {
	GetAccuracyHistory(ctx context.Context, symbol string, limit int) ([]domain.AccuracyRecord, error)
}

// ReportReader serves the aggregate views to MCP clients.
type ReportReader interface {
	Leaderboard(ctx context.Context, now time.Time) ([]domain.LeaderboardEntry, error)
	Trend(ctx context.Context, now time.Time, hours int) ([]domain.TrendBucket, error)
}

// Services bundles the read surfaces exposed as tools. Timeout bounds
// each tool call; zero means 5 seconds.
type Services struct {
	Forecasts ForecastReader
	Accuracy  AccuracyReader
	Reports   ReportReader
	Timeout   time.Duration
}

type tools struct {
	svc Services
}

// Register adds the read-only stockcast tools to an MCP server.
func Register(server *mcp.Server, svc Services) {
	if svc.Timeout <= 0 {
		svc.Timeout = 5 * time.Second
	}
	t := &tools{svc: svc}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_latest_forecasts",
		Description: "Latest stored ensemble forecast per horizon for one equity symbol, including the sentiment-adjusted price and confidence.",
	}, t.getLatestForecasts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_accuracy_history",
		Description: "Recent accuracy evaluations (MAE, RMSE, MAPE, R2, directional accuracy, tier) for one equity symbol.",
	}, t.getAccuracyHistory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_leaderboard",
		Description: "Symbols ranked by the confidence of their freshest accuracy record, best first.",
	}, t.getLeaderboard)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_accuracy_trend",
		Description: "Hourly averages of the accuracy metrics across all evaluated symbols over a trailing window.",
	}, t.getAccuracyTrend)
}

type symbolInput struct {
	Symbol string `json:"symbol" jsonschema:"equity ticker, e.g. AAPL"`
}

type accuracyInput struct {
	Symbol string `json:"symbol" jsonschema:"equity ticker, e.g. AAPL"`
	Limit  int    `json:"limit,omitempty" jsonschema:"max records to return, default 10"`
}

type trendInput struct {
	Hours int `json:"hours,omitempty" jsonschema:"trailing window in hours, 1 to 168, default 24"`
}

type emptyInput struct{}

type forecastsOutput struct {
	Symbol    string                    `json:"symbol"`
	Forecasts []domain.EnsembleForecast `json:"forecasts"`
}

type gradedRecord struct {
	domain.AccuracyRecord
	Tier domain.AccuracyTier `json:"tier"`
}

type accuracyOutput struct {
	Symbol  string         `json:"symbol"`
	Records []gradedRecord `json:"records"`
}

type leaderboardOutput struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type trendOutput struct {
	Hours int                  `json:"hours"`
	Trend []domain.TrendBucket `json:"trend"`
}

func (t *tools) getLatestForecasts(ctx context.Context, req *mcp.CallToolRequest, in symbolInput) (*mcp.CallToolResult, forecastsOutput, error) {
	var out forecastsOutput
	if t.svc.Forecasts == nil {
		return nil, out, fmt.Errorf("forecast service unavailable")
	}
	symbol, err := normalizeSymbol(in.Symbol)
	if err != nil {
		return nil, out, err
	}

	ctx, cancel := context.WithTimeout(ctx, t.svc.Timeout)
	defer cancel()

	forecasts, err := t.svc.Forecasts.GetLatestForecasts(ctx, symbol)
	if err != nil {
		return nil, out, err
	}
	out = forecastsOutput{Symbol: symbol, Forecasts: forecasts}
	return nil, out, nil
}

func (t *tools) getAccuracyHistory(ctx context.Context, req *mcp.CallToolRequest, in accuracyInput) (*mcp.CallToolResult, accuracyOutput, error) {
	var out accuracyOutput
	if t.svc.Accuracy == nil {
		return nil, out, fmt.Errorf("accuracy service unavailable")
	}
	symbol, err := normalizeSymbol(in.Symbol)
	if err != nil {
		return nil, out, err
	}
	limit := in.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, t.svc.Timeout)
	defer cancel()

	records, err := t.svc.Accuracy.GetAccuracyHistory(ctx, symbol, limit)
	if err != nil {
		return nil, out, err
	}
	graded := make([]gradedRecord, 0, len(records))
	for _, rec := range records {
		graded = append(graded, gradedRecord{AccuracyRecord: rec, Tier: rec.Tier()})
	}
	out = accuracyOutput{Symbol: symbol, Records: graded}
	return nil, out, nil
}

func (t *tools) getLeaderboard(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, leaderboardOutput, error) {
	var out leaderboardOutput
	if t.svc.Reports == nil {
		return nil, out, fmt.Errorf("report service unavailable")
	}

	ctx, cancel := context.WithTimeout(ctx, t.svc.Timeout)
	defer cancel()

	entries, err := t.svc.Reports.Leaderboard(ctx, time.Now().UTC())
	if err != nil {
		return nil, out, err
	}
	out = leaderboardOutput{Leaderboard: entries}
	return nil, out, nil
}

func (t *tools) getAccuracyTrend(ctx context.Context, req *mcp.CallToolRequest, in trendInput) (*mcp.CallToolResult, trendOutput, error) {
	var out trendOutput
	if t.svc.Reports == nil {
		return nil, out, fmt.Errorf("report service unavailable")
	}
	hours := in.Hours
	if hours <= 0 || hours > 168 {
		hours = 24
	}

	ctx, cancel := context.WithTimeout(ctx, t.svc.Timeout)
	defer cancel()

	buckets, err := t.svc.Reports.Trend(ctx, time.Now().UTC(), hours)
	if err != nil {
		return nil, out, err
	}
	out = trendOutput{Hours: hours, Trend: buckets}
	return nil, out, nil
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !domain.IsSupportedSymbol(symbol) {
		return "", fmt.Errorf("unsupported symbol %q, supported: %s", symbol, strings.Join(domain.SupportedSymbols, ", "))
	}
	return symbol, nil
}
