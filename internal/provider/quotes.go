package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"stockcast/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const quoteChartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// QuoteProvider fetches daily OHLCV history from the Yahoo chart API.
type QuoteProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *RateLimiter
}

// NewQuoteProvider creates a provider with built-in rate limiting.
// Rate limited to 6 requests per minute (one token every 10 seconds).
func NewQuoteProvider(tracer trace.Tracer) *QuoteProvider {
	return &QuoteProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: quoteChartBaseURL,
		tracer:  tracer,
		limiter: NewRateLimiter(6, 10*time.Second),
	}
}

// FetchDailyHistory returns up to days of daily bars for symbol, oldest
// first, one bar per UTC day. Bars with a null close are dropped.
func (p *QuoteProvider) FetchDailyHistory(ctx context.Context, symbol string, days int) ([]*domain.PricePoint, error) {
	_, span := p.tracer.Start(ctx, "quotes.fetch-daily-history")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !domain.IsSupportedSymbol(symbol) {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}
	if days <= 0 {
		days = 90
	}

	url := fmt.Sprintf("%s/%s?range=%dd&interval=1d", p.baseURL, symbol, days)

	body, err := p.doRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch daily history for %s: %w", symbol, err)
	}

	var raw struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Open   []*float64 `json:"open"`
						High   []*float64 `json:"high"`
						Low    []*float64 `json:"low"`
						Close  []*float64 `json:"close"`
						Volume []*float64 `json:"volume"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error *struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse daily history for %s: %w", symbol, err)
	}
	if raw.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s: %s", symbol, raw.Chart.Error.Code, raw.Chart.Error.Description)
	}
	if len(raw.Chart.Result) == 0 || len(raw.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("empty chart payload for %s", symbol)
	}

	result := raw.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	// One bar per UTC day; a later bar for the same day wins so partial
	// intraday rows get replaced by the final close on refetch.
	byDay := make(map[time.Time]*domain.PricePoint, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePx := seriesAt(quote.Close, i)
		if closePx == nil || *closePx <= 0 {
			continue
		}
		day := domain.Day(time.Unix(ts, 0))
		point := &domain.PricePoint{
			Symbol:    symbol,
			TradeDate: day,
			Close:     *closePx,
		}
		if v := seriesAt(quote.Open, i); v != nil {
			point.Open = *v
		}
		if v := seriesAt(quote.High, i); v != nil {
			point.High = *v
		}
		if v := seriesAt(quote.Low, i); v != nil {
			point.Low = *v
		}
		if v := seriesAt(quote.Volume, i); v != nil {
			point.Volume = *v
		}
		byDay[day] = point
	}

	points := make([]*domain.PricePoint, 0, len(byDay))
	for _, point := range byDay {
		points = append(points, point)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].TradeDate.Before(points[j].TradeDate) })
	return points, nil
}

func (p *QuoteProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "stockcast/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chart API error %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

func seriesAt(series []*float64, i int) *float64 {
	if i < 0 || i >= len(series) {
		return nil
	}
	return series[i]
}
