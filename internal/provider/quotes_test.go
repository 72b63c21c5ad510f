package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type chartTripFunc func(*http.Request) (*http.Response, error)

func (f chartTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestQuoteProvider(t *testing.T, handler func(*http.Request) (*http.Response, error)) *QuoteProvider {
	t.Helper()
	p := NewQuoteProvider(trace.NewNoopTracerProvider().Tracer("test"))
	p.baseURL = "http://example"
	p.client = &http.Client{Transport: chartTripFunc(handler)}
	p.limiter = NewRateLimiter(10, time.Millisecond)
	return p
}

func TestQuoteProviderFetchDailyHistory(t *testing.T) {
	// 2026-01-01, 2026-01-02, 2026-01-03; the middle bar has null quotes.
	body := `{"chart":{"result":[{"timestamp":[1767225600,1767312000,1767398400],` +
		`"indicators":{"quote":[{"open":[10,null,12],"high":[11,null,13],"low":[9,null,11],` +
		`"close":[10.5,null,12.5],"volume":[1000,null,1200]}]}}],"error":null}}`

	p := newTestQuoteProvider(t, func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/AAPL") {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if req.URL.RawQuery != "range=5d&interval=1d" {
			t.Fatalf("unexpected query: %s", req.URL.RawQuery)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
			Header:     make(http.Header),
		}, nil
	})

	points, err := p.FetchDailyHistory(context.Background(), "aapl", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected null-close bar dropped, got %d points", len(points))
	}
	first := points[0]
	if first.Symbol != "AAPL" {
		t.Fatalf("expected symbol upcased, got %s", first.Symbol)
	}
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !first.TradeDate.Equal(want) {
		t.Fatalf("expected trade date %v, got %v", want, first.TradeDate)
	}
	if first.Open != 10 || first.High != 11 || first.Low != 9 || first.Close != 10.5 || first.Volume != 1000 {
		t.Fatalf("unexpected first bar: %+v", first)
	}
	if !points[1].TradeDate.After(first.TradeDate) {
		t.Fatalf("expected ascending order, got %v then %v", first.TradeDate, points[1].TradeDate)
	}
}

func TestQuoteProviderSameDayLastBarWins(t *testing.T) {
	// Two bars on 2026-01-01: 00:00 and 08:00.
	body := `{"chart":{"result":[{"timestamp":[1767225600,1767254400],` +
		`"indicators":{"quote":[{"open":[10,10],"high":[11,12],"low":[9,9],` +
		`"close":[10.5,11.5],"volume":[1000,1100]}]}}],"error":null}}`

	p := newTestQuoteProvider(t, func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
			Header:     make(http.Header),
		}, nil
	})

	points, err := p.FetchDailyHistory(context.Background(), "AAPL", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected one bar per day, got %d", len(points))
	}
	if points[0].Close != 11.5 {
		t.Fatalf("expected later bar to win, got close %v", points[0].Close)
	}
}

func TestQuoteProviderSurfacesChartError(t *testing.T) {
	body := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`

	p := newTestQuoteProvider(t, func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
			Header:     make(http.Header),
		}, nil
	})

	_, err := p.FetchDailyHistory(context.Background(), "AAPL", 5)
	if err == nil || !strings.Contains(err.Error(), "Not Found") {
		t.Fatalf("expected chart error surfaced, got %v", err)
	}
}

func TestQuoteProviderRejectsUnsupportedSymbol(t *testing.T) {
	p := newTestQuoteProvider(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected for unsupported symbol")
		return nil, nil
	})

	if _, err := p.FetchDailyHistory(context.Background(), "FAKE", 5); err == nil {
		t.Fatal("expected unsupported symbol error")
	}
}
