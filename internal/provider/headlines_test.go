package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func TestHeadlineProviderFetch(t *testing.T) {
	feedXML := `<?xml version="1.0"?><rss version="2.0"><channel><title>Symbol Feed</title>` +
		`<item><title>Apple  beats
 estimates</title><link>https://news.example/a1</link><guid>guid-1</guid><pubDate>Mon, 02 Mar 2026 10:00:00 +0000</pubDate></item>` +
		`<item><title>Second story</title><link>https://news.example/a2</link></item>` +
		`<item><title>Third story</title><link>https://news.example/a3</link></item>` +
		`</channel></rss>`

	p := NewHeadlineProvider(trace.NewNoopTracerProvider().Tracer("test"), "http://feeds.example/rss?s=%s")
	p.client = &http.Client{Transport: chartTripFunc(func(req *http.Request) (*http.Response, error) {
		if got := req.URL.Query().Get("s"); got != "AAPL" {
			t.Fatalf("expected symbol in query, got %q", got)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(feedXML)),
			Header:     make(http.Header),
		}, nil
	})}

	items, err := p.FetchHeadlines(context.Background(), "aapl", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected maxItems cap at 2, got %d", len(items))
	}

	first := items[0]
	if first.SourceID != "guid-1" {
		t.Fatalf("expected guid source id, got %q", first.SourceID)
	}
	if first.Title != "Apple beats estimates" {
		t.Fatalf("expected whitespace collapsed, got %q", first.Title)
	}
	want := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Fatalf("expected published at %v, got %v", want, first.PublishedAt)
	}

	second := items[1]
	if second.SourceID != "https://news.example/a2" {
		t.Fatalf("expected link fallback source id, got %q", second.SourceID)
	}
	if second.PublishedAt.IsZero() {
		t.Fatal("expected missing pubDate to fall back to now")
	}
}

func TestHeadlineProviderRequiresTemplate(t *testing.T) {
	p := NewHeadlineProvider(trace.NewNoopTracerProvider().Tracer("test"), "http://feeds.example/rss")
	if _, err := p.FetchHeadlines(context.Background(), "AAPL", 10); err == nil {
		t.Fatal("expected error for template without placeholder")
	}
}

func TestHeadlineProviderNon200(t *testing.T) {
	p := NewHeadlineProvider(trace.NewNoopTracerProvider().Tracer("test"), "http://feeds.example/rss?s=%s")
	p.client = &http.Client{Transport: chartTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(bytes.NewBufferString("upstream broke")),
			Header:     make(http.Header),
		}, nil
	})}

	if _, err := p.FetchHeadlines(context.Background(), "AAPL", 10); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
