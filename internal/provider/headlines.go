package provider

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Headline is one news entry fetched for a symbol, before scoring.
type Headline struct {
	Source      string
	SourceID    string
	Title       string
	URL         string
	PublishedAt time.Time
}

// HeadlineProvider fetches per-symbol RSS headlines. The feed template
// must carry exactly one %s, replaced by the query-escaped symbol.
type HeadlineProvider struct {
	client       *http.Client
	tracer       trace.Tracer
	feedTemplate string
}

func NewHeadlineProvider(tracer trace.Tracer, feedTemplate string) *HeadlineProvider {
	return &HeadlineProvider{
		client:       &http.Client{Timeout: 20 * time.Second},
		tracer:       tracer,
		feedTemplate: strings.TrimSpace(feedTemplate),
	}
}

func (p *HeadlineProvider) FetchHeadlines(ctx context.Context, symbol string, maxItems int) ([]Headline, error) {
	_, span := p.tracer.Start(ctx, "headlines.fetch")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if p.feedTemplate == "" || !strings.Contains(p.feedTemplate, "%s") {
		return nil, fmt.Errorf("feed template must contain one %%s placeholder")
	}
	if maxItems <= 0 {
		maxItems = 40
	}

	feedURL := fmt.Sprintf(p.feedTemplate, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rss fetch error %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var rss struct {
		Channel struct {
			Title string `xml:"title"`
			Items []struct {
				Title   string `xml:"title"`
				Link    string `xml:"link"`
				GUID    string `xml:"guid"`
				PubDate string `xml:"pubDate"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	if err := xml.Unmarshal(body, &rss); err != nil {
		return nil, fmt.Errorf("decode rss payload: %w", err)
	}

	items := make([]Headline, 0, min(maxItems, len(rss.Channel.Items)))
	for i, row := range rss.Channel.Items {
		if i >= maxItems {
			break
		}
		title := sanitizeText(row.Title, 300)
		if title == "" {
			continue
		}
		publishedAt := parseRSSDate(row.PubDate)
		if publishedAt.IsZero() {
			publishedAt = time.Now().UTC()
		}
		sourceID := sanitizeText(row.GUID, 250)
		if sourceID == "" {
			sourceID = sanitizeText(row.Link, 250)
		}
		if sourceID == "" {
			h := sha1.Sum([]byte(title + "|" + publishedAt.Format(time.RFC3339Nano)))
			sourceID = hex.EncodeToString(h[:])
		}

		items = append(items, Headline{
			Source:      "rss",
			SourceID:    sourceID,
			Title:       title,
			URL:         sanitizeText(row.Link, 500),
			PublishedAt: publishedAt.UTC(),
		})
	}

	return items, nil
}

func parseRSSDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	layouts := []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func sanitizeText(in string, maxLen int) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	in = strings.ReplaceAll(in, "\n", " ")
	in = strings.ReplaceAll(in, "\r", " ")
	in = strings.Join(strings.Fields(in), " ")
	if maxLen > 0 && len(in) > maxLen {
		in = in[:maxLen]
	}
	return in
}
