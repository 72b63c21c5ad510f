package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockcast/internal/domain"
)

func TestGetLeaderboard(t *testing.T) {
	h := newTestHandler()
	h.reports = &reportReaderStub{entries: []domain.LeaderboardEntry{
		{Rank: 1, Symbol: "NVDA", Confidence: 91, Tier: domain.TierExcellent},
		{Rank: 2, Symbol: "AAPL", Confidence: 64, Tier: domain.TierGood},
	}}
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reports/leaderboard", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Leaderboard) != 2 || body.Leaderboard[0].Symbol != "NVDA" {
		t.Fatalf("unexpected leaderboard: %+v", body.Leaderboard)
	}
}

func TestGetTrendPassesWindow(t *testing.T) {
	h := newTestHandler()
	stub := &reportReaderStub{buckets: []domain.TrendBucket{
		{AvgMAE: 2.4, SymbolCount: 6},
	}}
	h.reports = stub
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reports/trend?hours=48", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if stub.gotHours != 48 {
		t.Fatalf("expected 48h window, got %d", stub.gotHours)
	}
}

func TestGetTrendIgnoresOutOfRangeHours(t *testing.T) {
	h := newTestHandler()
	stub := &reportReaderStub{}
	h.reports = stub
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reports/trend?hours=9999", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if stub.gotHours != 24 {
		t.Fatalf("expected default 24h window, got %d", stub.gotHours)
	}
}

func TestGetAccuracyHistoryGradesRecords(t *testing.T) {
	h := newTestHandler()
	h.accuracy = &accuracyReaderStub{records: []domain.AccuracyRecord{
		{Symbol: "AAPL", MAE: 1.0, MAPE: 1.2, R2: 0.95, Confidence: 90},
	}}
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/accuracy/AAPL", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Records []struct {
			Symbol string `json:"symbol"`
			Tier   string `json:"tier"`
		} `json:"records"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Records) != 1 || body.Records[0].Tier != string(domain.TierExcellent) {
		t.Fatalf("unexpected records: %+v", body.Records)
	}
}

func TestGetSentimentWithoutNews(t *testing.T) {
	h := newTestHandler()
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sentiment/AAPL", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["summary"] != nil {
		t.Fatalf("expected nil summary, got %v", body["summary"])
	}
}

func TestGetSentimentReturnsSummary(t *testing.T) {
	h := newTestHandler()
	h.sentiment = &sentimentReaderStub{summary: &domain.SentimentSummary{
		Symbol: "AAPL", Average: 0.4, Strength: 0.6, Label: "bullish", NewsCount: 7,
	}}
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sentiment/AAPL", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Summary *domain.SentimentSummary `json:"summary"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Summary == nil || body.Summary.NewsCount != 7 {
		t.Fatalf("unexpected summary: %+v", body.Summary)
	}
}

func TestGetPriceHistoryWindow(t *testing.T) {
	h := newTestHandler()
	h.prices = &priceHistoryStub{points: []*domain.PricePoint{
		{Symbol: "AAPL", Close: 190.2},
	}}
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/prices/AAPL/history?days=14", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Days   int                  `json:"days"`
		Points []*domain.PricePoint `json:"points"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Days != 14 || len(body.Points) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

type reportReaderStub struct {
	entries  []domain.LeaderboardEntry
	buckets  []domain.TrendBucket
	gotHours int
	err      error
}

func (s *reportReaderStub) Leaderboard(ctx context.Context, now time.Time) ([]domain.LeaderboardEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

func (s *reportReaderStub) Trend(ctx context.Context, now time.Time, hours int) ([]domain.TrendBucket, error) {
	s.gotHours = hours
	if s.err != nil {
		return nil, s.err
	}
	return s.buckets, nil
}

var _ ReportReader = (*reportReaderStub)(nil)
