package advisor

import (
	"strings"
	"testing"
	"time"

	"stockcast/internal/domain"
)

func TestBuildSystemPromptContainsPhilosophy(t *testing.T) {
	prompt := BuildSystemPrompt("some context")
	if !strings.Contains(prompt, "forecast explainer bot") {
		t.Fatal("expected explainer philosophy in prompt")
	}
	if !strings.Contains(prompt, "Never fabricate data") {
		t.Fatal("expected fabrication rule in prompt")
	}
	if !strings.Contains(prompt, "STORED ENGINE DATA") {
		t.Fatal("expected engine data header in prompt")
	}
	if !strings.Contains(prompt, "some context") {
		t.Fatal("expected forecast context in prompt")
	}
}

func TestFormatForecastContextWithForecastsAndAccuracy(t *testing.T) {
	sentiment := 0.5
	forecasts := []domain.EnsembleForecast{
		{
			Symbol:        "AAPL",
			HorizonDays:   7,
			CurrentPrice:  188,
			CombinedPrice: 190,
			AdjustedPrice: 192,
			Confidence:    0.8,
			TargetDate:    time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			SentimentAvg:  &sentiment,
		},
	}
	records := []domain.AccuracyRecord{
		{
			Symbol:         "AAPL",
			BucketTime:     time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC),
			MAE:            1.0,
			MAPE:           1.5,
			R2:             0.95,
			DirectionalAcc: 80,
			SampleCount:    12,
		},
	}

	ctx := FormatForecastContext(forecasts, records, nil)
	if !strings.Contains(ctx, "AAPL 7d: adjusted $192.00") {
		t.Fatal("expected adjusted price in context")
	}
	if !strings.Contains(ctx, "confidence 0.80") {
		t.Fatal("expected confidence in context")
	}
	if !strings.Contains(ctx, "sentiment=+0.50") {
		t.Fatal("expected sentiment in context")
	}
	if !strings.Contains(ctx, "MAPE 1.5%") {
		t.Fatal("expected MAPE in context")
	}
	if !strings.Contains(ctx, "directional 80%") {
		t.Fatal("expected directional accuracy as a percentage")
	}
	if !strings.Contains(ctx, "tier excellent") {
		t.Fatal("expected tier in context")
	}
}

func TestFormatForecastContextEmpty(t *testing.T) {
	ctx := FormatForecastContext(nil, nil, nil)
	if ctx != "No engine data currently available." {
		t.Fatalf("expected fallback text, got: %s", ctx)
	}
}

func TestFormatForecastContextLeaderboardOnly(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		{Rank: 1, Symbol: "NVDA", Confidence: 91, MAPE: 1.4, Tier: domain.TierExcellent},
		{Rank: 2, Symbol: "AAPL", Confidence: 72, MAPE: 3.8, Tier: domain.TierGood},
	}
	ctx := FormatForecastContext(nil, nil, entries)
	if !strings.Contains(ctx, "#1 NVDA") {
		t.Fatal("expected ranked entry in context")
	}
	if !strings.Contains(ctx, "tier good") {
		t.Fatal("expected tier in context")
	}
	if strings.Contains(ctx, "Latest Forecasts") {
		t.Fatal("should not contain forecasts section when no forecasts")
	}
}

func TestFormatForecastContextWithoutSentiment(t *testing.T) {
	forecasts := []domain.EnsembleForecast{
		{
			Symbol:        "MSFT",
			HorizonDays:   1,
			CurrentPrice:  410,
			CombinedPrice: 411,
			AdjustedPrice: 411,
			Confidence:    0.6,
			TargetDate:    time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		},
	}
	ctx := FormatForecastContext(forecasts, nil, nil)
	if strings.Contains(ctx, "sentiment=") {
		t.Fatal("should not contain sentiment when none was applied")
	}
}
