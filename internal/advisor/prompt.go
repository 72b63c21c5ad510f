package advisor

import (
	"fmt"
	"strings"
	"time"

	"stockcast/internal/domain"
)

const forecastPhilosophy = `You are a stock forecast explainer bot. Your role is to interpret the stored ensemble forecasts and their measured accuracy, NOT to invent predictions yourself.

How the numbers are made:
- Each forecast blends lstm, arima, and moving-average model prices with fixed weights, then adjusts for recent news sentiment.
- Confidence (0..1) reflects model agreement; wide disagreement or a large jump from the current price lowers it.
- Accuracy records grade past forecasts against realized closes: MAE/RMSE in dollars, MAPE in percent, R-squared for fit, directional accuracy for up/down calls.

Rules:
- Always cite the stored forecast or accuracy numbers when making observations.
- Never fabricate data. If a symbol has no forecasts or no accuracy history, say so honestly.
- Flag low confidence (< 0.4) and poor accuracy tiers explicitly.
- Keep responses concise. You are talking via Telegram.
- Do not give buy/sell advice; explain what the engine's numbers say and how reliable they have been.`

func BuildSystemPrompt(forecastContext string) string {
	var sb strings.Builder
	sb.WriteString(forecastPhilosophy)
	sb.WriteString("\n\n--- STORED ENGINE DATA (as of ")
	sb.WriteString(time.Now().UTC().Format(time.RFC822))
	sb.WriteString(") ---\n")
	sb.WriteString(forecastContext)
	return sb.String()
}

// FormatForecastContext renders forecasts, accuracy history, and the
// leaderboard into the plain-text block injected into the system prompt.
func FormatForecastContext(forecasts []domain.EnsembleForecast, records []domain.AccuracyRecord, entries []domain.LeaderboardEntry) string {
	var sb strings.Builder

	if len(forecasts) > 0 {
		sb.WriteString("\nLatest Forecasts:\n")
		for _, f := range forecasts {
			sb.WriteString(fmt.Sprintf("  %s %dd: adjusted $%.2f (combined $%.2f, confidence %.2f, from $%.2f on %s)",
				f.Symbol, f.HorizonDays, f.AdjustedPrice, f.CombinedPrice, f.Confidence,
				f.CurrentPrice, f.TargetDate.Format("2006-01-02")))
			if f.SentimentAvg != nil {
				sb.WriteString(fmt.Sprintf(" sentiment=%+.2f", *f.SentimentAvg))
			}
			sb.WriteString("\n")
		}
	}

	if len(records) > 0 {
		sb.WriteString("\nAccuracy History:\n")
		for _, r := range records {
			sb.WriteString(fmt.Sprintf("  %s @ %s: MAE $%.2f, MAPE %.1f%%, R2 %.2f, directional %.0f%%, tier %s (%d samples)\n",
				r.Symbol, r.BucketTime.Format("2006-01-02 15:04"),
				r.MAE, r.MAPE, r.R2, r.DirectionalAcc, r.Tier(), r.SampleCount))
		}
	}

	if len(entries) > 0 {
		sb.WriteString("\nAccuracy Leaderboard:\n")
		for _, e := range entries {
			sb.WriteString(fmt.Sprintf("  #%d %s: confidence %.0f, MAPE %.1f%%, tier %s\n",
				e.Rank, e.Symbol, e.Confidence, e.MAPE, e.Tier))
		}
	}

	if sb.Len() == 0 {
		return "No engine data currently available."
	}
	return sb.String()
}
