package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockcast/internal/domain"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// ForecastReader serves stored forecasts to chat commands.
type ForecastReader interface {
	GetLatestForecasts(ctx context.Context, symbol string) ([]domain.EnsembleForecast, error)
}

// AccuracyReader serves evaluation history to chat commands.
type AccuracyReader interface {
	GetAccuracyHistory(ctx context.Context, symbol string, limit int) ([]domain.AccuracyRecord, error)
}

// ReportReader serves the leaderboard to chat commands.
type ReportReader interface {
	Leaderboard(ctx context.Context, now time.Time) ([]domain.LeaderboardEntry, error)
}

// RunTrigger kicks off a forecast pass from chat.
type RunTrigger interface {
	RunForecastPass(ctx context.Context, now time.Time) (domain.RunResult, error)
}

// Asker is the conversational advisor behind /ask.
type Asker interface {
	Ask(ctx context.Context, chatID int64, message string) (string, error)
}

// StartTelegramBot wires the chat commands and begins long-polling in a
// goroutine. An empty token disables the bot entirely.
func StartTelegramBot(token string, forecasts ForecastReader, accuracy AccuracyReader, reports ReportReader, runs RunTrigger, advisor Asker) {
	if token == "" {
		log.Info().Msg("telegram token not set, skipping bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Error().Err(err).Msg("failed to create telegram bot")
		return
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/forecast", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send(fmt.Sprintf("Usage: /forecast AAPL\nSupported: %s", strings.Join(domain.SupportedSymbols, ", ")))
		}
		symbol := strings.ToUpper(args[0])
		if !domain.IsSupportedSymbol(symbol) {
			return c.Send(fmt.Sprintf("Unknown symbol: %s\nSupported: %s", symbol, strings.Join(domain.SupportedSymbols, ", ")))
		}
		rows, err := forecasts.GetLatestForecasts(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching forecasts for %s: %v", symbol, err))
		}
		return c.Send(formatForecastReply(symbol, rows))
	})

	b.Handle("/accuracy", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send(fmt.Sprintf("Usage: /accuracy AAPL\nSupported: %s", strings.Join(domain.SupportedSymbols, ", ")))
		}
		symbol := strings.ToUpper(args[0])
		if !domain.IsSupportedSymbol(symbol) {
			return c.Send(fmt.Sprintf("Unknown symbol: %s\nSupported: %s", symbol, strings.Join(domain.SupportedSymbols, ", ")))
		}
		records, err := accuracy.GetAccuracyHistory(context.Background(), symbol, 5)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching accuracy for %s: %v", symbol, err))
		}
		return c.Send(formatAccuracyReply(symbol, records))
	})

	b.Handle("/leaderboard", func(c tele.Context) error {
		entries, err := reports.Leaderboard(context.Background(), time.Now().UTC())
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching leaderboard: %v", err))
		}
		return c.Send(formatLeaderboardReply(entries))
	})

	b.Handle("/run", func(c tele.Context) error {
		if runs == nil {
			return c.Send("Forecast runs are not available right now.")
		}
		result, err := runs.RunForecastPass(context.Background(), time.Now().UTC())
		if err != nil {
			return c.Send(fmt.Sprintf("Forecast run failed: %v", err))
		}
		return c.Send(formatRunReply(result))
	})

	b.Handle("/ask", func(c tele.Context) error {
		if advisor == nil {
			return c.Send("Advisor is not configured.")
		}
		question := strings.TrimSpace(strings.Join(c.Args(), " "))
		if question == "" {
			return c.Send("Usage: /ask which forecasts can I trust?")
		}
		reply, err := advisor.Ask(context.Background(), c.Chat().ID, question)
		if err != nil {
			return c.Send(fmt.Sprintf("Advisor error: %v", err))
		}
		return c.Send(reply)
	})

	log.Info().Msg("telegram bot started")
	go b.Start()
}

func formatForecastReply(symbol string, forecasts []domain.EnsembleForecast) string {
	if len(forecasts) == 0 {
		return fmt.Sprintf("No forecasts stored for %s yet.", symbol)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s forecasts (from $%.2f):\n", symbol, forecasts[0].CurrentPrice))
	for _, f := range forecasts {
		sb.WriteString(fmt.Sprintf("%dd: $%.2f on %s (confidence %.2f",
			f.HorizonDays, f.AdjustedPrice, f.TargetDate.Format("Jan 2"), f.Confidence))
		if f.SentimentAvg != nil {
			sb.WriteString(fmt.Sprintf(", sentiment %+.2f", *f.SentimentAvg))
		}
		sb.WriteString(")\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatAccuracyReply(symbol string, records []domain.AccuracyRecord) string {
	if len(records) == 0 {
		return fmt.Sprintf("No accuracy history for %s yet.", symbol)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s accuracy:\n", symbol))
	for _, r := range records {
		sb.WriteString(fmt.Sprintf("%s: MAE $%.2f, MAPE %.1f%%, tier %s (%d samples)\n",
			r.BucketTime.Format("Jan 2 15:04"), r.MAE, r.MAPE, r.Tier(), r.SampleCount))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatLeaderboardReply(entries []domain.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "No symbols have been evaluated yet."
	}
	var sb strings.Builder
	sb.WriteString("Accuracy leaderboard:\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("#%d %s: confidence %.0f, MAPE %.1f%%, %s\n",
			e.Rank, e.Symbol, e.Confidence, e.MAPE, e.Tier))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatRunReply(result domain.RunResult) string {
	return fmt.Sprintf("Forecast run complete: %d processed, %d skipped, %d failed.",
		result.Processed, result.Skipped, result.Failed)
}
