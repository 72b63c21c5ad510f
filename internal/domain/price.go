package domain

import (
	"strings"
	"time"
)

// PricePoint represents one daily OHLCV bar for a symbol. TradeDate is
// normalized to UTC midnight.
type PricePoint struct {
	Symbol    string    `json:"symbol"`
	TradeDate time.Time `json:"trade_date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// CompanyName maps tracked symbols to display names.
var CompanyName = map[string]string{
	"AAPL":  "Apple",
	"MSFT":  "Microsoft",
	"GOOGL": "Alphabet",
	"AMZN":  "Amazon",
	"NVDA":  "NVIDIA",
	"META":  "Meta Platforms",
	"TSLA":  "Tesla",
	"JPM":   "JPMorgan Chase",
	"V":     "Visa",
	"UNH":   "UnitedHealth",
}

// SupportedSymbols lists all tracked equity symbols.
var SupportedSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA",
	"META", "TSLA", "JPM", "V", "UNH",
}

// DefaultHorizons are the forecast horizons, in days, produced per symbol
// when a run does not name its own.
var DefaultHorizons = []int{1, 7, 30}

// DefaultAccuracyWindowDays bounds the trailing evaluation window.
const DefaultAccuracyWindowDays = 30

func IsSupportedSymbol(symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, s := range SupportedSymbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// Day truncates a timestamp to UTC midnight. Trade dates, forecast dates
// and target dates all live on this grid.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
