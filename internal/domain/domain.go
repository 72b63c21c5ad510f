package domain

import "time"

const (
	SourceLSTM  = "lstm"
	SourceARIMA = "arima"
	SourceMA    = "ma"
)

// EnsembleForecast is one persisted forecast row, keyed by
// (symbol, target_date, horizon_days). CombinedPrice is the weighted
// ensemble output and AdjustedPrice the final value after the sentiment
// adjustment; they are equal when no sentiment was available.
type EnsembleForecast struct {
	ID              int64      `json:"id"`
	Symbol          string     `json:"symbol"`
	ForecastDate    time.Time  `json:"forecast_date"`
	TargetDate      time.Time  `json:"target_date"`
	HorizonDays     int        `json:"horizon_days"`
	CurrentPrice    float64    `json:"current_price"`
	LSTMPrice       *float64   `json:"lstm_price,omitempty"`
	ARIMAPrice      *float64   `json:"arima_price,omitempty"`
	MAPrice         *float64   `json:"ma_price,omitempty"`
	CombinedPrice   float64    `json:"combined_price"`
	Confidence      float64    `json:"confidence"`
	SentimentAvg    *float64   `json:"sentiment_avg,omitempty"`
	SentimentImpact *float64   `json:"sentiment_impact,omitempty"`
	AdjustedPrice   float64    `json:"adjusted_price"`
	ActualClose     *float64   `json:"actual_close,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	EvaluatedAt     *time.Time `json:"evaluated_at,omitempty"`
}

type AccuracyTier string

const (
	TierExcellent  AccuracyTier = "excellent"
	TierGood       AccuracyTier = "good"
	TierAcceptable AccuracyTier = "acceptable"
	TierPoor       AccuracyTier = "poor"
)

// AccuracyRecord is one evaluation snapshot for a symbol, keyed by
// (symbol, bucket_time) so repeated runs inside the same hour overwrite
// instead of appending.
type AccuracyRecord struct {
	ID             int64     `json:"id"`
	Symbol         string    `json:"symbol"`
	BucketTime     time.Time `json:"bucket_time"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
	WindowDays     int       `json:"window_days"`
	SampleCount    int       `json:"sample_count"`
	MAE            float64   `json:"mae"`
	RMSE           float64   `json:"rmse"`
	MAPE           float64   `json:"mape"`
	R2             float64   `json:"r2"`
	DirectionalAcc float64   `json:"directional_acc"`
	Confidence     float64   `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Tier grades the record from its error metrics, strictest gate first.
func (r AccuracyRecord) Tier() AccuracyTier {
	switch {
	case r.MAE <= 2 && r.MAPE <= 2 && r.R2 >= 0.9:
		return TierExcellent
	case r.MAE <= 5 && r.MAPE <= 5 && r.R2 >= 0.7:
		return TierGood
	case r.MAE <= 10 && r.MAPE <= 10 && r.R2 >= 0.5:
		return TierAcceptable
	default:
		return TierPoor
	}
}

// SentimentSummary aggregates scored headlines for a symbol over a
// trailing window. Average is in [-1, 1], Strength in [0, 1].
type SentimentSummary struct {
	Symbol    string    `json:"symbol"`
	AsOf      time.Time `json:"as_of"`
	Average   float64   `json:"average"`
	Strength  float64   `json:"strength"`
	Label     string    `json:"label"`
	NewsCount int       `json:"news_count"`
}

type NewsItem struct {
	ID          int64      `json:"id"`
	Symbol      string     `json:"symbol"`
	Source      string     `json:"source"`
	SourceID    string     `json:"source_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url,omitempty"`
	PublishedAt time.Time  `json:"published_at"`
	Score       float64    `json:"score"`
	Strength    float64    `json:"strength"`
	Label       string     `json:"label"`
	ScoredBy    string     `json:"scored_by"`
	ScoredAt    *time.Time `json:"scored_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ConversationMessage is one turn of an advisor chat, persisted per
// Telegram chat so follow-up questions keep their context.
type ConversationMessage struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// RunResult summarizes one forecast or accuracy pass. Per-symbol detail
// stays in the log; only these aggregates travel outward.
type RunResult struct {
	RunID     string   `json:"run_id"`
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// NewsRunResult summarizes one headline ingest and scoring cycle.
type NewsRunResult struct {
	ItemsIngested int      `json:"items_ingested"`
	ItemsScored   int      `json:"items_scored"`
	Errors        []string `json:"errors,omitempty"`
}

type LeaderboardEntry struct {
	Rank        int          `json:"rank"`
	Symbol      string       `json:"symbol"`
	Confidence  float64      `json:"confidence"`
	MAE         float64      `json:"mae"`
	MAPE        float64      `json:"mape"`
	R2          float64      `json:"r2"`
	Tier        AccuracyTier `json:"tier"`
	EvaluatedAt time.Time    `json:"evaluated_at"`
}

// TrendBucket is one hour of averaged accuracy metrics across all
// evaluated symbols.
type TrendBucket struct {
	HourStart     time.Time `json:"hour_start"`
	AvgMAE        float64   `json:"avg_mae"`
	AvgMAPE       float64   `json:"avg_mape"`
	AvgR2         float64   `json:"avg_r2"`
	AvgConfidence float64   `json:"avg_confidence"`
	SymbolCount   int       `json:"symbol_count"`
}
