// Package forecaster produces the per-source price predictions that the
// ensemble combiner merges. Sources either return a price or abstain;
// an abstaining source simply leaves its ensemble slot empty.
package forecaster

import "context"

type Forecaster interface {
	// Source identifies which ensemble slot the prediction fills.
	Source() string
	// Predict returns the expected close price horizonDays ahead.
	// A nil price with a nil error means the source abstains.
	Predict(ctx context.Context, symbol string, horizonDays int) (*float64, error)
}
