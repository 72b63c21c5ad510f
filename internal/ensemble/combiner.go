package ensemble

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"stockcast/internal/domain"
)

// sourceWeights is the fixed weight table over the three forecaster tags.
// Weights are renormalized over whichever sources produced a usable price,
// so partial ensembles still sum to 1.
var sourceWeights = map[string]float64{
	domain.SourceLSTM:  0.50,
	domain.SourceARIMA: 0.30,
	domain.SourceMA:    0.20,
}

// maxTrustedJump is the relative move beyond which a combined price is
// treated as suspect and its confidence halved.
const maxTrustedJump = 0.20

// ForecastSet holds one nullable price slot per forecaster source.
type ForecastSet struct {
	LSTM  *float64
	ARIMA *float64
	MA    *float64
}

type Combination struct {
	Price       float64
	Confidence  float64
	UsedSources int
	Weights     map[string]float64
}

// Combine folds the usable forecaster outputs into one weighted price.
// A slot is usable when it holds a finite positive value; anything else
// is treated as absent. Returns nil when no slot is usable, which the
// caller records as a skip rather than an error. currentPrice must be
// positive; the caller validates before invoking.
func Combine(set ForecastSet, currentPrice float64) *Combination {
	// Slot order is fixed so float summation is reproducible run to run.
	slots := []struct {
		name  string
		price *float64
	}{
		{domain.SourceLSTM, set.LSTM},
		{domain.SourceARIMA, set.ARIMA},
		{domain.SourceMA, set.MA},
	}

	activeWeight := 0.0
	used := make([]float64, 0, len(slots))
	for _, s := range slots {
		if usable(s.price) {
			activeWeight += sourceWeights[s.name]
			used = append(used, *s.price)
		}
	}
	if len(used) == 0 {
		return nil
	}

	normalized := make(map[string]float64, len(used))
	price := 0.0
	for _, s := range slots {
		if !usable(s.price) {
			continue
		}
		w := sourceWeights[s.name] / activeWeight
		normalized[s.name] = w
		price += w * *s.price
	}

	confidence := float64(len(used)) / 3.0
	if len(used) >= 2 {
		cv := stat.StdDev(used, nil) / stat.Mean(used, nil)
		confidence *= 1 - math.Min(cv, 0.5)
	}
	if math.Abs(price-currentPrice)/currentPrice > maxTrustedJump {
		confidence /= 2
	}

	return &Combination{
		Price:       price,
		Confidence:  clamp(confidence, 0, 1),
		UsedSources: len(used),
		Weights:     normalized,
	}
}

func usable(p *float64) bool {
	return p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0) && *p > 0
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
