package accuracy

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// worstMAPE is reported when no pair has a usable denominator; absence
// of evidence reads as worst case, never as perfect.
const worstMAPE = 100.0

// Pair matches one forecast with its realized close for the same symbol
// and target time.
type Pair struct {
	TargetTime time.Time
	Predicted  float64
	Actual     float64
}

type Metrics struct {
	MAE            float64
	RMSE           float64
	MAPE           float64
	R2             float64
	DirectionalAcc float64
	Confidence     float64
	SampleCount    int
}

// Summarize computes error metrics over matched pairs ordered by
// ascending target time. Returns nil when fewer than two pairs are
// given; a symbol with one resolved forecast has nothing meaningful to
// grade yet.
func Summarize(pairs []Pair) *Metrics {
	n := len(pairs)
	if n < 2 {
		return nil
	}

	preds := make([]float64, n)
	actuals := make([]float64, n)
	absErrSum := 0.0
	sqErrSum := 0.0
	mapeSum := 0.0
	mapeN := 0
	for i, p := range pairs {
		preds[i] = p.Predicted
		actuals[i] = p.Actual
		d := p.Actual - p.Predicted
		absErrSum += math.Abs(d)
		sqErrSum += d * d
		if p.Actual != 0 {
			mapeSum += math.Abs(d) / p.Actual * 100
			mapeN++
		}
	}

	mae := absErrSum / float64(n)
	rmse := math.Sqrt(sqErrSum / float64(n))
	mape := worstMAPE
	if mapeN > 0 {
		mape = mapeSum / float64(mapeN)
	}

	r2 := stat.RSquaredFrom(preds, actuals, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		r2 = 0
	}

	confidence := 0.3*math.Max(0, 100-mae*5) +
		0.4*math.Max(0, 100-mape*2) +
		0.3*(r2*100)

	return &Metrics{
		MAE:            mae,
		RMSE:           rmse,
		MAPE:           mape,
		R2:             r2,
		DirectionalAcc: directionalAccuracy(pairs),
		Confidence:     clamp(confidence, 0, 100),
		SampleCount:    n,
	}
}

// directionalAccuracy scores how often the forecast called the move
// direction from the previous actual. The first pair has no reference
// and is excluded from the denominator; zero change on both sides
// counts as agreement.
func directionalAccuracy(pairs []Pair) float64 {
	if len(pairs) < 2 {
		return 0
	}
	hits := 0
	for i := 1; i < len(pairs); i++ {
		previous := pairs[i-1].Actual
		if sign(pairs[i].Actual-previous) == sign(pairs[i].Predicted-previous) {
			hits++
		}
	}
	return float64(hits) / float64(len(pairs)-1) * 100
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
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
