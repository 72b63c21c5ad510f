package sentiment

import (
	"fmt"
	"math"

	"stockcast/internal/domain"
)

// newsSaturation is the headline count at which volume stops adding
// weight; impact never exceeds half the configured strength.
const newsSaturation = 20.0

type Adjustment struct {
	Price   float64
	Applied float64
	Impact  float64
}

// Validate checks a summary against its contract ranges. A nil summary
// is valid and means "no sentiment". Out-of-range values are reported,
// never clamped.
func Validate(s *domain.SentimentSummary) error {
	if s == nil {
		return nil
	}
	if math.IsNaN(s.Average) || s.Average < -1 || s.Average > 1 {
		return fmt.Errorf("sentiment average %v out of range [-1, 1]", s.Average)
	}
	if math.IsNaN(s.Strength) || s.Strength < 0 || s.Strength > 1 {
		return fmt.Errorf("sentiment strength %v out of range [0, 1]", s.Strength)
	}
	if s.NewsCount < 0 {
		return fmt.Errorf("news count %d must not be negative", s.NewsCount)
	}
	return nil
}

// Adjust nudges a base prediction by the aggregated news mood. The
// result stays within 30% of the current price in either direction no
// matter how loud the news is. Inputs are assumed validated; callers
// run Validate first.
func Adjust(base, currentPrice float64, s *domain.SentimentSummary) Adjustment {
	if s == nil || s.NewsCount == 0 {
		return Adjustment{Price: base}
	}

	volumeFactor := math.Min(float64(s.NewsCount)/newsSaturation, 0.5)
	impact := s.Strength * volumeFactor
	ratio := s.Average * impact * 0.10

	adjusted := base * (1 + ratio)
	floor := currentPrice * 0.7
	ceil := currentPrice * 1.3
	if adjusted < floor {
		adjusted = floor
	}
	if adjusted > ceil {
		adjusted = ceil
	}

	return Adjustment{Price: adjusted, Applied: s.Average, Impact: impact}
}
