package ensemble

import (
	"math"
	"testing"
)

func fp(v float64) *float64 { return &v }

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestCombineAllSourcesWorkedExample(t *testing.T) {
	out := Combine(ForecastSet{LSTM: fp(1010), ARIMA: fp(990), MA: fp(1000)}, 1000)
	if out == nil {
		t.Fatal("expected a combination")
	}
	if !near(out.Price, 1002.0, 1e-9) {
		t.Fatalf("expected combined price 1002.0, got %.12f", out.Price)
	}
	if !near(out.Confidence, 0.99, 1e-9) {
		t.Fatalf("expected confidence 0.99, got %.12f", out.Confidence)
	}
	if out.UsedSources != 3 {
		t.Fatalf("expected 3 used sources, got %d", out.UsedSources)
	}
}

func TestCombineRenormalizesMissingSources(t *testing.T) {
	out := Combine(ForecastSet{LSTM: fp(1010), MA: fp(1000)}, 1000)
	if out == nil {
		t.Fatal("expected a combination")
	}
	if len(out.Weights) != 2 {
		t.Fatalf("expected two active weights, got %+v", out.Weights)
	}
	if !near(out.Weights["lstm"], 5.0/7.0, 1e-12) || !near(out.Weights["ma"], 2.0/7.0, 1e-12) {
		t.Fatalf("expected weights 5/7 and 2/7, got %+v", out.Weights)
	}
	want := (0.5*1010 + 0.2*1000) / 0.7
	if !near(out.Price, want, 1e-9) {
		t.Fatalf("expected price %.6f, got %.6f", want, out.Price)
	}
}

func TestCombineSingleSource(t *testing.T) {
	out := Combine(ForecastSet{ARIMA: fp(990)}, 1000)
	if out == nil {
		t.Fatal("expected a combination")
	}
	if !near(out.Price, 990, 1e-9) {
		t.Fatalf("single source should pass its price through, got %.6f", out.Price)
	}
	if out.Confidence > 1.0/3.0+1e-12 {
		t.Fatalf("single source confidence must not exceed 1/3, got %.6f", out.Confidence)
	}
	if !near(out.Weights["arima"], 1.0, 1e-12) {
		t.Fatalf("lone source should carry the full weight, got %+v", out.Weights)
	}
}

func TestCombineNothingUsable(t *testing.T) {
	if out := Combine(ForecastSet{}, 1000); out != nil {
		t.Fatalf("expected nil for empty set, got %+v", out)
	}
	nan := math.NaN()
	inf := math.Inf(1)
	if out := Combine(ForecastSet{LSTM: &nan, ARIMA: &inf, MA: fp(-5)}, 1000); out != nil {
		t.Fatalf("non-finite and non-positive slots must count as absent, got %+v", out)
	}
}

func TestCombineIgnoresUnusableSlots(t *testing.T) {
	nan := math.NaN()
	out := Combine(ForecastSet{LSTM: &nan, ARIMA: fp(990), MA: fp(0)}, 1000)
	if out == nil {
		t.Fatal("expected a combination from the one usable slot")
	}
	if out.UsedSources != 1 || !near(out.Price, 990, 1e-9) {
		t.Fatalf("expected lone arima combination, got %+v", out)
	}
}

func TestCombineHalvesConfidenceOnLargeJump(t *testing.T) {
	steady := Combine(ForecastSet{MA: fp(1010)}, 1000)
	jumpy := Combine(ForecastSet{MA: fp(1300)}, 1000)
	if steady == nil || jumpy == nil {
		t.Fatal("expected combinations")
	}
	if !near(jumpy.Confidence, steady.Confidence/2, 1e-12) {
		t.Fatalf("expected halved confidence on >20%% move: steady %.6f, jumpy %.6f",
			steady.Confidence, jumpy.Confidence)
	}
}

func TestCombineCapsDispersionPenalty(t *testing.T) {
	// cv well above 0.5 must be capped, leaving count/3 * 0.5.
	out := Combine(ForecastSet{LSTM: fp(100), ARIMA: fp(300)}, 180)
	if out == nil {
		t.Fatal("expected a combination")
	}
	if !near(out.Confidence, (2.0/3.0)*0.5, 1e-9) {
		t.Fatalf("expected capped confidence 1/3, got %.6f", out.Confidence)
	}
}

func TestCombineConfidenceMonotoneInDispersion(t *testing.T) {
	tight := Combine(ForecastSet{LSTM: fp(1001), ARIMA: fp(999)}, 1000)
	loose := Combine(ForecastSet{LSTM: fp(1100), ARIMA: fp(900)}, 1000)
	if tight == nil || loose == nil {
		t.Fatal("expected combinations")
	}
	if loose.Confidence > tight.Confidence {
		t.Fatalf("confidence must not grow with dispersion: tight %.6f, loose %.6f",
			tight.Confidence, loose.Confidence)
	}
}

func TestCombineIsDeterministic(t *testing.T) {
	set := ForecastSet{LSTM: fp(101.3), ARIMA: fp(99.8), MA: fp(100.4)}
	first := Combine(set, 100.1)
	for i := 0; i < 50; i++ {
		again := Combine(set, 100.1)
		if again.Price != first.Price || again.Confidence != first.Confidence {
			t.Fatalf("combine drifted on repeat %d: %+v vs %+v", i, again, first)
		}
	}
}
