package domain

import (
	"testing"
	"time"
)

func TestAccuracyTierBoundaries(t *testing.T) {
	cases := []struct {
		name string
		rec  AccuracyRecord
		want AccuracyTier
	}{
		{"excellent at the gates", AccuracyRecord{MAE: 2, MAPE: 2, R2: 0.9}, TierExcellent},
		{"good at the gates", AccuracyRecord{MAE: 5, MAPE: 5, R2: 0.7}, TierGood},
		{"acceptable at the gates", AccuracyRecord{MAE: 10, MAPE: 10, R2: 0.5}, TierAcceptable},
		{"poor when any gate misses", AccuracyRecord{MAE: 10.01, MAPE: 3, R2: 0.99}, TierPoor},
		{"mixed gates drop a tier", AccuracyRecord{MAE: 1, MAPE: 6, R2: 0.95}, TierAcceptable},
		{"negative r2 is poor", AccuracyRecord{MAE: 1, MAPE: 1, R2: -0.2}, TierPoor},
	}
	for _, tc := range cases {
		if got := tc.rec.Tier(); got != tc.want {
			t.Errorf("%s: got %s, want %s (record %+v)", tc.name, got, tc.want, tc.rec)
		}
	}
}

func TestIsSupportedSymbol(t *testing.T) {
	if !IsSupportedSymbol("AAPL") {
		t.Error("AAPL should be supported")
	}
	if !IsSupportedSymbol(" nvda ") {
		t.Error("symbol matching should trim and upcase")
	}
	if IsSupportedSymbol("ZZZZ") {
		t.Error("ZZZZ should not be supported")
	}
}

func TestDayNormalizesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	d := Day(time.Date(2026, 3, 4, 21, 15, 0, 0, loc))
	want := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if !d.Equal(want) {
		t.Errorf("Day() = %v, want %v", d, want)
	}
	if d.Location() != time.UTC {
		t.Errorf("Day() location = %v, want UTC", d.Location())
	}
}

func TestEnsembleForecastFields(t *testing.T) {
	lstm := 101.5
	f := EnsembleForecast{
		Symbol:        "AAPL",
		HorizonDays:   7,
		LSTMPrice:     &lstm,
		CombinedPrice: 100.2,
		AdjustedPrice: 100.2,
		Confidence:    0.66,
	}
	if f.Symbol != "AAPL" || f.HorizonDays != 7 || *f.LSTMPrice != 101.5 {
		t.Errorf("EnsembleForecast fields not set correctly: %+v", f)
	}
	if f.ARIMAPrice != nil || f.MAPrice != nil {
		t.Errorf("absent sources should stay nil: %+v", f)
	}
}
