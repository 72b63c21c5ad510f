package news

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		" aapl ": "AAPL",
		"MSFT":   "MSFT",
		"fake":   "",
		"":       "",
	}
	for in, want := range cases {
		if got := normalizeSymbol(in); got != want {
			t.Fatalf("normalizeSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}
