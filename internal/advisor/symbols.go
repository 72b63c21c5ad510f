package advisor

import (
	"strings"

	"stockcast/internal/domain"
)

// ExtractSymbols scans the user message for mentions of tracked equity
// symbols, either by ticker or by company name ("apple" resolves to
// AAPL). Returns deduplicated uppercase symbols in mention order.
func ExtractSymbols(text string) []string {
	upper := strings.ToUpper(text)
	words := strings.FieldsFunc(upper, func(r rune) bool {
		return !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})

	byName := make(map[string]string, len(domain.CompanyName))
	for sym, name := range domain.CompanyName {
		first, _, _ := strings.Cut(strings.ToUpper(name), " ")
		byName[first] = sym
	}

	seen := make(map[string]bool)
	var result []string
	for _, w := range words {
		sym := ""
		if _, ok := domain.CompanyName[w]; ok {
			sym = w
		} else if mapped, ok := byName[w]; ok {
			sym = mapped
		}
		if sym != "" && !seen[sym] {
			seen[sym] = true
			result = append(result, sym)
		}
	}
	return result
}
