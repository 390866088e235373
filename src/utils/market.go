package utils

import "strings"

// NormalizeMarket trims and upper-cases a market code ("krw-btc " -> "KRW-BTC").
func NormalizeMarket(market string) string {
	return strings.ToUpper(strings.TrimSpace(market))
}

// NormalizeMarkets normalizes markets, dropping blanks and duplicates while keeping order.
func NormalizeMarkets(markets []string) []string {
	seen := make(map[string]struct{}, len(markets))
	out := make([]string, 0, len(markets))
	for _, m := range markets {
		n := NormalizeMarket(m)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
