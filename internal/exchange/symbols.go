package exchange

import "strings"

// VenueSymbol converts BASE/QUOTE into Binance's concatenated form.
func VenueSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(symbol), "/", ""))
}

// SplitSymbol returns the base and quote assets of a BASE/QUOTE symbol.
func SplitSymbol(symbol string) (base, quote string) {
	base, quote, _ = strings.Cut(strings.ToUpper(strings.TrimSpace(symbol)), "/")
	return base, quote
}
