package utils

import (
	"strings"
)

// Index symbols users type by name rather than by Yahoo's caret notation.
var indexTickers = map[string]string{
	"SPX":       "^GSPC",
	"S&P500":    "^GSPC",
	"S&P 500":   "^GSPC",
	"SP500":     "^GSPC",
	"DOW":       "^DJI",
	"DJIA":      "^DJI",
	"NASDAQ":    "^IXIC",
	"NASDAQ100": "^NDX",
	"NDX":       "^NDX",
	"RUSSELL":   "^RUT",
	"RUT":       "^RUT",
	"VIX":       "^VIX",
}

// Class-share tickers whose dot form must survive normalization: Yahoo and
// most vendors spell them with a dash instead.
var classShareDash = strings.NewReplacer(".", "-")

// NormalizeTicker canonicalizes a user-input US ticker: trims whitespace and
// the chat-style $ prefix, uppercases, and resolves common index names to
// their caret symbols. Class shares keep their dot form here; dash conversion
// is per-vendor.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	ticker = strings.TrimPrefix(ticker, "$")

	if idx, ok := indexTickers[ticker]; ok {
		return idx
	}
	return ticker
}

// ToYahooTicker converts a normalized ticker to Yahoo Finance form. Index
// carets pass through; class-share dots become dashes (BRK.B → BRK-B).
func ToYahooTicker(ticker string) string {
	ticker = NormalizeTicker(ticker)
	if strings.HasPrefix(ticker, "^") {
		return ticker
	}
	return classShareDash.Replace(ticker)
}

// FromYahooTicker restores the dot form of a class-share ticker (BRK-B →
// BRK.B). Carets and plain tickers pass through.
func FromYahooTicker(yhTicker string) string {
	if strings.HasPrefix(yhTicker, "^") {
		return yhTicker
	}
	return strings.ReplaceAll(yhTicker, "-", ".")
}

// IsIndex reports whether the ticker refers to an index rather than a stock.
func IsIndex(ticker string) bool {
	ticker = NormalizeTicker(ticker)
	return strings.HasPrefix(ticker, "^")
}

// ValidTicker reports whether the string looks like a plausible US equity or
// index symbol: 1-6 letters, optionally a caret prefix or one dot class
// suffix. It is a sanity filter for user input, not an existence check.
func ValidTicker(ticker string) bool {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return false
	}
	ticker = strings.TrimPrefix(ticker, "^")

	base, class, hasClass := strings.Cut(ticker, ".")
	if len(base) == 0 || len(base) > 6 {
		return false
	}
	if hasClass && (len(class) == 0 || len(class) > 2) {
		return false
	}
	for _, r := range base + class {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
