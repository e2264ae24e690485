// Package common provides shared utilities across the application.
package common

import (
	"strings"
)

// Ticker represents a parsed, optionally exchange-qualified ticker.
// Format: EXCHANGE:CODE (e.g., "NYSE:JPM") or a bare code ("JPM").
type Ticker struct {
	// Exchange is the exchange code (e.g., "NYSE", "NASDAQ"); empty for bare codes
	Exchange string
	// Code is the security code, upper-cased (e.g., "JPM")
	Code string
	// Raw is the original ticker string
	Raw string
}

// ExchangeToSuffix maps exchange codes to EODHD API suffixes.
var ExchangeToSuffix = map[string]string{
	"US":     ".US",
	"NYSE":   ".US",
	"NASDAQ": ".US",
	"AMEX":   ".US",
	"ASX":    ".AU",
	"LSE":    ".LSE",
	"TSX":    ".TO",
	"XETRA":  ".XETRA",
}

// DefaultEODHDSuffix is used for bare codes.
const DefaultEODHDSuffix = ".US"

// NormalizeTicker trims and upper-cases a ticker.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// CanonicalTicker returns the upper-cased security code with any exchange
// qualifier removed ("NYSE:JPM" -> "JPM"). Every stage compares tickers in this form.
func CanonicalTicker(ticker string) string {
	return ParseTicker(ticker).Code
}

// ParseTicker parses a ticker string.
// Supports formats:
//   - "NYSE:JPM" -> Exchange="NYSE", Code="JPM"
//   - "NYSE.JPM" -> Exchange="NYSE", Code="JPM" (known exchanges only)
//   - "JPM"      -> Exchange="", Code="JPM"
//   - "brk.b"    -> Exchange="", Code="BRK.B" (dot kept when prefix is not an exchange)
func ParseTicker(ticker string) Ticker {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return Ticker{}
	}

	if idx := strings.Index(ticker, ":"); idx > 0 {
		return Ticker{
			Exchange: strings.ToUpper(ticker[:idx]),
			Code:     strings.ToUpper(ticker[idx+1:]),
			Raw:      ticker,
		}
	}

	if idx := strings.Index(ticker, "."); idx > 0 {
		if _, known := ExchangeToSuffix[strings.ToUpper(ticker[:idx])]; known {
			return Ticker{
				Exchange: strings.ToUpper(ticker[:idx]),
				Code:     strings.ToUpper(ticker[idx+1:]),
				Raw:      ticker,
			}
		}
	}

	return Ticker{
		Code: strings.ToUpper(ticker),
		Raw:  ticker,
	}
}

// String returns EXCHANGE:CODE, or the bare code when no exchange is known.
func (t Ticker) String() string {
	if t.Exchange == "" {
		return t.Code
	}
	return t.Exchange + ":" + t.Code
}

// EODHDSymbol returns the ticker in EODHD API format (CODE.SUFFIX), e.g. "JPM.US".
func (t Ticker) EODHDSymbol() string {
	if t.Code == "" {
		return ""
	}
	suffix, ok := ExchangeToSuffix[t.Exchange]
	if !ok {
		suffix = DefaultEODHDSuffix
	}
	return t.Code + suffix
}

// StripEODHDSuffix converts an EODHD symbol ("JPM.US") back to its bare code ("JPM").
// Symbols without a known suffix are only upper-cased.
func StripEODHDSuffix(symbol string) string {
	symbol = NormalizeTicker(symbol)
	if idx := strings.LastIndex(symbol, "."); idx > 0 {
		suffix := symbol[idx:]
		for _, known := range ExchangeToSuffix {
			if suffix == known {
				return symbol[:idx]
			}
		}
	}
	return symbol
}
