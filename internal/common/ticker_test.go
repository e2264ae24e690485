package common

import (
	"testing"
)

func TestParseTicker(t *testing.T) {
	tests := []struct {
		input        string
		wantExchange string
		wantCode     string
		wantString   string
		wantEODHD    string
	}{
		// Exchange-qualified format with colon separator
		{"NYSE:JPM", "NYSE", "JPM", "NYSE:JPM", "JPM.US"},
		{"ASX:BHP", "ASX", "BHP", "ASX:BHP", "BHP.AU"},
		{"LSE:VOD", "LSE", "VOD", "LSE:VOD", "VOD.LSE"},

		// Exchange-qualified format with dot separator (known exchanges only)
		{"NASDAQ.MRNA", "NASDAQ", "MRNA", "NASDAQ:MRNA", "MRNA.US"},
		{"ASX.BHP", "ASX", "BHP", "ASX:BHP", "BHP.AU"},

		// Bare codes default to the US suffix
		{"JPM", "", "JPM", "JPM", "JPM.US"},
		{"brk.b", "", "BRK.B", "BRK.B", "BRK.B.US"},

		// Unknown exchange prefix on a colon is still taken as the exchange
		{"XYZ:ABC", "XYZ", "ABC", "XYZ:ABC", "ABC.US"},

		// Whitespace handling
		{"  nyse:jpm  ", "NYSE", "JPM", "NYSE:JPM", "JPM.US"},

		// Empty input
		{"", "", "", "", ""},
		{"   ", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseTicker(tt.input)
			if got.Exchange != tt.wantExchange {
				t.Errorf("ParseTicker(%q).Exchange = %q, want %q", tt.input, got.Exchange, tt.wantExchange)
			}
			if got.Code != tt.wantCode {
				t.Errorf("ParseTicker(%q).Code = %q, want %q", tt.input, got.Code, tt.wantCode)
			}
			if got.String() != tt.wantString {
				t.Errorf("ParseTicker(%q).String() = %q, want %q", tt.input, got.String(), tt.wantString)
			}
			if got.EODHDSymbol() != tt.wantEODHD {
				t.Errorf("ParseTicker(%q).EODHDSymbol() = %q, want %q", tt.input, got.EODHDSymbol(), tt.wantEODHD)
			}
		})
	}
}

func TestStripEODHDSuffix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"JPM.US", "JPM"},
		{"bhp.au", "BHP"},
		{"VOD.LSE", "VOD"},
		{"BRK.B", "BRK.B"},
		{"XOM", "XOM"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := StripEODHDSuffix(tt.input); got != tt.want {
				t.Errorf("StripEODHDSuffix(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTicker(t *testing.T) {
	if got := NormalizeTicker("  jpm "); got != "JPM" {
		t.Errorf("NormalizeTicker() = %q, want JPM", got)
	}
}
