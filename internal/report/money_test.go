package report

import "testing"

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2_400_000_000, "$2.4B"},
		{1_000_000_000, "$1.0B"},
		{12_500_000, "$12.5M"},
		{1_050_000, "$1.1M"},
		{900_000, "$900K"},
		{15_300, "$15K"},
		{1_000, "$1K"},
		{999, "$999"},
		{0, "$0"},
	}
	for _, tt := range tests {
		if got := FormatUSD(tt.in); got != tt.want {
			t.Errorf("FormatUSD(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAddCommas(t *testing.T) {
	tests := []struct{ in, want string }{
		{"999", "999"},
		{"1000", "1,000"},
		{"1234567", "1,234,567"},
	}
	for _, tt := range tests {
		if got := addCommas(tt.in); got != tt.want {
			t.Errorf("addCommas(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
