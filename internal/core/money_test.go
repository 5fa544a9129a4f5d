package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"12.34", "12.34", true},
		{" 2.50 ", "2.5", true},
		{"-30", "-30", true},
		{"0", "0", true},
		{"abc", "", false},
		{"$5", "", false},
		{"1,000", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"   ", "", false},
		{"1e3", "1000", true},
		{"12345678901234567890.50", "12345678901234567890.5", true},
		{"0.000000000001", "0.000000000001", true},
		{"1e20000000", "", false},
		{"1e-20000000", "", false},
		{"123456789012345678901", "", false},
		{"0.0000000000001", "", false},
		{strings.Repeat("1", 65), "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatDollars(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"0", "$0.00"},
		{"10", "$10.00"},
		{"1234.5", "$1,234.50"},
		{"1234567.891", "$1,234,567.89"},
		{"0.005", "$0.01"},
		{"-12", "-$12.00"},
		{"-0.001", "$0.00"},
		{"9223372036854775807", "$9,223,372,036,854,775,807.00"},
		{"12345678901234567890.50", "$12,345,678,901,234,567,890.50"},
		{"-12345678901234567890.505", "-$12,345,678,901,234,567,890.51"},
	}
	for _, tc := range cases {
		if got := FormatDollars(decimal.RequireFromString(tc.in)); got != tc.out {
			t.Fatalf("%s expected %s, got %s", tc.in, tc.out, got)
		}
	}
}
