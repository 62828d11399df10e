package core

import (
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
		{"1.0", "1", true},
		{"-45.50", "-45.5", true},
		{" 2.50 ", "2.5", true},
		{"₹1200", "1200", true},
		{"₹ 1,200.75", "1200.75", true},
		{"Rs.300", "300", true},
		{"-Rs. 300", "-300", true},
		{"INR 99", "99", true},
		{"0", "0", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"₹", "", false},
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

func TestFormatRupeesTruncates(t *testing.T) {
	cases := map[string]string{
		"4700":    "4700",
		"1999.95": "1999",
		"-12.7":   "-12",
		"0.4":     "0",
	}
	for in, want := range cases {
		if got := FormatRupees(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatRupees(%s) = %q, want %q", in, got, want)
		}
	}
}
