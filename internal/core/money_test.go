package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.0", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{"0", 0, true},
		{"1.005", 1.005, true}, // no rounding before display
		{" 2.50 ", 2.5, true},
		{"-1", -1, true},
		{"-2,5", -2.5, true},
		{"-", 0, false},
		{"--1", 0, false},
		{"-+1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[float64]string{
		0:      "0.00",
		12.3:   "12.30",
		1234.5: "1234.50",
		0.125:  "0.13",
	}
	for in, want := range cases {
		if got := FormatAmount(in); got != want {
			t.Errorf("FormatAmount(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	if got := FormatMoney(12.3, "USD"); got != "$12.30" {
		t.Errorf("FormatMoney USD = %q, want $12.30", got)
	}
	if got := FormatMoney(5, "NOPE"); got != "$5.00" {
		t.Errorf("unknown currency should fall back to USD, got %q", got)
	}
}
