package util

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  string
		ok    bool
	}{
		{name: "plain integer string", input: "19500", want: "19500", ok: true},
		{name: "comma thousands", input: "1,234,567", want: "1234567", ok: true},
		{name: "dot thousands comma decimal", input: "1.234,56", want: "1234.56", ok: true},
		{name: "lone comma decimal", input: "21,5", want: "21.5", ok: true},
		{name: "lone dot decimal", input: "21.5", want: "21.5", ok: true},
		{name: "lone dot three decimals", input: "1.234", want: "1.234", ok: true},
		{name: "dot thousands only", input: "1.234.000", want: "1234000", ok: true},
		{name: "float cell", input: 19500.0, want: "19500", ok: true},
		{name: "nil cell", input: nil, want: "0", ok: false},
		{name: "garbage", input: "abc", want: "0", ok: false},
		{name: "embedded spaces", input: " 1 000 ", want: "1000", ok: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseAmount(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{input: "  Xăng   RON 95-III  ", want: "Xăng RON 95-III"},
		{input: "'POS0012345", want: "POS0012345"},
		{input: "", want: ""},
		{input: "a\t b\n c", want: "a b c"},
	}
	for _, tc := range cases {
		if got := CleanText(tc.input); got != tc.want {
			t.Fatalf("CleanText(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestFormatTaxCode(t *testing.T) {
	cases := []struct {
		input any
		want  string
	}{
		{input: "8", want: "08"},
		{input: "8%", want: "08"},
		{input: 10.0, want: "10"},
		{input: 0.08, want: "08"},
		{input: "", want: ""},
		{input: nil, want: ""},
	}
	for _, tc := range cases {
		if got := FormatTaxCode(tc.input); got != tc.want {
			t.Fatalf("FormatTaxCode(%v) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
