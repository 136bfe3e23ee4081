package util

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  string
		ok    bool
	}{
		{name: "day first slash", input: "13/07/2025", want: "2025-07-13", ok: true},
		{name: "day first dash", input: "13-07-2025", want: "2025-07-13", ok: true},
		{name: "iso", input: "2025-07-13", want: "2025-07-13", ok: true},
		{name: "iso slash", input: "2025/07/13", want: "2025-07-13", ok: true},
		{name: "two digit year", input: "13/07/25", want: "2025-07-13", ok: true},
		{name: "timestamp keeps date part", input: "13/07/2025 14:02:11", want: "2025-07-13", ok: true},
		{name: "excel serial", input: 45851.0, want: "2025-07-13", ok: true},
		{name: "excel serial as text", input: "45851", want: "2025-07-13", ok: true},
		{name: "native time", input: time.Date(2025, 7, 13, 9, 30, 0, 0, time.UTC), want: "2025-07-13", ok: true},
		{name: "garbage", input: "n/a", want: "", ok: false},
		{name: "nil", input: nil, want: "", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseDate(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if tc.ok && got.Format("2006-01-02") != tc.want {
				t.Fatalf("got %s want %s", got.Format("2006-01-02"), tc.want)
			}
		})
	}
}

func TestDateAmbiguity(t *testing.T) {
	d := time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)
	if !DateAmbiguous(d) {
		t.Fatal("03/05 should be ambiguous")
	}
	if got := SwapDayMonth(d); got.Day() != 5 || got.Month() != time.March {
		t.Fatalf("swap = %s", got.Format("2006-01-02"))
	}
	if DateAmbiguous(time.Date(2025, 7, 13, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("13/07 is not ambiguous")
	}
	if DateAmbiguous(time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("04/04 swaps to itself")
	}
}
