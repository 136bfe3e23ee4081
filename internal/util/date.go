package util

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// excelEpoch is the day-zero of Excel serial dates (Windows convention).
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"2006/01/02",
	"02/01/06",
	"02-01-06",
}

// ParseDate accepts native time values, Excel serial day numbers and the
// locale string formats the ledger exports use. It reports ok=false when
// nothing matches; it never guesses between day/month readings — see
// DateAmbiguous.
func ParseDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return dateOnly(val), true
	case float64:
		return serialDate(val)
	case int:
		return serialDate(float64(val))
	case int64:
		return serialDate(float64(val))
	case string:
		return parseDateString(val)
	default:
		return time.Time{}, false
	}
}

func parseDateString(raw string) (time.Time, bool) {
	s := CleanText(raw)
	if s == "" {
		return time.Time{}, false
	}
	// Timestamps keep only the date part ("13/07/2025 14:02:11").
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return dateOnly(t), true
		}
	}
	// A bare number may still be an Excel serial stored as text.
	if d, ok := ParseAmount(s); ok && d.GreaterThan(decimal.NewFromInt(59)) {
		return serialDate(d.InexactFloat64())
	}
	return time.Time{}, false
}

func serialDate(serial float64) (time.Time, bool) {
	if serial < 1 || serial > 200000 {
		return time.Time{}, false
	}
	return dateOnly(excelEpoch.AddDate(0, 0, int(serial))), true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateAmbiguous reports whether a parsed date could equally be read with
// day and month swapped. Both components at 12 or below (and unequal)
// means the day-first reading was a choice, not a certainty.
func DateAmbiguous(t time.Time) bool {
	day, month := t.Day(), int(t.Month())
	return day <= 12 && month <= 12 && day != month
}

// SwapDayMonth returns the other reading of an ambiguous date.
func SwapDayMonth(t time.Time) time.Time {
	return time.Date(t.Year(), time.Month(t.Day()), int(t.Month()), 0, 0, 0, 0, time.UTC)
}
