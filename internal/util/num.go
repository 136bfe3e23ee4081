package util

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reSpaces       = regexp.MustCompile(`\s+`)
	reDotThousands = regexp.MustCompile(`^-?\d{1,3}(?:\.\d{3}){2,}(?:,\d+)?$`)
)

// CleanText trims the value, strips one leading apostrophe (spreadsheet
// text-escape artifact) and collapses internal whitespace runs.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "'") {
		s = s[1:]
	}
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// ParseAmount converts a heterogeneous cell value to a decimal. Malformed
// cells yield zero and ok=false rather than an error: one bad cell in a
// thousand-row ledger must not abort the batch.
//
// Separator heuristic: when both a comma and a dot appear, the dot is the
// thousands separator and the comma the decimal point; a lone separator is
// the decimal point unless it groups exactly three trailing digits more
// than once.
func ParseAmount(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, false
	case float64:
		return decimal.NewFromFloat(val), true
	case float32:
		return decimal.NewFromFloat32(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case decimal.Decimal:
		return val, true
	case string:
		return parseAmountString(val)
	default:
		return decimal.Zero, false
	}
}

// ParseQuantity parses like ParseAmount; callers treat a non-positive
// result as "not a transaction".
func ParseQuantity(v any) (decimal.Decimal, bool) {
	return ParseAmount(v)
}

func parseAmountString(raw string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(CleanText(raw), " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, false
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case hasComma:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	case reDotThousands.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatTaxCode renders a VAT rate as the two-digit UpSSE tax code
// ("08", "10"). Fractional inputs below 1 are read as rate fractions.
func FormatTaxCode(v any) string {
	d, ok := ParseAmount(v)
	if !ok {
		if s, isStr := v.(string); isStr {
			d, ok = parseAmountString(strings.ReplaceAll(s, "%", ""))
		}
		if !ok {
			return ""
		}
	}
	if d.IsZero() {
		return "00"
	}
	if d.GreaterThan(decimal.Zero) && d.LessThan(decimal.NewFromInt(1)) {
		d = d.Mul(decimal.NewFromInt(100))
	}
	n := d.Round(0).IntPart()
	if n < 0 || n > 99 {
		return ""
	}
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}
