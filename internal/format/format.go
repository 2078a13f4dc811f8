// Package format renders amounts for display: full Rupiah currency,
// thousands-grouped integers, and the short magnitude form used on chart
// labels. The thresholds and suffixes are golden-tested; do not tweak them.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rupiah formats a full currency amount, e.g. 1234567 -> "Rp 1.234.567".
func Rupiah(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "Rp 0"
	}
	return "Rp " + group(fmt.Sprintf("%.0f", v))
}

// Int formats an integer with dot thousands separators, e.g. 50579 -> "50.579".
func Int(n int) string {
	return group(strconv.Itoa(n))
}

// Abbrev formats a large number in the short form used on charts:
// billions get one decimal and an "M" suffix (miliar), millions "jt",
// thousands "k", anything smaller is grouped as-is.
func Abbrev(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("%.0fjt", v/1_000_000)
	case v >= 1000:
		return fmt.Sprintf("%.0fk", v/1000)
	default:
		return group(fmt.Sprintf("%.0f", v))
	}
}

// group inserts "." separators into a (possibly signed) integer string.
func group(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}
