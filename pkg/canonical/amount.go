package canonical

import (
	"strconv"
	"strings"
)

// ParseAmount reads a currency-formatted value such as "$1,250,000.00" by
// dropping every character that is not a digit or the first decimal point.
// Unparseable input yields 0.
func ParseAmount(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	var b strings.Builder
	seenDot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		}
	}

	digits := strings.TrimSuffix(b.String(), ".")
	if digits == "" || digits == "." {
		return 0
	}

	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "$-") {
		v = -v
	}
	return v
}
