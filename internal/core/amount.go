// Package core holds the pure domain of the cashflow bot: entity types, the
// free-form amount parser, the civil-calendar period resolver and rupiah
// formatting. Nothing in here touches the store or the transport.
package core

import (
	"math"
	"strconv"
	"strings"
)

// magnitude suffixes understood by the parser, longest first so "juta" is
// stripped before "jt" ever matches inside it.
var magnitudes = []struct {
	token      string
	multiplier float64
}{
	{"juta", 1_000_000},
	{"ribu", 1_000},
	{"jt", 1_000_000},
	{"rb", 1_000},
	{"k", 1_000},
}

// ParseAmount turns free-form numeric text into a whole rupiah amount.
//
// It understands Indonesian magnitude suffixes ("50rb", "1.5jt", "12,5k") and
// both separator conventions: a single comma or dot is a decimal separator,
// while two or more dots mean every dot is a thousands separator and all are
// dropped ("1.500.000" -> 1500000). The result is rounded to the nearest
// integer.
//
// Examples:
//
//	ParseAmount("50000") -> 50000
//	ParseAmount("50rb")  -> 50000
//	ParseAmount("1.5jt") -> 1500000
//	ParseAmount("12,5k") -> 12500
func ParseAmount(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, ErrInvalidAmount
	}

	multiplier := 1.0
	for _, m := range magnitudes {
		if strings.Contains(s, m.token) {
			multiplier = m.multiplier
			s = strings.TrimSpace(strings.ReplaceAll(s, m.token, ""))
			break
		}
	}
	if s == "" {
		// A bare suffix with no digits ("rb", "jt").
		return 0, ErrInvalidAmount
	}

	// A single comma is a decimal separator.
	s = strings.Replace(s, ",", ".", 1)

	// More than one dot left means every dot is a thousands separator.
	if strings.Count(s, ".") > 1 {
		s = strings.ReplaceAll(s, ".", "")
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 {
		return 0, ErrInvalidAmount
	}

	// Reject amounts that do not fit in int64 rupiah; the float conversion
	// would otherwise wrap around to a negative value.
	result := math.Round(value * multiplier)
	if result >= math.MaxInt64 {
		return 0, ErrInvalidAmount
	}

	return int64(result), nil
}
