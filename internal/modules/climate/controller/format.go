package controller

import (
	"math"
	"strconv"
	"strings"
)

// formatFloat renders v the way Python's repr does: shortest round-trip
// digits, a trailing ".0" on whole numbers, and exponent notation outside
// [1e-4, 1e16).
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// formatAggregate renders a nullable aggregate; NULL becomes "null".
func formatAggregate(v *float64) string {
	if v == nil {
		return "null"
	}
	return formatFloat(*v)
}
