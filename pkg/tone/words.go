package tone

import (
	"math"
	"strings"
)

// Words splits s on runs of Unicode whitespace.
func Words(s string) []string {
	return strings.Fields(s)
}

// CountWords returns the number of whitespace-delimited words in s.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// PercentageChange returns the relative size change from original to result,
// rounded to two decimals. A zero original yields zero.
func PercentageChange(original, result int) float64 {
	if original == 0 {
		return 0
	}
	pct := float64(result-original) / float64(original) * 100
	return math.Round(pct*100) / 100
}
