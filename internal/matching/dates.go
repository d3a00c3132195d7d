package matching

import (
	"regexp"
	"strconv"
)

var yearPattern = regexp.MustCompile(`\b(1[7-9]\d{2}|20[0-2]\d)\b`)

// ExtractYear finds the first standalone four-digit year between 1700 and
// 2029 in a free-form date ("1850-01-15", "circa 1825").
func ExtractYear(date string) (int, bool) {
	m := yearPattern.FindStringSubmatch(date)
	if m == nil {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return y, true
}

// YearScore bands the absolute difference between two years:
// 0 -> 100, <=2 -> 90, <=5 -> 70, otherwise 0.
func YearScore(diff int) float64 {
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return 100
	case diff <= 2:
		return 90
	case diff <= 5:
		return 70
	default:
		return 0
	}
}
