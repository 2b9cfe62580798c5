package core

import (
	"strconv"

	"github.com/dustin/go-humanize"
)

// PopulationDensityPlaceholder is shown instead of a computed density.
const PopulationDensityPlaceholder = "128"

// Round1 rounds to one decimal the way "%.1f" formatting does.
func Round1(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// FormatPercent renders a percentage with one decimal, e.g. "48.7%".
func FormatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

// FormatCount renders a count with thousands separators, e.g. "12,345".
func FormatCount(n int64) string {
	return humanize.Comma(n)
}
