package services

import (
	"math"
	"sort"
	"strings"

	"munidash/internal/core"
)

// percentTolerance is how far the two rounded sex percentages may drift from
// 100 before female is recomputed from male.
const percentTolerance = 0.1

// DeriveMetrics computes the display metrics for one municipality row. Health
// views that do not list the municipality contribute zero.
func DeriveMetrics(row core.PopulationRow, health core.HealthAggregates) core.MunicipalityMetrics {
	male, female := SexTotals(row)
	malePct, femalePct := SexPercentages(male, female)
	return core.MunicipalityMetrics{
		Municipality:        row.Municipality,
		TotalPopulation:     TotalPopulation(row),
		MalePopulation:      male,
		FemalePopulation:    female,
		MalePct:             malePct,
		FemalePct:           femalePct,
		MajorityAgeBand:     MajorityAgeBand(row),
		Pyramid:             PyramidSeries(row),
		FacilityTypes:       Breakdown(health.FacilityTypes, row.Municipality),
		AuxiliaryCount:      health.Auxiliary.Get(row.Municipality),
		MidwifeCount:        health.Midwives.Get(row.Municipality),
		UniqueFacilityCount: health.UniqueFacilities.Get(row.Municipality),
		HealthAvailable:     !health.Empty(),
		PopulationDensity:   core.PopulationDensityPlaceholder,
	}
}

// TotalPopulation sums every canonical population column.
func TotalPopulation(row core.PopulationRow) int64 {
	var total int64
	for _, c := range core.PopulationColumns() {
		total += row.Value(c)
	}
	return total
}

// SexTotals sums the male-suffixed and female-suffixed columns.
func SexTotals(row core.PopulationRow) (male, female int64) {
	for _, c := range core.PopulationColumns() {
		switch {
		case strings.HasSuffix(c, core.SuffixMale):
			male += row.Value(c)
		case strings.HasSuffix(c, core.SuffixFemale):
			female += row.Value(c)
		}
	}
	return male, female
}

// SexPercentages returns both shares rounded to one decimal. When the rounded
// values do not add up to 100 within tolerance, female is taken as 100 minus
// the rounded male share. With no sex-attributed population both are zero.
func SexPercentages(male, female int64) (malePct, femalePct float64) {
	total := male + female
	if total <= 0 {
		return 0, 0
	}
	malePct = core.Round1(float64(male) / float64(total) * 100)
	femalePct = core.Round1(float64(female) / float64(total) * 100)
	if math.Abs(malePct+femalePct-100) > percentTolerance {
		femalePct = core.Round1(100 - malePct)
	}
	return malePct, femalePct
}

// MajorityAgeBand returns the label of the band with the largest male plus
// female count. Ties go to the youngest band.
func MajorityAgeBand(row core.PopulationRow) string {
	best, bestSum := "", int64(-1)
	for _, b := range core.AgeBands {
		sum := row.Value(b.Key+core.SuffixMale) + row.Value(b.Key+core.SuffixFemale)
		if sum > bestSum {
			best, bestSum = b.Label, sum
		}
	}
	return best
}

// PyramidSeries returns the age bands ordered by lower bound with male counts
// negated.
func PyramidSeries(row core.PopulationRow) []core.PyramidPoint {
	bands := append([]core.AgeBand(nil), core.AgeBands...)
	sort.SliceStable(bands, func(i, j int) bool {
		return core.BandLowerBound(bands[i].Key) < core.BandLowerBound(bands[j].Key)
	})
	points := make([]core.PyramidPoint, 0, len(bands))
	for _, b := range bands {
		points = append(points, core.PyramidPoint{
			Band:   b.Key,
			Label:  core.BandLabel(b.Key),
			Male:   -row.Value(b.Key + core.SuffixMale),
			Female: row.Value(b.Key + core.SuffixFemale),
		})
	}
	return points
}

// Breakdown lists the facility types with a nonzero count for municipality,
// in type-code order, plus their total.
func Breakdown(m core.FacilityTypeMatrix, municipality string) core.FacilityBreakdown {
	out := core.FacilityBreakdown{Available: !m.Empty(), Types: []core.FacilityTypeCount{}}
	counts, ok := m.Row(municipality)
	if !ok {
		return out
	}
	for i, code := range m.Types {
		if counts[i] == 0 {
			continue
		}
		out.Types = append(out.Types, core.FacilityTypeCount{
			FacilityType: core.LookupFacilityType(code),
			Count:        counts[i],
		})
		out.Total += counts[i]
	}
	return out
}
