package aggregate

import (
	"math"
	"strings"

	"munidash/internal/core"
)

// UniqueFacility is one facility identifier kept after deduplication, with the
// municipality of its first report row.
type UniqueFacility struct {
	CLUES        string
	Municipality string
}

// InspectionHook receives the intermediate and final unique-facility tables.
// It is diagnostic only; the aggregates never depend on what it does.
type InspectionHook func(deduped []UniqueFacility, totals core.CountIndex)

// HealthOptions configures the facility aggregation.
type HealthOptions struct {
	// CLUESPrefix is the institutional prefix a facility identifier must start
	// with; empty means core.DefaultCLUESPrefix.
	CLUESPrefix string
	// Inspect, when set, is called after the unique-facility view is built.
	Inspect InspectionHook
}

// facilityRows is the report restricted to the institutional prefix.
type facilityRows struct {
	t    *core.Table
	rows []int
	mun  int
}

func (f facilityRows) municipality(r int) (string, bool) {
	s, ok := f.t.Text(r, f.mun)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// filterInstitutional keeps rows whose CLUES, read as text, starts with prefix.
// It returns false when the table is empty or lacks the key columns.
func filterInstitutional(t *core.Table, prefix string) (facilityRows, bool) {
	if t.Empty() || len(t.MissingColumns(core.ColCLUES, core.ColFacilityMunicipality)) > 0 {
		return facilityRows{}, false
	}
	if prefix == "" {
		prefix = core.DefaultCLUESPrefix
	}
	f := facilityRows{t: t, mun: t.ColumnIndex(core.ColFacilityMunicipality)}
	cluesCol := t.ColumnIndex(core.ColCLUES)
	for r := 0; r < t.Len(); r++ {
		clues, ok := t.Text(r, cluesCol)
		if ok && strings.HasPrefix(clues, prefix) {
			f.rows = append(f.rows, r)
		}
	}
	return f, true
}

// Health derives the four facility views. A nil, empty or malformed report
// yields empty views, never an error.
func Health(t *core.Table, opts HealthOptions) core.HealthAggregates {
	f, ok := filterInstitutional(t, opts.CLUESPrefix)
	if !ok {
		return emptyHealth()
	}
	return core.HealthAggregates{
		Auxiliary:        auxiliary(f),
		FacilityTypes:    facilityTypes(f),
		Midwives:         midwives(f),
		UniqueFacilities: uniqueFacilities(f, opts.Inspect),
	}
}

func emptyHealth() core.HealthAggregates {
	return core.HealthAggregates{
		Auxiliary:        core.NewCountIndex(nil),
		FacilityTypes:    core.NewFacilityTypeMatrix(nil),
		Midwives:         core.NewCountIndex(nil),
		UniqueFacilities: core.NewCountIndex(nil),
	}
}

// auxiliary sums auxiliary staff per municipality; missing counts are zero.
func auxiliary(f facilityRows) core.CountIndex {
	col := f.t.ColumnIndex(core.ColAuxiliary)
	if col < 0 {
		return core.NewCountIndex(nil)
	}
	sums := map[string]float64{}
	for _, r := range f.rows {
		mun, ok := f.municipality(r)
		if !ok {
			continue
		}
		v, _ := f.t.Number(r, col)
		sums[mun] += v
	}
	return core.NewCountIndex(rounded(sums))
}

// facilityTypes counts rows per (municipality, type code); rows without a
// type code are dropped. Codes are kept as written, so "AE " and "AE" are
// separate columns.
func facilityTypes(f facilityRows) core.FacilityTypeMatrix {
	col := f.t.ColumnIndex(core.ColFacilityType)
	if col < 0 {
		return core.NewFacilityTypeMatrix(nil)
	}
	counts := map[string]map[string]int64{}
	for _, r := range f.rows {
		code, ok := f.t.Text(r, col)
		if !ok || code == "" {
			continue
		}
		mun, ok := f.municipality(r)
		if !ok {
			continue
		}
		if counts[mun] == nil {
			counts[mun] = map[string]int64{}
		}
		counts[mun][code]++
	}
	return core.NewFacilityTypeMatrix(counts)
}

// midwives sums midwife counts per municipality, skipping rows without one.
func midwives(f facilityRows) core.CountIndex {
	col := f.t.ColumnIndex(core.ColMidwives)
	if col < 0 {
		return core.NewCountIndex(nil)
	}
	sums := map[string]float64{}
	for _, r := range f.rows {
		v, ok := f.t.Number(r, col)
		if !ok {
			continue
		}
		mun, ok := f.municipality(r)
		if !ok {
			continue
		}
		sums[mun] += v
	}
	return core.NewCountIndex(rounded(sums))
}

// uniqueFacilities keeps the first row per CLUES and counts the survivors per
// municipality.
func uniqueFacilities(f facilityRows, inspect InspectionHook) core.CountIndex {
	cluesCol := f.t.ColumnIndex(core.ColCLUES)
	seen := map[string]struct{}{}
	var deduped []UniqueFacility
	counts := map[string]int64{}
	for _, r := range f.rows {
		clues, _ := f.t.Text(r, cluesCol)
		if _, dup := seen[clues]; dup {
			continue
		}
		seen[clues] = struct{}{}
		mun, ok := f.municipality(r)
		deduped = append(deduped, UniqueFacility{CLUES: clues, Municipality: mun})
		if ok {
			counts[mun]++
		}
	}
	totals := core.NewCountIndex(counts)
	if inspect != nil {
		inspect(deduped, totals)
	}
	return totals
}

func rounded(sums map[string]float64) map[string]int64 {
	out := make(map[string]int64, len(sums))
	for k, v := range sums {
		out[k] = int64(math.Round(v))
	}
	return out
}
