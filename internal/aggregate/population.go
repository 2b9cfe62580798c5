// Package aggregate turns raw census and facility snapshots into the
// per-municipality tables the dashboard reads.
package aggregate

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"munidash/internal/core"
)

// excludedLocalities matches locality rows that are themselves aggregates of
// other rows (grouped small localities and municipal totals).
var excludedLocalities = regexp.MustCompile(`(?i)Localidades de una vivienda|Localidades de dos viviendas|Total del Municipio`)

// PopulationOptions tunes the census cleanup.
type PopulationOptions struct {
	// SkipRows drops this many leading rows (state and national totals at the
	// head of the census extract).
	SkipRows int
}

// IsExcludedLocality reports whether a locality name is an aggregate row.
func IsExcludedLocality(name string) bool {
	return excludedLocalities.MatchString(name)
}

// Population groups locality rows into one row per municipality, summing the
// 54 canonical population columns. A missing canonical column is a schema
// violation; unparseable cells count as zero.
func Population(t *core.Table, opts PopulationOptions) (*core.PopulationAggregate, error) {
	if t.Empty() {
		return nil, fmt.Errorf("%w: population table is empty", core.ErrUnavailable)
	}

	columns := core.PopulationColumns()
	required := append([]string{core.ColMunicipality}, columns...)
	if missing := t.MissingColumns(required...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: population table missing columns %s", core.ErrSchema, strings.Join(missing, ", "))
	}

	munCol := t.ColumnIndex(core.ColMunicipality)
	locCol := t.ColumnIndex(core.ColLocality)
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.ColumnIndex(c)
	}

	sums := map[string][]float64{}
	var order []string
	for r := max(opts.SkipRows, 0); r < t.Len(); r++ {
		if locCol >= 0 {
			if loc, ok := t.Text(r, locCol); ok && IsExcludedLocality(loc) {
				continue
			}
		}
		mun, ok := t.Text(r, munCol)
		if !ok || strings.TrimSpace(mun) == "" {
			continue
		}
		acc, seen := sums[mun]
		if !seen {
			acc = make([]float64, len(columns))
			sums[mun] = acc
			order = append(order, mun)
		}
		for i, ci := range idx {
			if v, ok := t.Number(r, ci); ok {
				acc[i] += v
			}
		}
	}

	rows := make([]core.PopulationRow, 0, len(order))
	for _, mun := range order {
		acc := sums[mun]
		counts := make([]int64, len(acc))
		for i, v := range acc {
			counts[i] = int64(math.Round(v))
		}
		rows = append(rows, core.PopulationRow{Municipality: mun, Counts: counts})
	}
	return core.NewPopulationAggregate(rows), nil
}
