package services

import (
	"munidash/internal/core"
	"munidash/internal/sheets/memory"
)

// census builds a population reader with one locality row per entry. Only the
// given columns are set; everything else is zero.
func census(localities map[string]map[string]int64) *memory.Reader {
	columns := append([]string{core.ColMunicipality, core.ColLocality}, core.PopulationColumns()...)
	var rows [][]any
	for mun, values := range localities {
		row := make([]any, len(columns))
		row[0] = mun
		row[1] = mun
		for i := 2; i < len(columns); i++ {
			row[i] = values[columns[i]]
		}
		rows = append(rows, row)
	}
	return memory.New(columns, rows...)
}

func facilities(rows ...[]any) *memory.Reader {
	return memory.New([]string{
		core.ColCLUES,
		core.ColFacilityMunicipality,
		core.ColFacilityType,
		core.ColAuxiliary,
		core.ColMidwives,
	}, rows...)
}

func populationRow(mun string, values map[string]int64) core.PopulationRow {
	cols := core.PopulationColumns()
	counts := make([]int64, len(cols))
	for i, c := range cols {
		counts[i] = values[c]
	}
	return core.PopulationRow{Municipality: mun, Counts: counts}
}
