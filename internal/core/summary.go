package core

import (
	"encoding/json"
	"sort"
)

// PopulationRow holds one municipality's summed counts, aligned with
// PopulationColumns.
type PopulationRow struct {
	Municipality string
	Counts       []int64
}

// Value returns the count for a population column, 0 for unknown columns.
func (r PopulationRow) Value(column string) int64 {
	i, ok := populationIndex[column]
	if !ok || i >= len(r.Counts) {
		return 0
	}
	return r.Counts[i]
}

// PopulationAggregate is the per-municipality population table. It is built
// once and never mutated afterwards.
type PopulationAggregate struct {
	rows  map[string]PopulationRow
	order []string
}

// NewPopulationAggregate indexes rows by municipality, ordered by name.
func NewPopulationAggregate(rows []PopulationRow) *PopulationAggregate {
	a := &PopulationAggregate{rows: make(map[string]PopulationRow, len(rows))}
	for _, r := range rows {
		if _, dup := a.rows[r.Municipality]; !dup {
			a.order = append(a.order, r.Municipality)
		}
		a.rows[r.Municipality] = r
	}
	sort.Strings(a.order)
	return a
}

// Len returns the number of municipalities.
func (a *PopulationAggregate) Len() int {
	if a == nil {
		return 0
	}
	return len(a.order)
}

// Municipalities returns the municipality names in order.
func (a *PopulationAggregate) Municipalities() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.order...)
}

// Row looks up a municipality by exact name.
func (a *PopulationAggregate) Row(municipality string) (PopulationRow, bool) {
	if a == nil {
		return PopulationRow{}, false
	}
	r, ok := a.rows[municipality]
	return r, ok
}

// MarshalJSON renders the aggregate as {"columns": [...], "rows": {name: [...]}}.
func (a *PopulationAggregate) MarshalJSON() ([]byte, error) {
	out := struct {
		Columns []string           `json:"columns"`
		Rows    map[string][]int64 `json:"rows"`
	}{Columns: populationColumns, Rows: map[string][]int64{}}
	if a != nil {
		for name, r := range a.rows {
			out.Rows[name] = r.Counts
		}
	}
	return json.Marshal(out)
}

// CountIndex maps municipality names to a single count.
type CountIndex struct {
	counts map[string]int64
}

// NewCountIndex copies counts into an index.
func NewCountIndex(counts map[string]int64) CountIndex {
	c := CountIndex{counts: make(map[string]int64, len(counts))}
	for k, v := range counts {
		c.counts[k] = v
	}
	return c
}

// Get returns the count for a municipality, 0 when absent.
func (c CountIndex) Get(municipality string) int64 {
	return c.counts[municipality]
}

// Lookup returns the count and whether the municipality is present.
func (c CountIndex) Lookup(municipality string) (int64, bool) {
	v, ok := c.counts[municipality]
	return v, ok
}

func (c CountIndex) Len() int    { return len(c.counts) }
func (c CountIndex) Empty() bool { return len(c.counts) == 0 }

// Municipalities returns the indexed names, sorted.
func (c CountIndex) Municipalities() []string {
	names := make([]string, 0, len(c.counts))
	for k := range c.counts {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (c CountIndex) MarshalJSON() ([]byte, error) {
	if c.counts == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.counts)
}

// FacilityTypeMatrix is the municipality × type-code count pivot. Types are
// sorted; every row has one count per type.
type FacilityTypeMatrix struct {
	Types []string
	rows  map[string][]int64
}

// NewFacilityTypeMatrix builds a matrix from nested counts, filling absent
// combinations with zero.
func NewFacilityTypeMatrix(counts map[string]map[string]int64) FacilityTypeMatrix {
	typeSet := map[string]struct{}{}
	for _, byType := range counts {
		for t := range byType {
			typeSet[t] = struct{}{}
		}
	}
	m := FacilityTypeMatrix{rows: make(map[string][]int64, len(counts))}
	for t := range typeSet {
		m.Types = append(m.Types, t)
	}
	sort.Strings(m.Types)
	for mun, byType := range counts {
		row := make([]int64, len(m.Types))
		for i, t := range m.Types {
			row[i] = byType[t]
		}
		m.rows[mun] = row
	}
	return m
}

// Row returns the counts aligned with Types.
func (m FacilityTypeMatrix) Row(municipality string) ([]int64, bool) {
	r, ok := m.rows[municipality]
	return r, ok
}

func (m FacilityTypeMatrix) Len() int    { return len(m.rows) }
func (m FacilityTypeMatrix) Empty() bool { return len(m.rows) == 0 }

func (m FacilityTypeMatrix) MarshalJSON() ([]byte, error) {
	rows := make(map[string]map[string]int64, len(m.rows))
	for mun, r := range m.rows {
		byType := make(map[string]int64, len(r))
		for i, t := range m.Types {
			byType[t] = r[i]
		}
		rows[mun] = byType
	}
	types := m.Types
	if types == nil {
		types = []string{}
	}
	return json.Marshal(struct {
		Types []string                    `json:"types"`
		Rows  map[string]map[string]int64 `json:"rows"`
	}{types, rows})
}

// HealthAggregates are the four facility-derived views, keyed by municipality.
type HealthAggregates struct {
	Auxiliary        CountIndex         `json:"auxiliary"`
	FacilityTypes    FacilityTypeMatrix `json:"facility_type"`
	Midwives         CountIndex         `json:"midwife"`
	UniqueFacilities CountIndex         `json:"unique_facility"`
}

// Empty reports whether every view is empty.
func (h HealthAggregates) Empty() bool {
	return h.Auxiliary.Empty() && h.FacilityTypes.Empty() && h.Midwives.Empty() && h.UniqueFacilities.Empty()
}

// PyramidPoint is one age band of the population pyramid. Male is negated so
// the bars diverge from zero.
type PyramidPoint struct {
	Band   string `json:"band"`
	Label  string `json:"label"`
	Male   int64  `json:"male"`
	Female int64  `json:"female"`
}

// FacilityTypeCount is one active facility type for a municipality.
type FacilityTypeCount struct {
	FacilityType
	Count int64 `json:"count"`
}

// FacilityBreakdown summarizes the facility-type view for one municipality.
// Available is false when the facility-type view itself is empty.
type FacilityBreakdown struct {
	Available bool                `json:"available"`
	Total     int64               `json:"total"`
	Types     []FacilityTypeCount `json:"types"`
}

// MunicipalityMetrics is everything the dashboard shows for one municipality.
type MunicipalityMetrics struct {
	Municipality        string            `json:"municipality"`
	TotalPopulation     int64             `json:"total_population"`
	MalePopulation      int64             `json:"male_population"`
	FemalePopulation    int64             `json:"female_population"`
	MalePct             float64           `json:"male_pct"`
	FemalePct           float64           `json:"female_pct"`
	MajorityAgeBand     string            `json:"majority_age_band"`
	Pyramid             []PyramidPoint    `json:"pyramid_series"`
	FacilityTypes       FacilityBreakdown `json:"facility_type_breakdown"`
	AuxiliaryCount      int64             `json:"auxiliary_count"`
	MidwifeCount        int64             `json:"midwife_count"`
	UniqueFacilityCount int64             `json:"unique_facility_count"`
	HealthAvailable     bool              `json:"health_available"`
	PopulationDensity   string            `json:"population_density"`
}
