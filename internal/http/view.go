package http

import (
	"munidash/internal/core"
)

// Card texts shown when facility data is missing.
const (
	textNoData = "Datos no disponibles"
	textZero   = "0"
)

// facilityItem is one line of the facility-type card.
type facilityItem struct {
	Name  string
	Count string
	Color string
}

// municipalityView is the template model of the municipality partial. Every
// number is preformatted for display.
type municipalityView struct {
	Municipality string

	TotalPopulation string
	MalePct         string
	FemalePct       string
	MajorityAgeBand string
	Density         string

	Auxiliary        string
	Midwives         string
	UniqueFacilities string

	// FacilityText is set when there is no breakdown to list.
	FacilityText  string
	FacilityTotal string
	FacilityItems []facilityItem

	HealthAvailable bool
	Charts          ChartSet
}

func newMunicipalityView(m core.MunicipalityMetrics) municipalityView {
	v := municipalityView{
		Municipality:     m.Municipality,
		TotalPopulation:  core.FormatCount(m.TotalPopulation),
		MalePct:          core.FormatPercent(m.MalePct),
		FemalePct:        core.FormatPercent(m.FemalePct),
		MajorityAgeBand:  m.MajorityAgeBand,
		Density:          m.PopulationDensity,
		Auxiliary:        core.FormatCount(m.AuxiliaryCount),
		Midwives:         core.FormatCount(m.MidwifeCount),
		UniqueFacilities: core.FormatCount(m.UniqueFacilityCount),
		HealthAvailable:  m.HealthAvailable,
		Charts:           BuildCharts(m),
	}

	switch {
	case !m.FacilityTypes.Available:
		v.FacilityText = textNoData
	case len(m.FacilityTypes.Types) == 0:
		v.FacilityText = textZero
	default:
		v.FacilityTotal = core.FormatCount(m.FacilityTypes.Total)
		for _, t := range m.FacilityTypes.Types {
			v.FacilityItems = append(v.FacilityItems, facilityItem{
				Name:  t.Name,
				Count: core.FormatCount(t.Count),
				Color: t.Color,
			})
		}
	}
	return v
}
