package http

import (
	"strconv"

	"munidash/internal/core"
)

// Chart colors.
const (
	ColorMale   = "#AEC6CF"
	ColorFemale = "#B8E2C8"
)

// Axis is a symmetric value axis for the diverging pyramid.
type Axis struct {
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Tick     int64    `json:"tick"`
	TickVals []int64  `json:"tickvals"`
	TickText []string `json:"ticktext"`
}

// PyramidChart is the horizontal diverging bar chart of age bands.
type PyramidChart struct {
	Title       string   `json:"title"`
	Labels      []string `json:"labels"`
	Male        []int64  `json:"male"`
	Female      []int64  `json:"female"`
	MaleColor   string   `json:"male_color"`
	FemaleColor string   `json:"female_color"`
	Axis        Axis     `json:"axis"`
}

// DonutChart is a pie chart with a hole; Available is false when there is
// nothing meaningful to draw.
type DonutChart struct {
	Title     string   `json:"title"`
	Available bool     `json:"available"`
	Labels    []string `json:"labels"`
	Values    []int64  `json:"values"`
	Colors    []string `json:"colors"`
}

// ChartSet is every chart shown for one municipality.
type ChartSet struct {
	Municipality string       `json:"municipality"`
	Pyramid      PyramidChart `json:"pyramid"`
	Sex          DonutChart   `json:"sex"`
	Facilities   DonutChart   `json:"facilities"`
}

// BuildCharts turns derived metrics into chart definitions.
func BuildCharts(m core.MunicipalityMetrics) ChartSet {
	return ChartSet{
		Municipality: m.Municipality,
		Pyramid:      buildPyramid(m),
		Sex:          buildSexDonut(m),
		Facilities:   buildFacilityDonut(m),
	}
}

func buildPyramid(m core.MunicipalityMetrics) PyramidChart {
	c := PyramidChart{
		Title:       "Pirámide Poblacional - " + m.Municipality,
		Labels:      make([]string, 0, len(m.Pyramid)),
		Male:        make([]int64, 0, len(m.Pyramid)),
		Female:      make([]int64, 0, len(m.Pyramid)),
		MaleColor:   ColorMale,
		FemaleColor: ColorFemale,
	}
	var maxVal int64
	for _, p := range m.Pyramid {
		c.Labels = append(c.Labels, p.Label)
		c.Male = append(c.Male, p.Male)
		c.Female = append(c.Female, p.Female)
		maxVal = max(maxVal, -p.Male, p.Female)
	}
	c.Axis = pyramidAxis(maxVal)
	return c
}

// pyramidAxis spans ±1.1×maxVal with about five ticks per side, labelled by
// absolute value.
func pyramidAxis(maxVal int64) Axis {
	tick := max(1, maxVal/5)
	a := Axis{
		Min:  -float64(maxVal) * 1.1,
		Max:  float64(maxVal) * 1.1,
		Tick: tick,
	}
	for v := -maxVal; v <= maxVal; v += tick {
		a.TickVals = append(a.TickVals, v)
		a.TickText = append(a.TickText, strconv.FormatInt(abs(v), 10))
	}
	return a
}

func buildSexDonut(m core.MunicipalityMetrics) DonutChart {
	return DonutChart{
		Title:     "Distribución por Sexo - Municipio: " + m.Municipality,
		Available: m.MalePopulation+m.FemalePopulation > 0,
		Labels:    []string{"Mujeres", "Hombres"},
		Values:    []int64{m.FemalePopulation, m.MalePopulation},
		Colors:    []string{ColorFemale, ColorMale},
	}
}

func buildFacilityDonut(m core.MunicipalityMetrics) DonutChart {
	c := DonutChart{
		Title:     "Casas de Salud por Tipo - " + m.Municipality,
		Available: m.FacilityTypes.Available && m.FacilityTypes.Total > 0,
		Labels:    []string{},
		Values:    []int64{},
		Colors:    []string{},
	}
	for _, t := range m.FacilityTypes.Types {
		c.Labels = append(c.Labels, t.Name)
		c.Values = append(c.Values, t.Count)
		c.Colors = append(c.Colors, t.Color)
	}
	return c
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
