package core

import (
	"strconv"
	"strings"
)

const (
	ColMunicipality = "NOM_MUN"
	ColLocality     = "NOM_LOC"

	bandPrefix   = "P_"
	bandOpenEnd  = "YMAS"
	bandSep      = "A"
	SuffixMale   = "_M"
	SuffixFemale = "_F"
)

// AgeBand is one of the fixed census age groups.
type AgeBand struct {
	Key   string // column stem, e.g. "P_20A24"
	Label string // display label, e.g. "20-24"
}

// AgeBands lists the 18 census age bands in ascending age order.
var AgeBands = []AgeBand{
	{"P_0A4", "0-4"}, {"P_5A9", "5-9"}, {"P_10A14", "10-14"}, {"P_15A19", "15-19"},
	{"P_20A24", "20-24"}, {"P_25A29", "25-29"}, {"P_30A34", "30-34"}, {"P_35A39", "35-39"},
	{"P_40A44", "40-44"}, {"P_45A49", "45-49"}, {"P_50A54", "50-54"}, {"P_55A59", "55-59"},
	{"P_60A64", "60-64"}, {"P_65A69", "65-69"}, {"P_70A74", "70-74"}, {"P_75A79", "75-79"},
	{"P_80A84", "80-84"}, {"P_85YMAS", "85+"},
}

var (
	populationColumns = buildPopulationColumns()
	populationIndex   = buildPopulationIndex()
	bandLabels        = buildBandLabels()
)

func buildPopulationIndex() map[string]int {
	m := make(map[string]int, len(populationColumns))
	for i, c := range populationColumns {
		m[c] = i
	}
	return m
}

func buildPopulationColumns() []string {
	cols := make([]string, 0, len(AgeBands)*3)
	for _, b := range AgeBands {
		cols = append(cols, b.Key, b.Key+SuffixFemale, b.Key+SuffixMale)
	}
	return cols
}

func buildBandLabels() map[string]string {
	m := make(map[string]string, len(AgeBands))
	for _, b := range AgeBands {
		m[b.Key] = b.Label
	}
	return m
}

// PopulationColumns returns the 54 canonical population columns in their fixed
// order: for each band, total, female, male.
func PopulationColumns() []string {
	return append([]string(nil), populationColumns...)
}

// BandLabel renders a band key for display: "P_20A24" becomes "20-24" and
// "P_85YMAS" becomes "85+".
func BandLabel(key string) string {
	if l, ok := bandLabels[key]; ok {
		return l
	}
	s := strings.TrimPrefix(key, bandPrefix)
	if strings.HasSuffix(s, bandOpenEnd) {
		return strings.TrimSuffix(s, bandOpenEnd) + "+"
	}
	return strings.Replace(s, bandSep, "-", 1)
}

// BandLowerBound returns the numeric lower bound of a band key. The open-ended
// band sorts after every closed band.
func BandLowerBound(key string) int {
	s := strings.TrimPrefix(key, bandPrefix)
	if strings.Contains(s, bandOpenEnd) {
		return 100
	}
	lo, _, _ := strings.Cut(s, bandSep)
	n, err := strconv.Atoi(lo)
	if err != nil {
		return 100
	}
	return n
}
