package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"munidash/internal/core"
)

var facilityColumns = []string{
	core.ColCLUES,
	core.ColFacilityMunicipality,
	core.ColFacilityType,
	core.ColAuxiliary,
	core.ColMidwives,
}

func facilityTable(rows ...[]any) *core.Table {
	return core.NewTable(facilityColumns, rows)
}

func TestHealth_AllViews(t *testing.T) {
	tbl := facilityTable(
		[]any{"HGSSA001", "Actopan", "AE", int64(2), int64(1)},
		[]any{"HGSSA001", "Actopan", "AE", int64(1), nil},
		[]any{"HGSSA002", "Actopan", "CSE", nil, int64(3)},
		[]any{"HGSSA003", "Ajacuba", nil, "4", "2"},
		[]any{"XXYYY001", "Actopan", "CE", int64(50), int64(50)},
	)

	h := Health(tbl, HealthOptions{})

	assert.Equal(t, int64(3), h.Auxiliary.Get("Actopan"))
	assert.Equal(t, int64(4), h.Auxiliary.Get("Ajacuba"))

	assert.Equal(t, []string{"AE", "CSE"}, h.FacilityTypes.Types)
	row, ok := h.FacilityTypes.Row("Actopan")
	require.True(t, ok)
	assert.Equal(t, []int64{2, 1}, row)
	_, ok = h.FacilityTypes.Row("Ajacuba")
	assert.False(t, ok, "rows without a type code are dropped")

	assert.Equal(t, int64(4), h.Midwives.Get("Actopan"))
	assert.Equal(t, int64(2), h.Midwives.Get("Ajacuba"))

	assert.Equal(t, int64(2), h.UniqueFacilities.Get("Actopan"))
	assert.Equal(t, int64(1), h.UniqueFacilities.Get("Ajacuba"))
}

func TestHealth_TypeCodesKeptAsWritten(t *testing.T) {
	tbl := facilityTable(
		[]any{"HGSSA001", "Actopan", "AE", nil, nil},
		[]any{"HGSSA002", "Actopan", "AE", nil, nil},
		[]any{"HGSSA003", "Actopan", "AE ", nil, nil},
		[]any{"HGSSA004", "Actopan", "  ", nil, nil},
		[]any{"HGSSA005", "Actopan", "", nil, nil},
		[]any{"HGSSA006", "Actopan", nil, nil, nil},
	)

	h := Health(tbl, HealthOptions{})

	assert.Equal(t, []string{"  ", "AE", "AE "}, h.FacilityTypes.Types)
	row, ok := h.FacilityTypes.Row("Actopan")
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 1}, row)
	assert.Equal(t, int64(6), h.UniqueFacilities.Get("Actopan"))
}

func TestHealth_DuplicateIdentifierCountsOnce(t *testing.T) {
	tbl := facilityTable(
		[]any{"HGSSA001", "A", "AE", int64(1), int64(1)},
		[]any{"HGSSA001", "A", "AE", int64(1), int64(1)},
	)

	h := Health(tbl, HealthOptions{})
	assert.Equal(t, int64(1), h.UniqueFacilities.Get("A"))

	row, _ := h.FacilityTypes.Row("A")
	assert.Equal(t, []int64{2}, row, "the type pivot counts report rows, not facilities")
}

func TestHealth_ForeignPrefixExcludedEverywhere(t *testing.T) {
	tbl := facilityTable(
		[]any{"XXYYY001", "A", "AE", int64(9), int64(9)},
	)

	h := Health(tbl, HealthOptions{})
	assert.True(t, h.Empty())
	for _, v := range []core.CountIndex{h.Auxiliary, h.Midwives, h.UniqueFacilities} {
		_, ok := v.Lookup("A")
		assert.False(t, ok)
	}
	_, ok := h.FacilityTypes.Row("A")
	assert.False(t, ok)
}

func TestHealth_CustomPrefix(t *testing.T) {
	tbl := facilityTable(
		[]any{"HGSSA001", "A", "AE", int64(1), int64(1)},
		[]any{"XXYYY001", "A", "AE", int64(1), int64(1)},
	)

	h := Health(tbl, HealthOptions{CLUESPrefix: "XXY"})
	assert.Equal(t, int64(1), h.UniqueFacilities.Get("A"))
	assert.Equal(t, int64(1), h.Auxiliary.Get("A"))
}

func TestHealth_NumericIdentifierTreatedAsText(t *testing.T) {
	tbl := facilityTable(
		[]any{int64(1001), "A", "AE", int64(1), int64(1)},
	)
	h := Health(tbl, HealthOptions{CLUESPrefix: "10"})
	assert.Equal(t, int64(1), h.UniqueFacilities.Get("A"))
}

func TestHealth_EmptyOrMalformedTables(t *testing.T) {
	cases := map[string]*core.Table{
		"nil":             nil,
		"no rows":         facilityTable(),
		"no identifier":   core.NewTable([]string{core.ColFacilityMunicipality, core.ColAuxiliary}, [][]any{{"A", int64(1)}}),
		"no municipality": core.NewTable([]string{core.ColCLUES, core.ColAuxiliary}, [][]any{{"HGSSA001", int64(1)}}),
	}
	for name, tbl := range cases {
		t.Run(name, func(t *testing.T) {
			h := Health(tbl, HealthOptions{})
			assert.True(t, h.Empty())
			assert.Equal(t, int64(0), h.Auxiliary.Get("A"))
		})
	}
}

func TestHealth_MissingViewColumnEmptiesOnlyThatView(t *testing.T) {
	tbl := core.NewTable(
		[]string{core.ColCLUES, core.ColFacilityMunicipality, core.ColAuxiliary},
		[][]any{{"HGSSA001", "A", int64(3)}},
	)

	h := Health(tbl, HealthOptions{})
	assert.Equal(t, int64(3), h.Auxiliary.Get("A"))
	assert.Equal(t, int64(1), h.UniqueFacilities.Get("A"))
	assert.True(t, h.Midwives.Empty())
	assert.True(t, h.FacilityTypes.Empty())
}

func TestHealth_UniqueNeverExceedsRowCount(t *testing.T) {
	tbl := facilityTable(
		[]any{"HGSSA001", "A", "AE", nil, nil},
		[]any{"HGSSA002", "A", "AE", nil, nil},
		[]any{"HGSSA002", "A", "CE", nil, nil},
		[]any{"HGSSA003", "B", "CE", nil, nil},
	)
	rowsPer := map[string]int64{"A": 3, "B": 1}

	h := Health(tbl, HealthOptions{})
	for mun, rows := range rowsPer {
		assert.LessOrEqual(t, h.UniqueFacilities.Get(mun), rows)
	}
	assert.Equal(t, int64(2), h.UniqueFacilities.Get("A"))
	assert.Equal(t, int64(1), h.UniqueFacilities.Get("B"))
}

func TestHealth_InspectionHookSeesDedupedRows(t *testing.T) {
	tbl := facilityTable(
		[]any{"HGSSA001", "A", "AE", nil, nil},
		[]any{"HGSSA001", "B", "AE", nil, nil},
		[]any{"HGSSA002", "B", "AE", nil, nil},
	)

	var gotRows []UniqueFacility
	var gotTotals core.CountIndex
	h := Health(tbl, HealthOptions{Inspect: func(rows []UniqueFacility, totals core.CountIndex) {
		gotRows = rows
		gotTotals = totals
	}})

	assert.Equal(t, []UniqueFacility{
		{CLUES: "HGSSA001", Municipality: "A"},
		{CLUES: "HGSSA002", Municipality: "B"},
	}, gotRows)
	assert.Equal(t, h.UniqueFacilities, gotTotals)
	assert.Equal(t, int64(1), gotTotals.Get("A"))
	assert.Equal(t, int64(1), gotTotals.Get("B"))
}
