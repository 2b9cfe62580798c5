package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"munidash/internal/core"
	"munidash/internal/services"
)

func populationRow(mun string, values map[string]int64) core.PopulationRow {
	cols := core.PopulationColumns()
	counts := make([]int64, len(cols))
	for i, c := range cols {
		counts[i] = values[c]
	}
	return core.PopulationRow{Municipality: mun, Counts: counts}
}

// newTestServer serves two municipalities. Health data covers Actopan only
// unless withHealth is false.
func newTestServer(t *testing.T, withHealth bool) *Server {
	t.Helper()
	pop := core.NewPopulationAggregate([]core.PopulationRow{
		populationRow("Actopan", map[string]int64{
			"P_0A4": 100, "P_0A4_F": 40, "P_0A4_M": 60,
			"P_20A24": 200, "P_20A24_F": 120, "P_20A24_M": 80,
		}),
		populationRow("Zempoala", map[string]int64{
			"P_85YMAS": 10, "P_85YMAS_F": 6, "P_85YMAS_M": 4,
		}),
	})

	var health core.HealthAggregates
	if withHealth {
		health = core.HealthAggregates{
			Auxiliary:        core.NewCountIndex(map[string]int64{"Actopan": 1200}),
			FacilityTypes:    core.NewFacilityTypeMatrix(map[string]map[string]int64{"Actopan": {"AE": 2, "CSE": 1}}),
			Midwives:         core.NewCountIndex(map[string]int64{"Actopan": 3}),
			UniqueFacilities: core.NewCountIndex(map[string]int64{"Actopan": 3}),
		}
	}

	return newServerFor(t, pop, health, Options{})
}

func newServerFor(t *testing.T, pop *core.PopulationAggregate, health core.HealthAggregates, opts Options) *Server {
	t.Helper()
	dash := services.NewDashboardService(services.NewRepository(pop, health), nil)
	srv := NewServer(":0", dash, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func listMunicipalities(t *testing.T, srv *Server) []string {
	t.Helper()
	rr := do(t, srv, http.MethodGet, "/api/municipalities")
	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Municipalities []string `json:"municipalities"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	return got.Municipalities
}

func TestIndexDefaultsToFirstMunicipality(t *testing.T) {
	srv := newTestServer(t, true)

	rr := do(t, srv, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := rr.Body.String()
	for _, want := range []string{
		"Estadísticas Municipales",
		`<option value="Actopan" selected>`,
		`<option value="Zempoala">`,
		`id="card-total">600<`,
		`id="charts-data"`,
	} {
		assert.Contains(t, body, want)
	}
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"), "security headers not set")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"), "request id not set")
}

func TestIndexPreselectsMunicipality(t *testing.T) {
	srv := newTestServer(t, true)

	rr := do(t, srv, http.MethodGet, "/?municipality=Zempoala")
	require.Contains(t, rr.Body.String(), `<option value="Zempoala" selected>`)
	assert.Contains(t, rr.Body.String(), `id="card-age">85+<`)
}

func TestUnknownPathIs404(t *testing.T) {
	srv := newTestServer(t, true)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/nope").Code)
}

func TestRequestIDPropagated(t *testing.T) {
	srv := newTestServer(t, true)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req_fixed")
	srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, "req_fixed", rr.Header().Get("X-Request-ID"))
}

func TestMunicipalityPartial(t *testing.T) {
	srv := newTestServer(t, true)

	rr := do(t, srv, http.MethodGet, "/ui/municipality?name=Actopan")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := rr.Body.String()
	for _, want := range []string{
		`id="card-male">46.7%<`,
		`id="card-female">53.3%<`,
		`id="card-age">20-24<`,
		`id="card-density">128<`,
		`id="card-auxiliary">1,200<`,
		`id="card-midwives">3<`,
		`Total: 3`,
		`Adaptada Equipada: 2`,
		`Construida sin Equipar: 1`,
	} {
		assert.Contains(t, body, want)
	}
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "municipality:selected")
}

func TestMunicipalityPartial_FacilityCardStates(t *testing.T) {
	t.Run("no active types", func(t *testing.T) {
		srv := newTestServer(t, true)
		rr := do(t, srv, http.MethodGet, "/ui/municipality?name=Zempoala")
		assert.Contains(t, rr.Body.String(), `id="card-facility-types">0<`)
	})

	t.Run("facility data unavailable", func(t *testing.T) {
		srv := newTestServer(t, false)
		rr := do(t, srv, http.MethodGet, "/ui/municipality?name=Actopan")
		assert.Contains(t, rr.Body.String(), `id="card-facility-types">Datos no disponibles<`)
		assert.Contains(t, rr.Header().Get("HX-Trigger"), `"type":"warning"`)
	})
}

func TestMunicipalityPartial_Errors(t *testing.T) {
	srv := newTestServer(t, true)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/ui/municipality").Code)

	rr := do(t, srv, http.MethodGet, "/ui/municipality?name=Atlantis")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Municipio desconocido: Atlantis")

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodPost, "/ui/municipality?name=Actopan").Code)
}

func TestMunicipalityPartial_Cached(t *testing.T) {
	srv := newTestServer(t, true)

	first := do(t, srv, http.MethodGet, "/ui/municipality?name=Actopan").Body.String()
	require.Equal(t, 1, srv.views.Size())
	second := do(t, srv, http.MethodGet, "/ui/municipality?name=Actopan").Body.String()
	assert.Equal(t, first, second)
}

func TestAPIMunicipalities(t *testing.T) {
	srv := newTestServer(t, true)
	assert.Equal(t, []string{"Actopan", "Zempoala"}, listMunicipalities(t, srv))
}

// Every listed name must resolve on the metric and partial routes, including
// names the source carries with surrounding whitespace.
func TestListedMunicipalitiesResolve(t *testing.T) {
	pop := core.NewPopulationAggregate([]core.PopulationRow{
		populationRow("Tula ", map[string]int64{"P_0A4": 5, "P_0A4_F": 2, "P_0A4_M": 3}),
		populationRow(" Apan", map[string]int64{"P_5A9": 4, "P_5A9_F": 2, "P_5A9_M": 2}),
		populationRow("Tula", map[string]int64{"P_10A14": 9, "P_10A14_F": 4, "P_10A14_M": 5}),
		populationRow("San Agustín Tlaxiaca", map[string]int64{"P_85YMAS": 1, "P_85YMAS_F": 1}),
	})
	srv := newServerFor(t, pop, core.HealthAggregates{}, Options{})

	names := listMunicipalities(t, srv)
	require.Len(t, names, 4)

	for _, name := range names {
		q := url.QueryEscape(name)

		rr := do(t, srv, http.MethodGet, "/api/metrics?municipality="+q)
		require.Equal(t, http.StatusOK, rr.Code, "metrics for %q: %s", name, rr.Body.String())
		var m core.MunicipalityMetrics
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&m))
		assert.Equal(t, name, m.Municipality)

		rr = do(t, srv, http.MethodGet, "/api/charts?municipality="+q)
		assert.Equal(t, http.StatusOK, rr.Code, "charts for %q", name)

		rr = do(t, srv, http.MethodGet, "/ui/municipality?name="+q)
		assert.Equal(t, http.StatusOK, rr.Code, "partial for %q", name)
	}

	// "Tula " and "Tula" are distinct rows.
	rr := do(t, srv, http.MethodGet, "/api/metrics?municipality="+url.QueryEscape("Tula "))
	var m core.MunicipalityMetrics
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&m))
	assert.Equal(t, int64(10), m.TotalPopulation)
}

func TestAPIMetrics(t *testing.T) {
	srv := newTestServer(t, true)

	rr := do(t, srv, http.MethodGet, "/api/metrics?municipality=Actopan")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var m core.MunicipalityMetrics
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&m))

	assert.Equal(t, int64(600), m.TotalPopulation)
	assert.Equal(t, int64(140), m.MalePopulation)
	assert.Equal(t, int64(160), m.FemalePopulation)
	assert.Equal(t, "20-24", m.MajorityAgeBand)
	assert.Equal(t, int64(3), m.UniqueFacilityCount)
	assert.Equal(t, int64(1200), m.AuxiliaryCount)
}

func TestAPIMetrics_Errors(t *testing.T) {
	srv := newTestServer(t, true)

	tests := []struct {
		target string
		want   int
	}{
		{"/api/metrics", http.StatusBadRequest},
		{"/api/metrics?municipality=" + url.QueryEscape("actopan"), http.StatusNotFound},
		{"/api/metrics?municipality=" + url.QueryEscape(" Actopan"), http.StatusNotFound},
		{"/api/charts?municipality=Atlantis", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.target)
			assert.Equal(t, tt.want, rr.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAPICharts(t *testing.T) {
	srv := newTestServer(t, true)

	rr := do(t, srv, http.MethodGet, "/api/charts?municipality=Actopan")
	require.Equal(t, http.StatusOK, rr.Code)
	var c ChartSet
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&c))

	assert.Equal(t, "Pirámide Poblacional - Actopan", c.Pyramid.Title)
	assert.Len(t, c.Pyramid.Labels, len(core.AgeBands))
	assert.Equal(t, int64(24), c.Pyramid.Axis.Tick, "max 120 / 5")
	assert.True(t, c.Facilities.Available)
	assert.Len(t, c.Facilities.Values, 2)
}

func TestAPIAggregates(t *testing.T) {
	srv := newTestServer(t, true)

	rr := do(t, srv, http.MethodGet, "/api/population")
	var pop struct {
		Columns []string           `json:"columns"`
		Rows    map[string][]int64 `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&pop))
	assert.Len(t, pop.Columns, 54)
	assert.Len(t, pop.Rows, 2)

	rr = do(t, srv, http.MethodGet, "/api/health")
	var health map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&health))
	for _, k := range []string{"auxiliary", "facility_type", "midwife", "unique_facility"} {
		assert.Contains(t, health, k)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, false)

	for _, path := range []string{"/healthz", "/readyz"} {
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, path).Code, path)
	}

	rr := do(t, srv, http.MethodGet, "/readyz")
	var ready struct {
		Status string `json:"status"`
		Checks struct {
			Datasets []services.DatasetStatus `json:"datasets"`
			LoadedAt string                   `json:"loaded_at"`
		} `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&ready))
	assert.Equal(t, "ready", ready.Status)
	require.Len(t, ready.Checks.Datasets, 2)
	assert.False(t, ready.Checks.Datasets[1].Available, "facilities dataset reported available")

	loadedAt, err := time.Parse(time.RFC3339, ready.Checks.LoadedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), loadedAt, time.Minute)
}

func TestReadyWithoutPopulation(t *testing.T) {
	srv := newServerFor(t, nil, core.HealthAggregates{}, Options{})

	assert.Equal(t, http.StatusServiceUnavailable, do(t, srv, http.MethodGet, "/readyz").Code)
	rr := do(t, srv, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Datos de población no disponibles")
}

func TestAPIRateLimit(t *testing.T) {
	pop := core.NewPopulationAggregate([]core.PopulationRow{populationRow("Apan", nil)})
	srv := newServerFor(t, pop, core.HealthAggregates{}, Options{APIRateLimit: 2})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/municipalities").Code, "request %d", i)
	}
	rr := do(t, srv, http.MethodGet, "/api/municipalities")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// UI routes are not limited.
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, true)
	do(t, srv, http.MethodGet, "/api/municipalities")

	rr := do(t, srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "munidash_http_requests_total")
}
