package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"munidash/internal/config"
	"munidash/internal/core"
	"munidash/internal/log"
)

func writeFixtures(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	header := []string{core.ColMunicipality, core.ColLocality}
	actopan := []string{"Actopan", "Actopan"}
	apan := []string{"Apan", "Apan"}
	for _, c := range core.PopulationColumns() {
		header = append(header, c)
		actopan = append(actopan, "1")
		apan = append(apan, "2")
	}
	pop := strings.Join(header, ",") + "\n" + strings.Join(actopan, ",") + "\n" + strings.Join(apan, ",") + "\n"
	popPath := filepath.Join(dir, "population.csv")
	require.NoError(t, os.WriteFile(popPath, []byte(pop), 0o644))

	facilities := strings.Join([]string{
		"CLUES,Nombre Municipio Loc,Tipo Casa Salud,Auxiliar de Salud,Parteras",
		"HGSSA001,Actopan,AE,2,1",
		"HGSSA001,Actopan,AE,1,",
		"XXYYY009,Actopan,CE,5,5",
	}, "\n") + "\n"
	facPath := filepath.Join(dir, "facilities.csv")
	require.NoError(t, os.WriteFile(facPath, []byte(facilities), 0o644))

	return &config.Config{
		Port:           "8050",
		LogLevel:       "error",
		PopulationPath: popPath,
		FacilitySource: config.FacilitySourceFile,
		FacilityPath:   facPath,
		CLUESPrefix:    "HGSSA",
		InspectFormat:  "csv",
		ViewCacheSize:  1,
	}
}

func TestRun_Municipality(t *testing.T) {
	cfg := writeFixtures(t)
	var out bytes.Buffer

	err := run(context.Background(), cfg, options{municipality: "Actopan"}, log.Discard(), &out)
	require.NoError(t, err)

	var m core.MunicipalityMetrics
	require.NoError(t, json.Unmarshal(out.Bytes(), &m))
	assert.Equal(t, "Actopan", m.Municipality)
	assert.Equal(t, int64(54), m.TotalPopulation)
	assert.Equal(t, 50.0, m.MalePct)
	assert.Equal(t, int64(3), m.AuxiliaryCount)
	assert.Equal(t, int64(1), m.MidwifeCount)
	assert.Equal(t, int64(1), m.UniqueFacilityCount)
	assert.Equal(t, "0-4", m.MajorityAgeBand)
}

func TestRun_UnknownMunicipality(t *testing.T) {
	cfg := writeFixtures(t)

	err := run(context.Background(), cfg, options{municipality: "actopan"}, log.Discard(), &bytes.Buffer{})
	require.ErrorIs(t, err, core.ErrUnknownMunicipality)
}

func TestRun_AllAndList(t *testing.T) {
	cfg := writeFixtures(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, options{list: true}, log.Discard(), &out))
	var names []string
	require.NoError(t, json.Unmarshal(out.Bytes(), &names))
	assert.Equal(t, []string{"Actopan", "Apan"}, names)

	out.Reset()
	require.NoError(t, run(context.Background(), cfg, options{all: true}, log.Discard(), &out))
	var all []core.MunicipalityMetrics
	require.NoError(t, json.Unmarshal(out.Bytes(), &all))
	require.Len(t, all, 2)
	assert.Equal(t, int64(108), all[1].TotalPopulation)
	assert.False(t, all[1].FacilityTypes.Types == nil)
}

func TestRun_WritesInspectionExports(t *testing.T) {
	cfg := writeFixtures(t)
	cfg.InspectDir = t.TempDir()

	require.NoError(t, run(context.Background(), cfg, options{}, log.Discard(), &bytes.Buffer{}))

	data, err := os.ReadFile(filepath.Join(cfg.InspectDir, "unique_facilities.csv"))
	require.NoError(t, err)
	assert.Equal(t, "CLUES,Municipio\nHGSSA001,Actopan\n", string(data))

	totals, err := os.ReadFile(filepath.Join(cfg.InspectDir, "unique_facility_totals.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Municipio,Unidades\nActopan,1\n", string(totals))
}

func TestRun_SQLiteRunsSummary(t *testing.T) {
	cfg := writeFixtures(t)
	cfg.InspectDir = t.TempDir()
	cfg.InspectFormat = "sqlite"

	require.NoError(t, run(context.Background(), cfg, options{}, log.Discard(), &bytes.Buffer{}))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, options{showRuns: true}, log.Discard(), &out))

	var summary struct {
		Runs   int `json:"runs"`
		Latest struct {
			CLUESPrefix      string `json:"clues_prefix"`
			UniqueFacilities int    `json:"unique_facilities"`
		} `json:"latest"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, 1, summary.Runs)
	assert.Equal(t, "HGSSA", summary.Latest.CLUESPrefix)
	assert.Equal(t, 1, summary.Latest.UniqueFacilities)
}

func TestRun_RunsWithoutDatabase(t *testing.T) {
	cfg := writeFixtures(t)
	cfg.InspectDir = t.TempDir()

	err := run(context.Background(), cfg, options{showRuns: true}, log.Discard(), &bytes.Buffer{})
	assert.Error(t, err)
}
