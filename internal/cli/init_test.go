package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"munidash/internal/config"
	"munidash/internal/log"
	"munidash/internal/services"
)

func TestFacilityReader_File(t *testing.T) {
	cfg := &config.Config{FacilitySource: config.FacilitySourceFile, FacilityPath: "report.csv"}

	r, err := FacilityReader(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "report.csv", r.Source())
}

func TestFacilityReader_SheetsWithoutCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	cfg := &config.Config{
		FacilitySource:      config.FacilitySourceSheets,
		GoogleSpreadsheetID: "abc",
		FacilitySheetRange:  "Reporte!A:Z",
	}

	_, err := FacilityReader(context.Background(), cfg)
	assert.Error(t, err, "FacilityReader() should fail without credentials")
}

func TestOpenRecorder_Disabled(t *testing.T) {
	rec, err := OpenRecorder(&config.Config{}, log.Discard())
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLoadRepository_FromFiles(t *testing.T) {
	dir := t.TempDir()
	popPath := filepath.Join(dir, "population.csv")
	header := "NOM_MUN,NOM_LOC"
	row := "Actopan,Actopan"
	for _, c := range populationColumns() {
		header += "," + c
		row += ",1"
	}
	require.NoError(t, os.WriteFile(popPath, []byte(header+"\n"+row+"\n"), 0644))

	cfg := &config.Config{
		PopulationPath: popPath,
		FacilitySource: config.FacilitySourceFile,
		FacilityPath:   filepath.Join(dir, "missing.csv"),
		CLUESPrefix:    "HGSSA",
		InspectDir:     filepath.Join(dir, "inspect"),
		InspectFormat:  "csv",
	}
	rec, err := OpenRecorder(cfg, log.Discard())
	require.NoError(t, err)
	defer rec.Close()

	repo, err := LoadRepository(context.Background(), cfg, rec, log.Discard())
	require.NoError(t, err)
	assert.True(t, repo.PopulationAvailable())
	assert.False(t, repo.HealthAvailable(), "facilities should be unavailable when the report is missing")

	svc := services.NewDashboardService(repo, nil)
	m, err := svc.DeriveMetrics(context.Background(), "Actopan")
	require.NoError(t, err)
	assert.Equal(t, int64(54), m.TotalPopulation)
}

func TestSetupLoggerTo(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLoggerTo(&buf, "warn")
	t.Cleanup(func() { log.SetDefault(log.Discard()) })

	logger.Info("dropped")
	logger.Warn("kept", log.FieldDataset, "population")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "component=app")
	assert.Contains(t, out, "dataset=population")
}

func populationColumns() []string {
	var cols []string
	for _, b := range []string{"P_0A4", "P_5A9", "P_10A14", "P_15A19", "P_20A24", "P_25A29",
		"P_30A34", "P_35A39", "P_40A44", "P_45A49", "P_50A54", "P_55A59",
		"P_60A64", "P_65A69", "P_70A74", "P_75A79", "P_80A84", "P_85YMAS"} {
		cols = append(cols, b, b+"_F", b+"_M")
	}
	return cols
}
