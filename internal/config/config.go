package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Facility sources.
const (
	FacilitySourceFile   = "file"
	FacilitySourceSheets = "sheets"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Population snapshot
	PopulationPath     string
	PopulationSkipRows int

	// Facility report
	FacilitySource string
	FacilityPath   string
	CLUESPrefix    string

	// Google Sheets (when FacilitySource is "sheets")
	GoogleSpreadsheetID string
	FacilitySheetRange  string

	// Debug inspection exports; disabled when InspectDir is empty
	InspectDir    string
	InspectFormat string

	// Rendered view cache
	ViewCacheSize int
	ViewCacheTTL  time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8050"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PopulationPath:     getEnv("POPULATION_PATH", "assets/docs/conjunto_de_datos_iter_13CSV20.parquet"),
		PopulationSkipRows: getEnvInt("POPULATION_SKIP_ROWS", 3),

		FacilitySource: getEnv("FACILITY_SOURCE", FacilitySourceFile),
		FacilityPath:   getEnv("FACILITY_PATH", "assets/docs/Reporte Auxiliares, Casas de Salud y Parteras.parquet"),
		CLUESPrefix:    getEnv("CLUES_PREFIX", "HGSSA"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		FacilitySheetRange:  getEnv("FACILITY_SHEET_RANGE", "Reporte!A:Z"),

		InspectDir:    getEnv("INSPECT_DIR", ""),
		InspectFormat: getEnv("INSPECT_FORMAT", "csv"),

		ViewCacheSize: getEnvInt("VIEW_CACHE_SIZE", 256),
		ViewCacheTTL:  getEnvDuration("VIEW_CACHE_TTL", 10*time.Minute),
	}

	return cfg
}

// InspectEnabled reports whether debug inspection exports are requested.
func (c *Config) InspectEnabled() bool {
	return c.InspectDir != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	// A missing snapshot file is not a configuration error: the dataset is
	// reported unavailable at load time.
	if strings.TrimSpace(c.PopulationPath) == "" {
		errors = append(errors, "population path cannot be empty")
	}
	if c.PopulationSkipRows < 0 {
		errors = append(errors, fmt.Sprintf("invalid population skip rows %d: must not be negative", c.PopulationSkipRows))
	}

	// Validate facility source
	validSources := []string{FacilitySourceFile, FacilitySourceSheets}
	if !slices.Contains(validSources, c.FacilitySource) {
		errors = append(errors, fmt.Sprintf("invalid facility source '%s': must be one of %v", c.FacilitySource, validSources))
	}
	if c.FacilitySource == FacilitySourceFile && strings.TrimSpace(c.FacilityPath) == "" {
		errors = append(errors, "facility path cannot be empty when using file source")
	}
	if c.FacilitySource == FacilitySourceSheets {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets source")
		}
		if c.FacilitySheetRange == "" {
			errors = append(errors, "facility sheet range is required when using sheets source")
		}
	}
	if strings.TrimSpace(c.CLUESPrefix) == "" {
		errors = append(errors, "CLUES prefix cannot be empty")
	}

	// Validate inspection exports if enabled
	if c.InspectEnabled() {
		validFormats := []string{"csv", "xlsx", "sqlite"}
		if !slices.Contains(validFormats, strings.ToLower(c.InspectFormat)) {
			errors = append(errors, fmt.Sprintf("invalid inspect format '%s': must be one of %v", c.InspectFormat, validFormats))
		}
		if info, err := os.Stat(c.InspectDir); err == nil && !info.IsDir() {
			errors = append(errors, fmt.Sprintf("inspect dir '%s' is not a directory", c.InspectDir))
		} else if os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Clean(c.InspectDir), 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create inspect dir '%s': %v", c.InspectDir, err))
			}
		}
	}

	// Validate view cache
	if c.ViewCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid view cache size %d: must be at least 1", c.ViewCacheSize))
	} else if c.ViewCacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid view cache size %d: must be at most 10000", c.ViewCacheSize))
	}
	if c.ViewCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid view cache TTL %v: must be at least 1 second", c.ViewCacheTTL))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
