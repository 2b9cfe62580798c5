// Command munidash-inspect loads the configured datasets once, prints the
// derived dashboard metrics as JSON and optionally writes the unique-facility
// inspection exports.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"munidash/internal/cli"
	"munidash/internal/config"
	"munidash/internal/core"
	"munidash/internal/inspect"
	"munidash/internal/log"
	"munidash/internal/services"
	"munidash/internal/storage"
)

type options struct {
	municipality string
	all          bool
	list         bool
	inspectDir   string
	format       string
	showRuns     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.municipality, "municipality", "", "print metrics for this municipality (exact name)")
	flag.BoolVar(&opts.all, "all", false, "print metrics for every municipality")
	flag.BoolVar(&opts.list, "list", false, "print the municipality names")
	flag.StringVar(&opts.inspectDir, "inspect-dir", "", "write inspection exports here (overrides INSPECT_DIR)")
	flag.StringVar(&opts.format, "format", "", "inspection export format: csv, xlsx or sqlite (overrides INSPECT_FORMAT)")
	flag.BoolVar(&opts.showRuns, "runs", false, "summarize the latest run stored in the sqlite inspection database")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := config.Load()
	if opts.inspectDir != "" {
		cfg.InspectDir = opts.inspectDir
	}
	if opts.format != "" {
		cfg.InspectFormat = opts.format
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// stdout carries the JSON output only.
	logger := cli.SetupLoggerTo(os.Stderr, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, opts, logger, os.Stdout); err != nil {
		logger.Error("Inspection failed", log.FieldError, err)
		if errors.Is(err, core.ErrUnknownMunicipality) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *log.Logger, out io.Writer) error {
	if opts.showRuns {
		return printLatestRun(ctx, cfg.InspectDir, out)
	}

	recorder, err := cli.OpenRecorder(cfg, logger)
	if err != nil {
		return err
	}
	repo, err := cli.LoadRepository(ctx, cfg, recorder, logger)
	if recorder != nil {
		if cerr := recorder.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if rerr := recorder.Err(); rerr != nil && err == nil {
			err = fmt.Errorf("inspection export: %w", rerr)
		}
	}
	if err != nil {
		return err
	}

	dash := services.NewDashboardService(repo, logger)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	switch {
	case opts.list:
		return enc.Encode(dash.ListMunicipalities())
	case opts.all:
		all, err := dash.AllMetrics(ctx)
		if err != nil {
			return err
		}
		return enc.Encode(all)
	case opts.municipality != "":
		m, err := dash.DeriveMetrics(ctx, opts.municipality)
		if err != nil {
			return err
		}
		return enc.Encode(m)
	default:
		return enc.Encode(map[string]any{
			"datasets":       dash.Datasets(),
			"municipalities": len(dash.ListMunicipalities()),
		})
	}
}

// printLatestRun reports the newest run in the sqlite inspection database.
func printLatestRun(ctx context.Context, dir string, out io.Writer) error {
	if dir == "" {
		return errors.New("inspection directory not set (INSPECT_DIR or -inspect-dir)")
	}
	dbPath := filepath.Join(dir, inspect.DatabaseName)
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("inspection database: %w", err)
	}

	version, ok, err := storage.SchemaVersion(dbPath)
	if err != nil {
		return err
	}
	store, err := storage.NewInspectionStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.CountRuns(ctx)
	if err != nil {
		return err
	}
	summary := map[string]any{
		"database":       dbPath,
		"schema_version": version,
		"schema_present": ok,
		"runs":           count,
	}
	latest, err := store.LatestRun(ctx)
	switch {
	case errors.Is(err, storage.ErrNoRuns):
	case err != nil:
		return err
	default:
		summary["latest"] = map[string]any{
			"id":                latest.ID,
			"created_at":        latest.CreatedAt.Format(time.RFC3339),
			"clues_prefix":      latest.CLUESPrefix,
			"unique_facilities": len(latest.Facilities),
			"municipalities":    latest.Totals.Len(),
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
