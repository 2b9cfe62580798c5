// Package cli provides common CLI initialization utilities shared by
// cmd/munidash and cmd/munidash-inspect.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"munidash/internal/aggregate"
	"munidash/internal/config"
	"munidash/internal/inspect"
	"munidash/internal/log"
	"munidash/internal/services"
	"munidash/internal/sheets"
	"munidash/internal/sheets/file"
	"munidash/internal/sheets/google"
)

// SetupLogger initializes structured logging to stdout at the given level.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level string) *log.Logger {
	return SetupLoggerTo(os.Stdout, level)
}

// SetupLoggerTo is SetupLogger writing to w.
func SetupLoggerTo(w io.Writer, level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level})
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err, "error_type", log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// FacilityReader builds the facility report source selected by the config.
func FacilityReader(ctx context.Context, cfg *config.Config) (sheets.TableReader, error) {
	switch cfg.FacilitySource {
	case config.FacilitySourceSheets:
		client, err := google.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.FacilitySheetRange)
		if err != nil {
			return nil, fmt.Errorf("google sheets facility source: %w", err)
		}
		return client, nil
	default:
		return file.New(cfg.FacilityPath), nil
	}
}

// OpenRecorder creates the inspection recorder when exports are enabled.
// It returns nil when INSPECT_DIR is unset.
func OpenRecorder(cfg *config.Config, logger *log.Logger) (*inspect.Recorder, error) {
	if !cfg.InspectEnabled() {
		return nil, nil
	}
	format, err := inspect.ParseFormat(cfg.InspectFormat)
	if err != nil {
		return nil, err
	}
	exp, err := inspect.New(format, cfg.InspectDir)
	if err != nil {
		return nil, err
	}
	logger.Info("Inspection exports enabled",
		"dir", cfg.InspectDir,
		log.FieldFormat, string(format))
	return inspect.NewRecorder(exp, cfg.CLUESPrefix, logger), nil
}

// LoadRepository wires the configured sources and loads every aggregate. A
// facility source that cannot even be constructed is logged and treated as
// unavailable, like a missing file.
func LoadRepository(ctx context.Context, cfg *config.Config, recorder *inspect.Recorder, logger *log.Logger) (*services.Repository, error) {
	facilities, err := FacilityReader(ctx, cfg)
	if err != nil {
		logger.Warn("Facility source unavailable",
			log.FieldDataset, services.DatasetFacilities,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeUnavailable)
		facilities = nil
	}

	rc := services.RepositoryConfig{
		Population:        file.New(cfg.PopulationPath),
		Facilities:        facilities,
		PopulationOptions: aggregate.PopulationOptions{SkipRows: cfg.PopulationSkipRows},
		HealthOptions:     aggregate.HealthOptions{CLUESPrefix: strings.TrimSpace(cfg.CLUESPrefix)},
	}
	if recorder != nil {
		rc.HealthOptions.Inspect = recorder.Hook(ctx)
	}
	return services.LoadRepository(ctx, rc, logger)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
