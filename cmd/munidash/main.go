package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"munidash/internal/cli"
	apphttp "munidash/internal/http"
	"munidash/internal/log"
	"munidash/internal/metrics"
	"munidash/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting munidash",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"population_path", cfg.PopulationPath,
		"facility_source", cfg.FacilitySource)

	recorder, err := cli.OpenRecorder(cfg, logger)
	if err != nil {
		logger.Error("Failed to open inspection exporter",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	repo, err := cli.LoadRepository(loadCtx, cfg, recorder, logger)
	loadCancel()
	if recorder != nil {
		if cerr := recorder.Close(); cerr != nil {
			logger.Warn("Inspection exporter close failed", log.FieldError, cerr)
		}
	}
	if err != nil {
		logger.Error("Failed to load datasets", log.FieldError, err)
		os.Exit(1)
	}

	for _, ds := range repo.Datasets() {
		metrics.ObserveDataset(ds.Name, ds.Rows, ds.Available, ds.Duration)
	}
	dash := services.NewDashboardService(repo, logger)
	metrics.Municipalities.Set(float64(len(dash.ListMunicipalities())))

	srv := apphttp.NewServer(":"+cfg.Port, dash, apphttp.Options{
		Logger:        logger,
		ViewCacheSize: cfg.ViewCacheSize,
		ViewCacheTTL:  cfg.ViewCacheTTL,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Serving dashboard",
		"port", cfg.Port,
		"municipalities", len(dash.ListMunicipalities()),
		"facilities_available", dash.HealthAvailable())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
