package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"munidash/internal/aggregate"
	"munidash/internal/core"
	"munidash/internal/log"
	"munidash/internal/sheets"
)

// Dataset names used in logs, metrics and readiness reports.
const (
	DatasetPopulation = "population"
	DatasetFacilities = "facilities"
)

// RepositoryConfig wires the two sources and the aggregation options.
type RepositoryConfig struct {
	Population sheets.TableReader
	Facilities sheets.TableReader

	PopulationOptions aggregate.PopulationOptions
	HealthOptions     aggregate.HealthOptions
}

// DatasetStatus describes how one dataset loaded.
type DatasetStatus struct {
	Name      string        `json:"name"`
	Source    string        `json:"source"`
	Available bool          `json:"available"`
	Rows      int           `json:"rows"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// Repository holds every aggregate, computed once at load. It is read-only
// after LoadRepository returns and safe to share between goroutines.
type Repository struct {
	population *core.PopulationAggregate
	health     core.HealthAggregates
	datasets   []DatasetStatus
	loadedAt   time.Time
}

// LoadRepository reads both datasets concurrently and builds all aggregates.
// An unavailable dataset degrades to an empty aggregate; only a population
// schema violation is returned as an error.
func LoadRepository(ctx context.Context, cfg RepositoryConfig, logger *log.Logger) (*Repository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentLoader)

	var popSnap, facSnap sheets.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		popSnap = sheets.Load(gctx, DatasetPopulation, cfg.Population, logger)
		return nil
	})
	g.Go(func() error {
		facSnap = sheets.Load(gctx, DatasetFacilities, cfg.Facilities, logger)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load datasets: %w", err)
	}

	repo := &Repository{population: core.NewPopulationAggregate(nil), loadedAt: time.Now()}

	popStatus := statusOf(popSnap)
	if popSnap.Available() {
		agg, err := aggregate.Population(popSnap.Table, cfg.PopulationOptions)
		switch {
		case errors.Is(err, core.ErrSchema):
			logger.Error("Population schema violation",
				log.FieldDataset, DatasetPopulation,
				log.FieldSource, popSnap.Source,
				log.FieldError, err,
				log.FieldErrorType, log.ErrorTypeSchema)
			return nil, fmt.Errorf("aggregate population: %w", err)
		case err != nil:
			popStatus.Available = false
			popStatus.Error = err.Error()
			logger.Warn("Population aggregate unavailable", log.FieldDataset, DatasetPopulation, log.FieldError, err)
		default:
			repo.population = agg
		}
	}
	repo.health = aggregate.Health(facSnap.Table, cfg.HealthOptions)
	repo.datasets = []DatasetStatus{popStatus, statusOf(facSnap)}

	logger.WithComponent(log.ComponentAggregate).Info("Aggregates built",
		log.FieldOperation, log.OpAggregate,
		log.FieldMunicipalities, repo.population.Len(),
		"facility_municipalities", repo.health.UniqueFacilities.Len())
	return repo, nil
}

// NewRepository wraps already computed aggregates, for tests and tools that
// build them by other means.
func NewRepository(population *core.PopulationAggregate, health core.HealthAggregates) *Repository {
	if population == nil {
		population = core.NewPopulationAggregate(nil)
	}
	return &Repository{
		population: population,
		health:     health,
		datasets: []DatasetStatus{
			{Name: DatasetPopulation, Source: "memory", Available: population.Len() > 0, Rows: population.Len()},
			{Name: DatasetFacilities, Source: "memory", Available: !health.Empty(), Rows: health.UniqueFacilities.Len()},
		},
		loadedAt: time.Now(),
	}
}

func statusOf(s sheets.Snapshot) DatasetStatus {
	st := DatasetStatus{
		Name:      s.Name,
		Source:    s.Source,
		Available: s.Available(),
		Rows:      s.Table.Len(),
		Duration:  s.Duration,
	}
	if s.Err != nil {
		st.Error = s.Err.Error()
	}
	return st
}

// Population returns the population aggregate; it is empty when the dataset
// is unavailable.
func (r *Repository) Population() *core.PopulationAggregate { return r.population }

// Health returns the four facility views.
func (r *Repository) Health() core.HealthAggregates { return r.health }

// PopulationAvailable reports whether population metrics can be derived.
func (r *Repository) PopulationAvailable() bool { return r.population.Len() > 0 }

// HealthAvailable reports whether any facility view has data.
func (r *Repository) HealthAvailable() bool { return !r.health.Empty() }

// Datasets returns the load status of each dataset.
func (r *Repository) Datasets() []DatasetStatus {
	return append([]DatasetStatus(nil), r.datasets...)
}

// LoadedAt is when the aggregates were built.
func (r *Repository) LoadedAt() time.Time { return r.loadedAt }
