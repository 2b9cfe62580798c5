package services

import (
	"context"
	"fmt"
	"time"

	"munidash/internal/core"
	"munidash/internal/log"
)

// DashboardService answers per-municipality queries against a loaded
// Repository. Every call is a lookup plus metric derivation; nothing is
// recomputed from the raw tables.
type DashboardService struct {
	repo   *Repository
	logger *log.Logger
}

func NewDashboardService(repo *Repository, logger *log.Logger) *DashboardService {
	if logger == nil {
		logger = log.Discard()
	}
	return &DashboardService{repo: repo, logger: logger.WithComponent(log.ComponentDashboard)}
}

// ListMunicipalities returns the known municipality names, sorted.
func (s *DashboardService) ListMunicipalities() []string {
	return s.repo.Population().Municipalities()
}

// PopulationAggregate returns the per-municipality population table.
func (s *DashboardService) PopulationAggregate() *core.PopulationAggregate {
	return s.repo.Population()
}

// HealthAggregates returns the four facility views.
func (s *DashboardService) HealthAggregates() core.HealthAggregates {
	return s.repo.Health()
}

// Datasets reports how each dataset loaded.
func (s *DashboardService) Datasets() []DatasetStatus {
	return s.repo.Datasets()
}

// Ready reports whether population metrics can be served.
func (s *DashboardService) Ready() bool {
	return s.repo.PopulationAvailable()
}

// LoadedAt is when the aggregates were built.
func (s *DashboardService) LoadedAt() time.Time {
	return s.repo.LoadedAt()
}

// HealthAvailable reports whether the facility report was loaded.
func (s *DashboardService) HealthAvailable() bool {
	return s.repo.HealthAvailable()
}

// DeriveMetrics computes the dashboard metrics for an exact municipality name.
// It returns core.ErrUnknownMunicipality when the name is not in the
// population aggregate.
func (s *DashboardService) DeriveMetrics(ctx context.Context, municipality string) (core.MunicipalityMetrics, error) {
	row, ok := s.repo.Population().Row(municipality)
	if !ok {
		return core.MunicipalityMetrics{}, fmt.Errorf("%w: %q", core.ErrUnknownMunicipality, municipality)
	}
	m := DeriveMetrics(row, s.repo.Health())
	s.logger.DebugContext(ctx, "Metrics derived",
		log.FieldOperation, log.OpDerive,
		log.FieldMunicipality, municipality)
	return m, nil
}

// AllMetrics derives metrics for every municipality in list order.
func (s *DashboardService) AllMetrics(ctx context.Context) ([]core.MunicipalityMetrics, error) {
	names := s.ListMunicipalities()
	out := make([]core.MunicipalityMetrics, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := s.DeriveMetrics(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
