// Package inspect writes the unique-facility inspection exports: the
// deduplicated facility list and the per-municipality totals.
package inspect

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"munidash/internal/aggregate"
	"munidash/internal/core"
	"munidash/internal/log"
	"munidash/internal/storage"
)

// Format selects the export writer.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

// Export file names inside the inspection directory.
const (
	FacilitiesName = "unique_facilities"
	TotalsName     = "unique_facility_totals"
	WorkbookName   = "unique_facilities.xlsx"
	DatabaseName   = "inspect.db"
)

// Formats lists the supported formats.
func Formats() []Format { return []Format{FormatCSV, FormatXLSX, FormatSQLite} }

// ParseFormat validates a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown inspection format %q: must be one of %v", s, Formats())
}

// Exporter persists one inspection run.
type Exporter interface {
	Export(ctx context.Context, run storage.InspectionRun) error
	Close() error
}

// New returns the exporter for format writing under dir.
func New(format Format, dir string) (Exporter, error) {
	switch format {
	case FormatCSV:
		return &csvExporter{dir: dir}, nil
	case FormatXLSX:
		return &xlsxExporter{path: filepath.Join(dir, WorkbookName)}, nil
	case FormatSQLite:
		store, err := storage.NewInspectionStore(filepath.Join(dir, DatabaseName))
		if err != nil {
			return nil, fmt.Errorf("open inspection store: %w", err)
		}
		return &sqliteExporter{store: store}, nil
	default:
		return nil, fmt.Errorf("unknown inspection format %q", format)
	}
}

// Recorder adapts an Exporter to the aggregation hook. Export failures are
// logged and kept for Err; they never reach the aggregation.
type Recorder struct {
	exporter Exporter
	prefix   string
	logger   *log.Logger

	mu   sync.Mutex
	runs int
	err  error
}

func NewRecorder(exporter Exporter, cluesPrefix string, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Discard()
	}
	return &Recorder{
		exporter: exporter,
		prefix:   cluesPrefix,
		logger:   logger.WithComponent(log.ComponentInspect),
	}
}

// Hook returns the callback to install in aggregate.HealthOptions.
func (r *Recorder) Hook(ctx context.Context) aggregate.InspectionHook {
	return func(deduped []aggregate.UniqueFacility, totals core.CountIndex) {
		r.record(ctx, storage.InspectionRun{
			CreatedAt:   time.Now(),
			CLUESPrefix: r.prefix,
			Facilities:  append([]aggregate.UniqueFacility(nil), deduped...),
			Totals:      totals,
		})
	}
}

func (r *Recorder) record(ctx context.Context, run storage.InspectionRun) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	if err := r.exporter.Export(ctx, run); err != nil {
		r.err = err
		r.logger.WarnContext(ctx, "Inspection export failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		return
	}
	r.runs++
	r.logger.InfoContext(ctx, "Inspection export written",
		log.FieldOperation, log.OpExport,
		log.FieldRows, len(run.Facilities),
		log.FieldMunicipalities, run.Totals.Len(),
		log.FieldDuration, time.Since(start).Milliseconds())
}

// Runs returns how many exports succeeded.
func (r *Recorder) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

// Err returns the last export error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close releases the exporter.
func (r *Recorder) Close() error {
	return r.exporter.Close()
}
