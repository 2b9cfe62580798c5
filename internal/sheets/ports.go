package sheets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"munidash/internal/core"
	"munidash/internal/log"
)

// Ports for inbound table sources.
type (
	// TableReader reads one raw tabular snapshot.
	TableReader interface {
		ReadTable(ctx context.Context) (*core.Table, error)
		// Source describes where the table comes from, for diagnostics.
		Source() string
	}
)

// Snapshot is the outcome of loading one dataset. A snapshot whose Err is set
// is unavailable; its Table is nil.
type Snapshot struct {
	Name     string
	Source   string
	Table    *core.Table
	Err      error
	Duration time.Duration
}

// Available reports whether the dataset loaded with at least one row.
func (s Snapshot) Available() bool {
	return s.Err == nil && !s.Table.Empty()
}

// Load reads a dataset and never fails: missing, unreadable, malformed or
// empty sources produce an unavailable snapshot and a logged diagnostic.
func Load(ctx context.Context, name string, r TableReader, logger *log.Logger) Snapshot {
	if logger == nil {
		logger = log.Discard()
	}
	snap := Snapshot{Name: name}
	if r == nil {
		snap.Err = fmt.Errorf("%w: no source configured", core.ErrUnavailable)
		log.NewStructuredLogger(logger).LogDatasetUnavailable(ctx, name, "", snap.Err)
		return snap
	}
	snap.Source = r.Source()

	start := time.Now()
	t, err := r.ReadTable(ctx)
	snap.Duration = time.Since(start)
	switch {
	case err != nil && !errors.Is(err, core.ErrUnavailable):
		err = fmt.Errorf("%w: %w", core.ErrUnavailable, err)
	case err == nil && t.Empty():
		err = fmt.Errorf("%w: %s has no rows", core.ErrUnavailable, snap.Source)
	}
	sl := log.NewStructuredLogger(logger)
	if err != nil {
		snap.Err = err
		sl.LogDatasetUnavailable(ctx, name, snap.Source, err)
		return snap
	}
	snap.Table = t
	sl.LogDatasetLoaded(ctx, name, snap.Source, t.Len(), snap.Duration.Milliseconds())
	return snap
}
