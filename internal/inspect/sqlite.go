package inspect

import (
	"context"
	"fmt"

	"munidash/internal/storage"
)

type sqliteExporter struct {
	store *storage.InspectionStore
}

func (e *sqliteExporter) Export(ctx context.Context, run storage.InspectionRun) error {
	if _, err := e.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save inspection run: %w", err)
	}
	return nil
}

func (e *sqliteExporter) Close() error { return e.store.Close() }
