package inspect

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"munidash/internal/storage"
)

// Sheet names in the inspection workbook.
const (
	SheetFacilities = "Unicas"
	SheetTotals     = "Totales"
)

type xlsxExporter struct {
	path string
}

func (e *xlsxExporter) Export(_ context.Context, run storage.InspectionRun) error {
	f := excelize.NewFile()
	defer f.Close()

	// A new workbook starts with "Sheet1"; rename it rather than leave it empty.
	if err := f.SetSheetName("Sheet1", SheetFacilities); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	head := []any{"CLUES", "Municipio"}
	if err := f.SetSheetRow(SheetFacilities, "A1", &head); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, fac := range run.Facilities {
		row := []any{fac.CLUES, fac.Municipality}
		if err := f.SetSheetRow(SheetFacilities, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write facility row: %w", err)
		}
	}

	if _, err := f.NewSheet(SheetTotals); err != nil {
		return fmt.Errorf("create totals sheet: %w", err)
	}
	head = []any{"Municipio", "Unidades"}
	if err := f.SetSheetRow(SheetTotals, "A1", &head); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, mun := range run.Totals.Municipalities() {
		row := []any{mun, run.Totals.Get(mun)}
		if err := f.SetSheetRow(SheetTotals, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write total row: %w", err)
		}
	}

	err := writeFileAtomic(e.path, func(w io.Writer) error {
		return f.Write(w)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", e.path, err)
	}
	return nil
}

func (e *xlsxExporter) Close() error { return nil }
