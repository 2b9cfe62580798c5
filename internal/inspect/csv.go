package inspect

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"munidash/internal/storage"
)

type csvExporter struct {
	dir string
}

func (e *csvExporter) Export(_ context.Context, run storage.InspectionRun) error {
	facilities := filepath.Join(e.dir, FacilitiesName+".csv")
	err := writeFileAtomic(facilities, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"CLUES", "Municipio"})
		for _, f := range run.Facilities {
			_ = cw.Write([]string{f.CLUES, f.Municipality})
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", facilities, err)
	}

	totals := filepath.Join(e.dir, TotalsName+".csv")
	err = writeFileAtomic(totals, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"Municipio", "Unidades"})
		for _, mun := range run.Totals.Municipalities() {
			_ = cw.Write([]string{mun, strconv.FormatInt(run.Totals.Get(mun), 10)})
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", totals, err)
	}
	return nil
}

func (e *csvExporter) Close() error { return nil }
