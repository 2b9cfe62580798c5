// Package file reads tabular snapshots from local parquet or CSV files.
package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"munidash/internal/core"
	ports "munidash/internal/sheets"
)

// Format is the on-disk encoding of a snapshot.
type Format string

const (
	Parquet Format = "parquet"
	CSV     Format = "csv"
)

// Reader loads a snapshot file. The format follows the file extension.
type Reader struct {
	path   string
	format Format
}

var _ ports.TableReader = (*Reader)(nil)

func New(path string) *Reader {
	f := Parquet
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f = CSV
	}
	return &Reader{path: path, format: f}
}

func (r *Reader) Source() string { return r.path }

// ReadTable decodes the whole file. Missing files, unsupported layouts and
// decode failures are reported as core.ErrUnavailable.
func (r *Reader) ReadTable(ctx context.Context) (*core.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(r.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: file not found: %s", core.ErrUnavailable, r.path)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", core.ErrUnavailable, r.path, err)
	}
	switch r.format {
	case CSV:
		return readCSV(r.path)
	default:
		return readParquet(r.path)
	}
}

func readCSV(path string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", core.ErrUnavailable, path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: %s is empty", core.ErrUnavailable, path)
		}
		return nil, fmt.Errorf("%w: read header of %s: %v", core.ErrUnavailable, path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]any
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", core.ErrUnavailable, path, err)
		}
		row := make([]any, len(rec))
		for i, v := range rec {
			// Empty fields are missing values, not empty strings.
			if strings.TrimSpace(v) != "" {
				row[i] = v
			}
		}
		rows = append(rows, row)
	}
	return core.NewTable(header, rows), nil
}

func readParquet(path string) (*core.Table, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", core.ErrUnavailable, path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetColumnReader(fr, 4)
	if err != nil {
		return nil, fmt.Errorf("%w: read parquet footer of %s: %v", core.ErrUnavailable, path, err)
	}
	defer pr.ReadStop()

	// Only flat schemas are supported: the root followed by leaf columns.
	elems := pr.SchemaHandler.SchemaElements
	var columns []string
	for i := 1; i < len(elems); i++ {
		if elems[i].NumChildren != nil && *elems[i].NumChildren > 0 {
			return nil, fmt.Errorf("%w: %s has nested column %q", core.ErrUnavailable, path, elems[i].GetName())
		}
		columns = append(columns, pr.SchemaHandler.Infos[i].ExName)
	}

	n := pr.GetNumRows()
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = make([]any, len(columns))
	}
	for ci := range columns {
		values, _, _, err := pr.ReadColumnByIndex(int64(ci), n)
		if err != nil {
			return nil, fmt.Errorf("%w: read column %q of %s: %v", core.ErrUnavailable, columns[ci], path, err)
		}
		for ri, v := range values {
			if int64(ri) >= n {
				break
			}
			rows[ri][ci] = v
		}
	}
	return core.NewTable(columns, rows), nil
}
