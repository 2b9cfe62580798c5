package memory

import (
	"context"

	"munidash/internal/core"
)

// Reader serves a fixed table, or a fixed error, from memory.
type Reader struct {
	table *core.Table
	err   error
	name  string
}

func New(columns []string, rows ...[]any) *Reader {
	return &Reader{table: core.NewTable(columns, rows), name: "memory"}
}

// Failing returns a reader whose every read fails with err.
func Failing(err error) *Reader {
	return &Reader{err: err, name: "memory"}
}

// Named sets the description reported by Source.
func (r *Reader) Named(name string) *Reader {
	r.name = name
	return r
}

// ReadTable returns a copy of the rows so callers cannot mutate the fixture.
func (r *Reader) ReadTable(_ context.Context) (*core.Table, error) {
	if r.err != nil {
		return nil, r.err
	}
	rows := make([][]any, len(r.table.Rows))
	for i, row := range r.table.Rows {
		rows[i] = append([]any(nil), row...)
	}
	return core.NewTable(append([]string(nil), r.table.Columns...), rows), nil
}

func (r *Reader) Source() string { return r.name }
