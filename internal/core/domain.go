package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	ErrUnavailable         = errors.New("dataset unavailable")
	ErrSchema              = errors.New("schema violation")
	ErrUnknownMunicipality = errors.New("unknown municipality")
)

// Table is a raw tabular snapshot as read from a source, before any cleaning.
// Cells hold the decoded source value or nil when the source had no value.
type Table struct {
	Columns []string
	Rows    [][]any

	index map[string]int
}

// NewTable builds a table over the given columns and rows. Rows shorter than
// the header are treated as having missing trailing cells.
func NewTable(columns []string, rows [][]any) *Table {
	t := &Table{Columns: columns, Rows: rows, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		c = strings.TrimSpace(c)
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table is nil or has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// ColumnIndex returns the position of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// MissingColumns returns the names not present in the header, in argument order.
func (t *Table) MissingColumns(names ...string) []string {
	var missing []string
	for _, n := range names {
		if t.ColumnIndex(n) < 0 {
			missing = append(missing, n)
		}
	}
	return missing
}

// Cell returns the raw value at row, col; out of range cells are nil.
func (t *Table) Cell(row, col int) any {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return nil
	}
	r := t.Rows[row]
	if col >= len(r) {
		return nil
	}
	return r[col]
}

// Text returns the cell rendered as text and false when the cell is missing.
func (t *Table) Text(row, col int) (string, bool) {
	return CellText(t.Cell(row, col))
}

// Number returns the cell coerced to a number and false when it is missing or
// cannot be parsed.
func (t *Table) Number(row, col int) (float64, bool) {
	return CellNumber(t.Cell(row, col))
}

// CellText renders a decoded cell as text.
func CellText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case float64:
		if math.IsNaN(x) {
			return "", false
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		if math.IsNaN(float64(x)) {
			return "", false
		}
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int:
		return strconv.Itoa(x), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// CellNumber coerces a decoded cell to float64. Text cells are trimmed and
// parsed; placeholders such as "*" or "N/D" count as missing.
func CellNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		return parseNumber(x)
	case []byte:
		return parseNumber(string(x))
	default:
		return 0, false
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
