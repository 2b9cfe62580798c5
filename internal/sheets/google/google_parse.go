package google

import (
	"fmt"
	"strings"

	"munidash/internal/core"
)

// parseValues converts a values matrix (as returned by Sheets API) into a
// table. The first row is the header; blank cells become missing values.
func parseValues(values [][]interface{}) (*core.Table, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty range", core.ErrUnavailable)
	}
	header := toStrings(values[0])
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	rows := make([][]any, 0, len(values)-1)
	for _, raw := range values[1:] {
		row := make([]any, len(raw))
		blank := true
		for i, v := range raw {
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			row[i] = v
			blank = false
		}
		// Trailing formatting rows come back as empty slices.
		if blank {
			continue
		}
		rows = append(rows, row)
	}
	return core.NewTable(header, rows), nil
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}
