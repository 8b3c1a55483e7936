package domain

import (
	"time"
)

// UploadedDataset is a caller-supplied table held under a token until it expires.
type UploadedDataset struct {
	Token      string     `json:"token"`
	Filename   string     `json:"filename,omitempty"`
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
	UploadedAt time.Time  `json:"uploaded_at"`
}

// ColumnValues returns the distinct non-empty values of the named column in row order.
// Values are compared verbatim; surrounding whitespace is kept.
// It returns nil when the column does not exist.
func (d *UploadedDataset) ColumnValues(column string) []string {
	idx := -1
	for i, c := range d.Columns {
		if c == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(d.Rows))
	values := make([]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		if idx >= len(row) {
			continue
		}
		v := row[idx]
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}
