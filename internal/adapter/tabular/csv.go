// Package tabular decodes caller-uploaded tables.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	// ErrMalformed wraps any decoding failure; the message is safe to show to the caller.
	ErrMalformed = errors.New("malformed table")

	// ErrEmpty is returned for an upload with no header row.
	ErrEmpty = errors.New("empty table")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a decoded upload: a header row and data rows.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ParseCSV reads a UTF-8 CSV with a header row. Rows may be shorter or longer than the
// header; blank lines are skipped. Duplicate or empty header names are made unique.
func ParseCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: file is not valid UTF-8", ErrMalformed)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	table := &Table{Columns: uniqueColumns(header)}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// uniqueColumns renames empty and repeated header cells. A repeated name gets the lowest
// ".N" suffix not already taken, including by names that appear literally in the header.
func uniqueColumns(header []string) []string {
	used := make(map[string]struct{}, len(header))
	next := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if _, taken := used[name]; taken {
			base := name
			n := next[base]
			if n == 0 {
				n = 1
			}
			for {
				name = fmt.Sprintf("%s.%d", base, n)
				n++
				if _, taken := used[name]; !taken {
					break
				}
			}
			next[base] = n
		}
		used[name] = struct{}{}
		out[i] = name
	}
	return out
}
