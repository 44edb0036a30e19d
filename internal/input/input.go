// Package input reads the list of CAS numbers to harvest from a csv table.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cccbdb-harvester/internal/cas"
)

const DefaultColumn = "cas_no"

// FormatError is returned when the table cannot be used as a source of
// identifiers at all.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("input %s: %s", e.Path, e.Reason)
}

// Load reads the identifiers from the given column of the csv file at path.
// Empty cells are skipped and duplicates are dropped, the first occurrence
// keeps its position.
func Load(path, column string) ([]cas.Number, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return Read(f, path, column)
}

// Read is Load over an arbitrary reader, name is used in errors.
func Read(r io.Reader, name, column string) ([]cas.Number, error) {
	if column == "" {
		column = DefaultColumn
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &FormatError{Path: name, Reason: "empty table"}
	}
	if err != nil {
		return nil, &FormatError{Path: name, Reason: fmt.Sprintf("read header: %s", err.Error())}
	}

	idx := -1
	for i, h := range header {
		// excel likes to prefix the first header with a byte order mark
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.TrimSpace(h) == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &FormatError{Path: name, Reason: fmt.Sprintf("no column `%s` in the table", column)}
	}

	var out []cas.Number
	seen := map[cas.Number]struct{}{}
	row := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, &FormatError{Path: name, Reason: fmt.Sprintf("row %d: %s", row, err.Error())}
		}
		if idx >= len(record) || strings.TrimSpace(record[idx]) == "" {
			continue
		}

		id, err := cas.Parse(record[idx])
		if err != nil {
			return nil, &FormatError{Path: name, Reason: fmt.Sprintf("row %d: %s", row, err.Error())}
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out, nil
}
