package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"

	"cccbdb-harvester/internal/cas"
	"cccbdb-harvester/pkg/fsutil"
)

func VibrationsPath(dir string, id cas.Number) string {
	return filepath.Join(dir, id.String()+"_vibs.csv")
}

func ReferencesPath(dir string, id cas.Number) string {
	return filepath.Join(dir, id.String()+"_refs.csv")
}

func encodeCSV(table Table) ([]byte, error) {
	var buff bytes.Buffer
	w := csv.NewWriter(&buff)
	err := w.WriteAll(table)
	if err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

func writeTable(path string, table Table) error {
	contents, err := encodeCSV(table)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return fsutil.WriteFile(path, contents, 0o644)
}

// WriteCSV writes <id>_vibs.csv and <id>_refs.csv into dir, each one is
// replaced atomically.
func WriteCSV(dir string, id cas.Number, tables Tables) error {
	err := writeTable(VibrationsPath(dir, id), tables.Vibrations)
	if err != nil {
		return err
	}
	return writeTable(ReferencesPath(dir, id), tables.References)
}
