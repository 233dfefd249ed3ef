package labdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	apperr "github.com/ryabkov82/labmerge/internal/errors"
)

// Schema is the ordered list of labels that become column headers.
type Schema []string

// Row holds the values of one source file. Key identifies the file.
type Row struct {
	Key    string
	Values []string
}

// SkippedFile records a file left out of a table under the skip policy.
type SkippedFile struct {
	Path   string
	Reason string
}

// InstrumentTable is one family's wide table.
type InstrumentTable struct {
	Family  string
	Schema  Schema
	Rows    []Row
	Skipped []SkippedFile
}

// NewInstrumentTable creates an empty table with the schema as columns.
func NewInstrumentTable(family string, schema Schema) *InstrumentTable {
	return &InstrumentTable{Family: family, Schema: schema}
}

// AppendRow adds a row; len(values) must equal the schema length.
func (t *InstrumentTable) AppendRow(key string, values []string) error {
	if len(values) != len(t.Schema) {
		return apperr.RowLengthMismatch(key, len(values), len(t.Schema))
	}
	t.Rows = append(t.Rows, Row{Key: key, Values: append([]string(nil), values...)})
	return nil
}

// WriteCSV writes the table. When fileColumn is not empty, a leading column
// with that header carries each row's key.
func (t *InstrumentTable) WriteCSV(w io.Writer, fileColumn string) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(t.Schema)+1)
	if fileColumn != "" {
		header = append(header, fileColumn)
	}
	header = append(header, t.Schema...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range t.Rows {
		record := make([]string, 0, len(row.Values)+1)
		if fileColumn != "" {
			record = append(record, row.Key)
		}
		record = append(record, row.Values...)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", row.Key, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the table to path, replacing any existing file.
func (t *InstrumentTable) SaveCSV(path, fileColumn string) error {
	f, err := os.Create(path)
	if err != nil {
		return apperr.FileAccess(path, err)
	}
	if err := t.WriteCSV(f, fileColumn); err != nil {
		_ = f.Close()
		return apperr.FileAccess(path, err)
	}
	if err := f.Close(); err != nil {
		return apperr.FileAccess(path, err)
	}
	return nil
}
