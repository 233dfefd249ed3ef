package merger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperr "github.com/ryabkov82/labmerge/internal/errors"
)

const utf8BOM = "\uFEFF"

// Table is one loaded input: its header row and data rows. Every row has
// exactly len(Header) cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
	Empty  bool // the file had no header row at all
}

// LoadTable loads a .csv or .xlsx file.
func LoadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return loadXLSX(path)
	default:
		return loadCSV(path)
	}
}

func loadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.FileAccess(path, err)
	}
	defer f.Close()
	return ReadCSV(filepath.Base(path), f)
}

// ReadCSV reads a table from CSV. Short rows are padded with empty cells;
// a row wider than the header is malformed.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	t := &Table{Name: name}
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		t.Empty = true
		return t, nil
	}
	if err != nil {
		return nil, apperr.MalformedInput(name, err.Error())
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	t.Header = header

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.MalformedInput(name, err.Error())
		}
		row, err := fitRow(record, len(header))
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, apperr.MalformedInput(name, fmt.Sprintf("line %d: %v", line, err))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func loadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperr.FileAccess(path, err)
	}
	defer f.Close()

	t := &Table{Name: filepath.Base(path)}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		t.Empty = true
		return t, nil
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, apperr.MalformedInput(path, fmt.Sprintf("read sheet %s: %v", sheets[0], err))
	}
	defer rows.Close()

	rowNum := 0
	for rows.Next() {
		rowNum++
		cols, err := rows.Columns()
		if err != nil {
			return nil, apperr.MalformedInput(path, fmt.Sprintf("row %d: %v", rowNum, err))
		}
		if t.Header == nil {
			t.Header = cols
			continue
		}
		row, err := fitRow(cols, len(t.Header))
		if err != nil {
			return nil, apperr.MalformedInput(path, fmt.Sprintf("row %d: %v", rowNum, err))
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Error(); err != nil {
		return nil, apperr.MalformedInput(path, err.Error())
	}
	if t.Header == nil {
		t.Empty = true
	}
	return t, nil
}

// fitRow pads a record to width; trailing empty cells beyond width are dropped.
func fitRow(record []string, width int) ([]string, error) {
	if len(record) > width {
		for _, extra := range record[width:] {
			if extra != "" {
				return nil, fmt.Errorf("%d fields, header has %d", len(record), width)
			}
		}
		record = record[:width]
	}
	row := make([]string, width)
	copy(row, record)
	return row, nil
}

// MasterTable is the outer join of several tables on row position.
type MasterTable struct {
	Columns []string
	Rows    [][]string
	Sources []string
}

// Join concatenates the tables column-wise. Row i of the result holds row i
// of every table; tables with fewer rows contribute empty cells.
func Join(tables ...*Table) *MasterTable {
	m := &MasterTable{}
	height := 0
	for _, t := range tables {
		m.Columns = append(m.Columns, t.Header...)
		m.Sources = append(m.Sources, t.Name)
		if len(t.Rows) > height {
			height = len(t.Rows)
		}
	}

	m.Rows = make([][]string, height)
	for i := range m.Rows {
		row := make([]string, 0, len(m.Columns))
		for _, t := range tables {
			if i < len(t.Rows) {
				row = append(row, t.Rows[i]...)
			} else {
				row = append(row, make([]string, len(t.Header))...)
			}
		}
		m.Rows[i] = row
	}
	return m
}

// Records returns the master table as CSV records. With index set, a first
// column with an empty header carries the row position.
func (m *MasterTable) Records(index bool) [][]string {
	records := make([][]string, 0, len(m.Rows)+1)

	header := make([]string, 0, len(m.Columns)+1)
	if index {
		header = append(header, "")
	}
	records = append(records, append(header, m.Columns...))

	for i, row := range m.Rows {
		rec := make([]string, 0, len(row)+1)
		if index {
			rec = append(rec, strconv.Itoa(i))
		}
		records = append(records, append(rec, row...))
	}
	return records
}

// WriteCSV writes the master table as CSV.
func (m *MasterTable) WriteCSV(w io.Writer, index bool) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(m.Records(index)); err != nil {
		return fmt.Errorf("write master csv: %w", err)
	}
	return nil
}
