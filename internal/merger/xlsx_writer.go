package merger

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter renders a master table as a single-sheet workbook.
type XLSXWriter struct {
	BaseMerger
	Sheet        string
	SampleRows   int
	HeightHeader float64
}

// NewXLSXWriter returns a writer with the default sheet name and sample size.
func NewXLSXWriter() *XLSXWriter {
	w := &XLSXWriter{Sheet: "merged", SampleRows: 1000}
	w.BaseMerger.Init()
	return w
}

// Write saves records (header first) to path, replacing any existing file.
func (w *XLSXWriter) Write(path string, records [][]string) error {
	if len(records) == 0 {
		return fmt.Errorf("no rows to write")
	}

	out := excelize.NewFile()
	defer out.Close()

	if err := out.SetSheetName(out.GetSheetName(0), w.Sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	w.Init()
	w.Headers = records[0]
	w.AnalyzeSample(records[1:], w.SampleRows)

	sw, err := out.NewStreamWriter(w.Sheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	for col := range w.Headers {
		if err := sw.SetColWidth(col+1, col+1, w.ColWidth(col, 10)); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	headerStyle, err := out.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	headerRow := make([]interface{}, len(w.Headers))
	for i, h := range w.Headers {
		headerRow[i] = excelize.Cell{Value: h, StyleID: headerStyle}
	}
	if err := sw.SetRow("A1", headerRow, excelize.RowOpts{Height: w.HeightHeader}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records[1:] {
		rowData := make([]interface{}, len(rec))
		for j, v := range rec {
			rowData[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, rowData); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := out.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// cellValue types a CSV cell for the workbook: numbers become numbers, empty
// cells stay blank, everything else is text.
func cellValue(s string) interface{} {
	if s == "" {
		return nil
	}
	if keepAsText(s) {
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

// keepAsText protects identifiers such as "007" or "+1" from numeric conversion.
func keepAsText(s string) bool {
	if strings.HasPrefix(s, "+") || strings.TrimSpace(s) != s {
		return true
	}
	digits := strings.TrimPrefix(s, "-")
	return len(digits) > 1 && digits[0] == '0' && digits[1] != '.'
}
