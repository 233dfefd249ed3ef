// Package merger consolidates a directory of tables into one master table by
// column-wise outer join on row position.
package merger

import "unicode/utf8"

type FileMerger interface {
	Candidates(req MergeRequest) ([]string, error)
	Merge(req MergeRequest) (*MergeResult, error)
}

// maxColWidth caps the XLSX column width derived from the sampled cells.
const maxColWidth = 80

type BaseMerger struct {
	Headers      []string
	MaxColWidths map[int]int
}

// Init resets the header list and the sampled widths.
func (bm *BaseMerger) Init() {
	bm.MaxColWidths = make(map[int]int)
	bm.Headers = make([]string, 0)
}

// AnalyzeSample walks the header and up to sampleRows rows and records the
// widest cell of every column. sampleRows <= 0 samples every row.
func (bm *BaseMerger) AnalyzeSample(rows [][]string, sampleRows int) {
	if bm.MaxColWidths == nil {
		bm.MaxColWidths = make(map[int]int)
	}
	for i, h := range bm.Headers {
		bm.observe(i, h)
	}
	for n, row := range rows {
		if sampleRows > 0 && n >= sampleRows {
			break
		}
		for i, cell := range row {
			bm.observe(i, cell)
		}
	}
}

func (bm *BaseMerger) observe(col int, s string) {
	w := utf8.RuneCountInString(s) + 2
	if w > maxColWidth {
		w = maxColWidth
	}
	if w > bm.MaxColWidths[col] {
		bm.MaxColWidths[col] = w
	}
}

// ColWidth returns the sampled width of a column, or fallback when the
// column was never observed.
func (bm *BaseMerger) ColWidth(col int, fallback float64) float64 {
	if w, ok := bm.MaxColWidths[col]; ok {
		return float64(w)
	}
	return fallback
}
