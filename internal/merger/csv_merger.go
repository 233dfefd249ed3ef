package merger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperr "github.com/ryabkov82/labmerge/internal/errors"
)

// Options configure a CSVMerger.
type Options struct {
	MasterName  string
	IndexColumn bool
	XLSX        bool // also write <master>.xlsx
	XLSXInputs  bool // read *.xlsx candidates
	Logger      *slog.Logger
}

// MergeRequest describes one merge. When Inputs is nil the candidates are
// listed from InputDirs.
type MergeRequest struct {
	InputDirs []string
	Inputs    []string
	DestDir   string
	Overwrite bool
}

// MergeResult reports what a merge wrote.
type MergeResult struct {
	MasterPath string
	XLSXPath   string
	Inputs     []string
	Rows       int
	Columns    int
	Warnings   []string
}

var _ FileMerger = (*CSVMerger)(nil)

// CSVMerger joins table files into the master CSV.
type CSVMerger struct {
	opts   Options
	logger *slog.Logger
	xlsx   *XLSXWriter
}

// NewCSVMerger creates a merger. A nil logger discards output.
func NewCSVMerger(opts Options) *CSVMerger {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CSVMerger{opts: opts, logger: logger, xlsx: NewXLSXWriter()}
}

// MasterPath returns where the master CSV is written for destDir.
func (m *CSVMerger) MasterPath(destDir string) string {
	return filepath.Join(destDir, m.opts.MasterName)
}

func (m *CSVMerger) xlsxPath(destDir string) string {
	name := strings.TrimSuffix(m.opts.MasterName, filepath.Ext(m.opts.MasterName)) + ".xlsx"
	return filepath.Join(destDir, name)
}

// excludes lists every master output in every directory involved, so a
// previous master is never read back as an input.
func (m *CSVMerger) excludes(req MergeRequest) []string {
	dirs := append([]string{req.DestDir}, req.InputDirs...)
	var out []string
	for _, d := range dirs {
		out = append(out, m.MasterPath(d), m.xlsxPath(d))
	}
	return out
}

// Candidates lists the input files of req with the master outputs removed.
func (m *CSVMerger) Candidates(req MergeRequest) ([]string, error) {
	if req.Inputs != nil {
		return FilterExcluded(req.Inputs, m.excludes(req)...), nil
	}
	return CandidateSet(req.InputDirs, m.opts.XLSXInputs, m.excludes(req)...)
}

// Merge joins the candidates and writes the master table. An existing
// master at the destination is only replaced when req.Overwrite is set;
// otherwise CONFIRMATION_REQUIRED is returned and nothing is read or written.
func (m *CSVMerger) Merge(req MergeRequest) (*MergeResult, error) {
	masterPath := m.MasterPath(req.DestDir)
	if !req.Overwrite {
		if _, err := os.Stat(masterPath); err == nil {
			return nil, apperr.ConfirmationRequired(masterPath)
		}
	}

	inputs, err := m.Candidates(req)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, apperr.NoMatchingFiles(strings.Join(req.InputDirs, ", "), "*.csv")
	}

	result := &MergeResult{MasterPath: masterPath, Inputs: inputs}
	tables := make([]*Table, 0, len(inputs))
	for _, p := range inputs {
		t, err := LoadTable(p)
		if err != nil {
			return nil, err
		}
		if t.Empty {
			result.Warnings = append(result.Warnings, "empty input skipped: "+p)
			m.logger.Warn("empty input skipped", "file", p)
			continue
		}
		m.logger.Debug("input loaded", "file", p, "rows", len(t.Rows), "columns", len(t.Header))
		tables = append(tables, t)
	}

	if len(tables) == 0 {
		return nil, apperr.MalformedInput(strings.Join(inputs, ", "), "every input is empty, nothing to merge")
	}

	master := Join(tables...)
	result.Rows = len(master.Rows)
	result.Columns = len(master.Columns)

	if err := writeMasterCSV(masterPath, master, m.opts.IndexColumn); err != nil {
		return nil, err
	}
	m.logger.Info("master written", "path", masterPath, "rows", result.Rows, "columns", result.Columns, "inputs", len(tables))

	if m.opts.XLSX {
		p := m.xlsxPath(req.DestDir)
		if err := m.xlsx.Write(p, master.Records(m.opts.IndexColumn)); err != nil {
			return nil, apperr.FileAccess(p, err)
		}
		result.XLSXPath = p
		m.logger.Info("master xlsx written", "path", p)
	}
	return result, nil
}

func writeMasterCSV(path string, master *MasterTable, index bool) error {
	f, err := os.Create(path)
	if err != nil {
		return apperr.FileAccess(path, err)
	}
	if err := master.WriteCSV(f, index); err != nil {
		_ = f.Close()
		return apperr.FileAccess(path, err)
	}
	if err := f.Close(); err != nil {
		return apperr.FileAccess(path, err)
	}
	return nil
}
