package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	apperr "github.com/ryabkov82/labmerge/internal/errors"
	"github.com/ryabkov82/labmerge/internal/pipeline"
)

// Output is the result document printed with --output json.
type Output struct {
	Success     bool     `json:"success"`
	RunID       string   `json:"run_id,omitempty"`
	OutputFiles []string `json:"output_files,omitempty"`
	Removed     []string `json:"removed,omitempty"`
	Error       string   `json:"error,omitempty"`
	Code        string   `json:"code,omitempty"`
	Path        string   `json:"path,omitempty"`
	Duration    string   `json:"duration"`
	RowCount    int64    `json:"row_count,omitempty"`
	ColumnCount int      `json:"column_count,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

func newOutput(report *pipeline.Report, err error, elapsed time.Duration) Output {
	out := Output{
		Success:  err == nil,
		Duration: elapsed.String(),
	}
	if report != nil {
		out.RunID = report.RunID
		out.OutputFiles = report.OutputFiles()
		out.Removed = report.Removed
		out.RowCount = int64(report.Rows)
		out.ColumnCount = report.Columns
		out.Warnings = report.Warnings
	}
	if err != nil {
		out.Error = err.Error()
		out.Code = apperr.GetCode(err)
		out.Path = apperr.GetPath(err)
	}
	return out
}

func emitJSON(w io.Writer, out Output) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeSummary(w io.Writer, report *pipeline.Report, elapsed time.Duration) {
	for _, f := range report.Families {
		if f.Missing {
			fmt.Fprintf(w, "%-8s no matching files, skipped\n", f.Family)
			continue
		}
		fmt.Fprintf(w, "%-8s %d rows, %d columns -> %s\n", f.Family, f.Rows, f.Columns, f.Path)
	}
	if report.MasterPath != "" {
		fmt.Fprintf(w, "merged %d files: %d rows, %d columns -> %s\n",
			len(report.Inputs), report.Rows, report.Columns, report.MasterPath)
	}
	if report.XLSXPath != "" {
		fmt.Fprintf(w, "xlsx     %s\n", report.XLSXPath)
	}
	for _, p := range report.Removed {
		fmt.Fprintf(w, "removed  %s\n", filepath.Base(p))
	}
	for _, warn := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	fmt.Fprintf(w, "done in %s\n", elapsed.Round(time.Millisecond))
}

func writeDiagnostic(w io.Writer, err error) {
	fmt.Fprintf(w, "Error [%s]: %v\n", apperr.GetCode(err), err)
	if p := apperr.GetPath(err); p != "" {
		fmt.Fprintf(w, "  path: %s\n", p)
	}
}
