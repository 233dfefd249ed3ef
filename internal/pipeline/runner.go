// Package pipeline runs the build and merge steps in order, with the checks
// and confirmations that guard the destructive ones.
package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ryabkov82/labmerge/internal/config"
	"github.com/ryabkov82/labmerge/internal/confirm"
	apperr "github.com/ryabkov82/labmerge/internal/errors"
	"github.com/ryabkov82/labmerge/internal/labdata"
	"github.com/ryabkov82/labmerge/internal/merger"
)

// Report summarises a run.
type Report struct {
	RunID      string
	Families   []labdata.FamilyOutput
	MasterPath string
	XLSXPath   string
	Inputs     []string
	Rows       int
	Columns    int
	Removed    []string
	Warnings   []string
}

// OutputFiles lists every file the run wrote.
func (r *Report) OutputFiles() []string {
	var out []string
	for _, f := range r.Families {
		if f.Path != "" {
			out = append(out, f.Path)
		}
	}
	if r.MasterPath != "" {
		out = append(out, r.MasterPath)
	}
	if r.XLSXPath != "" {
		out = append(out, r.XLSXPath)
	}
	return out
}

type Runner struct {
	cfg     *config.Config
	builder *labdata.Builder
	merger  merger.FileMerger
	confirm confirm.Confirmer
	logger  *slog.Logger
	runID   string
}

// New wires a runner from the configuration. A nil logger discards output.
func New(cfg *config.Config, c confirm.Confirmer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	return &Runner{
		cfg: cfg,
		builder: labdata.NewBuilder(labdata.Options{
			Families:        cfg.Families,
			FileColumn:      cfg.FileColumn,
			OnMismatch:      cfg.OnMismatch,
			OnMissingFamily: cfg.OnMissingFamily,
			Logger:          logger,
		}),
		merger: merger.NewCSVMerger(merger.Options{
			MasterName:  cfg.MasterName,
			IndexColumn: cfg.IndexColumn,
			XLSX:        cfg.XLSX,
			XLSXInputs:  cfg.XLSXInputs,
			Logger:      logger,
		}),
		confirm: c,
		logger:  logger,
		runID:   runID,
	}
}

// RunID identifies this runner's log lines and report.
func (r *Runner) RunID() string { return r.runID }

// Run builds the family CSVs and merges them into the master table.
func (r *Runner) Run() (*Report, error) {
	report := &Report{RunID: r.runID}
	if err := r.preflight(); err != nil {
		return report, err
	}
	if err := r.build(report); err != nil {
		return report, err
	}
	if err := r.merge(report); err != nil {
		return report, err
	}
	if r.cfg.CleanIntermediate {
		removed, err := r.removeFiles(r.intermediateFiles())
		report.Removed = removed
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// Build writes the family CSVs only.
func (r *Runner) Build() (*Report, error) {
	report := &Report{RunID: r.runID}
	if err := r.preflight(); err != nil {
		return report, err
	}
	return report, r.build(report)
}

// Merge merges the tables already present in the source and destination.
func (r *Runner) Merge() (*Report, error) {
	report := &Report{RunID: r.runID}
	if err := r.preflight(); err != nil {
		return report, err
	}
	return report, r.merge(report)
}

// Clean removes the intermediate family CSVs from the destination, and the
// master outputs as well when withMaster is set.
func (r *Runner) Clean(withMaster bool) (*Report, error) {
	report := &Report{RunID: r.runID}
	if err := r.cfg.ValidateDirs(); err != nil {
		return report, err
	}
	files := r.intermediateFiles()
	if withMaster {
		files = append(files,
			filepath.Join(r.cfg.DestDir, r.cfg.MasterName),
			filepath.Join(r.cfg.DestDir, r.cfg.XLSXName()))
	}
	removed, err := r.removeFiles(files)
	report.Removed = removed
	return report, err
}

// preflight validates both directories, asks before writing into the source
// directory, and refuses to run while a master file sits in the source.
func (r *Runner) preflight() error {
	if err := r.cfg.ValidateDirs(); err != nil {
		return err
	}
	r.logger.Info("paths", "source", r.cfg.SourceDir, "destination", r.cfg.DestDir)

	if r.cfg.SameDir() {
		r.logger.Warn("source and destination are the same path", "path", r.cfg.SourceDir)
		if err := r.ask("Source and destination are the same path. Continue?"); err != nil {
			return err
		}
	}

	masterInSource := filepath.Join(r.cfg.SourceDir, r.cfg.MasterName)
	if _, err := os.Stat(masterInSource); err == nil {
		return apperr.MasterInSource(masterInSource)
	}
	return nil
}

func (r *Runner) build(report *Report) error {
	outputs, err := r.builder.WriteInstrumentCSVs(r.cfg.SourceDir, r.cfg.DestDir)
	report.Families = outputs
	for _, f := range outputs {
		if f.Missing {
			report.Warnings = append(report.Warnings, fmt.Sprintf("family %s: no matching files", f.Family))
		}
		for _, s := range f.SkippedFiles {
			report.Warnings = append(report.Warnings, fmt.Sprintf("family %s: skipped %s", f.Family, s.Reason))
		}
	}
	return err
}

func (r *Runner) merge(report *Report) error {
	req := merger.MergeRequest{
		InputDirs: r.inputDirs(),
		DestDir:   r.cfg.DestDir,
	}

	inputs, err := r.merger.Candidates(req)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return apperr.NoMatchingFiles(strings.Join(req.InputDirs, ", "), "*.csv")
	}
	names := make([]string, len(inputs))
	for i, p := range inputs {
		names[i] = filepath.Base(p)
	}
	r.logger.Info("files to merge", "count", len(inputs), "files", strings.Join(names, ", "))

	question := fmt.Sprintf("The following files will be merged:\n  %s\nConfirm merge?", strings.Join(names, "\n  "))
	if err := r.ask(question); err != nil {
		return err
	}
	req.Inputs = inputs

	res, err := r.merger.Merge(req)
	if apperr.HasCode(err, apperr.CodeConfirmationRequired) {
		r.logger.Warn("master file already exists in destination", "path", apperr.GetPath(err))
		if err := r.ask("Master CSV file already exists in destination path. OK to overwrite?"); err != nil {
			return err
		}
		req.Overwrite = true
		res, err = r.merger.Merge(req)
	}
	if err != nil {
		return err
	}

	report.MasterPath = res.MasterPath
	report.XLSXPath = res.XLSXPath
	report.Inputs = res.Inputs
	report.Rows = res.Rows
	report.Columns = res.Columns
	report.Warnings = append(report.Warnings, res.Warnings...)
	return nil
}

// inputDirs is the source, then the destination when it differs.
func (r *Runner) inputDirs() []string {
	if r.cfg.SameDir() {
		return []string{r.cfg.SourceDir}
	}
	return []string{r.cfg.SourceDir, r.cfg.DestDir}
}

func (r *Runner) intermediateFiles() []string {
	var files []string
	for _, name := range r.cfg.FamilyOutputs() {
		files = append(files, filepath.Join(r.cfg.DestDir, name))
	}
	return files
}

func (r *Runner) removeFiles(files []string) ([]string, error) {
	var removed []string
	for _, f := range files {
		err := os.Remove(f)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return removed, apperr.FileAccess(f, err)
		}
		r.logger.Info("removed", "path", f)
		removed = append(removed, f)
	}
	return removed, nil
}

func (r *Runner) ask(question string) error {
	ok, err := r.confirm.Confirm(question)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Declined("Exiting without doing anything.")
	}
	return nil
}
