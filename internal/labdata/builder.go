package labdata

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"

	"github.com/ryabkov82/labmerge/internal/config"
	apperr "github.com/ryabkov82/labmerge/internal/errors"
)

// ResolveFiles lists the regular files directly in dir whose names match
// pattern, sorted by name. An empty result is a NO_MATCHING_FILES error.
func ResolveFiles(dir, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, apperr.InvalidConfig(fmt.Sprintf("bad file pattern %q", pattern))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.FileAccess(dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := path.Match(pattern, e.Name()); ok {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, apperr.NoMatchingFiles(dir, pattern)
	}
	sort.Strings(files)
	return files, nil
}

// HeaderFromFiles derives the schema from the first file of the list.
func HeaderFromFiles(files []string) (Schema, error) {
	if len(files) == 0 {
		return nil, apperr.New(apperr.CodeNoMatchingFiles, "no files to infer a header from")
	}
	rec, err := ParseRecord(files[0])
	if err != nil {
		return nil, err
	}
	return schemaOf(rec)
}

func schemaOf(rec *RawRecord) (Schema, error) {
	if len(rec.Pairs) == 0 {
		return nil, apperr.MalformedInput(rec.Path, "no label<TAB>value lines to build a header from")
	}
	return Schema(rec.Labels()), nil
}

// InferHeader resolves the files matching pattern in dir and returns the
// labels of the first one.
func InferHeader(dir, pattern string) (Schema, error) {
	files, err := ResolveFiles(dir, pattern)
	if err != nil {
		return nil, err
	}
	return HeaderFromFiles(files)
}

// Options configure a Builder.
type Options struct {
	Families        []config.Family
	FileColumn      string
	OnMismatch      config.Policy
	OnMissingFamily config.Policy
	Logger          *slog.Logger
}

// Builder builds and writes the per-family tables.
type Builder struct {
	opts   Options
	logger *slog.Logger
}

// NewBuilder creates a Builder. A nil logger discards output.
func NewBuilder(opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.OnMismatch == "" {
		opts.OnMismatch = config.PolicyAbort
	}
	if opts.OnMissingFamily == "" {
		opts.OnMissingFamily = config.PolicyAbort
	}
	return &Builder{opts: opts, logger: logger}
}

// BuildTable builds the table of one family from the files in dir.
func (b *Builder) BuildTable(dir string, family config.Family) (*InstrumentTable, error) {
	files, err := ResolveFiles(dir, family.Pattern)
	if err != nil {
		return nil, err
	}
	table, _, err := b.buildFromFiles(family, files)
	return table, err
}

// buildFromFiles uses the one resolved list for both the header and the rows.
func (b *Builder) buildFromFiles(family config.Family, files []string) (*InstrumentTable, int, error) {
	log := b.logger.With("family", family.Name)

	first, err := ParseRecord(files[0])
	if err != nil {
		return nil, 0, err
	}
	schema, err := schemaOf(first)
	if err != nil {
		return nil, 0, err
	}
	log.Debug("inferred header", "file", first.Path, "columns", len(schema))

	table := NewInstrumentTable(family.Name, schema)
	warnings := 0

	for i, file := range files {
		rec := first
		if i > 0 {
			if rec, err = ParseRecord(file); err != nil {
				return nil, warnings, err
			}
		}

		for _, line := range rec.Unparseable {
			warnings++
			log.Warn("unparseable line ignored", "file", file, "line", line.Number, "text", line.Raw)
		}

		values := rec.Values()
		if err := table.AppendRow(filepath.Base(file), values); err != nil {
			if b.opts.OnMismatch != config.PolicySkip {
				return nil, warnings, apperr.Wrapf(err, "family %s", family.Name)
			}
			warnings++
			table.Skipped = append(table.Skipped, SkippedFile{Path: file, Reason: err.Error()})
			log.Warn("file skipped", "file", file, "values", len(values), "columns", len(schema))
			continue
		}

		if i > 0 && !slices.Equal(rec.Labels(), []string(schema)) {
			warnings++
			log.Warn("labels differ from header file", "file", file, "header_file", first.Path)
		}
	}

	log.Info("table built", "rows", len(table.Rows), "columns", len(schema), "skipped", len(table.Skipped))
	return table, warnings, nil
}

// FamilyOutput describes what the builder did for one family.
type FamilyOutput struct {
	Family       string
	Path         string
	Rows         int
	Columns      int
	Missing      bool
	SkippedFiles []SkippedFile
	Warnings     int
}

// BuildAll builds the table of every configured family. Under the abort
// policy the first family without files stops the build.
func (b *Builder) BuildAll(sourceDir string) ([]*InstrumentTable, []FamilyOutput, error) {
	var tables []*InstrumentTable
	var outputs []FamilyOutput

	for _, family := range b.opts.Families {
		files, err := ResolveFiles(sourceDir, family.Pattern)
		if err != nil {
			if apperr.HasCode(err, apperr.CodeNoMatchingFiles) && b.opts.OnMissingFamily == config.PolicySkip {
				b.logger.Warn("family skipped, no matching files", "family", family.Name, "pattern", family.Pattern)
				outputs = append(outputs, FamilyOutput{Family: family.Name, Missing: true, Warnings: 1})
				continue
			}
			return nil, nil, apperr.Wrapf(err, "family %s", family.Name)
		}

		table, warnings, err := b.buildFromFiles(family, files)
		if err != nil {
			return nil, nil, err
		}
		tables = append(tables, table)
		outputs = append(outputs, FamilyOutput{
			Family:       family.Name,
			Rows:         len(table.Rows),
			Columns:      len(table.Schema),
			SkippedFiles: table.Skipped,
			Warnings:     warnings,
		})
	}
	return tables, outputs, nil
}

// WriteInstrumentCSVs builds every family from sourceDir and, once all of
// them are built, writes <family>_xlab.csv files into destDir.
func (b *Builder) WriteInstrumentCSVs(sourceDir, destDir string) ([]FamilyOutput, error) {
	tables, outputs, err := b.BuildAll(sourceDir)
	if err != nil {
		return nil, err
	}

	byFamily := make(map[string]*InstrumentTable, len(tables))
	for _, t := range tables {
		byFamily[t.Family] = t
	}

	for i := range outputs {
		table, ok := byFamily[outputs[i].Family]
		if !ok {
			continue
		}
		out := filepath.Join(destDir, outputs[i].Family+config.FamilyFileSuffix)
		if err := table.SaveCSV(out, b.opts.FileColumn); err != nil {
			return outputs[:i], err
		}
		outputs[i].Path = out
		b.logger.Info("family csv written", "family", table.Family, "path", out)
	}
	return outputs, nil
}
