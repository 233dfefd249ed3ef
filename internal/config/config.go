package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperr "github.com/ryabkov82/labmerge/internal/errors"
)

// DefaultMasterName is the file name of the consolidated table.
const DefaultMasterName = "X-Materials_master_data.csv"

// FamilyFileSuffix is appended to a family name to form its CSV file name.
const FamilyFileSuffix = "_xlab.csv"

// Policy selects what happens when a family or a file cannot be used.
type Policy string

const (
	PolicyAbort Policy = "abort"
	PolicySkip  Policy = "skip"
)

// Family is a named group of instrument files sharing a file name pattern.
type Family struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// OutputName returns the CSV file name written for the family.
func (f Family) OutputName() string {
	return f.Name + FamilyFileSuffix
}

// DefaultFamilies returns the Hall and ICP families of the X-lab exports.
func DefaultFamilies() []Family {
	return []Family{
		{Name: "hall", Pattern: "*Hall*txt"},
		{Name: "icp", Pattern: "*ICP*txt"},
	}
}

type Config struct {
	SourceDir         string
	DestDir           string
	MasterName        string
	Families          []Family
	FileColumn        string // header of the file identity column; empty omits it
	IndexColumn       bool   // leading integer index column in the master file
	XLSX              bool   // also write the master table as XLSX
	XLSXInputs        bool   // merge *.xlsx files found next to the CSVs
	OnMismatch        Policy
	OnMissingFamily   Policy
	AssumeYes         bool
	CleanIntermediate bool // remove family CSVs after a successful merge
	LogLevel          string
	LogFormat         string
	Output            string
}

// Default returns the configuration used when nothing else is specified.
func Default() *Config {
	return &Config{
		MasterName:      DefaultMasterName,
		Families:        DefaultFamilies(),
		FileColumn:      "source_file",
		IndexColumn:     true,
		OnMismatch:      PolicyAbort,
		OnMissingFamily: PolicyAbort,
		LogLevel:        "info",
		LogFormat:       "text",
		Output:          "text",
	}
}

// FileConfig mirrors the YAML configuration file. Pointer fields distinguish
// "unset" from zero values.
type FileConfig struct {
	Source            string   `yaml:"source,omitempty"`
	Destination       string   `yaml:"destination,omitempty"`
	MasterName        string   `yaml:"master_name,omitempty"`
	Families          []Family `yaml:"families,omitempty"`
	FileColumn        *string  `yaml:"file_column,omitempty"`
	IndexColumn       *bool    `yaml:"index_column,omitempty"`
	XLSX              *bool    `yaml:"xlsx,omitempty"`
	XLSXInputs        *bool    `yaml:"xlsx_inputs,omitempty"`
	CleanIntermediate *bool    `yaml:"clean_intermediate,omitempty"`
	OnMismatch        Policy   `yaml:"on_mismatch,omitempty"`
	OnMissingFamily   Policy   `yaml:"on_missing_family,omitempty"`
	LogLevel          string   `yaml:"log_level,omitempty"`
	LogFormat         string   `yaml:"log_format,omitempty"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(p string) (*FileConfig, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, apperr.Wrapf(apperr.InvalidConfig(err.Error()), "parse config %s", p)
	}
	return &fc, nil
}

// ApplyFile overlays the values set in fc.
func (c *Config) ApplyFile(fc *FileConfig) {
	if fc == nil {
		return
	}
	if fc.Source != "" {
		c.SourceDir = fc.Source
	}
	if fc.Destination != "" {
		c.DestDir = fc.Destination
	}
	if fc.MasterName != "" {
		c.MasterName = fc.MasterName
	}
	if len(fc.Families) > 0 {
		c.Families = append([]Family(nil), fc.Families...)
	}
	if fc.FileColumn != nil {
		c.FileColumn = *fc.FileColumn
	}
	if fc.IndexColumn != nil {
		c.IndexColumn = *fc.IndexColumn
	}
	if fc.XLSX != nil {
		c.XLSX = *fc.XLSX
	}
	if fc.XLSXInputs != nil {
		c.XLSXInputs = *fc.XLSXInputs
	}
	if fc.CleanIntermediate != nil {
		c.CleanIntermediate = *fc.CleanIntermediate
	}
	if fc.OnMismatch != "" {
		c.OnMismatch = fc.OnMismatch
	}
	if fc.OnMissingFamily != "" {
		c.OnMissingFamily = fc.OnMissingFamily
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays LABMERGE_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("LABMERGE_SOURCE"); v != "" {
		c.SourceDir = v
	}
	if v := os.Getenv("LABMERGE_DEST"); v != "" {
		c.DestDir = v
	}
	if v := os.Getenv("LABMERGE_MASTER_NAME"); v != "" {
		c.MasterName = v
	}
	if v := os.Getenv("LABMERGE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LABMERGE_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("LABMERGE_XLSX"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperr.InvalidConfig(fmt.Sprintf("invalid LABMERGE_XLSX: %v", err))
		}
		c.XLSX = b
	}
	return nil
}

// Normalize cleans the directory paths.
func (c *Config) Normalize() {
	if c.SourceDir != "" {
		c.SourceDir = filepath.Clean(c.SourceDir)
	}
	if c.DestDir != "" {
		c.DestDir = filepath.Clean(c.DestDir)
	}
	c.MasterName = strings.TrimSpace(c.MasterName)
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
}

// Validate checks everything that does not touch the filesystem.
func (c *Config) Validate() error {
	if c.MasterName == "" {
		return apperr.InvalidConfig("master file name must not be empty")
	}
	if filepath.Base(c.MasterName) != c.MasterName {
		return apperr.InvalidConfig(fmt.Sprintf("master file name %q must not contain a directory", c.MasterName))
	}
	if !strings.EqualFold(filepath.Ext(c.MasterName), ".csv") {
		return apperr.InvalidConfig(fmt.Sprintf("master file name %q must end in .csv", c.MasterName))
	}
	seen := make(map[string]bool, len(c.Families))
	for _, f := range c.Families {
		if f.Name == "" || f.Pattern == "" {
			return apperr.InvalidConfig(fmt.Sprintf("family %q: name and pattern are required", f.Name))
		}
		if strings.ContainsAny(f.Name, `/\`) {
			return apperr.InvalidConfig(fmt.Sprintf("family %q: name must not contain path separators", f.Name))
		}
		if _, err := path.Match(f.Pattern, ""); err != nil {
			return apperr.InvalidConfig(fmt.Sprintf("family %q: bad pattern %q", f.Name, f.Pattern))
		}
		if seen[f.Name] {
			return apperr.InvalidConfig(fmt.Sprintf("family %q declared twice", f.Name))
		}
		seen[f.Name] = true
	}
	if err := validatePolicy("on-mismatch", c.OnMismatch); err != nil {
		return err
	}
	if err := validatePolicy("on-missing-family", c.OnMissingFamily); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return apperr.InvalidConfig(fmt.Sprintf("unsupported log format %q: use 'text' or 'json'", c.LogFormat))
	}
	switch c.Output {
	case "text", "json":
	default:
		return apperr.InvalidConfig(fmt.Sprintf("unsupported output format %q: use 'text' or 'json'", c.Output))
	}
	return nil
}

func validatePolicy(name string, p Policy) error {
	switch p {
	case PolicyAbort, PolicySkip:
		return nil
	}
	return apperr.InvalidConfig(fmt.Sprintf("unsupported %s policy %q: use 'abort' or 'skip'", name, p))
}

// ValidateDirs checks that the source and destination exist and are directories.
func (c *Config) ValidateDirs() error {
	if err := requireDir(c.SourceDir, "source"); err != nil {
		return err
	}
	return requireDir(c.DestDir, "destination")
}

func requireDir(dir, role string) error {
	if dir == "" {
		return apperr.InvalidPath(dir, role+" directory is required")
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return apperr.InvalidPath(dir, role+" is not a valid directory")
	}
	return nil
}

// XLSXName returns the file name of the XLSX rendition of the master table.
func (c *Config) XLSXName() string {
	return strings.TrimSuffix(c.MasterName, filepath.Ext(c.MasterName)) + ".xlsx"
}

// FamilyOutputs lists the CSV names written by the builder.
func (c *Config) FamilyOutputs() []string {
	names := make([]string, 0, len(c.Families))
	for _, f := range c.Families {
		names = append(names, f.OutputName())
	}
	return names
}

// ParseFamily parses a "name=pattern" flag value.
func ParseFamily(s string) (Family, error) {
	name, pattern, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(pattern) == "" {
		return Family{}, apperr.InvalidConfig(fmt.Sprintf("invalid family %q: want name=pattern", s))
	}
	return Family{Name: strings.TrimSpace(name), Pattern: strings.TrimSpace(pattern)}, nil
}

// SameDir reports whether both directories resolve to the same location.
func (c *Config) SameDir() bool {
	a, errA := filepath.Abs(c.SourceDir)
	b, errB := filepath.Abs(c.DestDir)
	if errA != nil || errB != nil {
		return c.SourceDir == c.DestDir
	}
	if ra, err := filepath.EvalSymlinks(a); err == nil {
		a = ra
	}
	if rb, err := filepath.EvalSymlinks(b); err == nil {
		b = rb
	}
	return a == b
}
