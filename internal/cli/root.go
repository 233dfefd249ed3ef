// Package cli is the labmerge command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryabkov82/labmerge/internal/config"
	"github.com/ryabkov82/labmerge/internal/confirm"
	apperr "github.com/ryabkov82/labmerge/internal/errors"
	"github.com/ryabkov82/labmerge/internal/pipeline"
)

var (
	version = "dev"
	commit  = "none"
)

type streams struct {
	in     *os.File
	out    io.Writer
	errOut io.Writer
}

// app holds what the commands share after the root flags are resolved.
type app struct {
	streams

	cfg    *config.Config
	logger *slog.Logger
	report *pipeline.Report

	configPath string
	source     string
	dest       string
	assumeYes  bool
	logLevel   string
	logFormat  string
	output     string
}

// Execute runs the CLI and returns the process exit status.
func Execute() int {
	return execute(os.Args[1:], streams{in: os.Stdin, out: os.Stdout, errOut: os.Stderr})
}

func execute(args []string, s streams) int {
	start := time.Now()
	a := &app{streams: s}
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(s.out)
	rootCmd.SetErr(s.errOut)

	err := rootCmd.Execute()
	return a.finish(err, time.Since(start))
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "labmerge",
		Short: "Consolidate X-lab instrument exports into one master table",
		Long: "labmerge turns Hall and ICP instrument text exports into one CSV per family\n" +
			"and merges every CSV table it finds into X-Materials_master_data.csv.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.resolveConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.source, "source", "s", "", "Directory holding the instrument text files")
	flags.StringVarP(&a.dest, "dest", "d", "", "Directory for the family CSVs and the master table")
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	flags.BoolVarP(&a.assumeYes, "yes", "y", false, "Answer yes to every confirmation")
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "text", "Log format (text, json)")
	flags.StringVarP(&a.output, "output", "o", "text", "Result format (text, json)")

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newBuildCmd(a))
	rootCmd.AddCommand(newMergeCmd(a))
	rootCmd.AddCommand(newCleanCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))

	return rootCmd
}

// resolveConfig applies flag > env > file > default.
func (a *app) resolveConfig(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return &apperr.AppError{Code: apperr.CodeInvalidConfig, Message: "load .env", Cause: err}
	}

	cfg := config.Default()
	cfg.Output = a.output

	path := a.configPath
	if !cmd.Flags().Changed("config") {
		path = os.Getenv("LABMERGE_CONFIG")
	}
	if path != "" {
		fc, err := config.LoadFile(path)
		if err != nil {
			return &apperr.AppError{Code: apperr.CodeInvalidConfig, Message: "load config", Path: path, Cause: err}
		}
		cfg.ApplyFile(fc)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return err
	}

	if cmd.Flags().Changed("source") {
		cfg.SourceDir = a.source
	}
	if cmd.Flags().Changed("dest") {
		cfg.DestDir = a.dest
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	cfg.AssumeYes = a.assumeYes
	cfg.Normalize()

	logger, err := newLogger(a.errOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// runPipeline validates the final configuration and runs fn on a fresh runner.
func (a *app) runPipeline(fn func(*pipeline.Runner) (*pipeline.Report, error)) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	c := confirm.ForStdio(a.cfg.AssumeYes, a.in, a.errOut)
	runner := pipeline.New(a.cfg, c, a.logger)
	report, err := fn(runner)
	a.report = report
	return err
}

// finish reports the outcome and maps it to an exit status. A declined
// confirmation is not a failure.
func (a *app) finish(err error, elapsed time.Duration) int {
	jsonOut := a.output == "json"

	if apperr.HasCode(err, apperr.CodeDeclined) {
		if jsonOut {
			a.emit(newOutput(a.report, err, elapsed))
		} else {
			fmt.Fprintln(a.errOut, "Exiting without doing anything.")
		}
		return 0
	}

	if a.report == nil && err == nil {
		return 0
	}

	if jsonOut {
		a.emit(newOutput(a.report, err, elapsed))
	} else if err == nil {
		writeSummary(a.out, a.report, elapsed)
	} else {
		writeDiagnostic(a.errOut, err)
	}

	if err != nil {
		return 1
	}
	return 0
}

func (a *app) emit(out Output) {
	if err := emitJSON(a.out, out); err != nil {
		fmt.Fprintf(a.errOut, "write result: %v\n", err)
	}
}
