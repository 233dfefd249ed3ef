package cli

import (
	"github.com/spf13/cobra"

	"github.com/ryabkov82/labmerge/internal/config"
	"github.com/ryabkov82/labmerge/internal/pipeline"
)

// buildFlags are shared by run and build.
type buildFlags struct {
	onMismatch      string
	onMissingFamily string
	families        []string
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.onMismatch, "on-mismatch", string(config.PolicyAbort),
		"What to do with a file whose value count differs from the header (abort, skip)")
	cmd.Flags().StringVar(&f.onMissingFamily, "on-missing-family", string(config.PolicyAbort),
		"What to do when a family matches no files (abort, skip)")
	cmd.Flags().StringArrayVar(&f.families, "family", nil,
		"Family as name=pattern, repeatable; replaces the configured families")
}

func (f *buildFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("on-mismatch") {
		cfg.OnMismatch = config.Policy(f.onMismatch)
	}
	if cmd.Flags().Changed("on-missing-family") {
		cfg.OnMissingFamily = config.Policy(f.onMissingFamily)
	}
	if cmd.Flags().Changed("family") {
		families := make([]config.Family, 0, len(f.families))
		for _, v := range f.families {
			fam, err := config.ParseFamily(v)
			if err != nil {
				return err
			}
			families = append(families, fam)
		}
		cfg.Families = families
	}
	return nil
}

// mergeFlags are shared by run and merge.
type mergeFlags struct {
	xlsx    bool
	noIndex bool
}

func (f *mergeFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.xlsx, "xlsx", false, "Also write the master table as XLSX")
	cmd.Flags().BoolVar(&f.noIndex, "no-index", false, "Omit the leading row index column from the master table")
}

func (f *mergeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("xlsx") {
		cfg.XLSX = f.xlsx
	}
	if cmd.Flags().Changed("no-index") {
		cfg.IndexColumn = !f.noIndex
	}
}

func newRunCmd(a *app) *cobra.Command {
	var (
		bf                buildFlags
		mf                mergeFlags
		cleanIntermediate bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the family CSVs and merge them into the master table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bf.apply(cmd, a.cfg); err != nil {
				return err
			}
			mf.apply(cmd, a.cfg)
			if cmd.Flags().Changed("clean-intermediate") {
				a.cfg.CleanIntermediate = cleanIntermediate
			}
			return a.runPipeline(func(r *pipeline.Runner) (*pipeline.Report, error) {
				return r.Run()
			})
		},
	}
	bf.register(cmd)
	mf.register(cmd)
	cmd.Flags().BoolVar(&cleanIntermediate, "clean-intermediate", false,
		"Remove the family CSVs after a successful merge")
	return cmd
}

func newBuildCmd(a *app) *cobra.Command {
	var bf buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write one CSV per instrument family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bf.apply(cmd, a.cfg); err != nil {
				return err
			}
			return a.runPipeline(func(r *pipeline.Runner) (*pipeline.Report, error) {
				return r.Build()
			})
		},
	}
	bf.register(cmd)
	return cmd
}

func newMergeCmd(a *app) *cobra.Command {
	var mf mergeFlags
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the CSV tables in the source and destination into the master table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mf.apply(cmd, a.cfg)
			return a.runPipeline(func(r *pipeline.Runner) (*pipeline.Report, error) {
				return r.Merge()
			})
		},
	}
	mf.register(cmd)
	return cmd
}

func newCleanCmd(a *app) *cobra.Command {
	var master bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the family CSVs from the destination",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.runPipeline(func(r *pipeline.Runner) (*pipeline.Report, error) {
				return r.Clean(master)
			})
		},
	}
	cmd.Flags().BoolVar(&master, "master", false, "Also remove the master CSV and XLSX")
	return cmd
}
