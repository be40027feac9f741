package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ndskl/pkg/container"
	"github.com/matzehuels/ndskl/pkg/errors"
	"github.com/matzehuels/ndskl/pkg/observability"
	"github.com/matzehuels/ndskl/pkg/pipeline"
	"github.com/matzehuels/ndskl/pkg/skeleton"
)

// convertFlags holds the flags shared by convert and watch.
type convertFlags struct {
	output       string
	tables       string
	format       string
	compression  string
	config       string
	strictRefs   bool
	force        bool
	noCache      bool
	dryRun       bool
	maxLineBytes int
}

// register adds the conversion flags to cmd.
func (f *convertFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "container path (default: input name with .h5 or .ndsklc)")
	fl.StringVar(&f.tables, "tables", "", "also write SQLite table views to this file")
	fl.StringVar(&f.format, "format", "hdf5", "container format: hdf5 or native")
	fl.StringVar(&f.compression, "compression", "none", "dataset compression: none, or zstd with --format native")
	fl.StringVar(&f.config, "config", "", "TOML file with conversion defaults")
	fl.BoolVar(&f.strictRefs, "strict-refs", false, "reject indices that name no existing entity")
	fl.BoolVar(&f.force, "force", false, "convert even if the outputs are current")
	fl.BoolVar(&f.noCache, "no-cache", false, "do not read or record the conversion cache")
	fl.BoolVar(&f.dryRun, "dry-run", false, "parse and lay out without writing files")
	fl.IntVar(&f.maxLineBytes, "max-line-bytes", 0, "longest accepted input line (0: parser default)")

	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{string(container.FormatHDF5), string(container.FormatNative)}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("compression", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{string(container.CompressionNone), string(container.CompressionZstd)}, cobra.ShellCompDirectiveNoFileComp
	})
}

// options builds pipeline options for input. Config file values apply
// first; flags given on the command line override them.
func (f *convertFlags) options(cmd *cobra.Command, input string) (pipeline.Options, error) {
	var base pipeline.Options
	if f.config != "" {
		cfg, err := pipeline.LoadConfig(f.config)
		if err != nil {
			return pipeline.Options{}, err
		}
		base = cfg
	}

	flags := pipeline.Options{
		Input:        input,
		Output:       f.output,
		Tables:       f.tables,
		Force:        f.force,
		DryRun:       f.dryRun,
		MaxLineBytes: f.maxLineBytes,
	}
	changed := cmd.Flags().Changed
	if changed("format") || base.Format == "" {
		format, err := container.ParseFormat(f.format)
		if err != nil {
			return pipeline.Options{}, err
		}
		flags.Format = format
	}
	if changed("compression") || base.Compression == "" {
		c, err := container.ParseCompression(f.compression)
		if err != nil {
			return pipeline.Options{}, err
		}
		flags.Compression = c
	}

	opts := flags.Merge(base)
	if changed("strict-refs") {
		opts.References = skeleton.Permissive
		if f.strictRefs {
			opts.References = skeleton.Strict
		}
	}
	return opts, nil
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "convert <input.NDskl.a>",
		Short: "Convert an NDskl_ascii skeleton into a container",
		Long: `Convert parses an NDskl_ascii skeleton and writes its critical points,
filaments and associated fields to an HDF5 file, or to the native container
with --format native.

Per-critical-point connections and per-filament sampling points are stored
flat, with count and offset arrays giving each entity's slice.`,
		Example: `  ndskl convert skel.NDskl.a
  ndskl convert skel.NDskl.a -o out/skel.ndsklc --format native --compression zstd
  ndskl convert skel.NDskl.a --tables views.db --strict-refs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, args[0])
			if err != nil {
				return err
			}
			runner, err := c.newRunner(flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			ctx := cmd.Context()
			opts.Logger = loggerFromContext(ctx)

			start := time.Now()
			var res *pipeline.Result
			if c.verbose {
				res, err = runner.Convert(ctx, opts)
			} else {
				res, err = convertWithSpinner(ctx, cmd.ErrOrStderr(), runner, opts)
			}
			if err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}

			reportConversion(res, opts.DryRun, time.Since(start))
			switch {
			case opts.DryRun:
			case res.Format == container.FormatNative:
				printNextStep("Inspect it", "ndskl inspect "+res.Output)
			default:
				printNextStep("List its datasets", "h5ls -r "+res.Output)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// convertWithSpinner runs one conversion while a spinner on w follows its
// stages through the pipeline hooks.
func convertWithSpinner(ctx context.Context, w io.Writer, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	spinner := newStageSpinner(w, opts.Input)
	prev := observability.Pipeline()
	observability.SetPipelineHooks(spinner)
	defer observability.SetPipelineHooks(prev)

	spinner.Start(ctx)
	defer spinner.Stop()
	return runner.Convert(ctx, opts)
}

// reportConversion prints the outcome of one conversion.
func reportConversion(res *pipeline.Result, dryRun bool, elapsed time.Duration) {
	switch {
	case res.Skipped:
		printSuccess("%s is up to date", res.Input)
	case dryRun:
		printSuccess("Checked %s (%s, nothing written)", res.Input, elapsed.Round(time.Millisecond))
	default:
		printSuccess("Converted %s (%s)", res.Input, elapsed.Round(time.Millisecond))
	}
	printStats(res.Stats.SkeletonStats, res.Skipped)
	if dryRun {
		return
	}
	printFile(res.Output)
	if res.Tables != "" {
		printFile(res.Tables)
	}
	printDetail("run %s", res.RunID)
}
