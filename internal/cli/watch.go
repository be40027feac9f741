package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ndskl/pkg/errors"
	"github.com/matzehuels/ndskl/pkg/pipeline"
)

// defaultDebounce is how long the input must stay quiet before it is
// converted again.
const defaultDebounce = 500 * time.Millisecond

// watchRetries bounds how often a conversion that saw a half-written input
// is attempted.
const watchRetries = 3

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		flags    convertFlags
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <input.NDskl.a>",
		Short: "Convert an input now and again whenever it changes",
		Long: `Watch converts the input once, then watches its directory and converts
again each time the file is written. Bursts of writes are coalesced, and
conversions never overlap. Stop with Ctrl-C.`,
		Example: `  ndskl watch skel.NDskl.a --compression zstd --tables views.db`,
		Args:    cobra.ExactArgs(1),
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

			w := &watcher{
				runner:   runner,
				opts:     opts,
				debounce: debounce,
				logger:   opts.Logger,
				report: func(res *pipeline.Result, err error) {
					if err != nil {
						printError("%s", errors.UserMessage(err))
						return
					}
					reportConversion(res, opts.DryRun, res.Stats.Total())
				},
			}
			printInfo("Watching %s", args[0])
			return w.run(ctx)
		},
	}

	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "quiet period before re-converting")

	return cmd
}

// watcher re-runs a conversion when its input changes. All conversions run
// on the goroutine that called run.
type watcher struct {
	runner   *pipeline.Runner
	opts     pipeline.Options
	debounce time.Duration
	logger   *log.Logger

	// report receives the outcome of every conversion.
	report func(*pipeline.Result, error)

	// ready, if set, is closed once the first conversion finished and the
	// directory is being watched.
	ready chan struct{}
}

// run converts once and then on every debounced write until ctx is done.
func (w *watcher) run(ctx context.Context) error {
	input, err := filepath.Abs(w.opts.Input)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", w.opts.Input)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create watcher")
	}
	defer fw.Close()

	// Editors often replace files instead of writing them in place, so the
	// directory is watched rather than the file.
	if err := fw.Add(filepath.Dir(input)); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "watch %s", filepath.Dir(input))
	}

	w.convert(ctx)
	if w.ready != nil {
		close(w.ready)
	}

	trigger := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if name, _ := filepath.Abs(event.Name); name != input {
				continue
			}
			w.logger.Debug("input changed", "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case <-trigger:
			w.convert(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// convert runs one conversion. An input that ends early may still be
// being written, so truncation is retried with backoff.
func (w *watcher) convert(ctx context.Context) {
	prog := newProgress(w.logger)
	var res *pipeline.Result
	err := pipeline.RetryWithBackoff(ctx, watchRetries, w.debounce, func() error {
		r, err := w.runner.Convert(ctx, w.opts)
		if errors.Is(err, errors.ErrCodeTruncatedInput) {
			return pipeline.Retryable(err)
		}
		res = r
		return err
	})
	if ctx.Err() != nil {
		return
	}
	if w.report != nil {
		w.report(res, err)
	}
	if err != nil {
		w.logger.Debug("conversion failed", "input", w.opts.Input, "err", err)
		return
	}
	if w.logger.GetLevel() <= log.DebugLevel {
		prog.done("converted", "input", w.opts.Input, "output", res.Output, "skipped", res.Skipped)
	}
}
