package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/ndskl/pkg/cache"
	"github.com/matzehuels/ndskl/pkg/container"
	"github.com/matzehuels/ndskl/pkg/errors"
	ndio "github.com/matzehuels/ndskl/pkg/io"
	"github.com/matzehuels/ndskl/pkg/ndskl"
	"github.com/matzehuels/ndskl/pkg/observability"
	"github.com/matzehuels/ndskl/pkg/skeleton"
	"github.com/matzehuels/ndskl/pkg/tabular"
)

// Hook targets passed to observability.PipelineHooks write events.
const (
	TargetContainer = "container"
	TargetTables    = "tables"
)

// Runner executes conversions with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Convert runs the complete pipeline for opts.Input.
//
// Parse errors abort the run before any output is created. A write failure
// may leave a partial container on disk; it is not removed.
func (r *Runner) Convert(ctx context.Context, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger
	hooks := observability.Pipeline()

	result := &Result{
		RunID:  uuid.NewString(),
		Input:  opts.Input,
		Output: opts.Output,
		Format: opts.Format,
		Tables: opts.Tables,
	}

	// Stage 1: Read
	start := time.Now()
	data, err := os.ReadFile(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("read: %w", errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", opts.Input))
	}
	inputHash := cache.Hash(data)
	result.Stats.ReadTime = time.Since(start)

	key := r.Keyer.ConversionKey(absPath(opts.Input), opts.KeyOpts())
	if !opts.Force && !opts.DryRun {
		if rec, ok := r.current(ctx, key, inputHash, opts); ok {
			result.Skipped = true
			result.RunID = rec.RunID
			logger.Info("outputs are current", "input", opts.Input, "run", rec.RunID)
			return result, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: Parse
	hooks.OnParseStart(ctx, opts.Input)
	start = time.Now()
	sk, err := ndskl.ParseBytes(data, ndskl.Options{
		References:   opts.References,
		MaxLineBytes: opts.MaxLineBytes,
	})
	result.Stats.ParseTime = time.Since(start)
	if sk != nil {
		result.Stats.SkeletonStats = statsOf(sk)
	}
	hooks.OnParseComplete(ctx, opts.Input, result.Stats.SkeletonStats, result.Stats.ParseTime, err)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	logger.Debug("parsed skeleton",
		"dims", sk.Dims,
		"critical_points", sk.NumCriticalPoints(),
		"filaments", sk.NumFilaments(),
		"samples", sk.NumSamples(),
		"duration", result.Stats.ParseTime)

	// Stage 3: Flatten
	start = time.Now()
	layout := skeleton.Flatten(sk)
	result.Stats.FlattenTime = time.Since(start)
	hooks.OnFlatten(ctx, result.Stats.SkeletonStats, result.Stats.FlattenTime)
	logger.Debug("computed layout",
		"connections", len(layout.Connections.Filament),
		"duration", result.Stats.FlattenTime)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 4: Write
	if opts.DryRun {
		start = time.Now()
		mem := container.NewMemory()
		err := ndio.WriteSkeleton(mem, sk, layout)
		if cerr := mem.Close(); err == nil {
			err = cerr
		}
		result.Stats.WriteTime = time.Since(start)
		if err != nil {
			return nil, fmt.Errorf("write: %w", err)
		}
		logger.Debug("dry run complete", "groups", len(mem.File().Groups), "run", result.RunID)
		return result, nil
	}

	hooks.OnWriteStart(ctx, TargetContainer, opts.Output)
	start = time.Now()
	err = ndio.ExportContainer(sk, layout, opts.Output, container.Options{Format: opts.Format, Compression: opts.Compression})
	result.Stats.WriteTime = time.Since(start)
	hooks.OnWriteComplete(ctx, TargetContainer, opts.Output, result.Stats.WriteTime, err)
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	logger.Debug("wrote container",
		"output", opts.Output,
		"format", opts.Format,
		"compression", opts.Compression,
		"duration", result.Stats.WriteTime)

	if opts.Tables != "" {
		hooks.OnWriteStart(ctx, TargetTables, opts.Tables)
		start = time.Now()
		err := tabular.WriteSQLite(ctx, opts.Tables, tabular.Tables(sk), tabular.Run{
			ID:        result.RunID,
			Source:    opts.Input,
			Output:    opts.Output,
			CreatedAt: time.Now(),
		})
		result.Stats.TablesTime = time.Since(start)
		hooks.OnWriteComplete(ctx, TargetTables, opts.Tables, result.Stats.TablesTime, err)
		if err != nil {
			return nil, fmt.Errorf("tables: %w", errors.Wrap(errors.ErrCodeWriteFailure, err, "write %s", opts.Tables))
		}
		logger.Debug("wrote tables", "tables", opts.Tables, "duration", result.Stats.TablesTime)
	}

	r.remember(ctx, key, inputHash, result, logger)
	return result, nil
}

// current reports whether the cached record for key matches the input and
// the outputs on disk.
func (r *Runner) current(ctx context.Context, key, inputHash string, opts Options) (cache.Record, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return cache.Record{}, false
	}
	rec, err := cache.UnmarshalRecord(data)
	if err != nil || rec.InputHash != inputHash {
		return cache.Record{}, false
	}
	if h, err := cache.HashFile(opts.Output); err != nil || h != rec.OutputHash {
		return cache.Record{}, false
	}
	if opts.Tables != "" {
		if h, err := cache.HashFile(opts.Tables); err != nil || h != rec.TablesHash {
			return cache.Record{}, false
		}
	}
	return rec, true
}

// remember stores the record of a finished conversion. Cache failures are
// logged and otherwise ignored.
func (r *Runner) remember(ctx context.Context, key, inputHash string, result *Result, logger *log.Logger) {
	rec := cache.Record{
		RunID:     result.RunID,
		InputHash: inputHash,
		CreatedAt: time.Now().UTC(),
	}
	var err error
	if rec.OutputHash, err = cache.HashFile(result.Output); err != nil {
		logger.Warn("cache record skipped", "err", err)
		return
	}
	if result.Tables != "" {
		if rec.TablesHash, err = cache.HashFile(result.Tables); err != nil {
			logger.Warn("cache record skipped", "err", err)
			return
		}
	}
	data, err := rec.Marshal()
	if err == nil {
		err = r.Cache.Set(ctx, key, data, cache.TTLConversion)
	}
	if err != nil {
		logger.Warn("cache record skipped", "err", err)
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func statsOf(sk *skeleton.Skeleton) observability.SkeletonStats {
	return observability.SkeletonStats{
		Dims:           sk.Dims,
		CriticalPoints: sk.NumCriticalPoints(),
		Filaments:      sk.NumFilaments(),
		Connections:    sk.NumConnections(),
		Samples:        sk.NumSamples(),
	}
}
