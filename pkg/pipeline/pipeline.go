// Package pipeline runs a complete skeleton conversion.
//
// This package implements the read → parse → flatten → write pipeline shared
// by the convert and watch commands. By centralizing this logic, every entry
// point applies the same defaults, caching and logging.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Read: load the NDskl_ascii input into memory and hash it
//  2. Parse: build the skeleton model, checking references if requested
//  3. Flatten: compute the offset layout
//  4. Write: emit the container and, optionally, SQLite tabular views
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Convert(ctx, pipeline.Options{
//	    Input:  "skel.NDskl.a",
//	    Output: "skel.h5",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.RunID, result.Stats.Samples)
package pipeline

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ndskl/pkg/buildinfo"
	"github.com/matzehuels/ndskl/pkg/cache"
	"github.com/matzehuels/ndskl/pkg/container"
	"github.com/matzehuels/ndskl/pkg/errors"
	"github.com/matzehuels/ndskl/pkg/observability"
	"github.com/matzehuels/ndskl/pkg/skeleton"
)

// Output extensions per container format.
const (
	HDF5Ext   = ".h5"
	NativeExt = ".ndsklc"
)

// inputExts are stripped from the input name when deriving the output name.
var inputExts = []string{".NDskl.a", ".ndskl.a", ".a"}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one conversion. The toml tags
// name the keys accepted by [LoadConfig].
type Options struct {
	Input       string                   `toml:"-"`
	Output      string                   `toml:"output"`
	Tables      string                   `toml:"tables"`
	Format      container.Format         `toml:"format"`
	Compression container.Compression    `toml:"compression"`
	References  skeleton.ReferencePolicy `toml:"references"`

	// MaxLineBytes caps a single input line. Zero uses the parser default.
	MaxLineBytes int `toml:"max_line_bytes"`

	// Force converts even when the cache says the outputs are current.
	Force bool `toml:"force"`

	// DryRun parses and lays out the input and writes the container to
	// memory only. No files are created.
	DryRun bool `toml:"-"`

	Logger *log.Logger `toml:"-"`

	validated bool
}

// Result describes a conversion.
type Result struct {
	RunID  string
	Input  string
	Output string
	Format container.Format
	Tables string

	// Skipped is true when the cache showed the outputs were already
	// current. Stats are zero for skipped runs.
	Skipped bool

	Stats Stats
}

// Stats contains sizes and timings for a conversion.
type Stats struct {
	observability.SkeletonStats

	ReadTime    time.Duration
	ParseTime   time.Duration
	FlattenTime time.Duration
	WriteTime   time.Duration
	TablesTime  time.Duration
}

// Total returns the summed stage durations.
func (s Stats) Total() time.Duration {
	return s.ReadTime + s.ParseTime + s.FlattenTime + s.WriteTime + s.TablesTime
}

// =============================================================================
// Options Methods
// =============================================================================

// DefaultOutput derives the container path for input by replacing its
// NDskl_ascii extension with the extension of format.
func DefaultOutput(input string, format container.Format) string {
	ext := HDF5Ext
	if format == container.FormatNative {
		ext = NativeExt
	}
	base := input
	for _, ext := range inputExts {
		if strings.HasSuffix(base, ext) && len(base) > len(ext) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	return base + ext
}

// SetDefaults fills unset fields.
func (o *Options) SetDefaults() {
	if f, err := container.ParseFormat(string(o.Format)); err == nil {
		o.Format = f
	}
	if o.Output == "" && o.Input != "" {
		o.Output = DefaultOutput(o.Input, o.Format)
	}
	if o.Compression == "" {
		o.Compression = container.CompressionNone
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks that the paths are usable and the enums are known.
func (o *Options) Validate() error {
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "input is required")
	}
	if err := errors.ValidateDistinctPaths(o.Input, o.Output); err != nil {
		return err
	}
	if o.Tables != "" {
		if err := errors.ValidateDistinctPaths(o.Input, o.Tables); err != nil {
			return err
		}
		if err := errors.ValidateDistinctPaths(o.Output, o.Tables); err != nil {
			return err
		}
	}
	co, err := container.Options{Format: o.Format, Compression: o.Compression}.Check()
	if err != nil {
		return err
	}
	o.Format, o.Compression = co.Format, co.Compression
	if o.References != skeleton.Permissive && o.References != skeleton.Strict {
		return errors.New(errors.ErrCodeInvalidInput, "invalid reference policy %d", int(o.References))
	}
	if o.MaxLineBytes < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max_line_bytes must not be negative")
	}
	return nil
}

// ValidateAndSetDefaults applies defaults and validates. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := o.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// KeyOpts returns the cache key options for this conversion.
func (o *Options) KeyOpts() cache.ConversionKeyOpts {
	return cache.ConversionKeyOpts{
		Output:      absPath(o.Output),
		Tables:      absPath(o.Tables),
		Format:      string(o.Format),
		Compression: string(o.Compression),
		References:  o.References.String(),
		Build:       buildinfo.Stamp(),
	}
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
