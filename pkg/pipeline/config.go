package pipeline

import (
	"github.com/BurntSushi/toml"

	"github.com/matzehuels/ndskl/pkg/errors"
)

// LoadConfig reads conversion defaults from a TOML file:
//
//	output = "out/skel.ndsklc"
//	tables = "out/views.db"
//	format = "native"
//	compression = "zstd"
//	references = "strict"
//	max_line_bytes = 1048576
//	force = false
//
// Unknown keys are rejected so typos do not pass silently.
func LoadConfig(path string) (Options, error) {
	var opts Options
	if err := errors.ValidatePath(path); err != nil {
		return opts, err
	}
	md, err := toml.DecodeFile(path, &opts)
	if err != nil {
		return Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "load config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Options{}, errors.New(errors.ErrCodeInvalidInput, "config %s: unknown key %q", path, undecoded[0].String())
	}
	return opts, nil
}

// Merge returns base overlaid with every field that is set in o. Boolean
// fields are set when true.
func (o Options) Merge(base Options) Options {
	out := base
	if o.Input != "" {
		out.Input = o.Input
	}
	if o.Output != "" {
		out.Output = o.Output
	}
	if o.Tables != "" {
		out.Tables = o.Tables
	}
	if o.Format != "" {
		out.Format = o.Format
	}
	if o.Compression != "" {
		out.Compression = o.Compression
	}
	if o.References != 0 {
		out.References = o.References
	}
	if o.MaxLineBytes != 0 {
		out.MaxLineBytes = o.MaxLineBytes
	}
	out.Force = out.Force || o.Force
	out.DryRun = out.DryRun || o.DryRun
	if o.Logger != nil {
		out.Logger = o.Logger
	}
	out.validated = false
	return out
}
