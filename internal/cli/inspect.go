package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ndskl/pkg/container"
	ndio "github.com/matzehuels/ndskl/pkg/io"
	"github.com/matzehuels/ndskl/pkg/tabular"
)

// defaultInspectRows is the number of table rows shown per view.
const defaultInspectRows = 10

// maxInlineValues is the longest attribute printed in full.
const maxInlineValues = 8

// groupViews lists the tabular views printed under each container group.
var groupViews = map[string][]string{
	ndio.GroupCriticalPoints: {tabular.CriticalPoints, tabular.Connections},
	ndio.GroupFilaments:      {tabular.Filaments, tabular.Samples},
}

type inspectOptions struct {
	group string
	rows  int
}

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect <file.ndsklc>",
		Short: "Print the groups and tables of a native container",
		Long: `Inspect decodes a container written with --format native, lists every
attribute and dataset per group, and prints the critical points,
connections, filaments and sampling points as tables rebuilt through the
count and offset arrays. HDF5 output opens with h5py or h5dump.`,
		Example: `  ndskl inspect skel.ndsklc
  ndskl inspect skel.ndsklc --group Filaments --rows 25`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			f, err := container.Open(args[0])
			if err != nil {
				return err
			}
			sk, err := ndio.ReadSkeleton(f)
			if err != nil {
				return err
			}
			logger.Debug("decoded container", "groups", len(f.Groups), "critical_points", sk.NumCriticalPoints())

			if err := writeInspect(cmd.OutOrStdout(), args[0], f, tabular.Tables(sk), opts); err != nil {
				return err
			}
			if logger.GetLevel() <= LogDebug {
				prog.done("inspected", "path", args[0], "groups", len(f.Groups))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.group, "group", "", "only show this group (Header, CriticalPoints, Filaments)")
	cmd.Flags().IntVar(&opts.rows, "rows", defaultInspectRows, "table rows to show per view (0 for all)")
	_ = cmd.RegisterFlagCompletionFunc("group", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{ndio.GroupHeader, ndio.GroupCriticalPoints, ndio.GroupFilaments}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// writeInspect prints the selected groups of f followed by their table views.
func writeInspect(w io.Writer, path string, f *container.File, tables []*tabular.Table, opts inspectOptions) error {
	groups := f.GroupNames()
	if opts.group != "" {
		if _, err := f.Group(opts.group); err != nil {
			return err
		}
		groups = []string{opts.group}
	}

	fmt.Fprintln(w, StyleTitle.Render(path))
	fmt.Fprintln(w, formatKeyValue("format version", strconv.Itoa(int(f.Version))))

	for _, name := range groups {
		g, err := f.Group(name)
		if err != nil {
			return err
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, StyleTitle.Render(name))
		for _, a := range g.Attrs {
			fmt.Fprintln(w, formatKeyValue(a.Name, formatAttr(a.Value)))
		}
		for _, d := range g.Datasets {
			fmt.Fprintln(w, formatKeyValue(d.Name, describeArray(d.Value)))
		}
		for _, view := range groupViews[name] {
			t := tabular.Find(tables, view)
			if t == nil {
				continue
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, StyleHighlight.Render(view))
			fmt.Fprintln(w, tabular.Render(t, opts.rows))
		}
	}
	return nil
}

// describeArray returns the element type and shape of a, e.g. "float64[4 3]".
func describeArray(a container.Array) string {
	shape := a.Shape()
	if len(shape) == 0 {
		return a.DType().String()
	}
	dims := make([]string, len(shape))
	for i, n := range shape {
		dims[i] = strconv.Itoa(n)
	}
	return a.DType().String() + "[" + strings.Join(dims, " ") + "]"
}

// formatAttr prints short attributes in full and longer ones by shape.
func formatAttr(a container.Array) string {
	if a.Len() > maxInlineValues {
		return describeArray(a)
	}
	var parts []string
	if s, ok := a.AsStrings(); ok {
		parts = s
	} else if v, ok := a.Ints(); ok {
		for _, x := range v {
			parts = append(parts, tabular.FormatCell(x))
		}
	} else if v, ok := a.Floats(); ok {
		for _, x := range v {
			parts = append(parts, tabular.FormatCell(x))
		}
	}
	if len(a.Shape()) == 0 && len(parts) == 1 {
		return parts[0]
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
