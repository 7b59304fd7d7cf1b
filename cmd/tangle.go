package cmd

import (
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/leo-editor/leo/internal/outline"
	"github.com/leo-editor/leo/internal/query"
	"github.com/leo-editor/leo/internal/store"
	"github.com/leo-editor/leo/internal/tangle"
)

var (
	marked    bool
	outputDir string
	selectExp string
	validate  bool
	formatGo  bool
	header    bool
)

func init() {
	for _, c := range []*cobra.Command{tangleCmd, untangleCmd} {
		c.Flags().BoolVar(&marked, "marked", false, "Only process the trees of marked nodes")
		c.Flags().StringVar(&outputDir, "dir", "", "Directory derived files are relative to (default: output_dir)")
		c.Flags().StringVar(&selectExp, "select", "", "Only process the trees of nodes matching this JSONPath")
	}
	tangleCmd.Flags().BoolVar(&validate, "validate", false, "Parse tangled files with tree-sitter and warn on syntax errors")
	tangleCmd.Flags().BoolVar(&formatGo, "format-go", false, "Format @silent Go roots with gofumpt")
	tangleCmd.Flags().BoolVar(&header, "header", false, "Write a 'tangled from' banner")
	rootCmd.AddCommand(tangleCmd, untangleCmd)
}

func newEngine(cmd *cobra.Command, o *outline.Outline) *tangle.Engine {
	dir := cfg.OutputDir
	if outputDir != "" {
		dir = outputDir
	}
	opts := cfg.TangleOptions(logger)
	if cmd.Flags().Changed("validate") {
		opts.Validate = validate
	}
	if cmd.Flags().Changed("format-go") {
		opts.FormatGo = formatGo
	}
	if cmd.Flags().Changed("header") {
		opts.Header = header
	}
	return tangle.New(o, osfs.New(dir), opts)
}

// run applies one or all/marked/selected variants of an engine operation.
func run(o *outline.Outline, one func(*outline.Position) *tangle.Result, all, onlyMarked func() *tangle.Result) (*tangle.Result, error) {
	switch {
	case selectExp != "":
		ps, err := query.Positions(o, selectExp)
		if err != nil {
			return nil, err
		}
		res := &tangle.Result{}
		for _, p := range ps {
			r := one(p)
			res.Roots = append(res.Roots, r.Roots...)
			res.Errors += r.Errors
			res.Aborted = res.Aborted || r.Aborted
			res.Changed = res.Changed || r.Changed
		}
		return res, nil
	case marked:
		return onlyMarked(), nil
	default:
		return all(), nil
	}
}

func report(w io.Writer, res *tangle.Result) error {
	for _, r := range res.Roots {
		fmt.Fprintf(w, "%-9s %s\n", r.Status, r.Path)
	}
	if res.Errors > 0 {
		fmt.Fprintf(w, "%d error(s)\n", res.Errors)
	}
	return res.Err()
}

var tangleCmd = &cobra.Command{
	Use:   "tangle [outline.db]",
	Short: "Write the derived files of the outline's @root nodes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOutline(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		e := newEngine(cmd, o)
		res, err := run(o, e.Tangle, e.TangleAll, e.TangleMarked)
		if err != nil {
			return err
		}
		return report(cmd.OutOrStdout(), res)
	},
}

var untangleCmd = &cobra.Command{
	Use:   "untangle [outline.db]",
	Short: "Copy edits of derived files back into the outline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		return withLock(path, func() error {
			o, err := loadOutline(cmd.Context(), path)
			if err != nil {
				return err
			}
			e := newEngine(cmd, o)
			res, err := run(o, e.Untangle, e.UntangleAll, e.UntangleMarked)
			if err != nil {
				return err
			}
			if res.Changed {
				if err := store.Save(cmd.Context(), path, o); err != nil {
					return err
				}
			}
			return report(cmd.OutOrStdout(), res)
		})
	},
}
