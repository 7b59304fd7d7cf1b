package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leo-editor/leo/internal/outline"
)

var showBodies bool

func init() {
	showCmd.Flags().BoolVarP(&showBodies, "body", "b", false, "Print bodies under their headlines")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show [outline.db]",
	Short: "Print the outline's headlines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOutline(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printTree(cmd.OutOrStdout(), o, showBodies)
		return nil
	},
}

// printTree writes one line per position: indentation by level, then
// '+' for a clone and '*' for a marked node.
func printTree(w io.Writer, o *outline.Outline, bodies bool) {
	for p := range o.AllPositions() {
		indent := strings.Repeat("  ", p.Level())
		flags := ""
		if p.IsCloned() {
			flags += "+"
		}
		if p.V().IsMarked() {
			flags += "*"
		}
		if flags != "" {
			flags += " "
		}
		fmt.Fprintf(w, "%s- %s%s\n", indent, flags, p.HeadString())
		if !bodies {
			continue
		}
		for line := range strings.Lines(p.BodyString()) {
			fmt.Fprintf(w, "%s    %s", indent, line)
			if !strings.HasSuffix(line, "\n") {
				fmt.Fprintln(w)
			}
		}
	}
}
