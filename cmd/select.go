package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leo-editor/leo/internal/query"
)

func init() {
	rootCmd.AddCommand(selectCmd)
}

var selectCmd = &cobra.Command{
	Use:   "select [outline.db] [jsonpath]",
	Short: "Print the nodes or values matching a JSONPath expression",
	Example: `  leo select notes.db '$..[?(@.marked == true)]'
  leo select notes.db '$[*].head'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOutline(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		matches, err := query.Select(o, args[1])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, m := range matches {
			if m.Position != nil {
				fmt.Fprintf(w, "%s %s\n", m.Position.Gnx(), m.Position.HeadString())
				continue
			}
			b, err := json.Marshal(m.Value)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(b))
		}
		return nil
	},
}
