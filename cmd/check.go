package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leo-editor/leo/internal/store"
)

var repair bool

func init() {
	checkCmd.Flags().BoolVar(&repair, "repair", false, "Fix the problems found and save the outline")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [outline.db]",
	Short: "Verify parent links and gnx uniqueness",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		return withLock(path, func() error {
			o, err := loadOutline(cmd.Context(), path)
			if err != nil {
				return err
			}
			problems := o.CheckOutline(repair)
			for _, p := range problems {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			if len(problems) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			if !repair {
				return fmt.Errorf("%d problem(s) found", len(problems))
			}
			return store.Save(cmd.Context(), path, o)
		})
	},
}
