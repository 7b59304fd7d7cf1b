package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leo-editor/leo/internal/outline"
	"github.com/leo-editor/leo/internal/store"
)

var (
	exportFormat string
	exportOutput string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json or yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")
	rootCmd.AddCommand(importCmd, exportCmd)
}

var importCmd = &cobra.Command{
	Use:   "import [file.json|file.yaml] [outline.db]",
	Short: "Create an outline database from a JSON or YAML document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, dst := args[0], args[1]
		f, err := os.Open(src)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		var o *outline.Outline
		switch strings.ToLower(filepath.Ext(src)) {
		case ".yaml", ".yml":
			o, err = store.ImportYAML(f, cfg.OutlineOptions(logger))
		default:
			o, err = store.ImportJSON(f, cfg.OutlineOptions(logger))
		}
		if err != nil {
			return fmt.Errorf("import %s: %w", src, err)
		}
		return withLock(dst, func() error {
			return store.Save(cmd.Context(), dst, o)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [outline.db]",
	Short: "Write the outline as a JSON or YAML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOutline(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			w = f
		}
		return export(w, o, exportFormat)
	},
}

func export(w io.Writer, o *outline.Outline, format string) error {
	switch strings.ToLower(format) {
	case "json":
		return store.ExportJSON(w, o)
	case "yaml", "yml":
		return store.ExportYAML(w, o)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
