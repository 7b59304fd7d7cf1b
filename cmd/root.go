package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/leo-editor/leo/internal/config"
	"github.com/leo-editor/leo/internal/logs"
	"github.com/leo-editor/leo/internal/outline"
	"github.com/leo-editor/leo/internal/store"
)

var (
	configPath string
	logLevel   string

	cfg    = config.Default()
	logger = slog.Default()
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to leo.hcl (default ~/.leo/leo.hcl)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

var rootCmd = &cobra.Command{
	Use:   "leo",
	Short: "Tangle, untangle and inspect Leo outlines",
	Long: heredoc.Doc(`
		leo works on outlines stored in SQLite databases.

		tangle writes the derived file of every @root node, with sentinel
		comments around each expanded section. untangle reads those files back
		and copies changed section text into the outline.
	`),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, used, err := config.Find(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			if _, ok := logs.ParseLevel(logLevel); !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}
			c.LogLevel = logLevel
		}
		cfg = c
		logs.Level.Set(cfg.Level())
		logger = logs.New(cmd.ErrOrStderr(), logs.Level)
		if used != "" {
			logger.Debug("loaded config", "path", used)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadOutline(ctx context.Context, path string) (*outline.Outline, error) {
	return store.Load(ctx, path, cfg.OutlineOptions(logger))
}

// withLock runs fn while holding the outline's advisory lock.
func withLock(path string, fn func() error) error {
	l, err := store.Acquire(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			logger.Warn("release lock", "path", path, "err", err)
		}
	}()
	return fn()
}
