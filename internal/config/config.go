// Package config loads leo.hcl, the optional settings file of the command
// line tools.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/leo-editor/leo/internal/logs"
	"github.com/leo-editor/leo/internal/outline"
	"github.com/leo-editor/leo/internal/tangle"
)

// FileName is the settings file looked up in the user's ~/.leo directory.
const FileName = "leo.hcl"

// Config mirrors leo.hcl. Attributes missing from the file keep their
// defaults.
type Config struct {
	OwnerID    string `hcl:"owner_id,optional"`
	TabWidth   int    `hcl:"tab_width,optional"`
	Language   string `hcl:"language,optional"`
	PrintMode  string `hcl:"print_mode,optional"`
	Header     bool   `hcl:"header,optional"`
	OutputDir  string `hcl:"output_dir,optional"`
	ErrorLimit int    `hcl:"error_limit,optional"`
	Validate   bool   `hcl:"validate,optional"`
	FormatGo   bool   `hcl:"format_go,optional"`
	LogLevel   string `hcl:"log_level,optional"`
}

// Default returns the settings used when no file is found.
func Default() Config {
	owner := os.Getenv("USER")
	if owner == "" {
		owner = outline.DefaultOwnerID
	}
	return Config{
		OwnerID:    owner,
		TabWidth:   tangle.DefaultTabWidth,
		Language:   tangle.DefaultLanguage,
		PrintMode:  tangle.ModeVerbose.String(),
		OutputDir:  ".",
		ErrorLimit: tangle.DefaultErrorLimit,
		LogLevel:   "info",
	}
}

// Load decodes the file at path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	src, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := hclsimple.Decode(path, src, nil, &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, cfg.check()
}

// Find loads explicit when set. Otherwise it loads ~/.leo/leo.hcl when that
// file exists and returns the defaults when it does not. The second result
// is the file used, or "".
func Find(explicit string) (Config, string, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Default(), "", nil
	}
	path := filepath.Join(home, ".leo", FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

func (c Config) check() error {
	if _, ok := tangle.ParseMode(c.PrintMode); !ok {
		return fmt.Errorf("print_mode: unknown mode %q", c.PrintMode)
	}
	if _, ok := tangle.LookupLanguage(c.Language); !ok {
		return fmt.Errorf("language: unknown language %q", c.Language)
	}
	if _, ok := logs.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	if c.TabWidth == 0 {
		return errors.New("tab_width: must not be 0")
	}
	return nil
}

// Level is the parsed log level.
func (c Config) Level() slog.Level {
	l, _ := logs.ParseLevel(c.LogLevel)
	return l
}

// OutlineOptions returns the options for outlines created or loaded under c.
func (c Config) OutlineOptions(log *slog.Logger) outline.Options {
	return outline.Options{OwnerID: c.OwnerID, Logger: log}
}

// TangleOptions returns the engine options of c.
func (c Config) TangleOptions(log *slog.Logger) tangle.Options {
	mode, _ := tangle.ParseMode(c.PrintMode)
	return tangle.Options{
		Language:   c.Language,
		TabWidth:   c.TabWidth,
		Mode:       mode,
		Header:     c.Header,
		ErrorLimit: c.ErrorLimit,
		Validate:   c.Validate,
		FormatGo:   c.FormatGo,
		Logger:     log,
	}
}
