package tangle

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"mvdan.cc/gofumpt/format"
)

// formatGo runs gofumpt over Go output. Other files, and Go that does not
// parse, are returned unchanged.
func formatGo(content []byte, path string) []byte {
	if !strings.HasSuffix(path, ".go") {
		return content
	}
	out, err := format.Source(content, format.Options{})
	if err != nil {
		return content
	}
	return out
}

// writeFile replaces name with data through a temp file and a rename. It
// reports false without writing when the file already holds data.
func writeFile(fs billy.Filesystem, name string, data []byte) (bool, error) {
	old, err := util.ReadFile(fs, name)
	if err == nil && bytes.Equal(old, data) {
		return false, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("read %s: %w", name, err)
	}

	dir := filepath.Dir(name)
	if dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	tmp, err := fs.TempFile(dir, ".leo-tangle-")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
		return false, fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return false, fmt.Errorf("close temp: %w", err)
	}
	if info, err := fs.Stat(name); err == nil {
		if ch, ok := fs.(billy.Change); ok {
			_ = ch.Chmod(tmpName, info.Mode())
		}
	}
	if err := fs.Rename(tmpName, name); err != nil {
		_ = fs.Remove(tmpName)
		return false, fmt.Errorf("rename temp to %s: %w", name, err)
	}
	return true, nil
}

// readFile reads a derived file.
func readFile(fs billy.Filesystem, name string) (string, error) {
	b, err := util.ReadFile(fs, name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(b), nil
}
