package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "vnodes": [
    {"gnx": "ekr.20260301120000.1", "vh": "Program", "children": [
      {"gnx": "ekr.20260301120000.2", "vh": "helpers"}
    ]}
  ],
  "tnodes": {
    "ekr.20260301120000.1": "@root out.py\n<<helpers>>\n",
    "ekr.20260301120000.2": "<<helpers>>=\ndef helper():\n    return 1\n"
  }
}`

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setup(t *testing.T) (dir, db string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir = t.TempDir()
	src := filepath.Join(dir, "sample.json")
	require.NoError(t, os.WriteFile(src, []byte(sampleDoc), 0o644))
	db = filepath.Join(dir, "sample.db")
	_, err := execute(t, "import", src, db)
	require.NoError(t, err)
	return dir, db
}

func TestTangleEditUntangle(t *testing.T) {
	dir, db := setup(t)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "tangle", db, "--dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "written   out.py")

	derived := filepath.Join(outDir, "out.py")
	text, err := os.ReadFile(derived)
	require.NoError(t, err)
	assert.Contains(t, string(text), "# <<helpers>>\n")

	edited := strings.Replace(string(text), "return 1", "return 2", 1)
	require.NoError(t, os.WriteFile(derived, []byte(edited), 0o644))

	out, err = execute(t, "untangle", db, "--dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "updated   out.py")

	out, err = execute(t, "show", db, "--body")
	require.NoError(t, err)
	assert.Contains(t, out, "- Program\n")
	assert.Contains(t, out, "  - helpers\n")
	assert.Contains(t, out, "return 2")

	out, err = execute(t, "tangle", db, "--dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged out.py")
}

func TestExportSelectCheck(t *testing.T) {
	_, db := setup(t)

	out, err := execute(t, "export", db, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "vh: helpers")

	out, err = execute(t, "export", db)
	require.NoError(t, err)
	assert.Contains(t, out, `"gnx": "ekr.20260301120000.2"`)

	out, err = execute(t, "select", db, "$[*].head")
	require.NoError(t, err)
	assert.Equal(t, "\"Program\"\n", out)

	out, err = execute(t, "select", db, "$[0].children[0]")
	require.NoError(t, err)
	assert.Equal(t, "ekr.20260301120000.2 helpers\n", out)

	out, err = execute(t, "check", db)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = execute(t, "export", db, "--format", "xml")
	assert.Error(t, err)
}

func TestUnknownLogLevel(t *testing.T) {
	_, db := setup(t)
	_, err := execute(t, "show", db, "--log-level", "chatty")
	assert.Error(t, err)
}
