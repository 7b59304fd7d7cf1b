package store

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leo-editor/leo/internal/logs"
	"github.com/leo-editor/leo/internal/outline"
)

func fixedClock() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func testOptions(log *slog.Logger) outline.Options {
	if log == nil {
		log = logs.Discard()
	}
	return outline.Options{OwnerID: "ekr", Clock: fixedClock, Logger: log}
}

// sample builds X(B, C) and Y(B) where B is cloned.
func sample(t *testing.T) *outline.Outline {
	t.Helper()
	o := outline.New(testOptions(nil))
	x := o.CreateRoot("X")
	x.V().SetBodyString("@language python\n")
	y := o.CreateRoot("Y")

	b, err := x.InsertAsLastChild()
	require.NoError(t, err)
	b.V().SetHeadString("B")
	b.V().SetBodyString("<<b>>=\nprint('b')\n")
	b.V().SetMarked(true)
	b.V().UA = map[string]any{"color": "red"}

	c, err := b.InsertAfter()
	require.NoError(t, err)
	c.V().SetHeadString("C")
	c.V().SetDirty()

	clone, err := b.Clone()
	require.NoError(t, err)
	require.NoError(t, clone.MoveToLastChildOf(y))
	return o
}

func gnxs(o *outline.Outline) []string {
	var out []string
	for v := range o.AllNodes() {
		out = append(out, v.Gnx()+" "+v.HeadString())
	}
	return out
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "outline.db")
	o := sample(t)
	require.NoError(t, Save(ctx, path, o))

	got, err := Load(ctx, path, testOptions(nil))
	require.NoError(t, err)
	assert.Equal(t, gnxs(o), gnxs(got))
	assert.False(t, got.Changed())

	x := got.RootPosition()
	y := x.Next()
	b := x.FirstChild()
	assert.Equal(t, "B", b.HeadString())
	assert.True(t, b.IsCloned())
	assert.Same(t, b.V(), y.FirstChild().V())
	assert.Equal(t, "<<b>>=\nprint('b')\n", b.BodyString())
	assert.True(t, b.V().IsMarked())
	assert.Equal(t, map[string]any{"color": "red"}, b.V().UA)

	c := b.Next()
	assert.Equal(t, "C", c.HeadString())
	assert.False(t, c.V().IsDirty(), "dirty bits are not persisted")

	// Saving again over an existing database replaces it.
	_, err = got.InsertHeadline(y, "Z")
	require.NoError(t, err)
	require.NoError(t, Save(ctx, path, got))
	again, err := Load(ctx, path, testOptions(nil))
	require.NoError(t, err)
	assert.Equal(t, gnxs(got), gnxs(again))
}

func TestLoadKeepsGnxCounterAhead(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "outline.db")
	o := sample(t)
	require.NoError(t, Save(ctx, path, o))

	got, err := Load(ctx, path, testOptions(nil))
	require.NoError(t, err)
	v := got.NewVNode()
	for w := range got.AllUniqueNodes() {
		assert.NotEqual(t, w.Gnx(), v.Gnx())
	}
}

func TestLoadDropsDanglingEdges(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "outline.db")
	require.NoError(t, Save(ctx, path, sample(t)))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO edges (parent_gnx, idx, child_gnx) VALUES ('', 9, 'nobody.1.1')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	pane := logs.NewPane(slog.LevelWarn)
	got, err := Load(ctx, path, testOptions(slog.New(pane)))
	require.NoError(t, err)
	assert.Equal(t, []string{"dropping edge to missing vnode"}, pane.Messages(slog.LevelWarn))
	assert.Len(t, slices.Collect(got.RootPosition().SelfAndSiblings()), 2)
}

func TestLoadDropsEmptyGnx(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "outline.db")
	o := sample(t)
	require.NoError(t, Save(ctx, path, o))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO vnodes (gnx, head, body, status) VALUES ('', 'stray', '', 0)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	pane := logs.NewPane(slog.LevelWarn)
	got, err := Load(ctx, path, testOptions(slog.New(pane)))
	require.NoError(t, err)
	assert.Equal(t, []string{"dropping vnode with empty gnx"}, pane.Messages(slog.LevelWarn))
	assert.Equal(t, gnxs(o), gnxs(got))
	assert.Equal(t, "X", got.RootPosition().HeadString())
	assert.Len(t, slices.Collect(got.RootPosition().SelfAndSiblings()), 2)
}

func TestLoadRejectsOtherFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := Load(ctx, filepath.Join(dir, "missing.db"), testOptions(nil))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(dir, "other.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE things (id INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Load(ctx, path, testOptions(nil))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestJSONRoundTrip(t *testing.T) {
	o := sample(t)
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, o))
	assert.Contains(t, buf.String(), `"vh": "B"`)
	assert.Contains(t, buf.String(), `"fileFormat": 2`)

	got, err := ImportJSON(&buf, testOptions(nil))
	require.NoError(t, err)
	assert.Equal(t, gnxs(o), gnxs(got))
	b := got.RootPosition().FirstChild()
	assert.True(t, b.IsCloned())
	assert.True(t, b.V().IsMarked())
	assert.Equal(t, "red", b.V().UA["color"])
}

func TestYAMLRoundTrip(t *testing.T) {
	o := sample(t)
	var buf bytes.Buffer
	require.NoError(t, ExportYAML(&buf, o))
	assert.Contains(t, buf.String(), "vh: B")

	got, err := ImportYAML(&buf, testOptions(nil))
	require.NoError(t, err)
	assert.Equal(t, gnxs(o), gnxs(got))
	assert.Equal(t, "@language python\n", got.RootPosition().BodyString())
}

func TestImportRejectsEmptyDocument(t *testing.T) {
	_, err := ImportJSON(bytes.NewBufferString(`{}`), testOptions(nil))
	assert.ErrorIs(t, err, ErrFormat)
	_, err = ImportJSON(bytes.NewBufferString(`not json`), testOptions(nil))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outline.db")
	l, err := Acquire(path)
	require.NoError(t, err)

	_, err = Acquire(path)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, l.Release())
	l2, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}
