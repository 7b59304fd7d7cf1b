package undo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leo-editor/leo/internal/logs"
	"github.com/leo-editor/leo/internal/outline"
)

func newOutline(t *testing.T) (*outline.Outline, *Recorder, *outline.Position) {
	t.Helper()
	o := outline.New(outline.Options{OwnerID: "test", Logger: logs.Discard()})
	root := o.CreateRoot("@file a.py")
	for _, h := range []string{"c", "a", "b"} {
		_, err := o.InsertChild(root, h)
		require.NoError(t, err)
	}
	o.ClearAllDirty()
	return o, New(o, 0), root
}

func heads(p *outline.Position) []string {
	var out []string
	for c := range p.Children() {
		out = append(out, c.HeadString())
	}
	return out
}

func TestUndoRedoBody(t *testing.T) {
	o, r, root := newOutline(t)
	child := root.FirstChild()

	require.NoError(t, o.SetBody(child, "new body"))
	assert.True(t, child.V().IsDirty())
	assert.True(t, root.V().IsDirty())

	b, err := r.Undo()
	require.NoError(t, err)
	assert.Equal(t, outline.OpChangeBody, b.Op)
	assert.Equal(t, "", child.BodyString())
	assert.False(t, child.V().IsDirty())
	assert.False(t, root.V().IsDirty())

	_, err = r.Redo()
	require.NoError(t, err)
	assert.Equal(t, "new body", child.BodyString())
	assert.True(t, root.V().IsDirty())

	_, err = r.Redo()
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestUndoHeadAndMark(t *testing.T) {
	o, r, root := newOutline(t)
	child := root.FirstChild()

	require.NoError(t, o.SetHead(child, "renamed"))
	require.NoError(t, o.MarkNode(child, true))

	_, err := r.Undo()
	require.NoError(t, err)
	assert.False(t, child.V().IsMarked())
	_, err = r.Undo()
	require.NoError(t, err)
	assert.Equal(t, "c", child.HeadString())

	_, err = r.Undo()
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestUndoSortAndInsert(t *testing.T) {
	o, r, root := newOutline(t)

	_, err := o.SortSiblings(root.FirstChild(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, heads(root))

	_, err = o.InsertHeadline(root.FirstChild(), "new")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "new", "b", "c"}, heads(root))

	_, err = r.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, heads(root))
	_, err = r.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, heads(root))
	assert.Empty(t, o.CheckOutline(false))

	_, err = r.Redo()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, heads(root))
}

func TestUndoDelete(t *testing.T) {
	o, r, root := newOutline(t)
	_, err := o.DeleteOutline(root.FirstChild().Next())
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, heads(root))

	_, err = r.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, heads(root))
	assert.Empty(t, o.CheckOutline(false))
}

func TestUndoMovesReachesOlderHistory(t *testing.T) {
	o, r, root := newOutline(t)
	require.NoError(t, o.SetBody(root, "edited"))
	require.NoError(t, o.MoveOutlineDown(root.FirstChild()))
	assert.Equal(t, []string{"a", "c", "b"}, heads(root))

	b, err := r.Undo()
	require.NoError(t, err)
	assert.Equal(t, outline.OpMove, b.Op)
	assert.Equal(t, []string{"c", "a", "b"}, heads(root))

	_, err = r.Undo()
	require.NoError(t, err)
	assert.Equal(t, "", root.BodyString())
	assert.False(t, r.CanUndo())
	assert.Empty(t, o.CheckOutline(false))

	_, err = r.Redo()
	require.NoError(t, err)
	_, err = r.Redo()
	require.NoError(t, err)
	assert.Equal(t, "edited", root.BodyString())
	assert.Equal(t, []string{"a", "c", "b"}, heads(root))
}

func TestUndoMoveBetweenParents(t *testing.T) {
	o, r, root := newOutline(t)
	second := root.FirstChild().Next()
	require.NoError(t, o.MoveOutlineRight(second))
	assert.Equal(t, []string{"c", "b"}, heads(root))
	assert.Equal(t, []string{"a"}, heads(root.FirstChild()))

	_, err := r.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, heads(root))
	assert.Empty(t, heads(root.FirstChild()))
	assert.Empty(t, o.CheckOutline(false))
}

func TestUndoPromoteAndDemote(t *testing.T) {
	o, r, root := newOutline(t)
	first := root.FirstChild()
	require.NoError(t, o.DemoteNode(first))
	assert.Equal(t, []string{"c"}, heads(root))
	assert.Equal(t, []string{"a", "b"}, heads(root.FirstChild()))

	require.NoError(t, o.PromoteNode(root.FirstChild()))
	assert.Equal(t, []string{"c", "a", "b"}, heads(root))

	_, err := r.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, heads(root.FirstChild()))
	_, err = r.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, heads(root))
	assert.Empty(t, heads(root.FirstChild()))
	assert.Empty(t, o.CheckOutline(false))
}

func TestUnreplayableBunchDropsHistory(t *testing.T) {
	o, r, root := newOutline(t)
	require.NoError(t, o.SetBody(root, "edited"))
	require.True(t, r.CanUndo())

	r.After(&outline.Bunch{Op: outline.OpMove, Err: outline.ErrCycle})
	assert.True(t, r.CanUndo(), "a failed operation that changed nothing is ignored")

	r.After(&outline.Bunch{Op: outline.OpMove})
	assert.False(t, r.CanUndo())
}

func TestLimit(t *testing.T) {
	o, _, root := newOutline(t)
	r := New(o, 2)
	for _, s := range []string{"1", "2", "3"} {
		require.NoError(t, o.SetBody(root, s))
	}
	_, err := r.Undo()
	require.NoError(t, err)
	_, err = r.Undo()
	require.NoError(t, err)
	assert.Equal(t, "1", root.BodyString())
	assert.False(t, r.CanUndo())
}
