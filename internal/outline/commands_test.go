package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUndoer struct {
	before []*Bunch
	after  []*Bunch
}

func (r *recordingUndoer) Before(b *Bunch) { r.before = append(r.before, b) }
func (r *recordingUndoer) After(b *Bunch)  { r.after = append(r.after, b) }

func (r *recordingUndoer) last(t *testing.T) *Bunch {
	t.Helper()
	require.NotEmpty(t, r.after)
	return r.after[len(r.after)-1]
}

// fileTree builds:
//
//	Root
//	  @file f1.py
//	    N
//	  @file f2.py
//	    M
//	  P
//	    @file f3.py
//	      N (clone)
func fileTree(t *testing.T) (o *Outline, n, f1, f2, f3 *Position) {
	t.Helper()
	o = newTestOutline(t)
	root := o.CreateRoot("Root")
	f1 = child(t, root, "@file f1.py")
	n = child(t, f1, "N")
	f2 = child(t, root, "@file f2.py")
	child(t, f2, "M")
	p := child(t, root, "P")
	f3 = child(t, p, "@file f3.py")
	clone, err := n.Clone()
	require.NoError(t, err)
	require.NoError(t, clone.MoveToLastChildOf(f3))
	return o, n, f1, f2, f3
}

func TestSetAllAncestorAtFileNodesDirty_ClosureOverClones(t *testing.T) {
	_, n, f1, f2, f3 := fileTree(t)

	dirty := n.SetAllAncestorAtFileNodesDirty()
	assert.ElementsMatch(t, []*VNode{f1.V(), f3.V()}, dirty)
	assert.True(t, f1.V().IsDirty())
	assert.True(t, f3.V().IsDirty())
	assert.False(t, f2.V().IsDirty())
	assert.False(t, n.V().IsDirty(), "only @file nodes are touched")

	assert.Empty(t, n.SetAllAncestorAtFileNodesDirty(), "already dirty nodes are not reported again")
}

func TestFindAllPotentiallyDirtyNodes(t *testing.T) {
	o, n, _, _, _ := fileTree(t)
	nodes := n.FindAllPotentiallyDirtyNodes()
	heads := make([]string, 0, len(nodes))
	for _, v := range nodes {
		heads = append(heads, v.HeadString())
	}
	assert.ElementsMatch(t, []string{"N", "@file f1.py", "@file f3.py", "P", "Root"}, heads)
	assert.NotContains(t, nodes, o.HiddenRoot())
}

func TestSetBodyReportsDirtyTransitions(t *testing.T) {
	o, n, f1, _, f3 := fileTree(t)
	u := &recordingUndoer{}
	o.SetUndoer(u)

	require.NoError(t, o.SetBody(n, "x = 1\n"))
	b := u.last(t)
	assert.Equal(t, OpChangeBody, b.Op)
	assert.Equal(t, "", b.OldBody)
	assert.Equal(t, "x = 1\n", b.NewBody)
	assert.ElementsMatch(t, []*VNode{n.V(), f1.V(), f3.V()}, b.Dirty)
	assert.Len(t, u.before, 1)

	require.NoError(t, o.SetBody(n, "x = 2\n"))
	assert.Empty(t, u.last(t).Dirty)

	require.NoError(t, o.SetBody(n, "x = 2\n"))
	assert.Len(t, u.after, 2, "unchanged body is not an operation")
}

func TestDeleteOutlineSelectsNeighbour(t *testing.T) {
	f := newFixture(t)
	u := &recordingUndoer{}
	f.o.SetUndoer(u)

	sel, err := f.o.DeleteOutline(f.b)
	require.NoError(t, err)
	assert.Equal(t, "A", sel.HeadString())
	assert.Equal(t, []string{"Root", "A", "C"}, heads(f.o))

	b := u.last(t)
	assert.Equal(t, OpDelete, b.Op)
	require.Len(t, b.Lists, 1)
	assert.Same(t, f.root.V(), b.Lists[0].Parent)
	assert.Len(t, b.Lists[0].Old, 3)
	assert.Len(t, b.Lists[0].New, 2)
	assert.True(t, b.Changed())

	_, err = f.o.DeleteOutline(f.o.RootPosition())
	assert.ErrorIs(t, err, ErrLastNode)
}

func TestMoveOutlineCommands(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.o.MoveOutlineDown(f.a))
	assert.Equal(t, []string{"B", "A", "C"}, childHeads(f.root))

	require.NoError(t, f.o.MoveOutlineUp(f.a))
	assert.Equal(t, []string{"A", "B", "C"}, childHeads(f.root))

	require.NoError(t, f.o.MoveOutlineRight(f.c))
	assert.Equal(t, []string{"B1", "B2", "C"}, childHeads(f.b))

	require.NoError(t, f.o.MoveOutlineLeft(f.c))
	assert.Equal(t, []string{"A", "B", "C"}, childHeads(f.root))
	assertCloneInvariant(t, f.o)
}

func TestMovesCaptureEveryTouchedParent(t *testing.T) {
	f := newFixture(t)
	u := &recordingUndoer{}
	f.o.SetUndoer(u)

	require.NoError(t, f.o.MoveOutlineRight(f.c))
	b := u.last(t)
	require.Len(t, b.Lists, 2)
	assert.Same(t, f.root.V(), b.Lists[0].Parent)
	assert.Len(t, b.Lists[0].Old, 3)
	assert.Len(t, b.Lists[0].New, 2)
	assert.Same(t, f.b.V(), b.Lists[1].Parent)
	assert.Len(t, b.Lists[1].New, 3)

	require.NoError(t, f.o.MoveOutlineDown(f.a))
	assert.Len(t, u.last(t).Lists, 1)
}

func TestFailedMoveLeavesUndoerBalanced(t *testing.T) {
	o := newTestOutline(t)
	p := o.CreateRoot("P")
	q := child(t, p, "Q")
	clone, err := q.Clone()
	require.NoError(t, err)
	require.NoError(t, clone.MoveToFirstTopLevel())
	o.ClearChanged()

	u := &recordingUndoer{}
	o.SetUndoer(u)
	top := o.RootPosition().Next()
	require.Equal(t, "P", top.HeadString())

	assert.ErrorIs(t, o.MoveOutlineRight(top), ErrCycle)
	assert.Equal(t, len(u.before), len(u.after))
	assert.False(t, o.Changed())
	assert.Equal(t, []string{"Q"}, childHeads(top))
}

func TestSortSiblings(t *testing.T) {
	o := newTestOutline(t)
	root := o.CreateRoot("Root")
	child(t, root, "b")
	a := child(t, root, "A")
	child(t, root, "c")
	child(t, root, "a2")
	u := &recordingUndoer{}
	o.SetUndoer(u)

	pa, err := o.SortSiblings(a, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "a2", "b", "c"}, childHeads(root))
	assert.Equal(t, 0, pa.ChildIndex())
	assert.Same(t, a.V(), pa.V())
	assert.True(t, pa.Exists())

	b := u.last(t)
	assert.Equal(t, OpSort, b.Op)
	require.Len(t, b.Lists, 1)
	assert.Equal(t, "b", b.Lists[0].Old[0].HeadString())
	assert.Equal(t, "A", b.Lists[0].New[0].HeadString())

	pa, err = o.SortSiblings(pa, nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a2", "A"}, childHeads(root))
	assert.Equal(t, 3, pa.ChildIndex())
}

func TestSortSiblingsIsStable(t *testing.T) {
	o := newTestOutline(t)
	root := o.CreateRoot("Root")
	first := child(t, root, "same")
	child(t, root, "Same")
	child(t, root, "other")

	p, err := o.SortSiblings(first, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ChildIndex())
	assert.Same(t, first.V(), root.V().Children()[1])
}

func TestPromoteDemoteCommands(t *testing.T) {
	f := newFixture(t)
	u := &recordingUndoer{}
	f.o.SetUndoer(u)

	require.NoError(t, f.o.PromoteNode(f.b))
	assert.Equal(t, OpPromote, u.last(t).Op)
	assert.Equal(t, []string{"A", "B", "B1", "B2", "C"}, childHeads(f.root))

	require.NoError(t, f.o.DemoteNode(f.b))
	assert.Equal(t, OpDemote, u.last(t).Op)
	assert.Equal(t, []string{"A", "B"}, childHeads(f.root))
}

func TestRestoreChildren(t *testing.T) {
	f := newFixture(t)
	rootV := f.root.V()
	before := rootV.Children()

	_, err := f.o.DeleteOutline(f.b)
	require.NoError(t, err)
	f.o.RestoreChildren(rootV, before)

	assert.Equal(t, []string{"Root", "A", "B", "B1", "B2", "C"}, heads(f.o))
	assertCloneInvariant(t, f.o)
}

func TestCheckOutlineRepairs(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.o.CheckOutline(false))

	b1 := f.b1.V()
	b1.parents = append(b1.parents, f.a.V())
	f.c.V().gnx = f.a.Gnx()

	problems := f.o.CheckOutline(false)
	assert.Len(t, problems, 2)

	problems = f.o.CheckOutline(true)
	assert.Len(t, problems, 2)
	assert.Empty(t, f.o.CheckOutline(false))
	assert.Equal(t, []*VNode{f.b.V()}, b1.Parents())
	assert.NotEqual(t, f.a.Gnx(), f.c.Gnx())
	for _, p := range []*Position{f.a, f.b, f.c} {
		got, err := f.o.FindByGnx(p.Gnx())
		require.NoError(t, err)
		assert.Same(t, p.V(), got, p.HeadString())
	}
}

func TestCheckOutlineRepairKeepsLookupOnHolder(t *testing.T) {
	f := newFixture(t)
	oldA := f.a.Gnx()
	f.a.V().gnx = f.b.Gnx()

	require.Len(t, f.o.CheckOutline(true), 1)
	assert.Empty(t, f.o.CheckOutline(false))
	assert.NotEqual(t, f.a.Gnx(), f.b.Gnx())

	for _, p := range []*Position{f.a, f.b} {
		got, err := f.o.FindByGnx(p.Gnx())
		require.NoError(t, err)
		assert.Same(t, p.V(), got, p.HeadString())
	}
	_, err := f.o.FindByGnx(oldA)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkNode(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.o.MarkNode(f.b, true))
	assert.True(t, f.b.V().IsMarked())
	assert.True(t, f.b.V().IsDirty())
	assert.ErrorIs(t, f.o.MarkNode(f.o.NullPosition(), true), ErrInvalidPosition)
}
