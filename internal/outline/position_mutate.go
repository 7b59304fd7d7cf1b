package outline

import (
	"slices"
)

// -----------------------------------------------------------------------------
// Link primitives. They keep children/parents consistent and leave the
// receiver pointing at its new location; tracked positions are shifted by
// the vnode-level link operations.
// -----------------------------------------------------------------------------

// linkAt links p.v into parent at index n; stack is the path to parent.
func (p *Position) linkAt(stack []frame, parent *VNode, n int) {
	if n < 0 {
		n = 0
	}
	if n > len(parent.children) {
		n = len(parent.children)
	}
	p.v.addLink(n, parent)
	p.stack = stack
	p.frame = frame{v: p.v, childIndex: n, gen: parent.childGen}
}

// linkAfter links p.v as the next sibling of after.
func (p *Position) linkAfter(after *Position) {
	p.o = after.o
	p.linkAt(slices.Clone(after.stack), after.parentVNode(), after.childIndex+1)
}

// linkAsNthChild links p.v as child n of parent.
func (p *Position) linkAsNthChild(parent *Position, n int) {
	p.o = parent.o
	stack := append(slices.Clone(parent.stack), parent.frame)
	p.linkAt(stack, parent.v, n)
}

// linkAsRoot links p.v as the first top-level node.
func (p *Position) linkAsRoot() {
	p.linkAt(nil, p.o.hiddenRoot, 0)
}

// unlink removes p.v from its parent's child slot.
func (p *Position) unlink() {
	p.v.cutLink(p.childIndex, p.parentVNode())
}

// AdjustPositionBeforeUnlink fixes p for the removal of p2: when p2 is an
// earlier sibling of p, or of one of p's ancestors, the affected child index
// drops by one.
func (p *Position) AdjustPositionBeforeUnlink(p2 *Position) {
	if !p.Valid() || !p2.Valid() {
		return
	}
	level := len(p2.stack)
	if level > len(p.stack) {
		return
	}
	for j := 0; j < level; j++ {
		if p.stack[j].v != p2.stack[j].v || p.stack[j].childIndex != p2.stack[j].childIndex {
			return
		}
	}
	if f := p.at(level); f.childIndex > p2.childIndex {
		f.childIndex--
	}
}

// refresh revalidates p when it still exists. Positions handed to a
// mutation for adjustment are refreshed this way afterwards.
func (p *Position) refresh() {
	if p.Valid() && p.Exists() {
		_ = p.Revalidate() // exists, cannot fail
	}
}

func (o *Outline) adjustable(p *Position) bool {
	return p.Valid() && !o.isTracked(p)
}

// -----------------------------------------------------------------------------
// Insertion
// -----------------------------------------------------------------------------

func (p *Position) newSibling() *Position {
	return &Position{o: p.o, frame: frame{v: p.o.NewVNode()}}
}

// InsertAfter inserts a new node after p and returns its position.
func (p *Position) InsertAfter() (*Position, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	p2 := p.newSibling()
	p2.linkAfter(p)
	p.refresh()
	return p2, nil
}

// InsertBefore inserts a new node in p's slot. p is adjusted to keep
// pointing at its node.
func (p *Position) InsertBefore() (*Position, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	p2 := p.newSibling()
	tracked := p.o.isTracked(p)
	p2.linkAt(slices.Clone(p.stack), p.parentVNode(), p.childIndex)
	if !tracked {
		p.childIndex++
	}
	p.refresh()
	return p2, nil
}

// InsertAsNthChild inserts a new node as child n of p.
func (p *Position) InsertAsNthChild(n int) (*Position, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	p2 := p.newSibling()
	p2.linkAsNthChild(p, n)
	return p2, nil
}

// InsertAsLastChild inserts a new node after p's last child.
func (p *Position) InsertAsLastChild() (*Position, error) {
	return p.InsertAsNthChild(p.NumberOfChildren())
}

// Clone links p's vnode again, directly after p.
func (p *Position) Clone() (*Position, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	p2 := p.Copy()
	p2.linkAfter(p)
	p.refresh()
	return p2, nil
}

// CopyTreeAfter inserts a deep copy of p's subtree after p. Every copied
// node gets a fresh gnx.
func (p *Position) CopyTreeAfter() (*Position, error) {
	p2, err := p.InsertAfter()
	if err != nil {
		return nil, err
	}
	if err := p.copyTreeTo(p2, 0); err != nil {
		return nil, err
	}
	return p2, nil
}

const maxCopyDepth = 10000

func (p *Position) copyTreeTo(p2 *Position, depth int) error {
	if depth > maxCopyDepth {
		return ErrCycle
	}
	p2.v.SetHeadString(p.v.head)
	p2.v.body = p.v.body
	p2.v.status = p.v.status &^ StatusDirty
	if p.v.UA != nil {
		p2.v.UA = make(map[string]any, len(p.v.UA))
		for k, val := range p.v.UA {
			p2.v.UA[k] = val
		}
	}
	for child := range p.Children() {
		c2, err := p2.InsertAsLastChild()
		if err != nil {
			return err
		}
		if err := child.copyTreeTo(c2, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Deletion
// -----------------------------------------------------------------------------

// DoDelete marks p dirty, adjusts newNode when it is a later sibling of p
// (or passes through one), then unlinks p. It returns the vnodes whose
// dirty bit was set. The caller chooses newNode as the recovery position.
func (p *Position) DoDelete(newNode *Position) ([]*VNode, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	dirty := p.SetDirty()
	if p.o.adjustable(newNode) {
		newNode.AdjustPositionBeforeUnlink(p)
	}
	p.unlink()
	if newNode.Valid() {
		newNode.refresh()
	}
	return dirty, nil
}

// DeleteAllChildren deletes every child of p.
func (p *Position) DeleteAllChildren() ([]*VNode, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	var dirty []*VNode
	for p.HasChildren() {
		d, err := p.FirstChild().DoDelete(nil)
		if err != nil {
			return dirty, err
		}
		dirty = append(dirty, d...)
	}
	return dirty, nil
}

// -----------------------------------------------------------------------------
// Moves
// -----------------------------------------------------------------------------

// wouldCycle reports whether placing p.v under parent creates a cycle.
func (p *Position) wouldCycle(parent *VNode) bool {
	return parent == p.v || p.v.IsAncestorOfVNode(parent)
}

// move unlinks p, calls link to relink it and carries tracked positions
// below p to the new location.
func (p *Position) move(target *Position, link func()) {
	moved := p.o.trackedUnder(p)
	if p.o.adjustable(target) {
		target.AdjustPositionBeforeUnlink(p)
	}
	p.unlink()
	link()
	p.o.rebase(p, moved)
	target.refresh()
}

// MoveAfter moves p so that it follows a.
func (p *Position) MoveAfter(a *Position) error {
	if err := p.checkLive(); err != nil {
		return err
	}
	if err := a.checkLive(); err != nil {
		return err
	}
	if a.Equal(p) {
		return nil
	}
	if p.wouldCycle(a.parentVNode()) {
		return ErrCycle
	}
	p.move(a, func() { p.linkAfter(a) })
	return nil
}

// MoveToNthChildOf moves p to be child n of parent.
func (p *Position) MoveToNthChildOf(parent *Position, n int) error {
	if err := p.checkLive(); err != nil {
		return err
	}
	if err := parent.checkLive(); err != nil {
		return err
	}
	if p.wouldCycle(parent.v) {
		return ErrCycle
	}
	p.move(parent, func() { p.linkAsNthChild(parent, n) })
	return nil
}

func (p *Position) MoveToFirstChildOf(parent *Position) error {
	return p.MoveToNthChildOf(parent, 0)
}

func (p *Position) MoveToLastChildOf(parent *Position) error {
	n := parent.NumberOfChildren()
	if p.Parent().Equal(parent) {
		n--
	}
	return p.MoveToNthChildOf(parent, n)
}

// MoveToFirstTopLevel moves p to be the first top-level node.
func (p *Position) MoveToFirstTopLevel() error {
	if err := p.checkLive(); err != nil {
		return err
	}
	p.move(p.o.NullPosition(), p.linkAsRoot)
	return nil
}

// Promote makes p's children its following siblings.
func (p *Position) Promote() error {
	if err := p.checkLive(); err != nil {
		return err
	}
	after := p.Copy()
	for p.HasChildren() {
		c := p.FirstChild()
		if err := c.MoveAfter(after); err != nil {
			return err
		}
		after = c
	}
	p.refresh()
	return nil
}

// Demote makes p's following siblings its last children.
func (p *Position) Demote() error {
	if err := p.checkLive(); err != nil {
		return err
	}
	if err := p.checkDemote(); err != nil {
		return err
	}
	for p.HasNext() {
		if err := p.Next().MoveToLastChildOf(p); err != nil {
			return err
		}
		p.refresh()
	}
	return nil
}

// checkDemote reports ErrCycle when a following sibling contains p.
func (p *Position) checkDemote() error {
	for s := range p.FollowingSiblings() {
		if s.wouldCycle(p.v) {
			return ErrCycle
		}
	}
	return nil
}
