package outline

import (
	"cmp"
	"slices"
	"strings"
)

// Commander-level operations: each wraps a Position mutation with the
// undoer's Before/After calls and reports the vnodes it made dirty.

func (o *Outline) begin(op Op, p *Position) *Bunch {
	b := &Bunch{Op: op, P: p.Copy(), V: p.v}
	if p.v != nil {
		b.OldBody, b.OldHead, b.OldMarked = p.v.body, p.v.head, p.v.IsMarked()
	}
	o.undoer.Before(b)
	return b
}

func (o *Outline) end(b *Bunch, target *Position, dirty []*VNode) {
	if target != nil {
		b.Target = target.Copy()
	}
	if b.V != nil {
		b.NewBody, b.NewHead = b.V.body, b.V.head
	}
	for i := range b.Lists {
		b.Lists[i].New = slices.Clone(b.Lists[i].Parent.children)
	}
	b.Dirty = dirty
	if b.Err == nil || b.Changed() {
		o.changed = true
	}
	o.undoer.After(b)
}

// fail ends b for an operation that returned err.
func (o *Outline) fail(b *Bunch, err error, dirty []*VNode) error {
	b.Err = err
	o.end(b, nil, dirty)
	return err
}

// captureParents records the child lists of parents, once each.
func (o *Outline) captureParents(b *Bunch, parents ...*VNode) {
	for _, v := range parents {
		if v == nil || slices.ContainsFunc(b.Lists, func(l ChildList) bool { return l.Parent == v }) {
			continue
		}
		b.Lists = append(b.Lists, ChildList{Parent: v, Old: slices.Clone(v.children)})
	}
}

// InsertHeadline inserts a node after p.
func (o *Outline) InsertHeadline(p *Position, head string) (*Position, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	b := o.begin(OpInsert, p)
	o.captureParents(b, p.parentVNode())
	p2, err := p.InsertAfter()
	if err != nil {
		return nil, o.fail(b, err, nil)
	}
	p2.v.SetHeadString(head)
	o.end(b, p2, p2.SetDirty())
	return p2, nil
}

// InsertChild inserts a node as p's last child.
func (o *Outline) InsertChild(p *Position, head string) (*Position, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	b := o.begin(OpInsert, p)
	o.captureParents(b, p.v)
	p2, err := p.InsertAsLastChild()
	if err != nil {
		return nil, o.fail(b, err, nil)
	}
	p2.v.SetHeadString(head)
	o.end(b, p2, p2.SetDirty())
	return p2, nil
}

// DeleteOutline deletes p's tree and returns the position to select next:
// the node before p in outline order, or p's next sibling.
func (o *Outline) DeleteOutline(p *Position) (*Position, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	newNode := p.ThreadBack()
	if !newNode.Valid() {
		newNode = p.Next()
	}
	if !newNode.Valid() {
		return nil, ErrLastNode
	}
	b := o.begin(OpDelete, p)
	o.captureParents(b, p.parentVNode())
	dirty, err := p.DoDelete(newNode)
	if err != nil {
		return nil, o.fail(b, err, dirty)
	}
	o.end(b, newNode, dirty)
	return newNode, nil
}

// CloneNode clones p and returns the clone's position.
func (o *Outline) CloneNode(p *Position) (*Position, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	b := o.begin(OpClone, p)
	o.captureParents(b, p.parentVNode())
	clone, err := p.Clone()
	if err != nil {
		return nil, o.fail(b, err, nil)
	}
	o.end(b, clone, clone.SetDirty())
	return clone, nil
}

// moveNode runs a move between the dirty passes of the old and new
// locations. parents are the vnodes whose child lists the move changes.
// Callers check everything that can fail before calling it.
func (o *Outline) moveNode(op Op, p *Position, parents []*VNode, move func() error) error {
	b := o.begin(op, p)
	o.captureParents(b, parents...)
	dirty := p.SetAllAncestorAtFileNodesDirty()
	if err := move(); err != nil {
		return o.fail(b, err, dirty)
	}
	o.end(b, p, append(dirty, p.SetDirty()...))
	return nil
}

// MoveOutlineUp moves p before its previous sibling.
func (o *Outline) MoveOutlineUp(p *Position) error {
	if err := p.checkLive(); err != nil {
		return err
	}
	if !p.HasBack() {
		return nil
	}
	return o.moveNode(OpMove, p, []*VNode{p.parentVNode()}, func() error {
		if back2 := p.Back().MoveToBack(); back2.Valid() {
			return p.MoveAfter(back2)
		}
		if p.HasParent() {
			return p.MoveToFirstChildOf(p.Parent())
		}
		return p.MoveToFirstTopLevel()
	})
}

// MoveOutlineDown moves p after its next sibling.
func (o *Outline) MoveOutlineDown(p *Position) error {
	if err := p.checkLive(); err != nil {
		return err
	}
	if !p.HasNext() {
		return nil
	}
	return o.moveNode(OpMove, p, []*VNode{p.parentVNode()}, func() error { return p.MoveAfter(p.Next()) })
}

// MoveOutlineLeft moves p after its parent.
func (o *Outline) MoveOutlineLeft(p *Position) error {
	if err := p.checkLive(); err != nil {
		return err
	}
	if !p.HasParent() {
		return nil
	}
	parent := p.Parent()
	if p.wouldCycle(parent.parentVNode()) {
		return ErrCycle
	}
	return o.moveNode(OpMove, p, []*VNode{p.parentVNode(), parent.parentVNode()}, func() error {
		return p.MoveAfter(parent)
	})
}

// MoveOutlineRight makes p the last child of its previous sibling.
func (o *Outline) MoveOutlineRight(p *Position) error {
	if err := p.checkLive(); err != nil {
		return err
	}
	if !p.HasBack() {
		return nil
	}
	back := p.Back()
	if p.wouldCycle(back.v) {
		return ErrCycle
	}
	return o.moveNode(OpMove, p, []*VNode{p.parentVNode(), back.v}, func() error {
		return p.MoveToLastChildOf(back)
	})
}

// PromoteNode makes p's children its following siblings.
func (o *Outline) PromoteNode(p *Position) error {
	if err := p.checkLive(); err != nil {
		return err
	}
	if !p.HasChildren() {
		return nil
	}
	return o.moveNode(OpPromote, p, []*VNode{p.parentVNode(), p.v}, p.Promote)
}

// DemoteNode makes p's following siblings its children.
func (o *Outline) DemoteNode(p *Position) error {
	if err := p.checkLive(); err != nil {
		return err
	}
	if !p.HasNext() {
		return nil
	}
	if err := p.checkDemote(); err != nil {
		return err
	}
	return o.moveNode(OpDemote, p, []*VNode{p.parentVNode(), p.v}, p.Demote)
}

// HeadlineKey is the default sort key: the lower-cased headline.
func HeadlineKey(v *VNode) string { return strings.ToLower(v.head) }

// SortSiblings stably sorts p and its siblings by key (HeadlineKey when
// nil) and returns p's position after the sort.
func (o *Outline) SortSiblings(p *Position, key func(*VNode) string, reverse bool) (*Position, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	if key == nil {
		key = HeadlineKey
	}
	parent := p.parentVNode()
	b := o.begin(OpSort, p)
	o.captureParents(b, parent)

	order := make([]int, len(parent.children))
	keys := make([]string, len(parent.children))
	for i, v := range parent.children {
		order[i] = i
		keys[i] = key(v)
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if reverse {
			return cmp.Compare(keys[b], keys[a])
		}
		return cmp.Compare(keys[a], keys[b])
	})
	newIndex := make([]int, len(order))
	sorted := make([]*VNode, len(order))
	for to, from := range order {
		sorted[to] = parent.children[from]
		newIndex[from] = to
	}
	parent.children = sorted
	parent.childGen++
	o.permuteTracked(parent, newIndex)

	result := p.Copy()
	result.childIndex = newIndex[p.childIndex]
	result.gen = parent.childGen

	var dirty []*VNode
	if pp := p.Parent(); pp.Valid() {
		dirty = pp.SetDirty()
	}
	o.end(b, result, dirty)
	return result, nil
}

// permuteTracked remaps tracked positions through a reordered child list.
func (o *Outline) permuteTracked(parent *VNode, newIndex []int) {
	for q := range o.tracked {
		if q.v == nil {
			continue
		}
		for j := 0; j <= len(q.stack); j++ {
			if q.parentAt(j) != parent {
				continue
			}
			f := q.at(j)
			if f.childIndex >= 0 && f.childIndex < len(newIndex) {
				f.childIndex = newIndex[f.childIndex]
				f.gen = parent.childGen
			}
		}
	}
}

// RestoreChildren replaces parent's child list with children, relinking
// through the link primitives so parent links stay consistent. Undoers use
// it to revert structural operations.
func (o *Outline) RestoreChildren(parent *VNode, children []*VNode) {
	for i := len(parent.children) - 1; i >= 0; i-- {
		parent.children[i].cutLink(i, parent)
	}
	for i, c := range children {
		c.addLink(i, parent)
	}
}

// SetBody replaces p's body and marks it dirty.
func (o *Outline) SetBody(p *Position, s string) error {
	return o.SetBodyOp(p, s, OpChangeBody)
}

// SetBodyOp is SetBody recorded under op.
func (o *Outline) SetBodyOp(p *Position, s string, op Op) error {
	if !p.Valid() {
		return ErrInvalidPosition
	}
	if p.v.body == s {
		return nil
	}
	b := o.begin(op, p)
	p.v.body = s
	o.end(b, p, p.SetDirty())
	return nil
}

// SetHead replaces p's headline and marks it dirty.
func (o *Outline) SetHead(p *Position, s string) error {
	if !p.Valid() {
		return ErrInvalidPosition
	}
	b := o.begin(OpChangeHead, p)
	p.v.SetHeadString(s)
	o.end(b, p, p.SetDirty())
	return nil
}

// MarkNode sets or clears p's mark.
func (o *Outline) MarkNode(p *Position, marked bool) error {
	if !p.Valid() {
		return ErrInvalidPosition
	}
	if p.v.IsMarked() == marked {
		return nil
	}
	b := o.begin(OpMark, p)
	p.v.SetMarked(marked)
	o.end(b, p, p.SetDirty())
	return nil
}
