package outline

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// frame is one step of a path: v sits at childIndex of its parent, whose
// child list had generation gen when the step was taken.
type frame struct {
	v          *VNode
	childIndex int
	gen        uint64
}

// Position is a cursor: a vnode, its index among its parent's children and
// the stack of ancestor steps taken to reach it. The null position has a
// nil vnode. Positions are cheap to copy and never own content.
type Position struct {
	o *Outline
	frame
	stack []frame
}

// NewPosition returns a top-level-style position for v with an empty stack.
func NewPosition(v *VNode, childIndex int) *Position {
	p := &Position{frame: frame{v: v, childIndex: childIndex}}
	if v != nil {
		p.o = v.outline
		p.gen = p.o.hiddenRoot.childGen
	}
	return p
}

// Valid reports whether p refers to a node.
func (p *Position) Valid() bool { return p != nil && p.v != nil }

// V returns the vnode, nil for the null position.
func (p *Position) V() *VNode { return p.v }

func (p *Position) ChildIndex() int { return p.childIndex }

// Level is the number of ancestors.
func (p *Position) Level() int { return len(p.stack) }

func (p *Position) Gnx() string {
	if p.v == nil {
		return ""
	}
	return p.v.gnx
}

func (p *Position) HeadString() string {
	if p.v == nil {
		return ""
	}
	return p.v.head
}

func (p *Position) BodyString() string {
	if p.v == nil {
		return ""
	}
	return p.v.body
}

func (p *Position) IsCloned() bool { return p.v != nil && p.v.IsCloned() }

func (p *Position) NumberOfChildren() int {
	if p.v == nil {
		return 0
	}
	return len(p.v.children)
}

// Copy returns an independent copy of p.
func (p *Position) Copy() *Position {
	return &Position{o: p.o, frame: p.frame, stack: slices.Clone(p.stack)}
}

// Equal compares vnode, child index and the full stack.
func (p *Position) Equal(q *Position) bool {
	if p == nil || q == nil {
		return p == q
	}
	if p.v != q.v || p.childIndex != q.childIndex || len(p.stack) != len(q.stack) {
		return false
	}
	for i := range p.stack {
		if p.stack[i].v != q.stack[i].v || p.stack[i].childIndex != q.stack[i].childIndex {
			return false
		}
	}
	return true
}

// Key is a string identifying the path of p.
func (p *Position) Key() string {
	var b strings.Builder
	for _, f := range p.stack {
		fmt.Fprintf(&b, "%s:%d.", f.v.gnx, f.childIndex)
	}
	fmt.Fprintf(&b, "%s:%d", p.Gnx(), p.childIndex)
	return b.String()
}

func (p *Position) String() string {
	if p.v == nil {
		return "<pos null>"
	}
	return fmt.Sprintf("<pos %d [%d] %s>", p.childIndex, len(p.stack), p.v.head)
}

// -----------------------------------------------------------------------------
// Path helpers
// -----------------------------------------------------------------------------

func (p *Position) hidden() *VNode {
	if p.o == nil {
		return nil
	}
	return p.o.hiddenRoot
}

// at returns the frame at level j; level len(stack) is p itself.
func (p *Position) at(j int) *frame {
	if j == len(p.stack) {
		return &p.frame
	}
	return &p.stack[j]
}

// parentAt returns the parent vnode of the frame at level j.
func (p *Position) parentAt(j int) *VNode {
	if j == 0 {
		return p.hidden()
	}
	return p.stack[j-1].v
}

func (p *Position) parentVNode() *VNode { return p.parentAt(len(p.stack)) }

// path returns a fresh slice of all frames including p's own.
func (p *Position) path() []frame {
	out := make([]frame, 0, len(p.stack)+1)
	out = append(out, p.stack...)
	return append(out, p.frame)
}

func (p *Position) setPath(path []frame) {
	n := len(path) - 1
	p.stack = slices.Clone(path[:n])
	p.frame = path[n]
}

// hasPrefix reports whether p's path passes through a's location.
func (p *Position) hasPrefix(a *Position) bool {
	level := len(a.stack)
	if len(p.stack) < level {
		return false
	}
	for j := 0; j <= level; j++ {
		pf, af := p.at(j), a.at(j)
		if pf.v != af.v || pf.childIndex != af.childIndex {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// Staleness
// -----------------------------------------------------------------------------

// Stale reports whether any child list on p's path changed since p was
// computed. A stale position may still be correct; see Revalidate.
func (p *Position) Stale() bool {
	if p.v == nil {
		return false
	}
	for j := 0; j <= len(p.stack); j++ {
		if p.at(j).gen != p.parentAt(j).childGen {
			return true
		}
	}
	return false
}

// Exists reports whether every step of p's path is present in the outline.
func (p *Position) Exists() bool {
	if p.v == nil || p.o == nil {
		return false
	}
	for j := 0; j <= len(p.stack); j++ {
		parent, f := p.parentAt(j), p.at(j)
		if f.childIndex < 0 || f.childIndex >= len(parent.children) || parent.children[f.childIndex] != f.v {
			return false
		}
	}
	return true
}

// Revalidate refreshes the generations of a path that still exists and
// returns ErrStalePosition for one that does not.
func (p *Position) Revalidate() error {
	if p.v == nil {
		return ErrInvalidPosition
	}
	if !p.Exists() {
		return fmt.Errorf("%w: %s", ErrStalePosition, p.Key())
	}
	for j := 0; j <= len(p.stack); j++ {
		p.at(j).gen = p.parentAt(j).childGen
	}
	return nil
}

// checkLive is called by every mutation before it touches the outline.
func (p *Position) checkLive() error {
	if !p.Valid() {
		return ErrInvalidPosition
	}
	if p.Stale() {
		return p.Revalidate()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Predicates
// -----------------------------------------------------------------------------

func (p *Position) HasChildren() bool { return p.v != nil && len(p.v.children) > 0 }

func (p *Position) HasParent() bool { return p.v != nil && len(p.stack) > 0 }

func (p *Position) HasNext() bool {
	if p.v == nil {
		return false
	}
	parent := p.parentVNode()
	return parent != nil && p.childIndex+1 < len(parent.children)
}

func (p *Position) HasBack() bool { return p.v != nil && p.childIndex > 0 }

func (p *Position) HasThreadNext() bool {
	if p.v == nil {
		return false
	}
	if p.HasChildren() || p.HasNext() {
		return true
	}
	for j := len(p.stack) - 1; j >= 0; j-- {
		if p.stack[j].childIndex+1 < len(p.parentAt(j).children) {
			return true
		}
	}
	return false
}

func (p *Position) HasThreadBack() bool { return p.HasBack() || p.HasParent() }

// IsRoot is true for the first top-level position.
func (p *Position) IsRoot() bool {
	return p.v != nil && len(p.stack) == 0 && p.childIndex == 0
}

// IsTopLevel is true when p has no ancestors.
func (p *Position) IsTopLevel() bool { return p.v != nil && len(p.stack) == 0 }

// IsAncestorOf reports whether p lies on q's path above q.
func (p *Position) IsAncestorOf(q *Position) bool {
	if !p.Valid() || !q.Valid() || len(q.stack) <= len(p.stack) {
		return false
	}
	return q.hasPrefix(p)
}

// -----------------------------------------------------------------------------
// Navigation: MoveTo* mutate p and return it; the rest return new positions.
// Every dead end becomes the null position.
// -----------------------------------------------------------------------------

func (p *Position) invalidate() *Position {
	p.frame = frame{}
	p.stack = nil
	return p
}

func (p *Position) MoveToNthChild(n int) *Position {
	if p.v == nil {
		return p
	}
	if n < 0 || n >= len(p.v.children) {
		return p.invalidate()
	}
	parent := p.v
	p.stack = append(p.stack, p.frame)
	p.frame = frame{v: parent.children[n], childIndex: n, gen: parent.childGen}
	return p
}

func (p *Position) MoveToFirstChild() *Position { return p.MoveToNthChild(0) }

func (p *Position) MoveToLastChild() *Position {
	if p.v == nil {
		return p
	}
	return p.MoveToNthChild(len(p.v.children) - 1)
}

func (p *Position) moveToSibling(n int) *Position {
	if p.v == nil {
		return p
	}
	parent := p.parentVNode()
	if parent == nil || n < 0 || n >= len(parent.children) {
		return p.invalidate()
	}
	p.frame = frame{v: parent.children[n], childIndex: n, gen: parent.childGen}
	return p
}

func (p *Position) MoveToNext() *Position { return p.moveToSibling(p.childIndex + 1) }
func (p *Position) MoveToBack() *Position { return p.moveToSibling(p.childIndex - 1) }

func (p *Position) MoveToParent() *Position {
	if p.v == nil {
		return p
	}
	n := len(p.stack)
	if n == 0 {
		return p.invalidate()
	}
	p.frame = p.stack[n-1]
	p.stack = p.stack[:n-1:n-1]
	return p
}

// MoveToThreadNext moves to the pre-order successor.
func (p *Position) MoveToThreadNext() *Position {
	if p.v == nil {
		return p
	}
	switch {
	case p.HasChildren():
		return p.MoveToFirstChild()
	case p.HasNext():
		return p.MoveToNext()
	}
	p.MoveToParent()
	for p.v != nil {
		if p.HasNext() {
			return p.MoveToNext()
		}
		p.MoveToParent()
	}
	return p
}

// SafeMoveToThreadNext is MoveToThreadNext with a guard against a path that
// revisits one of its own ancestors.
func (p *Position) SafeMoveToThreadNext() *Position {
	p.MoveToThreadNext()
	if p.v == nil {
		return p
	}
	for _, f := range p.stack {
		if f.v == p.v {
			if p.o != nil {
				p.o.log.Error("cycle in outline", "gnx", p.v.gnx)
			}
			return p.MoveToNodeAfterTree()
		}
	}
	return p
}

// MoveToLastNode moves to the deepest last descendant of p.
func (p *Position) MoveToLastNode() *Position {
	for p.HasChildren() {
		p.MoveToLastChild()
	}
	return p
}

// MoveToThreadBack moves to the pre-order predecessor.
func (p *Position) MoveToThreadBack() *Position {
	if p.v == nil {
		return p
	}
	if p.HasBack() {
		return p.MoveToBack().MoveToLastNode()
	}
	return p.MoveToParent()
}

// MoveToNodeAfterTree moves to the first position outside p's subtree.
func (p *Position) MoveToNodeAfterTree() *Position {
	for p.v != nil {
		if p.HasNext() {
			return p.MoveToNext()
		}
		p.MoveToParent()
	}
	return p
}

// MoveToRoot moves to the first top-level position.
func (p *Position) MoveToRoot() *Position {
	if p.o == nil {
		return p.invalidate()
	}
	r := p.o.RootPosition()
	p.frame, p.stack = r.frame, nil
	return p
}

func (p *Position) FirstChild() *Position    { return p.Copy().MoveToFirstChild() }
func (p *Position) LastChild() *Position     { return p.Copy().MoveToLastChild() }
func (p *Position) NthChild(n int) *Position { return p.Copy().MoveToNthChild(n) }
func (p *Position) Next() *Position          { return p.Copy().MoveToNext() }
func (p *Position) Back() *Position          { return p.Copy().MoveToBack() }
func (p *Position) Parent() *Position        { return p.Copy().MoveToParent() }
func (p *Position) ThreadNext() *Position    { return p.Copy().MoveToThreadNext() }
func (p *Position) ThreadBack() *Position    { return p.Copy().MoveToThreadBack() }
func (p *Position) NodeAfterTree() *Position { return p.Copy().MoveToNodeAfterTree() }
func (p *Position) LastNode() *Position      { return p.Copy().MoveToLastNode() }

// PositionAfterDeletedTree returns the position that will hold the node
// following p's subtree once p is deleted. A next sibling moves into p's
// slot, so the result keeps p's stack and index.
func (p *Position) PositionAfterDeletedTree() *Position {
	if p.HasNext() {
		next := p.Copy()
		next.v = p.parentVNode().children[p.childIndex+1]
		return next
	}
	return p.NodeAfterTree()
}

// -----------------------------------------------------------------------------
// Iterators. Each yields copies.
// -----------------------------------------------------------------------------

func (p *Position) Children() iter.Seq[*Position] {
	return func(yield func(*Position) bool) {
		for q := p.FirstChild(); q.Valid(); q.MoveToNext() {
			if !yield(q.Copy()) {
				return
			}
		}
	}
}

func (p *Position) FollowingSiblings() iter.Seq[*Position] {
	return func(yield func(*Position) bool) {
		for q := p.Next(); q.Valid(); q.MoveToNext() {
			if !yield(q.Copy()) {
				return
			}
		}
	}
}

func (p *Position) SelfAndSiblings() iter.Seq[*Position] {
	return func(yield func(*Position) bool) {
		if !p.Valid() {
			return
		}
		first := p.Copy()
		for first.HasBack() {
			first.MoveToBack()
		}
		for q := first; q.Valid(); q.MoveToNext() {
			if !yield(q.Copy()) {
				return
			}
		}
	}
}

func (p *Position) Parents() iter.Seq[*Position] {
	return func(yield func(*Position) bool) {
		for q := p.Parent(); q.Valid(); q.MoveToParent() {
			if !yield(q.Copy()) {
				return
			}
		}
	}
}

func (p *Position) SelfAndParents() iter.Seq[*Position] {
	return func(yield func(*Position) bool) {
		for q := p.Copy(); q.Valid(); q.MoveToParent() {
			if !yield(q.Copy()) {
				return
			}
		}
	}
}

func (p *Position) subtree(includeSelf bool) iter.Seq[*Position] {
	return func(yield func(*Position) bool) {
		if !p.Valid() {
			return
		}
		level := len(p.stack)
		q := p.Copy()
		if !includeSelf {
			q.MoveToThreadNext()
		}
		for q.Valid() && (len(q.stack) > level || q.Equal(p)) {
			if !yield(q.Copy()) {
				return
			}
			q.SafeMoveToThreadNext()
		}
	}
}

// Subtree yields the descendants of p in outline order.
func (p *Position) Subtree() iter.Seq[*Position] { return p.subtree(false) }

// SelfAndSubtree yields p followed by its descendants.
func (p *Position) SelfAndSubtree() iter.Seq[*Position] { return p.subtree(true) }

// UniqueSubtree yields p and its descendants, skipping repeated vnodes.
func (p *Position) UniqueSubtree() iter.Seq[*Position] {
	return func(yield func(*Position) bool) {
		seen := roaring.New()
		for q := range p.subtree(true) {
			if !seen.CheckedAdd(q.v.id) {
				continue
			}
			if !yield(q) {
				return
			}
		}
	}
}
