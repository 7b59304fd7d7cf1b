package outline

import (
	"iter"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring"
)

// Options configures a new Outline.
type Options struct {
	OwnerID string           // gnx owner id; DefaultOwnerID when empty
	Clock   func() time.Time // gnx timestamps; time.Now when nil
	Logger  *slog.Logger     // slog.Default() when nil
	Undoer  Undoer           // NopUndoer when nil
}

// Outline is one document: the hidden root, the vnode arena, the gnx
// registry and the positions registered for adjustment.
// It is single-threaded; callers serialize access.
type Outline struct {
	hiddenRoot *VNode
	indices    *NodeIndices
	arena      []*VNode
	tracked    map[*Position]struct{}
	undoer     Undoer
	log        *slog.Logger
	changed    bool
}

// New returns an empty outline.
func New(opts Options) *Outline {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	undoer := opts.Undoer
	if undoer == nil {
		undoer = NopUndoer{}
	}
	o := &Outline{
		indices: NewNodeIndices(opts.OwnerID, opts.Clock, log),
		tracked: make(map[*Position]struct{}),
		undoer:  undoer,
		log:     log,
	}
	o.hiddenRoot = o.alloc()
	o.hiddenRoot.gnx = HiddenRootGnx
	o.hiddenRoot.head = "<hidden root vnode>"
	return o
}

func (o *Outline) alloc() *VNode {
	v := &VNode{id: uint32(len(o.arena)), outline: o}
	o.arena = append(o.arena, v)
	return v
}

// Logger returns the outline's logger.
func (o *Outline) Logger() *slog.Logger { return o.log }

// Indices returns the gnx allocator.
func (o *Outline) Indices() *NodeIndices { return o.indices }

// HiddenRoot returns the invisible parent of all top-level nodes.
func (o *Outline) HiddenRoot() *VNode { return o.hiddenRoot }

// SetUndoer replaces the undoer; nil restores NopUndoer.
func (o *Outline) SetUndoer(u Undoer) {
	if u == nil {
		u = NopUndoer{}
	}
	o.undoer = u
}

// Changed reports whether the structure changed since ClearChanged.
func (o *Outline) Changed() bool { return o.changed }
func (o *Outline) ClearChanged() { o.changed = false }

// NewVNode allocates an unlinked vnode with a fresh gnx.
func (o *Outline) NewVNode() *VNode {
	v := o.alloc()
	v.gnx = o.indices.NewIndex(v)
	return v
}

// VNodeForGnx returns the vnode registered under gnx, creating it when
// absent. Loaders use it so that repeated gnxs share one vnode.
func (o *Outline) VNodeForGnx(gnx string) *VNode {
	if gnx == "" {
		return o.NewVNode()
	}
	if v := o.indices.Lookup(gnx); v != nil {
		return v
	}
	v := o.alloc()
	v.gnx = gnx
	o.indices.Register(gnx, v)
	return v
}

// FindByGnx returns the registered vnode or ErrNotFound.
func (o *Outline) FindByGnx(gnx string) (*VNode, error) {
	if v := o.indices.Lookup(gnx); v != nil {
		return v, nil
	}
	return nil, ErrNotFound
}

// AppendChild links child as the last child of parent. A nil parent means
// the hidden root. Loaders should link parents before their children.
func (o *Outline) AppendChild(parent, child *VNode) error {
	if parent == nil {
		parent = o.hiddenRoot
	}
	if parent == child || child.IsAncestorOfVNode(parent) {
		return ErrCycle
	}
	child.addLink(len(parent.children), parent)
	return nil
}

// RootPosition returns the first top-level position, or the null position
// when the outline is empty.
func (o *Outline) RootPosition() *Position {
	p := &Position{o: o}
	if len(o.hiddenRoot.children) > 0 {
		p.frame = frame{v: o.hiddenRoot.children[0], gen: o.hiddenRoot.childGen}
	}
	return p
}

// LastTopLevel returns the last top-level position.
func (o *Outline) LastTopLevel() *Position {
	p := &Position{o: o}
	if n := len(o.hiddenRoot.children); n > 0 {
		p.frame = frame{v: o.hiddenRoot.children[n-1], childIndex: n - 1, gen: o.hiddenRoot.childGen}
	}
	return p
}

// NullPosition returns a position that refers to no node.
func (o *Outline) NullPosition() *Position { return &Position{o: o} }

// CreateRoot appends a new top-level node and returns its position.
func (o *Outline) CreateRoot(head string) *Position {
	v := o.NewVNode()
	v.SetHeadString(head)
	p := &Position{o: o, frame: frame{v: v}}
	if last := o.LastTopLevel(); last.Valid() {
		p.linkAfter(last)
	} else {
		p.linkAsRoot()
	}
	return p
}

// -----------------------------------------------------------------------------
// Tracked positions
// -----------------------------------------------------------------------------

// Track registers p so that every later link, unlink, move or sort keeps p
// pointing at the same node. Untrack when done.
func (o *Outline) Track(p *Position) { o.tracked[p] = struct{}{} }

func (o *Outline) Untrack(p *Position) { delete(o.tracked, p) }

func (o *Outline) isTracked(p *Position) bool {
	_, ok := o.tracked[p]
	return ok
}

// shiftTracked adjusts tracked positions after parent's child slot index
// gained (delta=+1) or lost (delta=-1) an entry. Positions inside a removed
// slot are left untouched and become stale.
func (o *Outline) shiftTracked(parent *VNode, index, delta int) {
	for q := range o.tracked {
		if q.v == nil {
			continue
		}
		for j := 0; j <= len(q.stack); j++ {
			if q.parentAt(j) != parent {
				continue
			}
			f := q.at(j)
			switch {
			case delta > 0 && f.childIndex >= index:
				f.childIndex++
			case delta < 0 && f.childIndex == index:
				continue
			case delta < 0 && f.childIndex > index:
				f.childIndex--
			}
			f.gen = parent.childGen
		}
	}
}

type movedTrack struct {
	q      *Position
	suffix []frame
}

// trackedUnder captures the tracked positions at or below p, recording
// the part of each path below p.
func (o *Outline) trackedUnder(p *Position) []movedTrack {
	var out []movedTrack
	level := len(p.stack)
	for q := range o.tracked {
		if q == p || q.v == nil || len(q.stack) < level || !q.hasPrefix(p) {
			continue
		}
		path := q.path()
		out = append(out, movedTrack{q: q, suffix: path[level+1:]})
	}
	return out
}

// rebase rewrites captured positions under p's new location.
func (o *Outline) rebase(p *Position, moved []movedTrack) {
	for _, m := range moved {
		path := append(p.path(), m.suffix...)
		m.q.setPath(path)
	}
}

// -----------------------------------------------------------------------------
// Enumeration
// -----------------------------------------------------------------------------

// AllPositions yields every position in outline order. Clones appear once
// per path.
func (o *Outline) AllPositions() iter.Seq[*Position] {
	return func(yield func(*Position) bool) {
		p := o.RootPosition()
		for p.Valid() {
			if !yield(p.Copy()) {
				return
			}
			p.SafeMoveToThreadNext()
		}
	}
}

// AllUniquePositions yields the first position of every distinct vnode.
func (o *Outline) AllUniquePositions() iter.Seq[*Position] {
	return func(yield func(*Position) bool) {
		seen := roaring.New()
		p := o.RootPosition()
		for p.Valid() {
			if !seen.CheckedAdd(p.v.id) {
				p.MoveToNodeAfterTree()
				continue
			}
			if !yield(p.Copy()) {
				return
			}
			p.SafeMoveToThreadNext()
		}
	}
}

// AllNodes yields the vnode of every position, clones repeated.
func (o *Outline) AllNodes() iter.Seq[*VNode] {
	return func(yield func(*VNode) bool) {
		for p := range o.AllPositions() {
			if !yield(p.v) {
				return
			}
		}
	}
}

// AllUniqueNodes yields every reachable vnode once, in outline order.
func (o *Outline) AllUniqueNodes() iter.Seq[*VNode] {
	return func(yield func(*VNode) bool) {
		seen := roaring.New()
		var walk func(v *VNode) bool
		walk = func(v *VNode) bool {
			for _, c := range v.children {
				if !seen.CheckedAdd(c.id) {
					continue
				}
				if !yield(c) || !walk(c) {
					return false
				}
			}
			return true
		}
		walk(o.hiddenRoot)
	}
}

// ClearAllDirty clears the dirty bit of every reachable vnode.
func (o *Outline) ClearAllDirty() {
	for v := range o.AllUniqueNodes() {
		v.ClearDirty()
	}
}
