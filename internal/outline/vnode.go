package outline

import (
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// Status is the per-vnode bit set.
type Status uint32

const (
	StatusDirty Status = 1 << iota
	StatusMarked
	StatusSelected
	StatusOrphan
	StatusExpanded
	StatusVisited
	StatusWrite
)

// PersistentStatus are the bits that survive save/load.
const PersistentStatus = StatusMarked | StatusExpanded | StatusOrphan

// VNode owns a node's content and links. Every vnode belongs to exactly one
// Outline arena; id is its stable index there.
type VNode struct {
	gnx      string
	head     string
	body     string
	children []*VNode
	parents  []*VNode
	status   Status
	kind     Kind
	fileName string

	id       uint32
	childGen uint64
	outline  *Outline

	// UA holds unknown attributes carried through persistence.
	UA map[string]any
}

// Gnx returns the node's global index.
func (v *VNode) Gnx() string { return v.gnx }

// ID returns the arena id of v.
func (v *VNode) ID() uint32 { return v.id }

// Outline returns the owning outline.
func (v *VNode) Outline() *Outline { return v.outline }

func (v *VNode) HeadString() string { return v.head }
func (v *VNode) BodyString() string { return v.body }

// Children returns a copy of the ordered child list.
func (v *VNode) Children() []*VNode { return slices.Clone(v.children) }

// Parents returns a copy of the parent list. A parent appears once per
// child slot it holds v in.
func (v *VNode) Parents() []*VNode { return slices.Clone(v.parents) }

func (v *VNode) NumberOfChildren() int { return len(v.children) }
func (v *VNode) HasChildren() bool     { return len(v.children) > 0 }

// ChildGeneration changes every time the child list is mutated.
func (v *VNode) ChildGeneration() uint64 { return v.childGen }

// SetHeadString replaces the headline. Embedded newlines are removed.
func (v *VNode) SetHeadString(s string) {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	v.head = s
	v.kind, v.fileName = classify(s)
}

func (v *VNode) SetBodyString(s string) { v.body = s }

// -----------------------------------------------------------------------------
// Status bits
// -----------------------------------------------------------------------------

func (v *VNode) Status() Status      { return v.status }
func (v *VNode) SetStatus(s Status)  { v.status = s }
func (v *VNode) has(bit Status) bool { return v.status&bit != 0 }
func (v *VNode) set(bit Status, b bool) {
	if b {
		v.status |= bit
	} else {
		v.status &^= bit
	}
}

func (v *VNode) IsDirty() bool    { return v.has(StatusDirty) }
func (v *VNode) SetDirty()        { v.set(StatusDirty, true) }
func (v *VNode) ClearDirty()      { v.set(StatusDirty, false) }
func (v *VNode) IsMarked() bool   { return v.has(StatusMarked) }
func (v *VNode) SetMarked(b bool) { v.set(StatusMarked, b) }

func (v *VNode) IsSelected() bool   { return v.has(StatusSelected) }
func (v *VNode) SetSelected(b bool) { v.set(StatusSelected, b) }
func (v *VNode) IsOrphan() bool     { return v.has(StatusOrphan) }
func (v *VNode) SetOrphan(b bool)   { v.set(StatusOrphan, b) }
func (v *VNode) IsExpanded() bool   { return v.has(StatusExpanded) }
func (v *VNode) SetExpanded(b bool) { v.set(StatusExpanded, b) }
func (v *VNode) IsVisited() bool    { return v.has(StatusVisited) }
func (v *VNode) SetVisited(b bool)  { v.set(StatusVisited, b) }
func (v *VNode) IsWritePending() bool {
	return v.has(StatusWrite)
}
func (v *VNode) SetWritePending(b bool) { v.set(StatusWrite, b) }

// IsCloned reports whether v has more than one parent link.
func (v *VNode) IsCloned() bool { return len(v.parents) > 1 }

// -----------------------------------------------------------------------------
// Directive predicates
// -----------------------------------------------------------------------------

// Kind returns the headline's @file-family classification.
func (v *VNode) Kind() Kind { return v.kind }

func (v *VNode) IsAtFileNode() bool       { return v.kind == KindAtFile }
func (v *VNode) IsAtThinNode() bool       { return v.kind == KindAtThin }
func (v *VNode) IsAtAutoNode() bool       { return v.kind == KindAtAuto }
func (v *VNode) IsAtEditNode() bool       { return v.kind == KindAtEdit }
func (v *VNode) IsAtCleanNode() bool      { return v.kind == KindAtClean }
func (v *VNode) IsAtShadowFileNode() bool { return v.kind == KindAtShadow }
func (v *VNode) IsAtAsisFileNode() bool   { return v.kind == KindAtAsis }
func (v *VNode) IsAtNoSentFileNode() bool { return v.kind == KindAtNoSent }
func (v *VNode) IsAnyAtFileNode() bool    { return v.kind != KindPlain }

// AnyAtFileNodeName returns the file named by an @file-family headline.
func (v *VNode) AnyAtFileNodeName() string { return v.fileName }

// IsAtIgnoreNode is true when the headline starts with @ignore or any body
// line does.
func (v *VNode) IsAtIgnoreNode() bool {
	return MatchWord(v.head, "@ignore") || bodyHasDirective(v.body, "@ignore", false)
}

// IsAtOthersNode is true when a body line, possibly indented, is @others.
func (v *VNode) IsAtOthersNode() bool { return bodyHasDirective(v.body, "@others", true) }

func (v *VNode) IsAtAllNode() bool  { return bodyHasDirective(v.body, "@all", false) }
func (v *VNode) IsAtRootNode() bool { return bodyHasDirective(v.body, "@root", false) }

// MatchHeadline reports whether the headline starts with the directive.
func (v *VNode) MatchHeadline(directive string) bool { return MatchWord(v.head, directive) }

// -----------------------------------------------------------------------------
// Links
// -----------------------------------------------------------------------------

// AddChildLink inserts v into parent's children at index.
func (v *VNode) AddChildLink(index int, parent *VNode) {
	v.addLink(index, parent)
}

// CutLink removes the child slot parent.children[index], which must be v.
func (v *VNode) CutLink(index int, parent *VNode) {
	v.cutLink(index, parent)
}

func (v *VNode) addLink(index int, parent *VNode) {
	if index < 0 {
		index = 0
	}
	if index > len(parent.children) {
		index = len(parent.children)
	}
	parent.children = slices.Insert(parent.children, index, v)
	parent.childGen++
	v.addParentLinks(parent)
	if o := v.outline; o != nil {
		o.shiftTracked(parent, index, +1)
		o.changed = true
	}
}

// addParentLinks appends parent to v.parents. When this is v's first
// parent, links cut from v's descendants are restored as well.
func (v *VNode) addParentLinks(parent *VNode) {
	v.parents = append(v.parents, parent)
	if len(v.parents) == 1 {
		for _, child := range v.children {
			child.addParentLinks(v)
		}
	}
}

func (v *VNode) cutLink(index int, parent *VNode) {
	if index < 0 || index >= len(parent.children) || parent.children[index] != v {
		if o := v.outline; o != nil {
			o.log.Warn("cutLink: child slot mismatch", "gnx", v.gnx, "parent", parent.gnx, "index", index)
		}
		return
	}
	parent.children = slices.Delete(parent.children, index, index+1)
	parent.childGen++
	v.cutParentLinks(parent)
	if o := v.outline; o != nil {
		o.shiftTracked(parent, index, -1)
		o.changed = true
	}
}

// cutParentLinks removes one parent link from v. When v loses its last
// parent, its descendants drop their links to v as well.
func (v *VNode) cutParentLinks(parent *VNode) {
	i := slices.Index(v.parents, parent)
	if i < 0 {
		return
	}
	v.parents = slices.Delete(v.parents, i, i+1)
	if len(v.parents) == 0 {
		for _, child := range v.children {
			child.cutParentLinks(v)
		}
	}
}

// -----------------------------------------------------------------------------
// Closures
// -----------------------------------------------------------------------------

// FindAllPotentiallyDirtyNodes returns v plus every vnode reachable through
// parent links, excluding the hidden root.
func (v *VNode) FindAllPotentiallyDirtyNodes() []*VNode {
	seen := roaring.New()
	var nodes []*VNode
	queue := []*VNode{v}
	seen.Add(v.id)
	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		if w.gnx != HiddenRootGnx {
			nodes = append(nodes, w)
		}
		for _, p := range w.parents {
			if seen.CheckedAdd(p.id) {
				queue = append(queue, p)
			}
		}
	}
	return nodes
}

// IsAncestorOfVNode reports whether w is reachable from v through child
// links. v is not its own ancestor.
func (v *VNode) IsAncestorOfVNode(w *VNode) bool {
	seen := roaring.New()
	stack := slices.Clone(v.children)
	for len(stack) > 0 {
		n := len(stack) - 1
		c := stack[n]
		stack = stack[:n]
		if c == w {
			return true
		}
		if seen.CheckedAdd(c.id) {
			stack = append(stack, c.children...)
		}
	}
	return false
}

// SelfAndSubtree returns v and its descendants, each vnode once.
func (v *VNode) SelfAndSubtree() []*VNode {
	seen := roaring.New()
	var out []*VNode
	var walk func(*VNode)
	walk = func(w *VNode) {
		if !seen.CheckedAdd(w.id) {
			return
		}
		out = append(out, w)
		for _, c := range w.children {
			walk(c)
		}
	}
	walk(v)
	return out
}
