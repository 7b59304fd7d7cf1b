package outline

import "slices"

// Op names the commander operation captured in a Bunch.
type Op string

const (
	OpInsert     Op = "insert"
	OpDelete     Op = "delete"
	OpClone      Op = "clone"
	OpMove       Op = "move"
	OpPromote    Op = "promote"
	OpDemote     Op = "demote"
	OpSort       Op = "sort"
	OpChangeBody Op = "change-body"
	OpChangeHead Op = "change-head"
	OpMark       Op = "mark"
	OpUntangle   Op = "untangle"
)

// Bunch is the record handed to the undoer around one operation. Before
// fills the Old* fields; After also sees the New* fields and Dirty, the
// exact list of vnodes whose dirty bit went from false to true. Every
// Before is followed by exactly one After, also when the operation fails.
type Bunch struct {
	Op     Op
	P      *Position // copy of the target position before the change
	Target *Position // resulting position, when the operation makes one
	V      *VNode

	OldBody, NewBody string
	OldHead, NewHead string
	OldMarked        bool

	// Lists holds the child list of every parent a structural operation
	// changed, in the order they were captured.
	Lists []ChildList

	Dirty []*VNode

	// Err is set when the operation failed after Before was called.
	Err error
}

// Changed reports whether the operation altered the node's content or one
// of the captured child lists.
func (b *Bunch) Changed() bool {
	for _, l := range b.Lists {
		if !slices.Equal(l.Old, l.New) {
			return true
		}
	}
	if b.V == nil {
		return false
	}
	return b.OldBody != b.NewBody || b.OldHead != b.NewHead || b.OldMarked != b.V.IsMarked()
}

// ChildList is one parent's children before and after an operation.
type ChildList struct {
	Parent *VNode
	Old    []*VNode
	New    []*VNode
}

// Undoer receives Before/After calls for every commander operation.
type Undoer interface {
	Before(b *Bunch)
	After(b *Bunch)
}

// NopUndoer ignores every call.
type NopUndoer struct{}

func (NopUndoer) Before(*Bunch) {}
func (NopUndoer) After(*Bunch)  {}
