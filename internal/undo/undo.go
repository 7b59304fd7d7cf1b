// Package undo records the bunches an outline hands to its undoer and
// replays them backwards and forwards.
package undo

import (
	"errors"
	"log/slog"

	"github.com/leo-editor/leo/internal/outline"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultLimit is the number of bunches kept when New is given 0.
const DefaultLimit = 100

// Recorder is an outline.Undoer keeping a bounded undo stack. Undo and Redo
// restore bodies, headlines, marks and captured child lists, and revert the
// dirty bits the operation set.
type Recorder struct {
	o     *outline.Outline
	log   *slog.Logger
	limit int

	undo []*outline.Bunch
	redo []*outline.Bunch
}

var _ outline.Undoer = (*Recorder)(nil)

// New returns a recorder installed as o's undoer.
func New(o *outline.Outline, limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultLimit
	}
	r := &Recorder{o: o, log: o.Logger().With("component", "undo"), limit: limit}
	o.SetUndoer(r)
	return r
}

func (r *Recorder) Before(*outline.Bunch) {}

// After records b and clears the redo stack. Failed operations that changed
// nothing are ignored. A bunch that carries neither content nor child lists
// cannot be replayed, so the history behind it is dropped with it.
func (r *Recorder) After(b *outline.Bunch) {
	if b.Err != nil && !b.Changed() {
		return
	}
	r.redo = nil
	if !replayable(b) {
		r.log.Debug("dropping undo history", "op", b.Op, "bunches", len(r.undo))
		r.undo = nil
		return
	}
	r.undo = append(r.undo, b)
	if len(r.undo) > r.limit {
		r.undo = r.undo[len(r.undo)-r.limit:]
	}
}

func (r *Recorder) CanUndo() bool { return len(r.undo) > 0 }
func (r *Recorder) CanRedo() bool { return len(r.redo) > 0 }

// Last returns the most recent undoable bunch, or nil.
func (r *Recorder) Last() *outline.Bunch {
	if len(r.undo) == 0 {
		return nil
	}
	return r.undo[len(r.undo)-1]
}

// Undo reverts the most recent operation.
func (r *Recorder) Undo() (*outline.Bunch, error) {
	b := r.Last()
	if b == nil {
		return nil, ErrNothingToUndo
	}
	r.apply(b, true)
	r.undo = r.undo[:len(r.undo)-1]
	r.redo = append(r.redo, b)
	r.log.Debug("undo", "op", b.Op)
	return b, nil
}

// Redo reapplies the most recently undone operation.
func (r *Recorder) Redo() (*outline.Bunch, error) {
	if len(r.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	b := r.redo[len(r.redo)-1]
	r.apply(b, false)
	r.redo = r.redo[:len(r.redo)-1]
	r.undo = append(r.undo, b)
	r.log.Debug("redo", "op", b.Op)
	return b, nil
}

func (r *Recorder) apply(b *outline.Bunch, back bool) {
	if v := b.V; v != nil && contentOp(b.Op) {
		body, head, marked := b.NewBody, b.NewHead, !b.OldMarked
		if back {
			body, head, marked = b.OldBody, b.OldHead, b.OldMarked
		}
		switch b.Op {
		case outline.OpMark:
			v.SetMarked(marked)
		case outline.OpChangeHead:
			v.SetHeadString(head)
		default:
			v.SetBodyString(body)
		}
	}
	for i := range b.Lists {
		l := b.Lists[i]
		children := l.New
		if back {
			l = b.Lists[len(b.Lists)-1-i]
			children = l.Old
		}
		r.o.RestoreChildren(l.Parent, children)
	}
	for _, v := range b.Dirty {
		if back {
			v.ClearDirty()
		} else {
			v.SetDirty()
		}
	}
}

func replayable(b *outline.Bunch) bool {
	return len(b.Lists) > 0 || (b.V != nil && contentOp(b.Op))
}

func contentOp(op outline.Op) bool {
	switch op {
	case outline.OpChangeBody, outline.OpChangeHead, outline.OpMark, outline.OpUntangle:
		return true
	}
	return false
}
