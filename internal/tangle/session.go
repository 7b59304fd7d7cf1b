package tangle

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"

	"github.com/leo-editor/leo/internal/outline"
)

// part is one definition of a section.
type part struct {
	code string
	doc  string
	node *outline.Position
	line int
}

type section struct {
	name       string
	raw        string
	parts      []*part
	referenced bool
}

// definition identifies one definition in the outline. A cloned node is
// visited once per position but defines its sections once.
type definition struct {
	v     *outline.VNode
	start int
}

type root struct {
	path  string
	code  string
	doc   string
	node  *outline.Position
	scope scope
	line  int
}

// session holds the symbol table and error state of one tangle or untangle
// invocation. It is created per call and dropped afterwards.
type session struct {
	e        *Engine
	log      *slog.Logger
	sections map[string]*section
	order    []string
	roots    []*root
	paths    map[string]bool
	defined  map[definition]bool
	errors   int
	aborted  bool
}

func (e *Engine) newSession() *session {
	return &session{
		e:        e,
		log:      e.log,
		sections: make(map[string]*section),
		paths:    make(map[string]bool),
		defined:  make(map[definition]bool),
	}
}

// error counts a semantic error. It returns false once the session has
// exceeded the error limit and the walk must stop.
func (s *session) error(err error, args ...any) bool {
	if s.aborted {
		return false
	}
	s.errors++
	s.log.Error(err.Error(), args...)
	if s.errors > s.e.opts.ErrorLimit {
		s.log.Error(ErrTooManyErrors.Error(), "limit", s.e.opts.ErrorLimit)
		s.aborted = true
		return false
	}
	return true
}

func (s *session) lookup(name string) *section {
	sec := s.sections[name]
	if sec == nil {
		sec = &section{name: name}
		s.sections[name] = sec
		s.order = append(s.order, name)
	}
	return sec
}

// enter records a definition. A definition with neither code nor doc only
// marks its section as referenced.
func (s *session) enter(ev Event, node *outline.Position) {
	for _, r := range ev.Refs {
		sec := s.lookup(StandardizeName(r))
		sec.referenced = true
	}
	if ev.Kind == EventRoot {
		return
	}
	sec := s.lookup(ev.Name)
	if sec.raw == "" {
		sec.raw = ev.Raw
	}
	if ev.Code == "" && ev.Doc == "" {
		sec.referenced = true
		return
	}
	d := definition{v: node.V(), start: ev.CodeStart}
	if s.defined[d] {
		return
	}
	s.defined[d] = true
	sec.parts = append(sec.parts, &part{code: ev.Code, doc: ev.Doc, node: node.Copy(), line: ev.Line})
}

// addRoot validates and records a root definition.
func (s *session) addRoot(ev Event, node *outline.Position, sc scope) bool {
	if ev.Path == "" {
		return s.error(ErrEmptyRootPath, "node", node.HeadString(), "line", ev.Line)
	}
	p := ev.Path
	if sc.path != "" && !path.IsAbs(p) {
		p = path.Join(sc.path, p)
	}
	p = path.Clean(p)
	if s.paths[p] {
		return s.error(ErrDuplicateRoot, "path", p, "node", node.HeadString())
	}
	s.paths[p] = true
	s.roots = append(s.roots, &root{path: p, code: ev.Code, doc: ev.Doc, node: node.Copy(), scope: sc, line: ev.Line})
	return true
}

// walk visits p's subtree in outline order, skipping @ignore trees. visit
// returns false to stop.
func (s *session) walk(p *outline.Position, visit func(q *outline.Position, sc scope) bool) {
	if s.e.scopeFor(p).ignored {
		return
	}
	after := p.NodeAfterTree()
	for q := p.Copy(); q.Valid() && !q.Equal(after); {
		if q.V().IsAtIgnoreNode() {
			q.MoveToNodeAfterTree()
			continue
		}
		if !visit(q, s.e.scopeFor(q)) {
			return
		}
		q.MoveToThreadNext()
	}
}

// pass1 builds the symbol table and root list for p's subtree.
func (s *session) pass1(p *outline.Position) {
	s.walk(p, func(q *outline.Position, sc scope) bool {
		for ev := range Scan(q.HeadString(), q.BodyString()) {
			if ev.Err != nil {
				if !s.error(ev.Err, "node", q.HeadString(), "line", ev.Line) {
					return false
				}
				continue
			}
			s.enter(ev, q)
			if ev.Kind == EventRoot && !s.addRoot(ev, q, sc) {
				return false
			}
		}
		return true
	})
}

// warnUnused reports sections that are defined but never referenced.
func (s *session) warnUnused() {
	for _, name := range s.order {
		sec := s.sections[name]
		if len(sec.parts) > 0 && !sec.referenced {
			s.log.Warn("section defined but not used", "section", "<<"+sec.raw+">>")
		}
	}
}

// findRoots runs pass 1 on p's subtree. When the subtree holds no root, the
// nearest ancestor whose body declares @root is scanned instead.
func (s *session) findRoots(p *outline.Position) *outline.Position {
	s.pass1(p)
	if len(s.roots) > 0 || s.aborted {
		return p
	}
	for q := range p.Parents() {
		if q.V().IsAtRootNode() {
			*s = *s.e.newSession()
			s.pass1(q)
			return q
		}
	}
	return p
}

// Result summarizes one engine call.
type Result struct {
	Roots   []RootResult
	Errors  int
	Aborted bool
	Changed bool
}

// Status of a processed root.
type Status string

const (
	StatusWritten   Status = "written"
	StatusUnchanged Status = "unchanged"
	StatusUpdated   Status = "updated"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// RootResult is the outcome of one @root.
type RootResult struct {
	Path   string
	Status Status
	Err    error
}

func (r *Result) merge(s *session, roots []RootResult) {
	r.Roots = append(r.Roots, roots...)
	r.Errors += s.errors
	r.Aborted = r.Aborted || s.aborted
	for _, rr := range roots {
		if rr.Status == StatusWritten || rr.Status == StatusUpdated {
			r.Changed = true
		}
	}
}

// Err joins the errors of failed roots.
func (r *Result) Err() error {
	var errs []error
	for _, rr := range r.Roots {
		if rr.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rr.Path, rr.Err))
		}
	}
	if r.Aborted {
		errs = append(errs, ErrTooManyErrors)
	}
	return errors.Join(errs...)
}

// Paths returns the root paths in processing order.
func (r *Result) Paths() []string {
	out := make([]string, 0, len(r.Roots))
	for _, rr := range r.Roots {
		out = append(out, rr.Path)
	}
	return slices.Clip(out)
}
