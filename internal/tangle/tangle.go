// Package tangle expands @root trees of an outline into derived files and
// propagates edits of those files back into the outline.
//
// Both directions share one scanner. Tangle collects section definitions
// into a per-call symbol table and writes every @root with sentinel
// comments around each expansion. Untangle reads the sentinels back into a
// second table and compares each definition of the outline, at the point
// where the scanner reports it, with the text found in the file.
package tangle

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/leo-editor/leo/internal/outline"
)

// Defaults for Options.
const (
	DefaultLanguage   = "python"
	DefaultTabWidth   = -4
	DefaultErrorLimit = 20
)

// Options configure an Engine. Directives in the outline override
// Language, TabWidth and Mode per node.
type Options struct {
	Language   string
	TabWidth   int  // positive: indent with tabs; negative: with spaces
	Mode       Mode // default print mode
	Header     bool // write a "tangled from" banner
	ErrorLimit int
	Validate   bool // tree-sitter check of written files
	FormatGo   bool // gofumpt silent Go roots
	Logger     *slog.Logger
}

// Engine runs tangle and untangle over one outline. Derived files are read
// from and written to fs.
type Engine struct {
	o    *outline.Outline
	fs   billy.Filesystem
	opts Options
	log  *slog.Logger
}

// New returns an engine with defaults filled in.
func New(o *outline.Outline, fs billy.Filesystem, opts Options) *Engine {
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.TabWidth == 0 {
		opts.TabWidth = DefaultTabWidth
	}
	if opts.ErrorLimit <= 0 {
		opts.ErrorLimit = DefaultErrorLimit
	}
	if opts.Logger == nil {
		opts.Logger = o.Logger()
	}
	return &Engine{o: o, fs: fs, opts: opts, log: opts.Logger.With("component", "tangle")}
}

// Tangle writes every @root in p's tree.
func (e *Engine) Tangle(p *outline.Position) *Result {
	res := &Result{}
	e.tangleTree(p, res)
	return res
}

// TangleAll tangles each top-level tree.
func (e *Engine) TangleAll() *Result {
	res := &Result{}
	for p := e.o.RootPosition(); p.Valid(); p.MoveToNext() {
		e.tangleTree(p, res)
	}
	return res
}

// TangleMarked tangles the tree of each marked node. Marked nodes inside an
// already tangled tree are not visited again.
func (e *Engine) TangleMarked() *Result {
	res := &Result{}
	e.eachMarked(func(p *outline.Position) { e.tangleTree(p, res) })
	return res
}

func (e *Engine) eachMarked(f func(p *outline.Position)) {
	for p := e.o.RootPosition(); p.Valid(); {
		if p.V().IsMarked() {
			f(p.Copy())
			p.MoveToNodeAfterTree()
			continue
		}
		p.MoveToThreadNext()
	}
}

func (e *Engine) tangleTree(p *outline.Position, res *Result) {
	if !p.Valid() {
		return
	}
	s := e.newSession()
	s.findRoots(p)
	if len(s.roots) == 0 && !s.aborted {
		e.log.Warn("no @root in tree", "node", p.HeadString())
	}
	s.warnUnused()
	var roots []RootResult
	for _, r := range s.roots {
		if s.aborted {
			roots = append(roots, RootResult{Path: r.path, Status: StatusSkipped, Err: ErrTooManyErrors})
			continue
		}
		roots = append(roots, s.putRoot(r))
	}
	res.merge(s, roots)
}

// putRoot renders r and writes it unless the file already matches.
func (s *session) putRoot(r *root) RootResult {
	text, err := s.render(r)
	if err != nil {
		s.error(err, "path", r.path)
		return RootResult{Path: r.path, Status: StatusFailed, Err: err}
	}
	if s.aborted {
		return RootResult{Path: r.path, Status: StatusSkipped, Err: ErrTooManyErrors}
	}
	data := []byte(text)
	if r.scope.mode == ModeSilent && s.e.opts.FormatGo {
		data = formatGo(data, r.path)
	}
	if s.e.opts.Validate {
		if err := Validate(context.Background(), data, r.path); err != nil {
			s.log.Warn("tangled output does not parse", "path", r.path, "err", err)
		}
	}
	changed, err := writeFile(s.e.fs, r.path, data)
	if err != nil {
		s.log.Error("cannot write root", "path", r.path, "err", err)
		return RootResult{Path: r.path, Status: StatusFailed, Err: err}
	}
	if !changed {
		s.log.Info("unchanged", "path", r.path)
		return RootResult{Path: r.path, Status: StatusUnchanged}
	}
	s.log.Info("tangled", "path", r.path)
	return RootResult{Path: r.path, Status: StatusWritten}
}

func headerText(path string) string { return "tangled from @root " + path }

// render expands r into the text of its derived file.
func (s *session) render(r *root) (string, error) {
	sc := r.scope
	if sc.mode != ModeSilent && sc.delims.IsZero() {
		return "", fmt.Errorf("%w %q", ErrNoDelimiters, sc.lang.Name)
	}
	w := &writer{s: s, sc: sc, root: r.path}
	if s.e.opts.Header && sc.mode != ModeQuiet && sc.mode != ModeSilent {
		w.line(sc.delims.comment(headerText(r.path)))
	}
	if sc.mode == ModeVerbose {
		w.putDoc(r.doc, 0)
	}
	w.putCode(r.code, 0)
	return w.buf.String(), nil
}

// writer expands code into a buffer. Indentation is measured in columns.
type writer struct {
	s     *session
	sc    scope
	root  string
	buf   strings.Builder
	stack []string
}

func (w *writer) line(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}

func (w *writer) putDoc(doc string, indent int) {
	for l := range strings.Lines(doc) {
		w.line(w.sc.indent(indent) + w.sc.delims.comment(strings.TrimRight(l, "\r\n")))
	}
}

func (w *writer) putCode(code string, indent int) bool {
	for l := range strings.Lines(code) {
		if !w.putLine(strings.TrimRight(l, "\r\n"), indent) {
			return false
		}
	}
	return true
}

// putLine writes one code line at indentation outer, expanding its first
// section reference. An expansion starts at the column of its reference,
// or one tab stop further when text precedes the reference. Text after a
// reference continues on a new line.
func (w *writer) putLine(line string, outer int) bool {
	if strings.TrimSpace(line) == "" {
		w.buf.WriteByte('\n')
		return true
	}
	ws := leadingWS(line)
	i, j, ok := findRef(line, len(ws))
	if !ok {
		w.line(w.sc.indent(outer) + line)
		return true
	}
	raw := line[i+2 : j-2]
	rest := strings.TrimLeft(line[j:], " \t")
	width := wsWidth(ws, w.sc.tab())
	if i == len(ws) {
		if !w.putSection(raw, outer+width, false, rest != "") {
			return false
		}
	} else {
		w.line(w.sc.indent(outer) + line[:i])
		if !w.putSection(raw, outer+width+w.sc.tab(), true, rest != "") {
			return false
		}
	}
	if rest == "" {
		return true
	}
	return w.putLine(rest, outer+width)
}

// putSection writes every part of a section between sentinels.
func (w *writer) putSection(raw string, indent int, newlineBefore, newlineAfter bool) bool {
	name := StandardizeName(raw)
	ind := w.sc.indent(indent)
	ref := "<<" + raw + ">>"
	if slices.Contains(w.stack, name) {
		w.line(ind + ref)
		return w.s.error(ErrRecursiveSection, "section", ref, "root", w.root)
	}
	sec := w.s.sections[name]
	if sec == nil || len(sec.parts) == 0 {
		w.line(ind + ref)
		return w.s.error(ErrUndefinedSection, "section", ref, "root", w.root)
	}

	w.stack = append(w.stack, name)
	defer func() { w.stack = w.stack[:len(w.stack)-1] }()

	sentinels := w.sc.mode != ModeSilent
	m := len(sec.parts)
	for k, pt := range sec.parts {
		if sentinels {
			s := ref
			if m > 1 {
				s += fmt.Sprintf(" (%d of %d)", k+1, m)
			}
			if newlineBefore && k == 0 {
				s += " (!newline)"
			}
			w.line(ind + w.sc.delims.comment(s))
		}
		if w.sc.mode == ModeVerbose {
			w.putDoc(pt.doc, indent)
		}
		if !w.putCode(pt.code, indent) {
			return false
		}
	}
	if sentinels {
		s := ref + " -- end --"
		if newlineAfter {
			s += " (!newline)"
		}
		w.line(ind + w.sc.delims.comment(s))
	}
	return true
}
