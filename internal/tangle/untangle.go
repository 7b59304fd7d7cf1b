package tangle

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/leo-editor/leo/internal/outline"
)

// Untangle updates the definitions in p's tree from the derived files of
// its roots.
func (e *Engine) Untangle(p *outline.Position) *Result {
	res := &Result{}
	e.untangleTree(p, res)
	return res
}

// UntangleAll untangles each top-level tree.
func (e *Engine) UntangleAll() *Result {
	res := &Result{}
	for p := e.o.RootPosition(); p.Valid(); p.MoveToNext() {
		e.untangleTree(p, res)
	}
	return res
}

// UntangleMarked untangles the tree of each marked node.
func (e *Engine) UntangleMarked() *Result {
	res := &Result{}
	e.eachMarked(func(p *outline.Position) { e.untangleTree(p, res) })
	return res
}

func (e *Engine) untangleTree(p *outline.Position, res *Result) {
	if !p.Valid() {
		return
	}
	s := e.newSession()
	top := s.findRoots(p)
	var roots []RootResult
	for _, r := range s.roots {
		if s.aborted {
			roots = append(roots, RootResult{Path: r.path, Status: StatusSkipped, Err: ErrTooManyErrors})
			continue
		}
		roots = append(roots, s.untangleRoot(r, top))
	}
	res.merge(s, roots)
}

// ustKey identifies a definition in a derived file: the root itself, or
// part k (1-based) of a section.
type ustKey struct {
	name string
	part int
}

type ustEntry struct {
	raw     string
	code    string
	updated bool
}

type defFrame struct {
	name   string
	raw    string
	part   int
	indent int
	acc    []byte
}

func (f *defFrame) write(s string) { f.acc = append(f.acc, s...) }

// sentinelPattern matches the sentinel lines written with d. The groups
// are indentation, name, part, part count, end marker and newline flag.
func sentinelPattern(d Delims) *regexp.Regexp {
	return regexp.MustCompile(`^([ \t]*)` + regexp.QuoteMeta(d.open()) +
		` <<(.+?)>>(?: \((\d+) of (\d+)\))?( -- end --)?( \(!newline\))?` +
		regexp.QuoteMeta(d.close()) + `[ \t]*$`)
}

// scanDerived rebuilds the definitions of a derived file from its
// sentinels. Mismatched sentinels are reported and skipped.
func (s *session) scanDerived(text string, r *root) map[ustKey]*ustEntry {
	re := sentinelPattern(r.scope.delims)
	tab := r.scope.tab()
	header := r.scope.delims.comment(headerText(r.path))
	ust := make(map[ustKey]*ustEntry)
	stack := []*defFrame{{}}
	pendingJoin := false

	finalize := func(f *defFrame, lineNo int) {
		key := ustKey{name: f.name, part: f.part}
		code := string(f.acc)
		f.acc = f.acc[:0]
		if old, ok := ust[key]; ok {
			if trimCode(old.code) != trimCode(code) {
				s.error(ErrIncompatibleDefinition, "path", r.path, "line", lineNo, "section", "<<"+f.raw+">>")
			}
			return
		}
		ust[key] = &ustEntry{raw: f.raw, code: code}
	}

	lineNo := 0
	for line := range strings.Lines(text) {
		if s.aborted {
			return ust
		}
		lineNo++
		l := strings.TrimRight(line, "\r\n")
		if lineNo == 1 && strings.TrimSpace(l) == header {
			continue
		}
		top := stack[len(stack)-1]
		m := re.FindStringSubmatch(l)
		if m == nil {
			if pendingJoin {
				top.write(strings.TrimLeft(l, " \t") + "\n")
				pendingJoin = false
			} else {
				top.write(removeLeadingWS(l, top.indent, tab) + "\n")
			}
			continue
		}

		ws, raw := m[1], m[2]
		name := StandardizeName(raw)
		k, _ := strconv.Atoi(m[3])
		isEnd, noNewline := m[5] != "", m[6] != ""

		if isEnd {
			if len(stack) == 1 || top.name != name {
				s.error(ErrSentinelMismatch, "path", r.path, "line", lineNo, "section", "<<"+raw+">>")
				continue
			}
			finalize(top, lineNo)
			stack = stack[:len(stack)-1]
			if noNewline {
				pendingJoin = true
			} else {
				stack[len(stack)-1].write("\n")
			}
			continue
		}

		if k > 1 {
			if len(stack) == 1 || top.name != name || top.part != k-1 {
				s.error(ErrSentinelMismatch, "path", r.path, "line", lineNo, "section", "<<"+raw+">>")
				continue
			}
			finalize(top, lineNo)
			top.part = k
			continue
		}

		ref := "<<" + raw + ">>"
		switch {
		case noNewline:
			top.acc = []byte(strings.TrimSuffix(string(top.acc), "\n"))
			top.write(ref)
		case pendingJoin:
			top.write(ref)
		default:
			top.write(removeLeadingWS(ws, top.indent, tab) + ref)
		}
		pendingJoin = false
		stack = append(stack, &defFrame{name: name, raw: raw, part: 1, indent: wsWidth(ws, tab)})
	}
	for len(stack) > 1 {
		top := stack[len(stack)-1]
		s.error(ErrUnterminatedSection, "path", r.path, "section", "<<"+top.raw+">>")
		stack = stack[:len(stack)-1]
	}
	finalize(stack[0], lineNo)
	return ust
}

// replacement is a pending body edit of one node.
type replacement struct {
	start, end int
	text       string
}

// untangleRoot compares the definitions of the tree at top with the
// derived file of r and rewrites the ones that differ.
func (s *session) untangleRoot(r *root, top *outline.Position) RootResult {
	if r.scope.mode == ModeSilent {
		s.log.Warn(ErrSilentRoot.Error(), "path", r.path)
		return RootResult{Path: r.path, Status: StatusSkipped, Err: ErrSilentRoot}
	}
	if r.scope.delims.IsZero() {
		s.error(ErrNoDelimiters, "path", r.path, "language", r.scope.lang.Name)
		return RootResult{Path: r.path, Status: StatusFailed, Err: ErrNoDelimiters}
	}
	text, err := readFile(s.e.fs, r.path)
	if err != nil {
		s.log.Error("cannot read root", "path", r.path, "err", err)
		return RootResult{Path: r.path, Status: StatusFailed, Err: err}
	}
	ust := s.scanDerived(text, r)
	if s.aborted {
		return RootResult{Path: r.path, Status: StatusSkipped, Err: ErrTooManyErrors}
	}

	type pending struct {
		p     *outline.Position
		body  string
		edits []replacement
	}
	var order []*outline.VNode
	nodes := make(map[*outline.VNode]*pending)
	occurrence := make(map[string]int)
	seen := make(map[definition]bool)
	verbose := r.scope.mode == ModeVerbose

	s.walk(top, func(q *outline.Position, sc scope) bool {
		for ev := range Scan(q.HeadString(), q.BodyString()) {
			if ev.Err != nil {
				continue
			}
			var key ustKey
			switch ev.Kind {
			case EventRoot:
				if !q.Equal(r.node) || ev.Line != r.line {
					continue
				}
			default:
				if ev.Code == "" && ev.Doc == "" {
					continue
				}
				d := definition{v: q.V(), start: ev.CodeStart}
				if seen[d] {
					continue
				}
				seen[d] = true
				occurrence[ev.Name]++
				key = ustKey{name: ev.Name, part: occurrence[ev.Name]}
			}
			entry, ok := ust[key]
			if !ok {
				continue
			}
			entry.updated = true
			fileCode := entry.code
			if verbose && ev.Doc != "" {
				fileCode = dropLines(fileCode, lineCount(ev.Doc))
			}
			fileCode = trimCode(fileCode)
			if ForgivingCompare(ev.Code, fileCode, sc.lang) {
				continue
			}
			pn := nodes[q.V()]
			if pn == nil {
				pn = &pending{p: q.Copy(), body: q.BodyString()}
				nodes[q.V()] = pn
				order = append(order, q.V())
			}
			pn.edits = append(pn.edits, replacement{
				start: ev.CodeStart,
				end:   ev.CodeEnd,
				text:  spliceCode(pn.body[ev.CodeStart:ev.CodeEnd], fileCode, ev.Tail != ""),
			})
			s.log.Info("updated from derived file", "node", q.HeadString(), "path", r.path, "section", ev.Raw)
		}
		return true
	})

	keys := make([]ustKey, 0, len(ust))
	for k, entry := range ust {
		if !entry.updated {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b ustKey) int {
		return cmp.Or(cmp.Compare(a.name, b.name), cmp.Compare(a.part, b.part))
	})
	for _, k := range keys {
		s.log.Warn("definition in derived file not found in outline", "path", r.path, "section", "<<"+ust[k].raw+">>", "part", k.part)
	}

	for _, v := range order {
		pn := nodes[v]
		body := pn.body
		slices.SortFunc(pn.edits, func(a, b replacement) int { return cmp.Compare(b.start, a.start) })
		for _, ed := range pn.edits {
			body = body[:ed.start] + ed.text + body[ed.end:]
		}
		if err := s.e.o.SetBodyOp(pn.p, body, outline.OpUntangle); err != nil {
			s.log.Error("cannot update node", "node", pn.p.HeadString(), "err", err)
		}
	}
	if len(order) == 0 {
		return RootResult{Path: r.path, Status: StatusUnchanged}
	}
	return RootResult{Path: r.path, Status: StatusUpdated}
}

// spliceCode replaces the code of a raw code region, keeping the region's
// leading blank lines and trailing whitespace.
func spliceCode(raw, code string, hasTail bool) string {
	lead := raw[:len(raw)-len(trimLeadingBlankLines(raw))]
	rest := raw[len(lead):]
	trail := rest[len(strings.TrimRight(rest, " \t\r\n")):]
	if trail == "" && hasTail && code != "" {
		trail = "\n"
	}
	return lead + code + trail
}

func lineCount(s string) int {
	n := 0
	for range strings.Lines(s) {
		n++
	}
	return n
}

// dropLines removes the first n lines of s.
func dropLines(s string, n int) string {
	for ; n > 0 && s != ""; n-- {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			return ""
		}
		s = s[i+1:]
	}
	return s
}
