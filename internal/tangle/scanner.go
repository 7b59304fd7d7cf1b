package tangle

import (
	"iter"
	"strings"
)

// EventKind classifies a definition found by Scan.
type EventKind int

const (
	EventSection EventKind = iota // << name >>= ...
	EventCode                     // @code part of the headline's section
	EventRoot                     // @root path
)

func (k EventKind) String() string {
	switch k {
	case EventSection:
		return "section"
	case EventCode:
		return "code"
	case EventRoot:
		return "root"
	default:
		return "unknown"
	}
}

// Event is one definition in a body, reported when its code part ends.
// Code and Doc are normalized; CodeStart and CodeEnd delimit the raw code
// in the body, so Head + body[CodeStart:CodeEnd] + Tail is the whole body.
type Event struct {
	Kind      EventKind
	Name      string // standardized; empty for roots
	Raw       string // name as written between the brackets
	Path      string // root file name
	Code      string
	Doc       string
	Head      string
	Tail      string
	CodeStart int
	CodeEnd   int
	Line      int
	Refs      []string
	Err       error
}

// Scan reports the definitions of a body in order. The body starts in doc
// mode; doc text is attached to the definition that follows it.
func Scan(head, body string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		s := &scanner{head: head, body: body, yield: yield}
		s.run()
	}
}

type scanner struct {
	head, body string
	yield      func(Event) bool
	stopped    bool

	doc    strings.Builder
	inCode bool
	cur    *Event
}

func (s *scanner) emit(ev Event) {
	if !s.stopped && !s.yield(ev) {
		s.stopped = true
	}
}

func (s *scanner) run() {
	off, lineNo := 0, 0
	for line := range strings.Lines(s.body) {
		if s.stopped {
			return
		}
		lineNo++
		start := off
		off += len(line)
		text := strings.TrimRight(line, "\r\n")

		word, rest, isAt := atWord(text)
		switch {
		case isAt && (word == "" || word == "doc"):
			s.finish(start)
			s.inCode = false
			if rest = strings.TrimSpace(rest); rest != "" {
				s.doc.WriteString(rest + "\n")
			}
		case isAt && (word == "c" || word == "code"):
			s.finish(start)
			s.inCode = true
			raw, ok := headlineSection(s.head)
			if !ok {
				s.emit(Event{Kind: EventCode, Line: lineNo, Err: ErrCodeWithoutSection})
				s.doc.Reset()
				continue
			}
			s.open(EventCode, raw, "", off, lineNo)
		case isAt && word == "root":
			s.finish(start)
			s.inCode = true
			s.open(EventRoot, "", strings.TrimSpace(rest), off, lineNo)
		default:
			if raw, after, ok := sectionDefinition(text); ok {
				s.finish(start)
				s.inCode = true
				codeStart := off
				if strings.TrimSpace(after) != "" {
					codeStart = start + len(text) - len(strings.TrimLeft(after, " \t"))
				}
				s.open(EventSection, raw, "", codeStart, lineNo)
				continue
			}
			if _, _, ok := directiveLine(text); ok {
				if s.inCode {
					s.finish(start)
					s.inCode = false
				}
				continue
			}
			if !s.inCode {
				s.doc.WriteString(text + "\n")
			}
		}
	}
	s.finish(len(s.body))
}

func (s *scanner) open(kind EventKind, raw, path string, codeStart, line int) {
	ev := &Event{Kind: kind, Raw: raw, Path: path, CodeStart: codeStart, Line: line}
	if kind != EventRoot {
		ev.Name = StandardizeName(raw)
	}
	s.cur = ev
}

// finish closes the open definition at body offset end.
func (s *scanner) finish(end int) {
	ev := s.cur
	s.cur = nil
	if ev == nil {
		return
	}
	if ev.CodeStart > end {
		ev.CodeStart = end
	}
	ev.CodeEnd = end
	raw := s.body[ev.CodeStart:end]
	ev.Code = trimCode(raw)
	ev.Doc = strings.TrimRight(s.doc.String(), " \t\r\n")
	s.doc.Reset()
	ev.Head = s.body[:ev.CodeStart]
	ev.Tail = s.body[end:]
	for line := range strings.Lines(ev.Code) {
		for from := 0; ; {
			i, j, ok := findRef(line, from)
			if !ok {
				break
			}
			ev.Refs = append(ev.Refs, line[i+2:j-2])
			from = j
		}
	}
	s.emit(*ev)
}

// atWord splits a column-zero "@word rest" line. word is empty for a bare
// '@' followed by a blank or the end of the line.
func atWord(text string) (word, rest string, ok bool) {
	if !strings.HasPrefix(text, "@") {
		return "", "", false
	}
	n := 1
	for n < len(text) && isIdentByte(text[n]) {
		n++
	}
	if n < len(text) && text[n] != ' ' && text[n] != '\t' {
		return "", "", false
	}
	return strings.ToLower(text[1:n]), text[n:], true
}

// trimCode drops leading blank lines and trailing whitespace.
func trimCode(s string) string {
	return strings.TrimRight(trimLeadingBlankLines(s), " \t\r\n")
}

func trimLeadingBlankLines(s string) string {
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			if strings.TrimSpace(s) == "" {
				return ""
			}
			return s
		}
		if strings.TrimSpace(s[:i]) != "" {
			return s
		}
		s = s[i+1:]
	}
	return s
}
