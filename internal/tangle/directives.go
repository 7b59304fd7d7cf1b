package tangle

import (
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/leo-editor/leo/internal/outline"
)

// Mode is the print mode of a root.
type Mode int

const (
	ModeVerbose Mode = iota // sentinels and doc parts
	ModeTerse               // sentinels only
	ModeQuiet               // sentinels only, no header
	ModeSilent              // plain output; cannot be untangled
)

var modeNames = []string{"verbose", "terse", "quiet", "silent"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// ParseMode parses a print mode name.
func ParseMode(s string) (Mode, bool) {
	i := slices.Index(modeNames, strings.ToLower(strings.TrimSpace(s)))
	if i < 0 {
		return ModeVerbose, false
	}
	return Mode(i), true
}

// directiveWords are removed from code and doc text. Anything else that
// starts with '@' and is not a part directive stays in the code.
var directiveWords = map[string]bool{
	"language": true, "comment": true, "tabwidth": true, "pagewidth": true,
	"path": true, "verbose": true, "terse": true, "quiet": true, "silent": true,
	"ignore": true, "color": true, "nocolor": true, "killcolor": true,
	"nocolor-node": true, "wrap": true, "nowrap": true, "encoding": true,
	"lineending": true, "first": true, "last": true, "delims": true,
}

// directiveLine splits a column-zero "@word args" line.
func directiveLine(line string) (word, args string, ok bool) {
	if !strings.HasPrefix(line, "@") {
		return "", "", false
	}
	s := strings.TrimRight(line[1:], "\r\n")
	n := 0
	for n < len(s) && (isIdentByte(s[n]) || s[n] == '-') {
		n++
	}
	word = strings.ToLower(s[:n])
	if !directiveWords[word] {
		return "", "", false
	}
	if n < len(s) && s[n] != ' ' && s[n] != '\t' {
		return "", "", false
	}
	return word, strings.TrimSpace(s[n:]), true
}

// nodeDirectives are the settings a single body declares.
type nodeDirectives struct {
	language    string
	delims      Delims
	hasComment  bool
	tabWidth    int
	hasTabWidth bool
	mode        Mode
	hasMode     bool
	path        string
	hasPath     bool
}

func parseDirectives(body string) nodeDirectives {
	var d nodeDirectives
	for line := range strings.Lines(body) {
		word, args, ok := directiveLine(line)
		if !ok {
			continue
		}
		switch word {
		case "language":
			if d.language == "" {
				if f := strings.Fields(args); len(f) > 0 {
					d.language = strings.ToLower(f[0])
				}
			}
		case "comment":
			if dl, ok := ParseCommentDirective(args); ok && !d.hasComment {
				d.delims, d.hasComment = dl, true
			}
		case "tabwidth":
			if n, err := strconv.Atoi(args); err == nil && n != 0 && !d.hasTabWidth {
				d.tabWidth, d.hasTabWidth = n, true
			}
		case "verbose", "terse", "quiet", "silent":
			if !d.hasMode {
				d.mode, _ = ParseMode(word)
				d.hasMode = true
			}
		case "path":
			if args != "" && !d.hasPath {
				d.path, d.hasPath = args, true
			}
		}
	}
	return d
}

// scope is the effective directive state of one node: the nearest
// declaration wins, @path values join from the outermost inward.
type scope struct {
	lang     Language
	delims   Delims
	tabWidth int
	mode     Mode
	path     string
	ignored  bool
}

// tab is the width of one indentation level.
func (s scope) tab() int {
	if s.tabWidth < 0 {
		return -s.tabWidth
	}
	return s.tabWidth
}

// useTabs reports whether indentation is written with tab characters.
func (s scope) useTabs() bool { return s.tabWidth > 0 }

func (s scope) indent(width int) string {
	if width <= 0 {
		return ""
	}
	if !s.useTabs() {
		return strings.Repeat(" ", width)
	}
	return strings.Repeat("\t", width/s.tab()) + strings.Repeat(" ", width%s.tab())
}

func (e *Engine) scopeFor(p *outline.Position) scope {
	sc := scope{tabWidth: e.opts.TabWidth, mode: e.opts.Mode}
	sc.lang, _ = LookupLanguage(e.opts.Language)
	sc.delims = sc.lang.Delims

	var haveLang, haveDelims, haveTab, haveMode bool
	var paths []string
	for q := range p.SelfAndParents() {
		v := q.V()
		if v.IsAtIgnoreNode() {
			sc.ignored = true
		}
		d := parseDirectives(v.BodyString())
		if d.language != "" && !haveLang {
			if l, ok := LookupLanguage(d.language); ok {
				sc.lang, haveLang = l, true
			} else {
				e.log.Warn("unknown language", "language", d.language, "node", v.HeadString())
			}
		}
		if !haveDelims {
			switch {
			case d.hasComment:
				sc.delims, haveDelims = d.delims, true
			case d.language != "":
				if l, ok := LookupLanguage(d.language); ok {
					sc.delims, haveDelims = l.Delims, true
				}
			}
		}
		if d.hasTabWidth && !haveTab {
			sc.tabWidth, haveTab = d.tabWidth, true
		}
		if d.hasMode && !haveMode {
			sc.mode, haveMode = d.mode, true
		}
		if d.hasPath && (len(paths) == 0 || !path.IsAbs(paths[len(paths)-1])) {
			paths = append(paths, d.path)
		}
	}
	slices.Reverse(paths)
	if len(paths) > 0 {
		sc.path = path.Join(paths...)
	}
	return sc
}

func isIdentByte(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}
