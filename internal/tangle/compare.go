package tangle

import (
	"strings"
)

// ForgivingCompare reports whether a and b are the same code up to
// formatting. Runs of whitespace and newlines compare equal, and
// whitespace present on one side only is ignored unless it separates two
// identifier characters. String literals and preprocessor lines must match
// exactly; comments match after collapsing whitespace; section references
// match by standardized name.
func ForgivingCompare(a, b string, lang Language) bool {
	c := comparer{a: a, b: b, lang: lang}
	return c.run()
}

type comparer struct {
	a, b string
	i, j int
	lang Language
}

func (c *comparer) run() bool {
	for {
		i0, j0 := c.i, c.j
		c.i, c.j = skipSpace(c.a, c.i), skipSpace(c.b, c.j)
		if c.i >= len(c.a) || c.j >= len(c.b) {
			return c.i >= len(c.a) && c.j >= len(c.b)
		}
		wsA, wsB := c.i > i0, c.j > j0
		if wsA != wsB && (separates(c.a, i0, c.i) || separates(c.b, j0, c.j)) {
			return false
		}
		if !c.token() {
			return false
		}
	}
}

// token compares the token starting at c.i and c.j and advances past it.
func (c *comparer) token() bool {
	a, b := c.a[c.i:], c.b[c.j:]

	if c.lang.Preprocessor && a[0] == '#' && atLineStart(c.a, c.i) {
		if b[0] != '#' || !atLineStart(c.b, c.j) {
			return false
		}
		la, lb := restOfLine(a), restOfLine(b)
		if strings.TrimRight(la, " \t\r") != strings.TrimRight(lb, " \t\r") {
			return false
		}
		c.i += len(la)
		c.j += len(lb)
		return true
	}

	if strings.HasPrefix(a, "<<") {
		na, oka := refLen(a)
		nb, okb := refLen(b)
		if oka && okb {
			if !CompareSectionNames(a[:na], b[:nb]) {
				return false
			}
			c.i += na
			c.j += nb
			return true
		}
	}

	if n := c.commentLen(a); n > 0 {
		m := c.commentLen(b)
		if m == 0 || collapse(a[:n]) != collapse(b[:m]) {
			return false
		}
		c.i += n
		c.j += m
		return true
	}

	if n := c.stringLen(a); n > 0 {
		m := c.stringLen(b)
		if m == 0 || a[:n] != b[:m] {
			return false
		}
		c.i += n
		c.j += m
		return true
	}

	if a[0] != b[0] {
		return false
	}
	c.i++
	c.j++
	return true
}

// commentLen returns the length of the comment starting s, or 0.
func (c *comparer) commentLen(s string) int {
	d := c.lang.Delims
	if d.Line != "" && strings.HasPrefix(s, d.Line) {
		return len(restOfLine(s))
	}
	if d.Start == "" || d.End == "" || !strings.HasPrefix(s, d.Start) {
		return 0
	}
	depth := 0
	for k := 0; k < len(s); {
		switch {
		case strings.HasPrefix(s[k:], d.Start) && (depth == 0 || c.lang.NestedBlocks):
			depth++
			k += len(d.Start)
		case strings.HasPrefix(s[k:], d.End):
			depth--
			k += len(d.End)
			if depth == 0 {
				return k
			}
		default:
			k++
		}
	}
	return len(s)
}

// stringLen returns the length of the string literal starting s, or 0.
// An unterminated literal ends at the end of its line.
func (c *comparer) stringLen(s string) int {
	q := s[0]
	if !strings.ContainsRune(c.lang.Quotes, rune(q)) {
		return 0
	}
	if c.lang.TripleQuote && len(s) >= 3 && s[1] == q && s[2] == q {
		delim := s[:3]
		if end := strings.Index(s[3:], delim); end >= 0 {
			return 3 + end + 3
		}
		return len(s)
	}
	for k := 1; k < len(s); k++ {
		switch s[k] {
		case '\\':
			if !c.lang.DoubledQuote {
				k++
			}
		case q:
			if c.lang.DoubledQuote && k+1 < len(s) && s[k+1] == q {
				k++
				continue
			}
			return k + 1
		case '\n':
			if q != '`' {
				return k
			}
		}
	}
	return len(s)
}

// refLen returns the length of a "<<name>>" reference starting s.
func refLen(s string) (int, bool) {
	start, end, ok := findRef(restOfLine(s), 0)
	if !ok || start != 0 {
		return 0, false
	}
	return end, true
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' }

// separates reports whether s[from:to] is whitespace between two
// identifier characters.
func separates(s string, from, to int) bool {
	return from > 0 && to > from && to < len(s) && isIdentChar(s[from-1]) && isIdentChar(s[to])
}

func isIdentChar(c byte) bool { return isIdentByte(c) || c >= 0x80 }

func atLineStart(s string, i int) bool {
	k := strings.LastIndexByte(s[:i], '\n')
	return strings.TrimLeft(s[k+1:i], " \t") == ""
}

func restOfLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }
