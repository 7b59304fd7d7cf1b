package tangle

import (
	"strings"
)

// StandardizeName folds a section name to its symbol table key: brackets
// and a trailing '=' removed, whitespace collapsed, lower case.
func StandardizeName(name string) string {
	s := strings.TrimSpace(name)
	s = strings.TrimSuffix(s, "=")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<<")
	s = strings.TrimSuffix(s, ">>")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// CompareSectionNames reports whether a and b name the same section.
func CompareSectionNames(a, b string) bool {
	return StandardizeName(a) == StandardizeName(b)
}

// findRef locates the first section reference in line at or after from.
// start is the index of "<<" and end the index just past ">>". A name
// must contain a non-blank character.
func findRef(line string, from int) (start, end int, ok bool) {
	for from < len(line) {
		i := strings.Index(line[from:], "<<")
		if i < 0 {
			return 0, 0, false
		}
		start = from + i
		j := strings.Index(line[start+2:], ">>")
		if j < 0 {
			return 0, 0, false
		}
		end = start + 2 + j + 2
		if strings.TrimSpace(line[start+2:end-2]) != "" {
			return start, end, true
		}
		from = start + 2
	}
	return 0, 0, false
}

// sectionDefinition parses "<< name >>=" at the start of line, leading
// blanks allowed. rest is the text after '='.
func sectionDefinition(line string) (raw, rest string, ok bool) {
	s := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(s, "<<") {
		return "", "", false
	}
	start, end, found := findRef(s, 0)
	if !found || start != 0 {
		return "", "", false
	}
	after := strings.TrimLeft(s[end:], " \t")
	if !strings.HasPrefix(after, "=") {
		return "", "", false
	}
	return s[2 : end-2], after[1:], true
}

// headlineSection returns the section named by a headline of the form
// "<< name >>".
func headlineSection(head string) (raw string, ok bool) {
	h := strings.TrimSpace(head)
	start, end, found := findRef(h, 0)
	if !found || start != 0 || end != len(h) {
		return "", false
	}
	return h[2 : end-2], true
}

func leadingWS(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

// wsWidth is the column reached by ws with tab stops every tab columns.
func wsWidth(ws string, tab int) int {
	w := 0
	for _, c := range ws {
		if c == '\t' {
			w = (w/tab + 1) * tab
		} else {
			w++
		}
	}
	return w
}

// removeLeadingWS strips up to width columns of leading whitespace.
func removeLeadingWS(line string, width, tab int) string {
	w := 0
	for i, c := range line {
		if w >= width {
			return line[i:]
		}
		switch c {
		case ' ':
			w++
		case '\t':
			w = (w/tab + 1) * tab
		default:
			return line[i:]
		}
	}
	return ""
}
