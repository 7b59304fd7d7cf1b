package outline

import "strings"

// Kind classifies a headline by its @file-family directive.
type Kind uint8

const (
	KindPlain Kind = iota
	KindAtFile
	KindAtThin
	KindAtAuto
	KindAtEdit
	KindAtClean
	KindAtShadow
	KindAtAsis
	KindAtNoSent
)

var kindNames = [...]string{
	KindPlain:    "plain",
	KindAtFile:   "@file",
	KindAtThin:   "@thin",
	KindAtAuto:   "@auto",
	KindAtEdit:   "@edit",
	KindAtClean:  "@clean",
	KindAtShadow: "@shadow",
	KindAtAsis:   "@asis",
	KindAtNoSent: "@nosent",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// fileTags maps headline tags to kinds. Longer tags that share a prefix
// with shorter ones are matched first by classify.
var fileTags = []struct {
	tag  string
	kind Kind
}{
	{"@file-asis", KindAtAsis},
	{"@file-nosent", KindAtNoSent},
	{"@file-thin", KindAtThin},
	{"@file", KindAtFile},
	{"@thin", KindAtThin},
	{"@edit", KindAtEdit},
	{"@clean", KindAtClean},
	{"@shadow", KindAtShadow},
	{"@asis", KindAtAsis},
	{"@nosent", KindAtNoSent},
}

// classify derives the directive kind and file name of a headline.
// A tag must be followed by whitespace and a non-empty file name.
func classify(head string) (Kind, string) {
	if !strings.HasPrefix(head, "@") {
		return KindPlain, ""
	}
	// @auto and its @auto-<x> variants.
	if strings.HasPrefix(head, "@auto") {
		rest := head[len("@auto"):]
		if strings.HasPrefix(rest, "-") {
			i := strings.IndexAny(rest, " \t")
			if i < 0 {
				return KindPlain, ""
			}
			rest = rest[i:]
		}
		if name, ok := tagArgument(rest); ok {
			return KindAtAuto, name
		}
		return KindPlain, ""
	}
	for _, ft := range fileTags {
		if !strings.HasPrefix(head, ft.tag) {
			continue
		}
		if name, ok := tagArgument(head[len(ft.tag):]); ok {
			return ft.kind, name
		}
	}
	return KindPlain, ""
}

// tagArgument returns the trimmed text after a tag when the tag ends at a
// whitespace boundary and the argument is not empty.
func tagArgument(rest string) (string, bool) {
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", false
	}
	name := strings.TrimSpace(rest)
	return name, name != ""
}

// MatchWord reports whether s starts with word followed by a non-word
// character or the end of s.
func MatchWord(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	if len(s) == len(word) {
		return true
	}
	return !isWordByte(s[len(word)])
}

func isWordByte(c byte) bool {
	return c == '_' || c == '-' ||
		c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9'
}

// bodyHasDirective reports whether any line of body starts with the
// directive. Leading whitespace is allowed when indented is true.
func bodyHasDirective(body, directive string, indented bool) bool {
	for line := range strings.Lines(body) {
		if indented {
			line = strings.TrimLeft(line, " \t")
		}
		if MatchWord(strings.TrimRight(line, "\r\n"), directive) {
			return true
		}
	}
	return false
}
