package tangle

import (
	"strings"
)

// Delims are the comment delimiters used for sentinels and doc parts.
// Line is preferred when set; otherwise Start and End form a block comment.
type Delims struct {
	Line  string
	Start string
	End   string
}

// IsZero reports whether no delimiter is set.
func (d Delims) IsZero() bool { return d.Line == "" && d.Start == "" }

func (d Delims) open() string {
	if d.Line != "" {
		return d.Line
	}
	return d.Start
}

func (d Delims) close() string {
	if d.Line != "" || d.End == "" {
		return ""
	}
	return " " + d.End
}

// comment wraps text as a single comment line without trailing blanks.
func (d Delims) comment(text string) string {
	return strings.TrimRight(d.open()+" "+text+d.close(), " \t")
}

// Language describes the lexical rules ForgivingCompare needs.
type Language struct {
	Name         string
	Delims       Delims
	NestedBlocks bool // block comments nest
	Preprocessor bool // '#' lines are C preprocessor directives
	Quotes       string
	DoubledQuote bool // a doubled quote escapes itself (Pascal, SQL)
	TripleQuote  bool // Python triple-quoted strings
}

const (
	quotes     = `"'`
	jsQuotes   = "\"'`"
	dquoteOnly = `"`
)

var (
	cDelims    = Delims{Line: "//", Start: "/*", End: "*/"}
	hashDelims = Delims{Line: "#"}
)

var languages = map[string]Language{}

func register(l Language, aliases ...string) {
	languages[l.Name] = l
	for _, a := range aliases {
		languages[a] = l
	}
}

func init() {
	register(Language{Name: "python", Delims: hashDelims, Quotes: quotes, TripleQuote: true})
	register(Language{Name: "c", Delims: cDelims, Quotes: quotes, Preprocessor: true})
	register(Language{Name: "cpp", Delims: cDelims, Quotes: quotes, Preprocessor: true}, "c++")
	register(Language{Name: "objc", Delims: cDelims, Quotes: quotes, Preprocessor: true})
	register(Language{Name: "csharp", Delims: cDelims, Quotes: quotes, Preprocessor: true})
	register(Language{Name: "java", Delims: cDelims, Quotes: quotes})
	register(Language{Name: "javascript", Delims: cDelims, Quotes: jsQuotes})
	register(Language{Name: "typescript", Delims: cDelims, Quotes: jsQuotes})
	register(Language{Name: "go", Delims: cDelims, Quotes: jsQuotes})
	register(Language{Name: "rust", Delims: cDelims, Quotes: dquoteOnly, NestedBlocks: true})
	register(Language{Name: "css", Delims: Delims{Start: "/*", End: "*/"}, Quotes: quotes})
	register(Language{Name: "html", Delims: Delims{Start: "<!--", End: "-->"}, Quotes: quotes})
	register(Language{Name: "xml", Delims: Delims{Start: "<!--", End: "-->"}, Quotes: quotes})
	register(Language{Name: "haskell", Delims: Delims{Line: "--", Start: "{-", End: "-}"}, Quotes: dquoteOnly, NestedBlocks: true})
	register(Language{Name: "ocaml", Delims: Delims{Start: "(*", End: "*)"}, Quotes: dquoteOnly, NestedBlocks: true})
	register(Language{Name: "lua", Delims: Delims{Line: "--"}, Quotes: quotes})
	register(Language{Name: "sql", Delims: Delims{Line: "--", Start: "/*", End: "*/"}, Quotes: quotes, DoubledQuote: true})
	register(Language{Name: "pascal", Delims: Delims{Line: "//", Start: "{", End: "}"}, Quotes: "'", DoubledQuote: true})
	register(Language{Name: "latex", Delims: Delims{Line: "%"}}, "tex")
	register(Language{Name: "elisp", Delims: Delims{Line: ";"}, Quotes: dquoteOnly}, "lisp", "scheme")
	register(Language{Name: "shell", Delims: hashDelims, Quotes: quotes}, "bash", "sh")
	register(Language{Name: "perl", Delims: hashDelims, Quotes: quotes})
	register(Language{Name: "ruby", Delims: hashDelims, Quotes: quotes})
	register(Language{Name: "yaml", Delims: hashDelims, Quotes: quotes})
	register(Language{Name: "make", Delims: hashDelims}, "makefile")
	register(Language{Name: "plain"}, "text")
}

// LookupLanguage returns the rules registered for name, case-insensitively.
func LookupLanguage(name string) (Language, bool) {
	l, ok := languages[strings.ToLower(strings.TrimSpace(name))]
	return l, ok
}

// ParseCommentDirective parses the arguments of @comment: one argument is
// a line comment, two are block delimiters, three are line plus block.
func ParseCommentDirective(args string) (Delims, bool) {
	f := strings.Fields(args)
	switch len(f) {
	case 1:
		return Delims{Line: f[0]}, true
	case 2:
		return Delims{Start: f[0], End: f[1]}, true
	case 3:
		return Delims{Line: f[0], Start: f[1], End: f[2]}, true
	default:
		return Delims{}, false
	}
}
