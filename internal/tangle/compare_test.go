package tangle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lang(t *testing.T, name string) Language {
	t.Helper()
	l, ok := LookupLanguage(name)
	require.True(t, ok, name)
	return l
}

func TestForgivingCompare(t *testing.T) {
	tests := []struct {
		name string
		lang string
		a, b string
		want bool
	}{
		{"identical", "python", "x = 1", "x = 1", true},
		{"whitespace runs", "python", "x  =\t1\n\n\ny", "x = 1\ny", true},
		{"one-sided blank between symbols", "python", "f(a, b)", "f(a,b)", true},
		{"blank separating identifiers", "python", "return x", "returnx", false},
		{"different tokens", "python", "x = 1", "x = 2", false},
		{"trailing text", "python", "x", "x y", false},
		{"string contents are exact", "python", `s = "a  b"`, `s = "a b"`, false},
		{"triple quoted", "python", "'''a\n  b'''", "'''a\n  b'''", true},
		{"line comment collapses", "python", "x # a   note", "x # a note", true},
		{"block comment collapses", "c", "/* a\n   b */ x;", "/* a b */ x;", true},
		{"nested block comment", "rust", "/* a /* b */ c */ x", "/* a /* b */ c */ x", true},
		{"preprocessor is exact", "c", "#define A  1\nx;", "#define A 1\nx;", false},
		{"section refs by name", "python", "<< Read  File >>", "<<read file>>", true},
		{"different refs", "python", "<<a>>", "<<b>>", false},
		{"doubled quote", "pascal", "s := 'it''s';", "s := 'it''s' ;", true},
		{"backtick spans lines", "javascript", "`a\n  b`", "`a\n b`", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForgivingCompare(tt.a, tt.b, lang(t, tt.lang)))
			assert.Equal(t, tt.want, ForgivingCompare(tt.b, tt.a, lang(t, tt.lang)))
		})
	}
}

func TestLookupLanguageAliases(t *testing.T) {
	assert.Equal(t, "cpp", lang(t, "C++").Name)
	assert.Equal(t, "shell", lang(t, "bash").Name)
	_, ok := LookupLanguage("cobol")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Validate(ctx, []byte("def f():\n    return 1\n"), "ok.py"))
	assert.NoError(t, Validate(ctx, []byte("not checked {{"), "notes.txt"))

	err := Validate(ctx, []byte("def f(:\n    return 1\n"), "bad.py")
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bad.py", se.Path)
	assert.Equal(t, uint32(0), se.Line)
}

func TestFormatGo(t *testing.T) {
	assert.Equal(t, "package p\n\nvar x = 1\n", string(formatGo([]byte("package p\n\nvar x  =  1\n"), "p.go")))
	assert.Equal(t, "var x  =  1", string(formatGo([]byte("var x  =  1"), "p.txt")))
	assert.Equal(t, "package {", string(formatGo([]byte("package {"), "p.go")))
}
