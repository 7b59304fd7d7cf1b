package tangle

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanDefinitions(t *testing.T) {
	body := "Intro text.\n" +
		"@language python\n" +
		"@root main.py\n" +
		"<<setup>>\n" +
		"run()\n" +
		"@ More docs\n" +
		"for the next part.\n" +
		"<< Setup >>= x = 1\n" +
		"y = <<value>>\n"

	events := slices.Collect(Scan("main", body))
	require.Len(t, events, 2)

	r := events[0]
	assert.Equal(t, EventRoot, r.Kind)
	assert.Equal(t, "main.py", r.Path)
	assert.Equal(t, "<<setup>>\nrun()", r.Code)
	assert.Equal(t, "Intro text.", r.Doc)
	assert.Equal(t, []string{"setup"}, r.Refs)
	assert.Equal(t, 3, r.Line)

	s := events[1]
	assert.Equal(t, EventSection, s.Kind)
	assert.Equal(t, "setup", s.Name)
	assert.Equal(t, " Setup ", s.Raw)
	assert.Equal(t, "x = 1\ny = <<value>>", s.Code)
	assert.Equal(t, "More docs\nfor the next part.", s.Doc)
	assert.Equal(t, []string{"value"}, s.Refs)

	for _, ev := range events {
		assert.Equal(t, body, ev.Head+body[ev.CodeStart:ev.CodeEnd]+ev.Tail)
	}
}

func TestScanCodePart(t *testing.T) {
	events := slices.Collect(Scan("<< helpers >>", "docs\n@c\ndef h(): pass\n"))
	require.Len(t, events, 1)
	assert.Equal(t, EventCode, events[0].Kind)
	assert.Equal(t, "helpers", events[0].Name)
	assert.Equal(t, "def h(): pass", events[0].Code)
	assert.Equal(t, "docs", events[0].Doc)

	events = slices.Collect(Scan("plain headline", "@code\nx\n"))
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, ErrCodeWithoutSection)
}

func TestScanDirectiveEndsCode(t *testing.T) {
	events := slices.Collect(Scan("", "<<a>>=\nx\n@tabwidth 8\ntrailing doc\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "x", events[0].Code)
	assert.Equal(t, "@tabwidth 8\ntrailing doc\n", events[0].Tail)
}

func TestScanStopsWhenYieldReturnsFalse(t *testing.T) {
	n := 0
	for range Scan("", "<<a>>=\n1\n<<b>>=\n2\n") {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestStandardizeName(t *testing.T) {
	for in, want := range map[string]string{
		"<< Foo  Bar >>=": "foo bar",
		"  x ":            "x",
		"<<a>>":           "a",
	} {
		assert.Equal(t, want, StandardizeName(in), in)
	}
	assert.True(t, CompareSectionNames("<<Read File>>", "read   file"))
	assert.False(t, CompareSectionNames("read", "reader"))
}

func TestFindRef(t *testing.T) {
	i, j, ok := findRef("a = << b >> + <<c>>", 0)
	require.True(t, ok)
	assert.Equal(t, "<< b >>", "a = << b >> + <<c>>"[i:j])

	_, _, ok = findRef("x << 2", 0)
	assert.False(t, ok)
	_, _, ok = findRef("<< >>", 0)
	assert.False(t, ok)
}

func TestParseCommentDirective(t *testing.T) {
	d, ok := ParseCommentDirective("/* */")
	require.True(t, ok)
	assert.Equal(t, Delims{Start: "/*", End: "*/"}, d)
	assert.Equal(t, "/* x */", d.comment("x"))

	d, ok = ParseCommentDirective(";;")
	require.True(t, ok)
	assert.Equal(t, ";; x", d.comment("x"))

	_, ok = ParseCommentDirective("")
	assert.False(t, ok)
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode("Quiet")
	assert.True(t, ok)
	assert.Equal(t, ModeQuiet, m)
	assert.Equal(t, "quiet", m.String())

	_, ok = ParseMode("loud")
	assert.False(t, ok)
}
