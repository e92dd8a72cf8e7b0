package diag

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tracklint/internal/syntax"
)

func TestMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		kind Kind
		args Args
		want string
	}{
		{
			name: "mutation",
			kind: KindIllegalMutation,
			args: Args{Name: "count"},
			want: "The reactive variable 'count' should not be reassigned or altered directly.",
		},
		{
			name: "bad call in arithmetic",
			kind: KindBadCallContext,
			args: Args{Name: "count", Context: ContextArithmetic},
			want: "The reactive variable 'count' should be called as a function when used in arithmetic or comparisons.",
		},
		{
			name: "bad call in tracked return",
			kind: KindBadCallContext,
			args: Args{Name: "count", Context: ContextTrackedScopeReturn},
			want: "The reactive variable 'count' should be called as a function when used in a tracked scope's return value.",
		},
		{
			name: "destructure",
			kind: KindShouldDestructure,
			args: Args{Nth: "first "},
			want: "For proper analysis, array destructuring should be used to capture the first result of this function call.",
		},
		{
			name: "unnamed derived",
			kind: KindUntrackedDerivedFunction,
			want: unnamedDerivedMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Message(tt.kind, tt.args))
		})
	}

	named := Message(KindUntrackedDerivedFunction, Args{Name: "isPositive"})
	assert.Contains(t, named, "'isPositive'")
}

func TestRulesCoverEveryKind(t *testing.T) {
	t.Parallel()
	for _, r := range Rules() {
		k, ok := ParseKind(string(r.Kind))
		require.True(t, ok)
		assert.Equal(t, r.Kind, k)
		assert.NotEqual(t, string(r.Kind), Message(r.Kind, Args{Name: "x"}), "missing message for %s", r.Kind)
	}
	_, ok := ParseKind("no-such-kind")
	assert.False(t, ok)
}

func TestDiagnosticString(t *testing.T) {
	t.Parallel()
	d := Diagnostic{
		Kind:    KindUntrackedRead,
		Pos:     Position{Line: 3, Col: 7},
		Message: "msg",
		Related: []Related{{Pos: Position{Line: 9, Col: 1}, Message: "called here"}},
	}
	d.SetFile("src/App.tsx")
	assert.Equal(t, "src/App.tsx:3:7: msg (untracked-read)\n  = note: src/App.tsx:9:1: called here", d.String())
}

func TestSort(t *testing.T) {
	t.Parallel()
	diags := []Diagnostic{
		{Kind: KindUntrackedRead, Pos: Position{File: "b.js", Offset: 1}},
		{Kind: KindUntrackedRead, Pos: Position{File: "a.js", Offset: 9}},
		{Kind: KindBadCallContext, Pos: Position{File: "a.js", Offset: 9}},
		{Kind: KindIllegalMutation, Pos: Position{File: "a.js", Offset: 2}},
	}
	Sort(diags)
	assert.Equal(t, KindIllegalMutation, diags[0].Kind)
	assert.Equal(t, KindBadCallContext, diags[1].Kind)
	assert.Equal(t, KindUntrackedRead, diags[2].Kind)
	assert.Equal(t, "b.js", diags[3].Pos.File)
}

func TestApplyEdits(t *testing.T) {
	t.Parallel()
	src := []byte("count + total")
	out, err := ApplyEdits(src, []TextEdit{Insert(13, "()"), Insert(5, "()")})
	require.NoError(t, err)
	assert.Equal(t, "count() + total()", string(out))

	_, err = ApplyEdits(src, []TextEdit{{Start: 0, End: 5, NewText: "a"}, {Start: 3, End: 7, NewText: "b"}})
	require.ErrorIs(t, err, ErrOverlappingEdits)

	_, err = ApplyEdits(src, []TextEdit{{Start: 10, End: 99}})
	require.Error(t, err)
}

func TestSelectFixes(t *testing.T) {
	t.Parallel()
	diags := []Diagnostic{
		{Fixes: []TextEdit{Insert(5, "()")}},
		{},
		{Fixes: []TextEdit{Insert(5, "()")}},
		{Fixes: []TextEdit{Insert(9, "()")}},
	}
	edits, fixed := SelectFixes(diags)
	assert.Equal(t, 2, fixed)
	assert.Equal(t, []TextEdit{Insert(5, "()"), Insert(9, "()")}, edits)
}

func TestSuppressions(t *testing.T) {
	t.Parallel()
	comments := []syntax.Comment{
		{Text: "// tracklint-disable-next-line", Start: syntax.Point{Line: 1}, End: syntax.Point{Line: 1}},
		{Text: "// tracklint-disable-line untracked-read, bad-call-context -- legacy", Start: syntax.Point{Line: 5}, End: syntax.Point{Line: 5}},
		{Text: "/* tracklint-disable-next-line illegal-mutation */", Start: syntax.Point{Line: 7}, End: syntax.Point{Line: 7}},
		{Text: "// tracklint-disable-lines", Start: syntax.Point{Line: 9}, End: syntax.Point{Line: 9}},
		{Text: "// unrelated", Start: syntax.Point{Line: 10}, End: syntax.Point{Line: 10}},
	}
	s := ParseDirectives(comments)
	require.Len(t, s, 3)

	at := func(line int, k Kind) Diagnostic { return Diagnostic{Kind: k, Pos: Position{Line: line}} }
	assert.True(t, s.Suppressed(at(2, KindAsyncTrackedScope)))
	assert.True(t, s.Suppressed(at(5, KindBadCallContext)))
	assert.False(t, s.Suppressed(at(5, KindIllegalMutation)))
	assert.True(t, s.Suppressed(at(8, KindIllegalMutation)))
	assert.False(t, s.Suppressed(at(9, KindIllegalMutation)))
	assert.False(t, s.Suppressed(at(1, KindUntrackedRead)))

	kept := s.Filter([]Diagnostic{at(2, KindUntrackedRead), at(3, KindUntrackedRead)})
	require.Len(t, kept, 1)
	assert.Equal(t, 3, kept[0].Pos.Line)
}

func TestFormatText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	long := strings.Repeat("word ", 30)
	FormatText(&buf, []Diagnostic{{
		Kind:    KindUntrackedDerivedFunction,
		Pos:     Position{File: "a.js", Line: 1, Col: 1},
		Message: "m",
		Related: []Related{{Pos: Position{File: "a.js", Line: 4, Col: 2}, Message: long}},
	}})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Greater(t, len(lines), 2)
	assert.Equal(t, "a.js:1:1: m (untracked-derived-function)", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "  = note: a.js:4:2: word"))
	assert.True(t, strings.HasPrefix(lines[2], "          word"))
}

func TestFormatJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, FormatJSON(&buf, []Diagnostic{{Kind: KindBadCallContext, Context: ContextUnary, Name: "count"}}))
	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "bad-call-context", got[0]["kind"])
	assert.Equal(t, "unary", got[0]["context"])
	assert.Equal(t, "count", got[0]["name"])
}

func TestFormatTextColor(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	FormatTextColor(&buf, []Diagnostic{{
		Kind:    KindUntrackedRead,
		Pos:     Position{File: "a.js", Line: 2, Col: 5},
		Message: "m",
	}})
	assert.Equal(t, "\033[1ma.js:2:5\033[0m: m \033[33m(untracked-read)\033[0m\n", buf.String())
}
