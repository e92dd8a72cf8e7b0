package reactivity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tracklint/internal/binding"
	"github.com/jward/tracklint/internal/syntax"
)

// traceArg parses src and traces the argument of its last use(...) call.
func traceArg(t *testing.T, src string) (*analyzer, *syntax.Node, *syntax.Node) {
	t.Helper()
	tree, err := syntax.Parse(context.Background(), []byte(src), syntax.JavaScript)
	require.NoError(t, err)
	a := &analyzer{tree: tree, bindings: binding.Analyze(tree.Root)}

	var arg *syntax.Node
	syntax.Inspect(tree.Root, func(n *syntax.Node) bool {
		if n.Is(syntax.KindCall) && n.Callee.Is(syntax.KindIdentifier) && n.Callee.Name == "use" {
			arg = n.Arg(0)
		}
		return true
	})
	require.NotNil(t, arg, "no use(...) call")
	return a, arg, a.trace(arg)
}

func TestTrace(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		// want is the source text of the traced node.
		want string
	}{
		{"const function", "const cb = () => 1;\nuse(cb);\n", "() => 1"},
		{"alias chain", "const cb = () => 1;\nconst alias = cb;\nuse(alias);\n", "() => 1"},
		{"let never reassigned", "let cb = () => 1;\nuse(cb);\n", "() => 1"},
		{"let reassigned", "let cb = () => 1;\ncb = null;\nuse(cb);\n", "cb"},
		{"function declaration", "function cb() {}\nuse(cb);\n", "function cb() {}"},
		{"non-function initializer", "const n = 5;\nuse(n);\n", "5"},
		{"destructured", "const [cb] = pair();\nuse(cb);\n", "cb"},
		{"unresolved", "use(cb);\n", "cb"},
		{"not an identifier", "use(() => 2);\n", "() => 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, _, traced := traceArg(t, tt.src)
			assert.Equal(t, tt.want, a.tree.Text(traced))
		})
	}
}

func TestTrace_CycleStops(t *testing.T) {
	t.Parallel()
	a, arg, traced := traceArg(t, "var a = b;\nvar b = a;\nuse(a);\n")
	require.NotNil(t, traced)
	assert.True(t, traced.Is(syntax.KindIdentifier), "%s", a.tree.Text(traced))
	assert.Equal(t, "a", a.tree.Text(arg))
}

func TestNeverReassigned(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  string
		want bool
	}{
		{"let cb = 1;\nuse(cb);\n", true},
		{"let cb = 1;\ncb = 2;\nuse(cb);\n", false},
		{"let cb = 1;\ncb += 2;\nuse(cb);\n", false},
		{"let cb = 1;\ncb++;\nuse(cb);\n", false},
	}
	for _, tt := range tests {
		a, arg, _ := traceArg(t, tt.src)
		v := a.bindings.Resolve(arg)
		require.NotNil(t, v, tt.src)
		assert.Equal(t, tt.want, neverReassigned(v), tt.src)
	}
}
