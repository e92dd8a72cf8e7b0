package reactivity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tracklint/internal/binding"
	"github.com/jward/tracklint/internal/diag"
	"github.com/jward/tracklint/internal/syntax"
)

const header = `import { createSignal, createEffect, createMemo, createReaction, mergeProps, splitProps, on, onCleanup, For, Index, batch, mapArray, runWithOwner, getOwner } from "solid-js";
import { createStore, produce } from "solid-js/store";
`

// bodyLine is the line number of the first line after header.
const bodyLine = 3

func analyze(t *testing.T, body string, opts Options) (*Result, []diag.Diagnostic) {
	t.Helper()
	tree, err := syntax.Parse(context.Background(), []byte(header+body), syntax.JavaScript)
	require.NoError(t, err)
	require.False(t, tree.HasErrors, "test source should parse cleanly")
	var sink diag.Collector
	res, err := Analyze(tree, binding.Analyze(tree.Root), &sink, opts)
	require.NoError(t, err)
	return res, sink.Diagnostics
}

func lint(t *testing.T, body string) []diag.Diagnostic {
	t.Helper()
	_, diags := analyze(t, body, Options{})
	return diags
}

func kinds(diags []diag.Diagnostic) []diag.Kind {
	out := make([]diag.Kind, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Kind)
	}
	return out
}

func TestInvokedReadAtModuleScope(t *testing.T) {
	t.Parallel()
	diags := lint(t, "const [count, setCount] = createSignal(0);\nconsole.log(count());\n")
	assert.Empty(t, diags)
}

func TestUninvokedReadInArithmetic(t *testing.T) {
	t.Parallel()
	diags := lint(t, "const [count] = createSignal(0);\nconst x = count + 1;\n")
	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, diag.KindBadCallContext, d.Kind)
	assert.Equal(t, diag.ContextArithmetic, d.Context)
	assert.Equal(t, "count", d.Name)
	assert.Equal(t, bodyLine+1, d.Pos.Line)
	assert.Equal(t, 11, d.Pos.Col)
	require.Len(t, d.Fixes, 1)
	assert.Equal(t, diag.Insert(d.End.Offset, "()"), d.Fixes[0])
}

func TestTrackedScopeContainment(t *testing.T) {
	t.Parallel()
	diags := lint(t, "const [count] = createSignal(0);\ncreateEffect(() => console.log(count()));\n")
	assert.Empty(t, diags)

	diags = lint(t, "const [count] = createSignal(0);\ncreateEffect(() => count);\n")
	require.Len(t, diags, 1)
	assert.Equal(t, diag.KindBadCallContext, diags[0].Kind)
	assert.Equal(t, diag.ContextTrackedScopeReturn, diags[0].Context)

	diags = lint(t, "const [count] = createSignal(0);\nconst m = createMemo(() => { return count; });\n")
	require.Len(t, diags, 1)
	assert.Equal(t, diag.ContextTrackedScopeReturn, diags[0].Context)
}

func TestDerivedSignalPropagation(t *testing.T) {
	t.Parallel()
	tracked := `function Counter() {
  const [count] = createSignal(0);
  const isPositive = () => count() > 0;
  createEffect(() => console.log(isPositive()));
  return null;
}
`
	assert.Empty(t, lint(t, tracked))

	untracked := `function Counter() {
  const [count] = createSignal(0);
  const isPositive = () => count() > 0;
  console.log(isPositive());
  return null;
}
`
	diags := lint(t, untracked)
	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, diag.KindUntrackedDerivedFunction, d.Kind)
	assert.Equal(t, "isPositive", d.Name)
	assert.Equal(t, bodyLine+2, d.Pos.Line)
	assert.Equal(t, 9, d.Pos.Col)
	require.Len(t, d.Related, 1)
	assert.Equal(t, bodyLine+3, d.Related[0].Pos.Line)
}

func TestWriteIsAlwaysIllegal(t *testing.T) {
	t.Parallel()
	diags := lint(t, "const [count, setCount] = createSignal(0);\ncount = 5;\n")
	require.Len(t, diags, 1)
	assert.Equal(t, diag.KindIllegalMutation, diags[0].Kind)
	assert.Equal(t, bodyLine+1, diags[0].Pos.Line)
}

func TestIdempotent(t *testing.T) {
	t.Parallel()
	body := `function App(props) {
  const [count] = createSignal(0);
  console.log(count(), props.name);
  const { title } = props;
  return <div title={title}>{count}</div>;
}
`
	tree, err := syntax.Parse(context.Background(), []byte(header+body), syntax.JavaScript)
	require.NoError(t, err)
	table := binding.Analyze(tree.Root)

	var first, second diag.Collector
	_, err = Analyze(tree, table, &first, Options{})
	require.NoError(t, err)
	_, err = Analyze(tree, table, &second, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, first.Diagnostics)
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
}

func TestConservation(t *testing.T) {
	t.Parallel()
	body := `function App(props) {
  const [count, setCount] = createSignal(0);
  const doubled = () => count() * 2;
  const [state] = createStore({ n: 1 });
  createEffect(() => console.log(doubled(), state.n, props.x));
  count = 1;
  return <div onClick={() => setCount(count() + 1)}>{count()} {props.label}</div>;
}
`
	res, diags := analyze(t, body, Options{})
	require.Len(t, diags, 1)
	assert.Equal(t, diag.KindIllegalMutation, diags[0].Kind)

	byName := make(map[string]BindingReport)
	for _, b := range res.Bindings {
		byName[b.Name] = b

		seen := make(map[*binding.Reference]bool)
		for _, ref := range b.Consumed {
			assert.False(t, seen[ref], "%s: reference consumed twice", b.Name)
			seen[ref] = true
		}
		for _, ref := range b.Pending {
			assert.False(t, seen[ref], "%s: pending reference also consumed", b.Name)
			seen[ref] = true
		}
		assert.Len(t, seen, len(b.Initial), b.Name)
		for _, ref := range b.Initial {
			assert.True(t, seen[ref], "%s: reference lost", b.Name)
			assert.False(t, ref.Init, "%s: initializer registered", b.Name)
		}
	}
	require.Contains(t, byName, "doubled")
	assert.Equal(t, BindingDerivedSignal, byName["doubled"].Kind)
	assert.Equal(t, BindingSignal, byName["count"].Kind)
	assert.Equal(t, BindingProps, byName["state"].Kind)
	assert.Equal(t, BindingProps, byName["props"].Kind)
	assert.Len(t, byName["count"].Initial, 4)
	assert.Empty(t, byName["count"].Pending)
}

func TestInternalErrorAbortsFile(t *testing.T) {
	t.Parallel()
	root := &syntax.Node{Kind: syntax.KindProgram}
	bad := &syntax.Node{Kind: syntax.Kind(250), ID: 1, Parent: root}
	root.Children = []*syntax.Node{bad}
	tree := &syntax.Tree{Root: root, Nodes: []*syntax.Node{root, bad}}

	var sink diag.Collector
	res, err := Analyze(tree, binding.Analyze(root), &sink, Options{})
	require.Error(t, err)
	assert.Nil(t, res)
	var ie *InternalError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "enter", ie.Op)
	assert.Empty(t, sink.Diagnostics)
}

func TestScopeStack(t *testing.T) {
	t.Parallel()
	program := &syntax.Node{Kind: syntax.KindProgram, ID: 0}
	outer := &syntax.Node{Kind: syntax.KindFunctionDecl, ID: 3, Parent: program}
	inner := &syntax.Node{Kind: syntax.KindArrowFunction, ID: 7, Parent: outer}
	sync := &syntax.Node{Kind: syntax.KindArrowFunction, ID: 9, Parent: inner}
	id := &syntax.Node{Kind: syntax.KindIdentifier, ID: 10, Parent: sync}

	s := newScopeStack()
	s.enter(program)
	s.enter(outer)
	s.enter(inner)
	s.markSyncCallback(sync)

	assert.Equal(t, ScopeID(7), s.findDeepestDeclarationScope(3, 7))
	assert.Equal(t, ScopeID(3), s.findDeepestDeclarationScope(0, 3))
	assert.Equal(t, ScopeID(3), s.findDeepestDeclarationScope(3, 3))
	assert.True(t, s.isReferenceInCurrentScope(id))
	assert.Equal(t, 1, s.indexOf(outer))

	assert.PanicsWithError(t, "reactivity: findDeepestDeclarationScope: scopes 1 and 2 are not on the stack", func() {
		s.findDeepestDeclarationScope(1, 2)
	})
	assert.Panics(t, func() { s.exit(outer) })

	s.exit(inner)
	assert.False(t, s.isReferenceInCurrentScope(id))
	s.exit(outer)
	s.exit(program)
	assert.Panics(t, func() { s.current() })
}

func TestRegistryIgnoresRepeatedRegistration(t *testing.T) {
	t.Parallel()
	program := &syntax.Node{Kind: syntax.KindProgram, ID: 0}
	id := &syntax.Node{Kind: syntax.KindIdentifier, ID: 1, Parent: program}
	v := &binding.Variable{Name: "props"}
	v.References = []*binding.Reference{{Identifier: id, Resolved: v, Read: true}}

	s := newScopeStack()
	s.enter(program)
	r := newRegistry(s)
	r.pushProps(v, 0)
	r.pushProps(v, 0)
	require.Len(t, r.props, 1)

	got := r.consumePropsReferencesInScope()
	require.Len(t, got, 1)
	assert.Empty(t, r.props)

	r.pushProps(v, 0)
	assert.Empty(t, r.props)
	assert.Empty(t, r.consumePropsReferencesInScope())
}
