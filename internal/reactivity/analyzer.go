// Package reactivity implements the reactivity-flow analysis: it decides,
// for every signal, derived signal and props/store binding in a file,
// whether each use occurs in a scope the framework re-runs on change.
//
// The analysis is a single depth-first walk. Function and program nodes
// push a frame on entry; call sites, declarations and markup expressions
// register tracked positions and reactive bindings in the current frame;
// and every frame exit drains the references it owns and validates them.
package reactivity

import (
	"github.com/jward/tracklint/internal/binding"
	"github.com/jward/tracklint/internal/diag"
	"github.com/jward/tracklint/internal/syntax"
)

// Bindings resolves identifiers to the variables they declare or reference.
type Bindings interface {
	// Declared returns the variable introduced by a declaring identifier.
	Declared(id *syntax.Node) *binding.Variable
	// Resolve returns the variable an identifier declares or refers to.
	Resolve(id *syntax.Node) *binding.Variable
}

var _ Bindings = (*binding.Table)(nil)

// Options configures an analysis run.
type Options struct {
	// CustomHooks are additional function names whose arguments are
	// tracked permissively, like use*/create* hooks.
	CustomHooks []string
}

// BindingReport describes one registered binding after analysis.
type BindingReport struct {
	Name string
	Kind BindingKind
	// Initial is the reference list at registration, Consumed the
	// references validated at frame exits and Pending the ones never
	// reached.
	Initial  []*binding.Reference
	Consumed []*binding.Reference
	Pending  []*binding.Reference
}

// Result is the outcome of analyzing one tree.
type Result struct {
	Diagnostics []diag.Diagnostic
	Bindings    []BindingReport
}

type analyzer struct {
	tree        *syntax.Tree
	bindings    Bindings
	imports     importTable
	customHooks map[string]bool

	stack *scopeStack
	reg   *registry

	asyncReported map[*syntax.Node]bool
	diags         []diag.Diagnostic
}

// Analyze runs the analysis over tree. Findings are reported to sink only
// when the analysis completes; an *InternalError aborts it without any.
func Analyze(tree *syntax.Tree, bindings Bindings, sink diag.Sink, opts Options) (res *Result, err error) {
	stack := newScopeStack()
	a := &analyzer{
		tree:          tree,
		bindings:      bindings,
		imports:       collectImports(tree.Root),
		customHooks:   make(map[string]bool, len(opts.CustomHooks)),
		stack:         stack,
		reg:           newRegistry(stack),
		asyncReported: make(map[*syntax.Node]bool),
	}
	for _, name := range opts.CustomHooks {
		a.customHooks[name] = true
	}

	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InternalError)
			if !ok {
				panic(r)
			}
			res, err = nil, ie
		}
	}()

	syntax.Walk(tree.Root, a.enter, a.exit)
	if len(stack.frames) != 0 {
		fail("Analyze", tree.Root, "%d frame(s) left after the walk", len(stack.frames))
	}

	diag.Sort(a.diags)
	if sink != nil {
		for _, d := range a.diags {
			sink.Report(d)
		}
	}
	return a.result(), nil
}

func (a *analyzer) result() *Result {
	res := &Result{Diagnostics: a.diags}
	for _, b := range a.reg.all {
		res.Bindings = append(res.Bindings, BindingReport{
			Name:     b.variable.Name,
			Kind:     b.kind,
			Initial:  b.initial,
			Consumed: b.consumed,
			Pending:  b.pending,
		})
	}
	return res
}

func (a *analyzer) enter(n *syntax.Node) bool {
	switch n.Kind {
	case syntax.KindProgram:
		a.stack.enter(n)

	case syntax.KindFunctionDecl, syntax.KindFunctionExpr, syntax.KindArrowFunction, syntax.KindMethod:
		a.onFunctionEnter(n)

	case syntax.KindJSXElement:
		a.stack.current().hasJSX = true

	case syntax.KindJSXExpression, syntax.KindJSXSpread, syntax.KindNew, syntax.KindTaggedTemplate:
		a.checkForTrackedScopes(n)

	case syntax.KindCall:
		a.checkForTrackedScopes(n)
		a.checkForSyncCallbacks(n)
		if !n.Parent.Is(syntax.KindAssignment) && !n.Parent.Is(syntax.KindDeclarator) {
			a.checkForReactiveAssignment(nil, n)
		}

	case syntax.KindDeclarator:
		if n.Init != nil {
			a.checkForReactiveAssignment(n.NameNode, n.Init)
			a.checkForTrackedScopes(n)
		}

	case syntax.KindAssignment:
		if !n.Left.Is(syntax.KindMember) {
			a.checkForReactiveAssignment(n.Left, n.Right)
		}
		a.checkForTrackedScopes(n)

	case syntax.KindOther, syntax.KindIdentifier, syntax.KindPropertyName, syntax.KindThis,
		syntax.KindLiteral, syntax.KindTemplate, syntax.KindMember, syntax.KindUpdate,
		syntax.KindBinary, syntax.KindUnary, syntax.KindConditional, syntax.KindSequence,
		syntax.KindAwait, syntax.KindYield, syntax.KindSpread, syntax.KindArray,
		syntax.KindObject, syntax.KindProperty, syntax.KindArrayPattern, syntax.KindObjectPattern,
		syntax.KindAssignmentPattern, syntax.KindRest, syntax.KindVarDecl, syntax.KindClass,
		syntax.KindImport, syntax.KindImportSpecifier, syntax.KindExport, syntax.KindBlock,
		syntax.KindReturn, syntax.KindFor, syntax.KindForIn, syntax.KindCatch, syntax.KindSwitch,
		syntax.KindJSXAttribute, syntax.KindJSXText:
		// No analysis on entry.

	default:
		fail("enter", n, "unhandled node kind %s", n.Kind)
	}
	return true
}

func (a *analyzer) exit(n *syntax.Node) {
	if n.IsFunctionOrProgram() {
		a.onFunctionExit(n)
	}
}

func position(p syntax.Point) diag.Position {
	return diag.Position{Line: p.Line, Col: p.Column, Offset: p.Offset}
}

// functionHead returns the span of a function's signature.
func functionHead(fn *syntax.Node) (syntax.Point, syntax.Point) {
	if fn.Body != nil {
		return fn.Start, fn.Body.Start
	}
	return fn.Start, fn.End
}

func (a *analyzer) newDiagnostic(kind diag.Kind, start, end syntax.Point, args diag.Args) diag.Diagnostic {
	return diag.Diagnostic{
		Kind:    kind,
		Context: args.Context,
		Pos:     position(start),
		End:     position(end),
		Name:    args.Name,
		Message: diag.Message(kind, args),
	}
}

func (a *analyzer) report(kind diag.Kind, start, end syntax.Point, args diag.Args) {
	a.diags = append(a.diags, a.newDiagnostic(kind, start, end, args))
}

func (a *analyzer) reportNode(kind diag.Kind, n *syntax.Node, args diag.Args) {
	a.report(kind, n.Start, n.End, args)
}
