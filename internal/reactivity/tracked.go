package reactivity

import (
	"strings"

	"github.com/jward/tracklint/internal/binding"
	"github.com/jward/tracklint/internal/diag"
	"github.com/jward/tracklint/internal/syntax"
)

const maxTraceDepth = 16

// pushTrackedScope records a tracked position in the current frame. An
// async function in a function or called function position is reported:
// reads after the first await are not tracked.
func (a *analyzer) pushTrackedScope(node *syntax.Node, expect expectation) {
	if node == nil {
		return
	}
	f := a.stack.current()
	f.trackedScopes = append(f.trackedScopes, trackedScope{node: node, expect: expect})
	if expect != expectExpression && node.IsFunction() && node.Async && !a.asyncReported[node] {
		a.asyncReported[node] = true
		start, end := functionHead(node)
		a.report(diag.KindAsyncTrackedScope, start, end, diag.Args{})
	}
}

// matchTrackedScope reports whether node satisfies ts within the current
// frame.
func (a *analyzer) matchTrackedScope(ts trackedScope, node *syntax.Node) bool {
	switch ts.expect {
	case expectFunction, expectCalledFunction:
		return node == ts.node
	case expectExpression:
		return findInScope(node, a.stack.current().node, ts.node)
	}
	return false
}

// findInScope reports whether target is node or one of its ancestors
// below scope.
func findInScope(node, scope, target *syntax.Node) bool {
	for p := node; p != nil && p != scope; p = p.Parent {
		if p == target {
			return true
		}
	}
	return false
}

func (a *analyzer) matchesTracked(f *frame, node *syntax.Node) bool {
	for _, ts := range f.trackedScopes {
		if a.matchTrackedScope(ts, node) {
			return true
		}
	}
	return false
}

// matchesAsExpression is matchesTracked with every entry treated as an
// expression position.
func (a *analyzer) matchesAsExpression(f *frame, node *syntax.Node) bool {
	for _, ts := range f.trackedScopes {
		if findInScope(node, f.node, ts.node) {
			return true
		}
	}
	return false
}

// hasFunctionEntry reports whether node is itself a function or called
// function position in frame f.
func hasFunctionEntry(f *frame, node *syntax.Node) bool {
	for _, ts := range f.trackedScopes {
		if ts.node == node && ts.expect != expectExpression {
			return true
		}
	}
	return false
}

// isTrackedFunction reports whether fn is a function-kind tracked scope in
// any live frame.
func (a *analyzer) isTrackedFunction(fn *syntax.Node) bool {
	for _, f := range a.stack.frames {
		for _, ts := range f.trackedScopes {
			if ts.node == fn && ts.expect == expectFunction {
				return true
			}
		}
	}
	return false
}

// checkForTrackedScopes classifies n as a tracked position, if it is one.
func (a *analyzer) checkForTrackedScopes(n *syntax.Node) {
	switch n.Kind {
	case syntax.KindJSXExpression:
		a.trackJSXExpression(n)
	case syntax.KindJSXSpread:
		a.pushTrackedScope(n, expectExpression)
	case syntax.KindNew:
		if n.Callee.Is(syntax.KindIdentifier) && observerConstructors[n.Callee.Name] {
			a.pushTrackedScope(n.Arg(0), expectCalledFunction)
		}
	case syntax.KindCall:
		a.trackCall(n)
	case syntax.KindDeclarator:
		a.trackReaction(n)
	case syntax.KindAssignment:
		left := n.Left
		if left.Is(syntax.KindMember) && !left.Computed && left.Property.Is(syntax.KindPropertyName) &&
			eventProperty.MatchString(left.Property.Name) && n.Right.IsFunction() {
			a.pushTrackedScope(n.Right, expectCalledFunction)
		}
	case syntax.KindTaggedTemplate:
		a.trackTaggedTemplate(n)
	}
}

func (a *analyzer) trackJSXExpression(n *syntax.Node) {
	expr := n.Argument
	if attr := n.Parent; attr.Is(syntax.KindJSXAttribute) {
		element := attr.Parent.Name
		switch name := attr.Name; {
		case eventAttribute.MatchString(name) && expr != nil:
			// Handlers are called on each event and never rebound.
			a.pushTrackedScope(expr, expectCalledFunction)
			return
		case strings.HasPrefix(name, "use:") && expr.IsFunction():
			a.pushTrackedScope(expr, expectCalledFunction)
			return
		case name == "value" && strings.HasSuffix(element, "Provider"):
			// Context values are passed through as is.
			return
		case staticAttribute.MatchString(name) && isComponentName(element):
			return
		case name == "ref" && expr.IsFunction():
			a.pushTrackedScope(expr, expectCalledFunction)
			return
		}
	} else if n.Parent.Is(syntax.KindJSXElement) && expr.IsFunction() {
		a.pushTrackedScope(expr, expectFunction)
		return
	}
	a.pushTrackedScope(n, expectExpression)
}

func (a *analyzer) trackCall(n *syntax.Node) {
	callee := n.Callee
	arg0, arg1 := n.Arg(0), n.Arg(1)

	if callee.Is(syntax.KindMember) {
		prop := callee.Property
		if callee.Computed || !prop.Is(syntax.KindPropertyName) {
			return
		}
		switch {
		case prop.Name == "addEventListener" && len(n.Args) >= 2:
			a.pushTrackedScope(arg1, expectCalledFunction)
		case a.isHookName(prop.Name):
			for _, arg := range n.Args {
				a.permissivelyTrackNode(arg)
			}
		}
		return
	}
	if !callee.Is(syntax.KindIdentifier) {
		return
	}

	name := callee.Name
	switch {
	case a.imports.match(name, trackedFunctionPrimitives...),
		a.imports.match(name, "createResource") && len(n.Args) >= 2:
		a.pushTrackedScope(arg0, expectFunction)

	case a.imports.match(name, calledFunctionPrimitives...), timerFunctions[name]:
		a.pushTrackedScope(arg0, expectCalledFunction)

	case a.imports.match(name, "on"):
		// on(deps, fn): deps are tracked, fn runs with known dependencies.
		if arg0.Is(syntax.KindArray) {
			for _, el := range arg0.Elements {
				if el != nil && !el.Is(syntax.KindSpread) {
					a.pushTrackedScope(el, expectFunction)
				}
			}
		} else {
			a.pushTrackedScope(arg0, expectFunction)
		}
		a.pushTrackedScope(arg1, expectCalledFunction)

	case a.imports.match(name, "createStore") && arg0.Is(syntax.KindObject):
		for _, member := range arg0.Children {
			if member.Is(syntax.KindMethod) && member.Getter {
				a.pushTrackedScope(member, expectFunction)
			}
		}

	case a.imports.match(name, "runWithOwner"):
		if arg1 != nil && a.ownerIsTracked(arg0) {
			a.pushTrackedScope(arg1, expectFunction)
		}

	case a.isHookName(name):
		for _, arg := range n.Args {
			a.permissivelyTrackNode(arg)
		}
	}
}

func (a *analyzer) isHookName(name string) bool {
	return hookName.MatchString(name) || a.customHooks[name]
}

// ownerIsTracked decides whether runWithOwner(owner, fn) tracks fn. An
// owner captured with getOwner() is tracked only if the function that
// captured it is a tracked function. Owners captured at module scope, or in
// a function whose frame is gone, count as tracked.
func (a *analyzer) ownerIsTracked(owner *syntax.Node) bool {
	if !owner.Is(syntax.KindIdentifier) {
		return true
	}
	v := a.bindings.Resolve(owner)
	if v == nil || len(v.Defs) == 0 {
		return true
	}
	decl := v.Defs[0].Node
	if !decl.Is(syntax.KindDeclarator) || !decl.Init.Is(syntax.KindCall) ||
		!a.imports.matchCallee(decl.Init.Callee, "getOwner") {
		return true
	}
	ownerFn := decl.EnclosingFunction()
	idx := a.stack.indexOf(ownerFn)
	if idx < 1 {
		return true
	}
	for _, ts := range a.stack.frames[idx-1].trackedScopes {
		if ts.expect == expectFunction && ts.node == ownerFn {
			return true
		}
	}
	return false
}

// trackReaction handles `const track = createReaction(fn)`: fn is called
// by the framework and every `track(...)` argument is tracked.
func (a *analyzer) trackReaction(n *syntax.Node) {
	init := n.Init
	if !init.Is(syntax.KindCall) || !a.imports.matchCallee(init.Callee, "createReactive", "createReaction") {
		return
	}
	if n.NameNode.Is(syntax.KindIdentifier) {
		if track := a.bindings.Declared(n.NameNode); track != nil {
			for _, ref := range track.References {
				id := ref.Identifier
				if ref.Init || !ref.IsReadOnly() || !id.Parent.Is(syntax.KindCall) || id.Parent.Callee != id {
					continue
				}
				a.pushTrackedScope(id.Parent.Arg(0), expectFunction)
			}
		}
	}
	if fn := init.Arg(0); fn.IsFunction() {
		a.pushTrackedScope(fn, expectCalledFunction)
	}
}

// trackTaggedTemplate treats function substitutions as called functions,
// as in css`color: ${(props) => props.color}`.
func (a *analyzer) trackTaggedTemplate(n *syntax.Node) {
	tpl := n.Arg(0)
	if tpl == nil {
		return
	}
	for _, expr := range tpl.Children {
		if !expr.IsFunction() {
			continue
		}
		a.pushTrackedScope(expr, expectCalledFunction)
		for _, p := range expr.Params {
			if p.Is(syntax.KindIdentifier) && propsName.MatchString(p.Name) {
				a.reg.pushProps(a.bindings.Declared(p), a.stack.current().id())
			}
		}
	}
}

// permissivelyTrackNode marks, within an argument of a hook call, the first
// function value or plain identifier on each branch as a called function.
// Nothing is known about what the hook does with its arguments.
func (a *analyzer) permissivelyTrackNode(arg *syntax.Node) {
	syntax.Inspect(arg, func(c *syntax.Node) bool {
		traced := a.trace(c)
		if traced.IsFunction() || isValueIdentifier(traced) {
			a.pushTrackedScope(c, expectCalledFunction)
			return false
		}
		return true
	})
}

// isValueIdentifier reports whether n is an identifier used as a value,
// not called and not the object of a member access.
func isValueIdentifier(n *syntax.Node) bool {
	if !n.Is(syntax.KindIdentifier) || n.Parent == nil {
		return false
	}
	p := n.Parent
	if p.Is(syntax.KindMember) {
		return false
	}
	return !(p.Is(syntax.KindCall) && p.Callee == n)
}

// trace follows an identifier to the value it was initialized with, when
// the variable is never reassigned.
func (a *analyzer) trace(n *syntax.Node) *syntax.Node {
	for depth := 0; depth < maxTraceDepth && n.Is(syntax.KindIdentifier); depth++ {
		v := a.bindings.Resolve(n)
		if v == nil || len(v.Defs) == 0 {
			return n
		}
		def := v.Defs[0]
		switch def.Kind {
		case binding.DefFunctionName, binding.DefClassName, binding.DefImport:
			return def.Node
		case binding.DefConst, binding.DefLet, binding.DefVar:
			decl := def.Node
			if !decl.Is(syntax.KindDeclarator) || decl.NameNode != def.Name || decl.Init == nil {
				return n
			}
			if def.Kind != binding.DefConst && !neverReassigned(v) {
				return n
			}
			n = decl.Init
		default:
			return n
		}
	}
	return n
}

func neverReassigned(v *binding.Variable) bool {
	for _, ref := range v.References {
		if !ref.Init && ref.Write {
			return false
		}
	}
	return true
}
