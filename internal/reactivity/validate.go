package reactivity

import (
	"github.com/jward/tracklint/internal/diag"
	"github.com/jward/tracklint/internal/syntax"
)

func (a *analyzer) onFunctionEnter(fn *syntax.Node) {
	if a.stack.isSyncCallback(fn) {
		return
	}
	a.markPropsOnCondition(fn, func(p *syntax.Node) bool { return propsName.MatchString(p.Name) })
	a.stack.enter(fn)
	a.checkForListChildren(fn)
}

// markPropsOnCondition registers the single identifier parameter of fn as
// props. Render callbacks in markup and template substitutions are not
// components.
func (a *analyzer) markPropsOnCondition(fn *syntax.Node, cond func(param *syntax.Node) bool) {
	if len(fn.Params) != 1 || !fn.Params[0].Is(syntax.KindIdentifier) {
		return
	}
	if fn.Parent.Is(syntax.KindJSXExpression) || fn.Parent.Is(syntax.KindTemplate) {
		return
	}
	if cond != nil && !cond(fn.Params[0]) {
		return
	}
	a.reg.pushProps(a.bindings.Declared(fn.Params[0]), scopeIDOf(fn))
}

// functionName returns the name fn is declared or assigned with.
func functionName(fn *syntax.Node) (string, bool) {
	if fn.Is(syntax.KindFunctionDecl) && fn.NameNode.Is(syntax.KindIdentifier) {
		return fn.NameNode.Name, true
	}
	switch p := fn.Parent; {
	case p.Is(syntax.KindDeclarator) && p.Init == fn && p.NameNode.Is(syntax.KindIdentifier):
		return p.NameNode.Name, true
	case p.Is(syntax.KindAssignment) && p.Right == fn && p.Left.Is(syntax.KindIdentifier):
		return p.Left.Name, true
	}
	return "", false
}

// isComponentFunction reports whether fn is named like a component.
// Anonymous functions never are.
func isComponentFunction(fn *syntax.Node) bool {
	name, ok := functionName(fn)
	return ok && startsUppercase(name)
}

// onFunctionExit validates every reference owned by the exiting frame and
// pops it.
func (a *analyzer) onFunctionExit(node *syntax.Node) {
	if node.IsFunction() && a.stack.isSyncCallback(node) {
		return
	}
	cur := a.stack.current()
	if cur.node != node {
		fail("exit", node, "current frame is %s", cur.node)
	}

	// A function returning markup is a component; its parameter is props.
	if cur.hasJSX && node.IsFunction() && isComponentFunction(node) {
		a.markPropsOnCondition(node, nil)
	}

	signals := a.reg.consumeSignalReferencesInScope()
	props := a.reg.consumePropsReferencesInScope()
	for _, c := range signals {
		a.validateSignal(c)
	}
	for _, c := range props {
		a.validateProps(c)
	}

	for _, fn := range cur.unnamedDerived {
		if !a.matchesTracked(cur, fn) {
			start, end := functionHead(fn)
			a.report(diag.KindUntrackedDerivedFunction, start, end, diag.Args{})
		}
	}

	a.stack.exit(node)
}

func (a *analyzer) validateSignal(c consumedRef) {
	id := c.ref.Identifier
	if c.ref.Write {
		a.reportNode(diag.KindIllegalMutation, id, diag.Args{Name: id.Name})
		return
	}
	if !id.Is(syntax.KindIdentifier) {
		return
	}

	p := id.Parent
	switch {
	case p.Is(syntax.KindCall), p.Is(syntax.KindArray) && p.Parent.Is(syntax.KindCall):
		// Called, or passed to a call (possibly in an array of deps).
		a.handleTrackedScopes(id, c, id.Name)
	case p.Is(syntax.KindTemplate):
		a.badCall(id, diag.ContextTemplateLiteral)
	case p.Is(syntax.KindBinary) && valueOperators[p.Operator]:
		a.badCall(id, diag.ContextArithmetic)
	case p.Is(syntax.KindUnary) && valueUnaryOperators[p.Operator]:
		a.badCall(id, diag.ContextUnary)
	case p.Is(syntax.KindMember) && p.Computed && p.Property == id:
		a.badCall(id, diag.ContextComputedProperty)
	case p.Is(syntax.KindJSXExpression):
		if hasFunctionEntry(a.stack.current(), id) {
			return
		}
		holder := p.Parent
		if holder.Is(syntax.KindJSXElement) ||
			holder.Is(syntax.KindJSXAttribute) && isDOMElementName(holder.Parent.Name) {
			a.badCall(id, diag.ContextUnwrappedMarkup)
		}
	case a.isTrackedScopeReturn(id):
		a.badCall(id, diag.ContextTrackedScopeReturn)
	}
}

// isTrackedScopeReturn reports whether id is returned uncalled from a
// function-kind tracked scope, as in createMemo(() => count).
func (a *analyzer) isTrackedScopeReturn(id *syntax.Node) bool {
	var fn *syntax.Node
	switch p := id.Parent; {
	case p.Is(syntax.KindArrowFunction) && p.Body == id:
		fn = p
	case p.Is(syntax.KindReturn):
		fn = p.EnclosingFunction()
	default:
		return false
	}
	return fn.IsFunction() && a.isTrackedFunction(fn)
}

func (a *analyzer) validateProps(c consumedRef) {
	id := c.ref.Identifier
	if c.ref.Write {
		a.reportNode(diag.KindIllegalMutation, id, diag.Args{Name: id.Name})
		return
	}

	p := id.Parent
	switch {
	case p.Is(syntax.KindMember) && p.Object == id:
		switch {
		case p.Parent.Is(syntax.KindAssignment) && p.Parent.Left == p,
			p.Parent.Is(syntax.KindUpdate):
			a.reportNode(diag.KindIllegalMutation, id, diag.Args{Name: id.Name})
		case !p.Computed && p.Property.Is(syntax.KindPropertyName) && nonReactiveMember.MatchString(p.Property.Name):
			// props.initialCount and friends are read once on purpose.
		default:
			a.handleTrackedScopes(id, c, a.tree.Text(p))
		}
	case p.Is(syntax.KindAssignment), p.Is(syntax.KindDeclarator):
		// `const { a } = props` and `x = props` lose reactivity.
		if !a.stack.atRoot() {
			a.reportNode(diag.KindUntrackedRead, id, diag.Args{Name: id.Name})
		}
	}
}

// handleTrackedScopes checks a reactive read against the tracked scopes of
// the current frame. A read of a binding declared further out promotes the
// current function to a derived signal instead.
func (a *analyzer) handleTrackedScopes(id *syntax.Node, c consumedRef, name string) {
	cur := a.stack.current()
	if a.matchesTracked(cur, id) {
		return
	}

	if c.declScope == cur.id() {
		switch {
		case a.matchesAsExpression(cur, id):
			a.reportNode(diag.KindNeedsFunctionWrapper, id, diag.Args{Name: name})
		case a.stack.atRoot():
			// Module initialization code runs once by design.
		case c.binding.kind == BindingDerivedSignal:
			a.untrackedDerivedCall(id, c)
		default:
			a.reportNode(diag.KindUntrackedRead, id, diag.Args{Name: name})
		}
		return
	}

	if a.stack.atRoot() {
		fail("handleTrackedScopes", id, "binding declared in scope %d read at program root", c.declScope)
	}
	a.promote(cur.node, c.declScope)
}

// promote turns fn into a derived signal declared at declScope.
func (a *analyzer) promote(fn *syntax.Node, declScope ScopeID) {
	switch parent := fn.Parent; {
	case fn.Is(syntax.KindFunctionDecl) && fn.NameNode.Is(syntax.KindIdentifier):
		if v := a.bindings.Declared(fn.NameNode); v != nil {
			a.reg.pushUniqueSignal(v, declScope)
			return
		}
	case parent.Is(syntax.KindDeclarator) && parent.Init == fn && parent.NameNode.Is(syntax.KindIdentifier):
		if v := a.bindings.Declared(parent.NameNode); v != nil {
			a.reg.pushUniqueSignal(v, declScope)
			return
		}
	case parent.Is(syntax.KindAssignment) && parent.Operator == "=" && parent.Right == fn &&
		parent.Left.Is(syntax.KindIdentifier):
		if v := a.bindings.Resolve(parent.Left); v != nil {
			a.reg.pushUniqueSignal(v, declScope)
			// The assignment names the function; it is not a mutation.
			a.reg.dropReference(v, parent.Left)
			return
		}
	case parent.Is(syntax.KindProperty), fn.Is(syntax.KindMethod) && parent.Is(syntax.KindObject):
		// Object members are not followed.
		return
	}
	a.stack.parent().addUnnamedDerived(fn)
}

// untrackedDerivedCall reports a named derived function called outside a
// tracked scope, at the function's declaration.
func (a *analyzer) untrackedDerivedCall(id *syntax.Node, c consumedRef) {
	v := c.binding.variable
	at := id
	if len(v.Defs) > 0 && v.Defs[0].Name != nil {
		at = v.Defs[0].Name
	}
	d := a.newDiagnostic(diag.KindUntrackedDerivedFunction, at.Start, at.End, diag.Args{Name: v.Name})
	d.Related = append(d.Related, diag.Related{
		Pos:     position(id.Start),
		Message: "'" + v.Name + "' is called outside a tracked scope here",
	})
	a.diags = append(a.diags, d)
}

func (a *analyzer) badCall(id *syntax.Node, ctx diag.CallContext) {
	d := a.newDiagnostic(diag.KindBadCallContext, id.Start, id.End, diag.Args{Name: id.Name, Context: ctx})
	d.Context = ctx
	d.Fixes = []diag.TextEdit{diag.Insert(id.End.Offset, "()")}
	a.diags = append(a.diags, d)
}
