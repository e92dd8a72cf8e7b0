package reactivity

import (
	"github.com/jward/tracklint/internal/binding"
	"github.com/jward/tracklint/internal/diag"
	"github.com/jward/tracklint/internal/syntax"
)

// checkForReactiveAssignment registers the bindings created by a factory
// call init captured by id. id is nil when the call result is not captured.
func (a *analyzer) checkForReactiveAssignment(id, init *syntax.Node) {
	if !init.Is(syntax.KindCall) || !init.Callee.Is(syntax.KindIdentifier) {
		return
	}
	name := init.Callee.Name
	scope := a.stack.current().id()

	switch {
	case a.imports.match(name, "createSignal", "useTransition"):
		if v := a.nthDestructured(id, 0); v != nil {
			a.reg.pushSignal(v, scope)
		} else if !id.Is(syntax.KindArrayPattern) {
			a.shouldDestructure(id, init, "first ")
		}

	case a.imports.match(name, "createMemo", "createSelector"):
		if v := a.returnedVar(id); v != nil {
			a.reg.pushSignal(v, scope)
		} else if id == nil {
			a.shouldAssign(init)
		}

	case a.imports.match(name, "createStore", "createResource"):
		if v := a.nthDestructured(id, 0); v != nil {
			a.reg.pushProps(v, scope)
		} else if !id.Is(syntax.KindArrayPattern) {
			a.shouldDestructure(id, init, "first ")
		}

	case a.imports.match(name, "mergeProps", "createMutable"):
		if v := a.returnedVar(id); v != nil {
			a.reg.pushProps(v, scope)
		} else if id == nil {
			a.shouldAssign(init)
		}

	case a.imports.match(name, "splitProps"):
		// splitProps returns one props object per key list plus the rest.
		switch {
		case id.Is(syntax.KindArrayPattern):
			for i := range id.Elements {
				a.reg.pushProps(a.nthDestructured(id, i), scope)
			}
		case id == nil:
			a.shouldDestructure(nil, init, "")
		default:
			a.reg.pushProps(a.returnedVar(id), scope)
		}

	case a.imports.match(name, "mapArray"):
		if fn := init.Arg(1); fn.IsFunction() && fn.Param(1).Is(syntax.KindIdentifier) {
			a.reg.pushSignal(a.bindings.Declared(fn.Param(1)), scope)
		}

	case a.imports.match(name, "indexArray"):
		if fn := init.Arg(1); fn.IsFunction() && fn.Param(0).Is(syntax.KindIdentifier) {
			a.reg.pushSignal(a.bindings.Declared(fn.Param(0)), scope)
		}
	}
}

// nthDestructured returns the variable bound by element n of an array
// pattern, if it is a plain identifier.
func (a *analyzer) nthDestructured(id *syntax.Node, n int) *binding.Variable {
	if !id.Is(syntax.KindArrayPattern) {
		return nil
	}
	el := id.Element(n)
	if !el.Is(syntax.KindIdentifier) {
		return nil
	}
	return a.bindings.Resolve(el)
}

// returnedVar returns the variable id names, if it is a plain identifier.
func (a *analyzer) returnedVar(id *syntax.Node) *binding.Variable {
	if !id.Is(syntax.KindIdentifier) {
		return nil
	}
	return a.bindings.Resolve(id)
}

func (a *analyzer) shouldDestructure(id, init *syntax.Node, nth string) {
	at := init
	if id != nil {
		at = id
	}
	a.report(diag.KindShouldDestructure, at.Start, at.End, diag.Args{Nth: nth})
}

func (a *analyzer) shouldAssign(init *syntax.Node) {
	a.report(diag.KindShouldAssign, init.Start, init.End, diag.Args{})
}

// checkForSyncCallbacks marks function arguments that run synchronously
// inside the call, so they do not get a frame of their own.
func (a *analyzer) checkForSyncCallbacks(call *syntax.Node) {
	callee := call.Callee
	if len(call.Args) == 1 && call.Args[0].IsFunction() && !call.Args[0].Async {
		switch {
		case a.imports.matchCallee(callee, syncCallbackPrimitives...):
			a.stack.markSyncCallback(call.Args[0])
		case callee.Is(syntax.KindMember) && !callee.Computed && !callee.Object.Is(syntax.KindObject) &&
			callee.Property.Is(syntax.KindPropertyName) && syncArrayMethods[callee.Property.Name]:
			a.stack.markSyncCallback(call.Args[0])
		}
	}

	switch {
	case a.imports.matchCallee(callee, "createSignal", "createStore") && call.Parent.Is(syntax.KindDeclarator):
		// Update callbacks passed to the setter read current values
		// synchronously: setCount((c) => c + step()).
		setter := call.Parent.NameNode.Element(1)
		if call.Parent.NameNode.Is(syntax.KindArrayPattern) && setter.Is(syntax.KindIdentifier) {
			a.markSetterCallbacks(setter)
		}
	case a.imports.matchCallee(callee, "mapArray", "indexArray"):
		if fn := call.Arg(1); fn.IsFunction() {
			a.stack.markSyncCallback(fn)
		}
	}

	// Immediately invoked function expressions.
	if callee.IsFunction() {
		a.stack.markSyncCallback(callee)
	}
}

func (a *analyzer) markSetterCallbacks(setter *syntax.Node) {
	v := a.bindings.Declared(setter)
	if v == nil {
		return
	}
	for _, ref := range v.References {
		id := ref.Identifier
		if id == setter || !id.Parent.Is(syntax.KindCall) || id.Parent.Callee != id {
			continue
		}
		for _, arg := range id.Parent.Args {
			if arg.IsFunction() && !arg.Async {
				a.stack.markSyncCallback(arg)
			}
		}
	}
}

// checkForListChildren registers the reactive parameter of a render
// callback inside <For> or <Index>. fn's frame is already current.
func (a *analyzer) checkForListChildren(fn *syntax.Node) {
	container := fn.Parent
	if !container.Is(syntax.KindJSXExpression) || container.Argument != fn {
		return
	}
	element := container.Parent
	if !element.Is(syntax.KindJSXElement) {
		return
	}
	scope := a.stack.current().id()
	switch {
	case a.imports.match(element.Name, "For") && len(fn.Params) == 2 && fn.Param(1).Is(syntax.KindIdentifier):
		// <For each={list()}>{(item, index) => ...}</For>: index is an accessor.
		a.reg.pushSignal(a.bindings.Declared(fn.Param(1)), scope)
	case a.imports.match(element.Name, "Index") && fn.Param(0).Is(syntax.KindIdentifier):
		// <Index each={list()}>{(item) => ...}</Index>: item is an accessor.
		a.reg.pushSignal(a.bindings.Declared(fn.Param(0)), scope)
	}
}
