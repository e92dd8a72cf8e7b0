package reactivity

import (
	"slices"

	"github.com/jward/tracklint/internal/binding"
	"github.com/jward/tracklint/internal/syntax"
)

// BindingKind classifies a registered reactive binding.
type BindingKind uint8

const (
	BindingSignal BindingKind = iota
	BindingDerivedSignal
	BindingProps
)

func (k BindingKind) String() string {
	switch k {
	case BindingSignal:
		return "signal"
	case BindingDerivedSignal:
		return "derived-signal"
	case BindingProps:
		return "props"
	}
	return "unknown"
}

// reactiveBinding is a registered variable with the references not yet
// validated.
type reactiveBinding struct {
	kind      BindingKind
	variable  *binding.Variable
	declScope ScopeID
	pending   []*binding.Reference

	initial  []*binding.Reference
	consumed []*binding.Reference
}

// consumedRef is a reference drained at a frame exit, paired with the
// declaration scope of its binding at that moment.
type consumedRef struct {
	ref       *binding.Reference
	declScope ScopeID
	binding   *reactiveBinding
}

// registry records signal-like and props-like bindings.
type registry struct {
	stack   *scopeStack
	signals []*reactiveBinding
	props   []*reactiveBinding

	// all keeps every binding ever registered, for reporting.
	all []*reactiveBinding
	// seen prevents registering a variable twice in the same list, which
	// would hand out its references a second time.
	seenSignals map[*binding.Variable]bool
	seenProps   map[*binding.Variable]bool
}

func newRegistry(stack *scopeStack) *registry {
	return &registry{
		stack:       stack,
		seenSignals: make(map[*binding.Variable]bool),
		seenProps:   make(map[*binding.Variable]bool),
	}
}

func newBinding(kind BindingKind, v *binding.Variable, scope ScopeID) *reactiveBinding {
	b := &reactiveBinding{kind: kind, variable: v, declScope: scope}
	for _, ref := range v.References {
		if !ref.Init {
			b.pending = append(b.pending, ref)
		}
	}
	b.initial = append([]*binding.Reference(nil), b.pending...)
	return b
}

func (r *registry) pushSignal(v *binding.Variable, scope ScopeID) {
	r.pushSignalKind(BindingSignal, v, scope)
}

func (r *registry) pushSignalKind(kind BindingKind, v *binding.Variable, scope ScopeID) {
	if v == nil || r.seenSignals[v] {
		return
	}
	r.seenSignals[v] = true
	b := newBinding(kind, v, scope)
	r.signals = append(r.signals, b)
	r.all = append(r.all, b)
}

func (r *registry) pushProps(v *binding.Variable, scope ScopeID) {
	if v == nil || r.seenProps[v] {
		return
	}
	r.seenProps[v] = true
	b := newBinding(BindingProps, v, scope)
	r.props = append(r.props, b)
	r.all = append(r.all, b)
}

// pushUniqueSignal registers a derived signal, or widens the declaration
// scope of an already live registration to the deeper of the two.
func (r *registry) pushUniqueSignal(v *binding.Variable, scope ScopeID) {
	for _, b := range r.signals {
		if b.variable == v {
			b.declScope = r.stack.findDeepestDeclarationScope(b.declScope, scope)
			return
		}
	}
	r.pushSignalKind(BindingDerivedSignal, v, scope)
}

// dropReference removes the pending reference of v at id from its live
// signal registration.
func (r *registry) dropReference(v *binding.Variable, id *syntax.Node) {
	for _, b := range r.signals {
		if b.variable != v {
			continue
		}
		for i, ref := range b.pending {
			if ref.Identifier == id {
				b.pending = slices.Delete(b.pending, i, i+1)
				b.initial = slices.DeleteFunc(b.initial, func(r *binding.Reference) bool { return r.Identifier == id })
				return
			}
		}
	}
}

func (r *registry) consumeSignalReferencesInScope() []consumedRef {
	var out []consumedRef
	out, r.signals = r.consume(r.signals, out)
	return out
}

func (r *registry) consumePropsReferencesInScope() []consumedRef {
	var out []consumedRef
	out, r.props = r.consume(r.props, out)
	return out
}

// consume moves every reference owned by the current frame out of the
// bindings, dropping bindings left with none.
func (r *registry) consume(list []*reactiveBinding, out []consumedRef) ([]consumedRef, []*reactiveBinding) {
	live := list[:0]
	for _, b := range list {
		var rest []*binding.Reference
		for _, ref := range b.pending {
			if r.stack.isReferenceInCurrentScope(ref.Identifier) {
				out = append(out, consumedRef{ref: ref, declScope: b.declScope, binding: b})
				b.consumed = append(b.consumed, ref)
			} else {
				rest = append(rest, ref)
			}
		}
		b.pending = rest
		if len(rest) > 0 {
			live = append(live, b)
		}
	}
	return out, live
}
