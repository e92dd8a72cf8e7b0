// Package binding computes lexical scopes, variables and references over a
// converted syntax tree.
package binding

import "github.com/jward/tracklint/internal/syntax"

// ScopeKind classifies a lexical scope.
type ScopeKind uint8

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
	ScopeBlock
	ScopeCatch
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	case ScopeCatch:
		return "catch"
	}
	return "unknown"
}

// Scope is one lexical scope.
type Scope struct {
	Kind     ScopeKind
	Node     *syntax.Node
	Parent   *Scope
	Children []*Scope

	vars  map[string]*Variable
	order []*Variable
}

func newScope(kind ScopeKind, node *syntax.Node, parent *Scope) *Scope {
	s := &Scope{Kind: kind, Node: node, Parent: parent, vars: make(map[string]*Variable)}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Variables returns the scope's variables in declaration order.
func (s *Scope) Variables() []*Variable {
	return s.order
}

// Own returns the variable declared directly in s under name.
func (s *Scope) Own(name string) *Variable {
	return s.vars[name]
}

// Lookup resolves name in s or its ancestors.
func (s *Scope) Lookup(name string) *Variable {
	for cur := s; cur != nil; cur = cur.Parent {
		if v, ok := cur.vars[name]; ok {
			return v
		}
	}
	return nil
}

// functionScope returns the nearest function or module scope.
func (s *Scope) functionScope() *Scope {
	cur := s
	for cur.Kind != ScopeFunction && cur.Kind != ScopeModule {
		cur = cur.Parent
	}
	return cur
}

func (s *Scope) declare(name string) *Variable {
	if v, ok := s.vars[name]; ok {
		return v
	}
	v := &Variable{Name: name, Scope: s}
	s.vars[name] = v
	s.order = append(s.order, v)
	return v
}

// DefKind classifies how a variable was introduced.
type DefKind uint8

const (
	DefVar DefKind = iota
	DefLet
	DefConst
	DefParam
	DefFunctionName
	DefClassName
	DefImport
	DefCatchParam
)

// Def is one declaration site of a variable.
type Def struct {
	Kind DefKind
	// Name is the declaring identifier.
	Name *syntax.Node
	// Node is the declaring construct: the declarator, function, class,
	// import specifier or catch clause.
	Node *syntax.Node
}

// Variable is a named binding in a scope.
type Variable struct {
	Name       string
	Scope      *Scope
	Defs       []Def
	References []*Reference
}

// Reference is one use-site of a name.
type Reference struct {
	Identifier *syntax.Node
	From       *Scope
	Resolved   *Variable
	Read       bool
	Write      bool
	// Init is set on the write performed by a declaration's initializer.
	Init bool
}

// IsReadOnly reports whether the reference only reads.
func (r *Reference) IsReadOnly() bool { return r.Read && !r.Write }

// IsWriteOnly reports whether the reference only writes.
func (r *Reference) IsWriteOnly() bool { return r.Write && !r.Read }
