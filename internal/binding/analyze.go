package binding

import "github.com/jward/tracklint/internal/syntax"

// Table is the result of scope analysis over one tree.
type Table struct {
	Root *Scope
	// Unresolved holds references to names with no declaration in the file.
	Unresolved []*Reference

	scopes   map[*syntax.Node]*Scope
	declared map[*syntax.Node]declSite
	refs     map[*syntax.Node]*Reference
}

type declSite struct {
	v *Variable
	// writes is set when the declaration assigns a value (an initializer
	// or a for-in/of binding), producing a write+init reference.
	writes bool
}

// Analyze builds the scope table for the tree rooted at root. Declarations
// are collected in a first pass so hoisted names resolve regardless of
// source order.
func Analyze(root *syntax.Node) *Table {
	t := &Table{
		scopes:   make(map[*syntax.Node]*Scope),
		declared: make(map[*syntax.Node]declSite),
		refs:     make(map[*syntax.Node]*Reference),
	}
	d := &declarer{t: t}
	d.run(root)
	r := &resolver{t: t, targets: make(map[*syntax.Node]bool)}
	r.run(root)
	return t
}

// Declared returns the variable introduced by a declaring identifier.
func (t *Table) Declared(id *syntax.Node) *Variable {
	return t.declared[id].v
}

// Resolve returns the variable an identifier refers to, whether it declares
// the variable or references it. Nil for unresolved or non-identifier nodes.
func (t *Table) Resolve(id *syntax.Node) *Variable {
	if site, ok := t.declared[id]; ok {
		return site.v
	}
	if ref, ok := t.refs[id]; ok {
		return ref.Resolved
	}
	return nil
}

// Reference returns the reference recorded for an identifier, if any.
func (t *Table) Reference(id *syntax.Node) *Reference {
	return t.refs[id]
}

// ScopeOf returns the scope created by node, if it creates one.
func (t *Table) ScopeOf(node *syntax.Node) *Scope {
	return t.scopes[node]
}

// createsScope reports the kind of scope node introduces.
func createsScope(n *syntax.Node) (ScopeKind, bool) {
	switch n.Kind {
	case syntax.KindProgram:
		return ScopeModule, true
	case syntax.KindFunctionDecl, syntax.KindFunctionExpr, syntax.KindArrowFunction, syntax.KindMethod:
		return ScopeFunction, true
	case syntax.KindCatch:
		return ScopeCatch, true
	case syntax.KindFor, syntax.KindForIn, syntax.KindSwitch:
		return ScopeBlock, true
	case syntax.KindBlock:
		// A function body shares the function's scope.
		if n.Parent.IsFunction() && n.Parent.Body == n {
			return 0, false
		}
		return ScopeBlock, true
	}
	return 0, false
}

// patternIdentifiers calls fn for each identifier bound by a pattern.
func patternIdentifiers(p *syntax.Node, fn func(*syntax.Node)) {
	if p == nil {
		return
	}
	switch p.Kind {
	case syntax.KindIdentifier:
		fn(p)
	case syntax.KindArrayPattern, syntax.KindArray:
		for _, el := range p.Elements {
			patternIdentifiers(el, fn)
		}
	case syntax.KindObjectPattern, syntax.KindObject:
		for _, prop := range p.Children {
			switch prop.Kind {
			case syntax.KindProperty:
				patternIdentifiers(prop.Value, fn)
			default:
				patternIdentifiers(prop, fn)
			}
		}
	case syntax.KindAssignmentPattern:
		patternIdentifiers(p.Left, fn)
	case syntax.KindAssignment:
		// Defaults inside array destructuring assignments.
		if p.Operator == "=" {
			patternIdentifiers(p.Left, fn)
		}
	case syntax.KindRest, syntax.KindSpread:
		patternIdentifiers(p.Argument, fn)
	}
}

type declarer struct {
	t     *Table
	stack []*Scope
}

func (d *declarer) current() *Scope { return d.stack[len(d.stack)-1] }

func (d *declarer) run(root *syntax.Node) {
	syntax.Walk(root, d.enter, d.exit)
}

func (d *declarer) define(s *Scope, id *syntax.Node, def Def, writes bool) {
	v := s.declare(id.Name)
	def.Name = id
	v.Defs = append(v.Defs, def)
	d.t.declared[id] = declSite{v: v, writes: writes}
}

func (d *declarer) enter(n *syntax.Node) bool {
	// Function declaration names and class declaration names bind in the
	// enclosing scope, so handle them before pushing the function's scope.
	switch n.Kind {
	case syntax.KindFunctionDecl:
		if n.NameNode.Is(syntax.KindIdentifier) && len(d.stack) > 0 {
			d.define(d.current(), n.NameNode, Def{Kind: DefFunctionName, Node: n}, false)
		}
	case syntax.KindClass:
		if n.NameNode.Is(syntax.KindIdentifier) && n.Type != "class" && len(d.stack) > 0 {
			d.define(d.current(), n.NameNode, Def{Kind: DefClassName, Node: n}, false)
		}
	}

	if kind, ok := createsScope(n); ok {
		var parent *Scope
		if len(d.stack) > 0 {
			parent = d.current()
		}
		s := newScope(kind, n, parent)
		if parent == nil {
			d.t.Root = s
		}
		d.t.scopes[n] = s
		d.stack = append(d.stack, s)
	}

	switch n.Kind {
	case syntax.KindFunctionExpr:
		if n.NameNode.Is(syntax.KindIdentifier) {
			d.define(d.current(), n.NameNode, Def{Kind: DefFunctionName, Node: n}, false)
		}
		d.params(n)
	case syntax.KindArrowFunction, syntax.KindMethod, syntax.KindFunctionDecl:
		d.params(n)
	case syntax.KindCatch:
		for _, p := range n.Params {
			patternIdentifiers(p, func(id *syntax.Node) {
				d.define(d.current(), id, Def{Kind: DefCatchParam, Node: n}, false)
			})
		}
	case syntax.KindVarDecl:
		d.varDecl(n)
	case syntax.KindForIn:
		if n.DeclKind != "" && !n.Left.Is(syntax.KindVarDecl) {
			s, kind := d.declScope(n.DeclKind)
			patternIdentifiers(n.Left, func(id *syntax.Node) {
				d.define(s, id, Def{Kind: kind, Node: n}, true)
			})
		}
	case syntax.KindImportSpecifier:
		if n.Argument.Is(syntax.KindIdentifier) {
			d.define(d.t.Root, n.Argument, Def{Kind: DefImport, Node: n}, false)
		}
	}
	return true
}

func (d *declarer) exit(n *syntax.Node) {
	if _, ok := createsScope(n); ok {
		d.stack = d.stack[:len(d.stack)-1]
	}
}

func (d *declarer) params(fn *syntax.Node) {
	for _, p := range fn.Params {
		patternIdentifiers(p, func(id *syntax.Node) {
			d.define(d.current(), id, Def{Kind: DefParam, Node: fn}, false)
		})
	}
}

func (d *declarer) declScope(declKind string) (*Scope, DefKind) {
	switch declKind {
	case "const":
		return d.current(), DefConst
	case "let":
		return d.current(), DefLet
	}
	return d.current().functionScope(), DefVar
}

func (d *declarer) varDecl(n *syntax.Node) {
	s, kind := d.declScope(n.DeclKind)
	for _, decl := range n.Children {
		if decl.Kind != syntax.KindDeclarator {
			continue
		}
		writes := decl.Init != nil
		patternIdentifiers(decl.NameNode, func(id *syntax.Node) {
			d.define(s, id, Def{Kind: kind, Node: decl}, writes)
		})
	}
}

type resolver struct {
	t     *Table
	stack []*Scope
	// targets maps assignment-target identifiers to whether the
	// assignment also reads them (compound operators, updates).
	targets map[*syntax.Node]bool
}

func (r *resolver) run(root *syntax.Node) {
	syntax.Walk(root, r.enter, r.exit)
}

func (r *resolver) enter(n *syntax.Node) bool {
	if s, ok := r.t.scopes[n]; ok {
		r.stack = append(r.stack, s)
	}

	switch n.Kind {
	case syntax.KindAssignment:
		compound := n.Operator != "="
		if n.Left.Is(syntax.KindIdentifier) {
			r.targets[n.Left] = compound
		} else if !compound {
			patternIdentifiers(n.Left, func(id *syntax.Node) { r.targets[id] = false })
		}
	case syntax.KindUpdate:
		if n.Argument.Is(syntax.KindIdentifier) {
			r.targets[n.Argument] = true
		}
	case syntax.KindForIn:
		if n.DeclKind == "" {
			patternIdentifiers(n.Left, func(id *syntax.Node) { r.targets[id] = false })
		}
	case syntax.KindIdentifier:
		r.identifier(n)
	}
	return true
}

func (r *resolver) exit(n *syntax.Node) {
	if _, ok := r.t.scopes[n]; ok {
		r.stack = r.stack[:len(r.stack)-1]
	}
}

func (r *resolver) identifier(id *syntax.Node) {
	scope := r.stack[len(r.stack)-1]

	if site, ok := r.t.declared[id]; ok {
		if site.writes {
			r.record(&Reference{Identifier: id, From: scope, Resolved: site.v, Write: true, Init: true})
		}
		return
	}
	if !isReferencePosition(id) {
		return
	}

	ref := &Reference{Identifier: id, From: scope, Read: true}
	if compound, ok := r.targets[id]; ok {
		ref.Write = true
		ref.Read = compound
	}
	ref.Resolved = scope.Lookup(id.Name)
	r.record(ref)
}

func (r *resolver) record(ref *Reference) {
	r.t.refs[ref.Identifier] = ref
	if ref.Resolved != nil {
		ref.Resolved.References = append(ref.Resolved.References, ref)
	} else {
		r.t.Unresolved = append(r.t.Unresolved, ref)
	}
}

// isReferencePosition filters identifiers that name something other than
// a variable: class expression names and import specifier names.
func isReferencePosition(id *syntax.Node) bool {
	p := id.Parent
	if p == nil {
		return false
	}
	switch p.Kind {
	case syntax.KindClass:
		return p.NameNode != id
	case syntax.KindImportSpecifier:
		return false
	case syntax.KindFunctionExpr, syntax.KindFunctionDecl:
		return p.NameNode != id
	}
	return true
}
