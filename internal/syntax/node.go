package syntax

import "fmt"

// Kind is the closed set of node kinds the analyzer dispatches on.
// Grammar node types that carry no meaning for reactivity analysis are
// folded into KindOther; their children are still converted.
type Kind uint8

const (
	KindOther Kind = iota
	KindProgram

	// Functions.
	KindFunctionDecl
	KindFunctionExpr
	KindArrowFunction
	KindMethod

	// Names and literals.
	KindIdentifier
	KindPropertyName
	KindThis
	KindLiteral
	KindTemplate

	// Expressions.
	KindCall
	KindNew
	KindTaggedTemplate
	KindMember
	KindAssignment
	KindUpdate
	KindBinary
	KindUnary
	KindConditional
	KindSequence
	KindAwait
	KindYield
	KindSpread
	KindArray
	KindObject
	KindProperty

	// Patterns.
	KindArrayPattern
	KindObjectPattern
	KindAssignmentPattern
	KindRest

	// Declarations and statements.
	KindVarDecl
	KindDeclarator
	KindClass
	KindImport
	KindImportSpecifier
	KindExport
	KindBlock
	KindReturn
	KindFor
	KindForIn
	KindCatch
	KindSwitch

	// Markup.
	KindJSXElement
	KindJSXAttribute
	KindJSXExpression
	KindJSXSpread
	KindJSXText

	kindCount
)

var kindNames = [kindCount]string{
	KindOther:             "Other",
	KindProgram:           "Program",
	KindFunctionDecl:      "FunctionDecl",
	KindFunctionExpr:      "FunctionExpr",
	KindArrowFunction:     "ArrowFunction",
	KindMethod:            "Method",
	KindIdentifier:        "Identifier",
	KindPropertyName:      "PropertyName",
	KindThis:              "This",
	KindLiteral:           "Literal",
	KindTemplate:          "Template",
	KindCall:              "Call",
	KindNew:               "New",
	KindTaggedTemplate:    "TaggedTemplate",
	KindMember:            "Member",
	KindAssignment:        "Assignment",
	KindUpdate:            "Update",
	KindBinary:            "Binary",
	KindUnary:             "Unary",
	KindConditional:       "Conditional",
	KindSequence:          "Sequence",
	KindAwait:             "Await",
	KindYield:             "Yield",
	KindSpread:            "Spread",
	KindArray:             "Array",
	KindObject:            "Object",
	KindProperty:          "Property",
	KindArrayPattern:      "ArrayPattern",
	KindObjectPattern:     "ObjectPattern",
	KindAssignmentPattern: "AssignmentPattern",
	KindRest:              "Rest",
	KindVarDecl:           "VarDecl",
	KindDeclarator:        "Declarator",
	KindClass:             "Class",
	KindImport:            "Import",
	KindImportSpecifier:   "ImportSpecifier",
	KindExport:            "Export",
	KindBlock:             "Block",
	KindReturn:            "Return",
	KindFor:               "For",
	KindForIn:             "ForIn",
	KindCatch:             "Catch",
	KindSwitch:            "Switch",
	KindJSXElement:        "JSXElement",
	KindJSXAttribute:      "JSXAttribute",
	KindJSXExpression:     "JSXExpression",
	KindJSXSpread:         "JSXSpread",
	KindJSXText:           "JSXText",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Point is a source position.
type Point struct {
	Offset int
	Line   int // 1-based
	Column int // 1-based, in bytes
}

// Node is one converted syntax-tree node. Which role slots are populated
// depends on Kind; Children always holds every converted child in source
// order and is what generic walks follow.
type Node struct {
	Kind     Kind
	Type     string // grammar node type, for diagnostics and debugging
	ID       int    // pre-order index, unique within a Tree
	Parent   *Node
	Children []*Node
	Start    Point
	End      Point

	// Name is the identifier text for Identifier/PropertyName, the tag
	// name for JSXElement ("" for fragments), the attribute name for
	// JSXAttribute, and the imported name for ImportSpecifier.
	Name string
	// Operator for Assignment ("=", "+=", ...), Update, Binary and Unary.
	Operator string
	// DeclKind is "var", "let" or "const" for VarDecl.
	DeclKind string
	// Source is the unquoted module specifier of an Import.
	Source string

	Async    bool // functions
	Computed bool // Member with a bracketed key, Property with a computed key
	Prefix   bool // Update
	Getter   bool // Method/Property defined with `get`

	// Function: NameNode (may be nil), Params, Body.
	// Class: NameNode, Left (superclass), Body.
	// Declarator: NameNode (an identifier or pattern), Init.
	// Catch: Params (0 or 1), Body.
	NameNode *Node
	Params   []*Node
	Body     *Node
	Init     *Node

	// Call, New, TaggedTemplate: Callee and Args (the template for tags).
	Callee *Node
	Args   []*Node

	// Member: Object and Property.
	Object   *Node
	Property *Node

	// Binary, Assignment, AssignmentPattern, ForIn: Left and Right.
	Left  *Node
	Right *Node

	// Argument of Unary, Update, Spread, Rest, Return, Await, Yield,
	// JSXExpression (nil for `{}`), JSXSpread.
	Argument *Node

	// Property and JSXAttribute: Key and Value. Key is nil for attributes;
	// attribute values are a Literal, JSXExpression or JSXElement.
	Key   *Node
	Value *Node

	// Elements of Array and ArrayPattern; holes are nil.
	Elements []*Node

	// JSXElement attributes (JSXAttribute and JSXSpread) and markup children.
	Attributes  []*Node
	JSXChildren []*Node

	// Specifiers of an Import (ImportSpecifier nodes whose Argument is the
	// local identifier).
	Specifiers []*Node
}

// IsFunction reports whether n introduces a function scope.
func (n *Node) IsFunction() bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case KindFunctionDecl, KindFunctionExpr, KindArrowFunction, KindMethod:
		return true
	}
	return false
}

// IsFunctionOrProgram reports whether n is a function or the program root.
func (n *Node) IsFunctionOrProgram() bool {
	return n != nil && (n.Kind == KindProgram || n.IsFunction())
}

// Is reports whether n is non-nil and of kind k.
func (n *Node) Is(k Kind) bool {
	return n != nil && n.Kind == k
}

// IsIdentifier reports whether n is an identifier named name.
func (n *Node) IsIdentifier(name string) bool {
	return n != nil && n.Kind == KindIdentifier && n.Name == name
}

// Arg returns the i-th call argument or nil.
func (n *Node) Arg(i int) *Node {
	if n == nil || i >= len(n.Args) {
		return nil
	}
	return n.Args[i]
}

// Param returns the i-th function parameter or nil.
func (n *Node) Param(i int) *Node {
	if n == nil || i >= len(n.Params) {
		return nil
	}
	return n.Params[i]
}

// Element returns the i-th array element or nil (also for holes).
func (n *Node) Element(i int) *Node {
	if n == nil || i >= len(n.Elements) {
		return nil
	}
	return n.Elements[i]
}

// EnclosingFunction returns the nearest function or program ancestor of n,
// not including n itself.
func (n *Node) EnclosingFunction() *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.IsFunctionOrProgram() {
			return p
		}
	}
	return nil
}

// Contains reports whether other is n or a descendant of n.
func (n *Node) Contains(other *Node) bool {
	for p := other; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Name != "" {
		return fmt.Sprintf("%s(%s)@%d:%d", n.Kind, n.Name, n.Start.Line, n.Start.Column)
	}
	return fmt.Sprintf("%s@%d:%d", n.Kind, n.Start.Line, n.Start.Column)
}

// Walk visits n and its descendants depth-first, calling enter before and
// exit after a node's children. If enter returns false the children of
// that node are skipped, and exit is still called.
func Walk(n *Node, enter func(*Node) bool, exit func(*Node)) {
	if n == nil {
		return
	}
	if enter(n) {
		for _, c := range n.Children {
			Walk(c, enter, exit)
		}
	}
	if exit != nil {
		exit(n)
	}
}

// Inspect visits n and its descendants in pre-order until f returns false
// for a node, which skips that node's children.
func Inspect(n *Node, f func(*Node) bool) {
	Walk(n, f, nil)
}
