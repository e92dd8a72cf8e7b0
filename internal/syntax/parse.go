package syntax

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Tree is a converted source file.
type Tree struct {
	Root     *Node
	Source   []byte
	Dialect  Dialect
	Comments []Comment
	// Nodes is indexed by Node.ID.
	Nodes []*Node
	// HasErrors is set when the grammar reported syntax errors. The tree is
	// still usable; erroneous regions become KindOther nodes.
	HasErrors bool
}

// Comment is a source comment. Comments are not part of the node tree.
type Comment struct {
	Text  string
	Start Point
	End   Point
}

// Text returns the source text spanned by n.
func (t *Tree) Text(n *Node) string {
	if n == nil {
		return ""
	}
	return string(t.Source[n.Start.Offset:n.End.Offset])
}

// ParseFile reads and parses the file at path, choosing the dialect from its
// extension.
func ParseFile(ctx context.Context, path string) (*Tree, error) {
	d, ok := DialectForFile(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("syntax: read %s: %w", path, err)
	}
	return Parse(ctx, src, d)
}

// Parse parses src with the grammar for d and converts the result.
func Parse(ctx context.Context, src []byte, d Dialect) (*Tree, error) {
	lang, ok := GrammarFor(d)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, d)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	st, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: tree-sitter parse failed: %w", err)
	}
	defer st.Close()

	root := st.RootNode()
	c := &converter{src: src}
	t := &Tree{
		Source:    src,
		Dialect:   d,
		HasErrors: root.HasError(),
	}
	t.Root = c.convert(root, nil)
	if t.Root == nil {
		return nil, fmt.Errorf("syntax: empty tree")
	}
	t.Root.Kind = KindProgram
	t.Nodes = c.nodes
	c.collectComments(root)
	t.Comments = c.comments
	return t, nil
}

// skipTypes are grammar nodes that never carry runtime values. They are
// dropped with their whole subtree.
var skipTypes = map[string]bool{
	"comment":                   true,
	"hash_bang_line":            true,
	"html_comment":              true,
	"type_annotation":           true,
	"type_arguments":            true,
	"type_parameters":           true,
	"type_parameter":            true,
	"opting_type_annotation":    true,
	"omitting_type_annotation":  true,
	"asserts_annotation":        true,
	"type_predicate_annotation": true,
	"interface_declaration":     true,
	"type_alias_declaration":    true,
	"enum_declaration":          true,
	"ambient_declaration":       true,
	"abstract_method_signature": true,
	"function_signature":        true,
	"method_signature":          true,
	"property_signature":        true,
	"index_signature":           true,
	"implements_clause":         true,
	"accessibility_modifier":    true,
	"override_modifier":         true,
	"predefined_type":           true,
	"module":                    true,
	"internal_module":           true,
}

// transparentTypes wrap a single value without changing it.
var transparentTypes = map[string]bool{
	"parenthesized_expression": true,
	"as_expression":            true,
	"satisfies_expression":     true,
	"non_null_expression":      true,
	"type_assertion":           true,
}

type converter struct {
	src      []byte
	nodes    []*Node
	comments []Comment
}

func point(p sitter.Point, offset uint32) Point {
	return Point{Offset: int(offset), Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func (c *converter) newNode(sn *sitter.Node, parent *Node, kind Kind) *Node {
	n := &Node{
		Kind:   kind,
		Type:   sn.Type(),
		ID:     len(c.nodes),
		Parent: parent,
		Start:  point(sn.StartPoint(), sn.StartByte()),
		End:    point(sn.EndPoint(), sn.EndByte()),
	}
	c.nodes = append(c.nodes, n)
	return n
}

func (c *converter) text(sn *sitter.Node) string {
	return sn.Content(c.src)
}

// add converts sn as a child of n, appending it to n.Children.
func (c *converter) add(n *Node, sn *sitter.Node) *Node {
	child := c.convert(sn, n)
	if child != nil {
		n.Children = append(n.Children, child)
	}
	return child
}

// addAll converts every named child of sn as a child of n.
func (c *converter) addAll(n *Node, sn *sitter.Node) []*Node {
	var out []*Node
	for _, ch := range namedChildren(sn) {
		if child := c.add(n, ch); child != nil {
			out = append(out, child)
		}
	}
	return out
}

func namedChildren(sn *sitter.Node) []*sitter.Node {
	count := int(sn.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		ch := sn.NamedChild(i)
		if ch == nil || ch.Type() == "comment" {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// hasToken reports whether sn has a direct anonymous child of the given type.
func hasToken(sn *sitter.Node, tok string) bool {
	count := int(sn.ChildCount())
	for i := 0; i < count; i++ {
		ch := sn.Child(i)
		if ch != nil && !ch.IsNamed() && ch.Type() == tok {
			return true
		}
	}
	return false
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil &&
		a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// innerValue returns the wrapped value of a transparent node.
func innerValue(sn *sitter.Node) *sitter.Node {
	for _, ch := range namedChildren(sn) {
		if !skipTypes[ch.Type()] && !isTypeNode(ch.Type()) {
			return ch
		}
	}
	return nil
}

func isTypeNode(typ string) bool {
	switch typ {
	case "type_identifier", "generic_type", "object_type", "union_type", "intersection_type",
		"array_type", "tuple_type", "function_type", "literal_type", "nested_type_identifier",
		"lookup_type", "conditional_type", "index_type_query", "type_query", "readonly_type",
		"parenthesized_type", "template_literal_type", "infer_type", "constructor_type":
		return true
	}
	return false
}

func (c *converter) convert(sn *sitter.Node, parent *Node) *Node {
	if sn == nil {
		return nil
	}
	typ := sn.Type()
	if skipTypes[typ] {
		return nil
	}
	if transparentTypes[typ] {
		return c.convert(innerValue(sn), parent)
	}

	switch typ {
	case "program":
		n := c.newNode(sn, parent, KindProgram)
		c.addAll(n, sn)
		return n

	case "identifier", "shorthand_property_identifier", "shorthand_property_identifier_pattern", "type_identifier":
		n := c.newNode(sn, parent, KindIdentifier)
		n.Name = c.text(sn)
		return n

	case "property_identifier", "private_property_identifier", "statement_identifier":
		n := c.newNode(sn, parent, KindPropertyName)
		n.Name = c.text(sn)
		return n

	case "this":
		return c.newNode(sn, parent, KindThis)

	case "string", "number", "true", "false", "null", "undefined", "regex":
		n := c.newNode(sn, parent, KindLiteral)
		n.Name = c.text(sn)
		return n

	case "template_string":
		n := c.newNode(sn, parent, KindTemplate)
		for _, ch := range namedChildren(sn) {
			if ch.Type() == "template_substitution" {
				c.add(n, innerValue(ch))
			}
		}
		return n

	case "function_declaration", "generator_function_declaration":
		return c.function(sn, parent, KindFunctionDecl)
	case "function", "function_expression", "generator_function":
		return c.function(sn, parent, KindFunctionExpr)
	case "arrow_function":
		return c.function(sn, parent, KindArrowFunction)
	case "method_definition":
		return c.function(sn, parent, KindMethod)

	case "call_expression":
		args := sn.ChildByFieldName("arguments")
		if args != nil && args.Type() == "template_string" {
			n := c.newNode(sn, parent, KindTaggedTemplate)
			n.Callee = c.add(n, sn.ChildByFieldName("function"))
			if tpl := c.add(n, args); tpl != nil {
				n.Args = []*Node{tpl}
			}
			return n
		}
		n := c.newNode(sn, parent, KindCall)
		n.Callee = c.add(n, sn.ChildByFieldName("function"))
		if args != nil {
			n.Args = c.addAll(n, args)
		}
		return n

	case "new_expression":
		n := c.newNode(sn, parent, KindNew)
		n.Callee = c.add(n, sn.ChildByFieldName("constructor"))
		if args := sn.ChildByFieldName("arguments"); args != nil {
			n.Args = c.addAll(n, args)
		}
		return n

	case "member_expression":
		n := c.newNode(sn, parent, KindMember)
		n.Object = c.add(n, sn.ChildByFieldName("object"))
		n.Property = c.add(n, sn.ChildByFieldName("property"))
		return n

	case "subscript_expression":
		n := c.newNode(sn, parent, KindMember)
		n.Computed = true
		n.Object = c.add(n, sn.ChildByFieldName("object"))
		n.Property = c.add(n, sn.ChildByFieldName("index"))
		return n

	case "assignment_expression", "augmented_assignment_expression":
		n := c.newNode(sn, parent, KindAssignment)
		n.Operator = "="
		if op := sn.ChildByFieldName("operator"); op != nil {
			n.Operator = c.text(op)
		}
		n.Left = c.add(n, sn.ChildByFieldName("left"))
		n.Right = c.add(n, sn.ChildByFieldName("right"))
		return n

	case "update_expression":
		n := c.newNode(sn, parent, KindUpdate)
		arg := sn.ChildByFieldName("argument")
		if op := sn.ChildByFieldName("operator"); op != nil {
			n.Operator = c.text(op)
			n.Prefix = arg != nil && op.StartByte() < arg.StartByte()
		}
		n.Argument = c.add(n, arg)
		return n

	case "binary_expression":
		n := c.newNode(sn, parent, KindBinary)
		if op := sn.ChildByFieldName("operator"); op != nil {
			n.Operator = c.text(op)
		}
		n.Left = c.add(n, sn.ChildByFieldName("left"))
		n.Right = c.add(n, sn.ChildByFieldName("right"))
		return n

	case "unary_expression":
		n := c.newNode(sn, parent, KindUnary)
		if op := sn.ChildByFieldName("operator"); op != nil {
			n.Operator = c.text(op)
		}
		n.Argument = c.add(n, sn.ChildByFieldName("argument"))
		return n

	case "ternary_expression":
		n := c.newNode(sn, parent, KindConditional)
		c.addAll(n, sn)
		return n

	case "sequence_expression":
		n := c.newNode(sn, parent, KindSequence)
		c.addAll(n, sn)
		return n

	case "await_expression":
		return c.unary(sn, parent, KindAwait)
	case "yield_expression":
		return c.unary(sn, parent, KindYield)
	case "spread_element":
		return c.unary(sn, parent, KindSpread)
	case "rest_pattern":
		return c.unary(sn, parent, KindRest)
	case "return_statement":
		return c.unary(sn, parent, KindReturn)

	case "array":
		return c.array(sn, parent, KindArray)
	case "array_pattern":
		return c.array(sn, parent, KindArrayPattern)

	case "object":
		n := c.newNode(sn, parent, KindObject)
		c.addAll(n, sn)
		return n
	case "object_pattern":
		n := c.newNode(sn, parent, KindObjectPattern)
		c.addAll(n, sn)
		return n

	case "pair", "pair_pattern":
		n := c.newNode(sn, parent, KindProperty)
		n.Key = c.key(n, sn.ChildByFieldName("key"))
		n.Value = c.add(n, sn.ChildByFieldName("value"))
		return n

	case "assignment_pattern", "object_assignment_pattern":
		n := c.newNode(sn, parent, KindAssignmentPattern)
		n.Left = c.add(n, sn.ChildByFieldName("left"))
		n.Right = c.add(n, sn.ChildByFieldName("right"))
		return n

	case "required_parameter", "optional_parameter":
		// Typed parameters: the pattern, with an optional default value.
		pattern := sn.ChildByFieldName("pattern")
		value := sn.ChildByFieldName("value")
		if value == nil {
			return c.convert(pattern, parent)
		}
		n := c.newNode(sn, parent, KindAssignmentPattern)
		n.Left = c.add(n, pattern)
		n.Right = c.add(n, value)
		return n

	case "lexical_declaration", "variable_declaration":
		n := c.newNode(sn, parent, KindVarDecl)
		n.DeclKind = "var"
		if k := sn.ChildByFieldName("kind"); k != nil {
			n.DeclKind = c.text(k)
		} else if hasToken(sn, "const") {
			n.DeclKind = "const"
		} else if hasToken(sn, "let") {
			n.DeclKind = "let"
		}
		c.addAll(n, sn)
		return n

	case "variable_declarator":
		n := c.newNode(sn, parent, KindDeclarator)
		n.NameNode = c.add(n, sn.ChildByFieldName("name"))
		n.Init = c.add(n, sn.ChildByFieldName("value"))
		return n

	case "class_declaration", "class", "abstract_class_declaration":
		n := c.newNode(sn, parent, KindClass)
		name := sn.ChildByFieldName("name")
		body := sn.ChildByFieldName("body")
		for _, ch := range namedChildren(sn) {
			switch {
			case sameNode(ch, name):
				n.NameNode = c.add(n, ch)
			case sameNode(ch, body):
				n.Body = c.add(n, ch)
			case ch.Type() == "class_heritage":
				n.Left = c.add(n, heritageValue(ch))
			default:
				c.add(n, ch)
			}
		}
		return n

	case "statement_block", "class_static_block":
		n := c.newNode(sn, parent, KindBlock)
		c.addAll(n, sn)
		return n

	case "for_statement":
		n := c.newNode(sn, parent, KindFor)
		c.addAll(n, sn)
		n.Body = lastChild(n)
		return n

	case "for_in_statement":
		n := c.newNode(sn, parent, KindForIn)
		if k := sn.ChildByFieldName("kind"); k != nil {
			n.DeclKind = c.text(k)
		} else {
			for _, tok := range []string{"const", "let", "var"} {
				if hasToken(sn, tok) {
					n.DeclKind = tok
				}
			}
		}
		n.Left = c.add(n, sn.ChildByFieldName("left"))
		n.Right = c.add(n, sn.ChildByFieldName("right"))
		n.Body = c.add(n, sn.ChildByFieldName("body"))
		return n

	case "catch_clause":
		n := c.newNode(sn, parent, KindCatch)
		if p := c.add(n, sn.ChildByFieldName("parameter")); p != nil {
			n.Params = []*Node{p}
		}
		n.Body = c.add(n, sn.ChildByFieldName("body"))
		return n

	case "switch_statement":
		n := c.newNode(sn, parent, KindSwitch)
		c.addAll(n, sn)
		return n

	case "import_statement":
		return c.importStatement(sn, parent)

	case "export_statement":
		return c.exportStatement(sn, parent)

	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		return c.jsxElement(sn, parent)

	case "jsx_attribute":
		n := c.newNode(sn, parent, KindJSXAttribute)
		kids := namedChildren(sn)
		if len(kids) > 0 {
			n.Name = c.text(kids[0])
		}
		if len(kids) > 1 {
			n.Value = c.add(n, kids[1])
		}
		return n

	case "jsx_expression":
		kids := namedChildren(sn)
		if len(kids) > 0 && kids[0].Type() == "spread_element" {
			n := c.newNode(sn, parent, KindJSXSpread)
			n.Argument = c.add(n, innerValue(kids[0]))
			return n
		}
		n := c.newNode(sn, parent, KindJSXExpression)
		if len(kids) > 0 {
			n.Argument = c.add(n, kids[0])
		}
		return n

	case "jsx_text", "html_character_reference":
		return c.newNode(sn, parent, KindJSXText)
	}

	n := c.newNode(sn, parent, KindOther)
	c.addAll(n, sn)
	return n
}

func lastChild(n *Node) *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

func (c *converter) unary(sn *sitter.Node, parent *Node, kind Kind) *Node {
	n := c.newNode(sn, parent, kind)
	if kids := namedChildren(sn); len(kids) > 0 {
		n.Argument = c.add(n, kids[0])
	}
	return n
}

// key converts a property key. Computed keys are unwrapped and flagged.
func (c *converter) key(n *Node, sn *sitter.Node) *Node {
	if sn != nil && sn.Type() == "computed_property_name" {
		n.Computed = true
		return c.add(n, innerValue(sn))
	}
	return c.add(n, sn)
}

func (c *converter) function(sn *sitter.Node, parent *Node, kind Kind) *Node {
	n := c.newNode(sn, parent, kind)
	n.Async = hasToken(sn, "async")
	n.Getter = hasToken(sn, "get")

	if name := sn.ChildByFieldName("name"); name != nil {
		if kind == KindMethod {
			n.Key = c.key(n, name)
		} else {
			n.NameNode = c.add(n, name)
		}
	}
	if p := sn.ChildByFieldName("parameter"); p != nil {
		if param := c.add(n, p); param != nil {
			n.Params = []*Node{param}
		}
	}
	if ps := sn.ChildByFieldName("parameters"); ps != nil {
		for _, ch := range namedChildren(ps) {
			if param := c.add(n, ch); param != nil {
				n.Params = append(n.Params, param)
			}
		}
	}
	n.Body = c.add(n, sn.ChildByFieldName("body"))
	return n
}

// array converts an array literal or pattern, keeping holes as nil elements.
func (c *converter) array(sn *sitter.Node, parent *Node, kind Kind) *Node {
	n := c.newNode(sn, parent, kind)
	var cur *Node
	count := int(sn.ChildCount())
	for i := 0; i < count; i++ {
		ch := sn.Child(i)
		if ch == nil {
			continue
		}
		switch {
		case !ch.IsNamed() && ch.Type() == ",":
			n.Elements = append(n.Elements, cur)
			cur = nil
		case !ch.IsNamed() && ch.Type() == "]":
			if cur != nil {
				n.Elements = append(n.Elements, cur)
				cur = nil
			}
		case ch.IsNamed() && ch.Type() != "comment":
			cur = c.add(n, ch)
		}
	}
	return n
}

func heritageValue(sn *sitter.Node) *sitter.Node {
	for _, ch := range namedChildren(sn) {
		if ch.Type() == "extends_clause" {
			if v := ch.ChildByFieldName("value"); v != nil {
				return v
			}
			return innerValue(ch)
		}
		if !isTypeNode(ch.Type()) && !skipTypes[ch.Type()] {
			return ch
		}
	}
	return nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		q := s[0]
		if (q == '"' || q == '\'' || q == '`') && s[len(s)-1] == q {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func (c *converter) importStatement(sn *sitter.Node, parent *Node) *Node {
	n := c.newNode(sn, parent, KindImport)
	if src := sn.ChildByFieldName("source"); src != nil {
		n.Source = unquote(c.text(src))
	}
	// `import type { ... }` has no runtime bindings.
	if hasToken(sn, "type") {
		return n
	}
	for _, ch := range namedChildren(sn) {
		if ch.Type() != "import_clause" {
			continue
		}
		for _, part := range namedChildren(ch) {
			switch part.Type() {
			case "identifier":
				c.specifier(n, part, "default", part)
			case "namespace_import":
				if kids := namedChildren(part); len(kids) > 0 {
					c.specifier(n, part, "*", kids[0])
				}
			case "named_imports":
				for _, spec := range namedChildren(part) {
					if spec.Type() != "import_specifier" || hasToken(spec, "type") {
						continue
					}
					name := spec.ChildByFieldName("name")
					local := spec.ChildByFieldName("alias")
					if local == nil {
						local = name
					}
					if name != nil {
						c.specifier(n, spec, unquote(c.text(name)), local)
					}
				}
			}
		}
	}
	return n
}

func (c *converter) specifier(imp *Node, sn *sitter.Node, imported string, local *sitter.Node) {
	spec := c.newNode(sn, imp, KindImportSpecifier)
	spec.Name = imported
	imp.Children = append(imp.Children, spec)
	imp.Specifiers = append(imp.Specifiers, spec)
	spec.Argument = c.add(spec, local)
}

func (c *converter) exportStatement(sn *sitter.Node, parent *Node) *Node {
	n := c.newNode(sn, parent, KindExport)
	reexport := sn.ChildByFieldName("source") != nil
	for _, ch := range namedChildren(sn) {
		switch ch.Type() {
		case "export_clause":
			if reexport {
				continue
			}
			for _, spec := range namedChildren(ch) {
				if spec.Type() == "export_specifier" {
					c.add(n, spec.ChildByFieldName("name"))
				}
			}
		case "string", "namespace_export":
		default:
			c.add(n, ch)
		}
	}
	return n
}

func (c *converter) jsxElement(sn *sitter.Node, parent *Node) *Node {
	n := c.newNode(sn, parent, KindJSXElement)

	open := sn
	if sn.Type() == "jsx_element" {
		open = sn.ChildByFieldName("open_tag")
	}
	if open != nil && sn.Type() != "jsx_fragment" {
		name := open.ChildByFieldName("name")
		if name != nil {
			n.Name = c.text(name)
		}
		for _, ch := range namedChildren(open) {
			if sameNode(ch, name) {
				continue
			}
			switch ch.Type() {
			case "jsx_attribute", "jsx_expression":
				if attr := c.add(n, ch); attr != nil {
					n.Attributes = append(n.Attributes, attr)
				}
			}
		}
	}

	if sn.Type() == "jsx_self_closing_element" {
		return n
	}
	for _, ch := range namedChildren(sn) {
		switch ch.Type() {
		case "jsx_opening_element", "jsx_closing_element":
			continue
		}
		if child := c.add(n, ch); child != nil {
			n.JSXChildren = append(n.JSXChildren, child)
		}
	}
	return n
}

// collectComments records every comment in the grammar tree.
func (c *converter) collectComments(sn *sitter.Node) {
	if sn == nil {
		return
	}
	if sn.Type() == "comment" {
		c.comments = append(c.comments, Comment{
			Text:  c.text(sn),
			Start: point(sn.StartPoint(), sn.StartByte()),
			End:   point(sn.EndPoint(), sn.EndByte()),
		})
		return
	}
	count := int(sn.NamedChildCount())
	for i := 0; i < count; i++ {
		c.collectComments(sn.NamedChild(i))
	}
}

// CommentBody strips the comment delimiters from text.
func CommentBody(text string) string {
	switch {
	case strings.HasPrefix(text, "//"):
		return strings.TrimSpace(text[2:])
	case strings.HasPrefix(text, "/*"):
		return strings.TrimSpace(strings.TrimSuffix(text[2:], "*/"))
	}
	return strings.TrimSpace(text)
}
