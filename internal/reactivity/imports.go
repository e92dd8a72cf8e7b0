package reactivity

import (
	"regexp"

	"github.com/jward/tracklint/internal/syntax"
)

// frameworkSource matches the framework's module and its subpaths
// ("solid-js", "solid-js/store", "solid-js/web").
var frameworkSource = regexp.MustCompile(`^solid-js(?:/?|\b)`)

// importTable maps local names to the framework primitive they import.
type importTable map[string]string

// collectImports reads the named framework imports at the top of the file.
func collectImports(root *syntax.Node) importTable {
	t := make(importTable)
	for _, stmt := range root.Children {
		if stmt.Kind != syntax.KindImport || !frameworkSource.MatchString(stmt.Source) {
			continue
		}
		for _, spec := range stmt.Specifiers {
			if spec.Name == "default" || spec.Name == "*" || !spec.Argument.Is(syntax.KindIdentifier) {
				continue
			}
			t[spec.Argument.Name] = spec.Name
		}
	}
	return t
}

// match reports whether local was imported as one of the primitives.
func (t importTable) match(local string, primitives ...string) bool {
	canonical, ok := t[local]
	if !ok {
		return false
	}
	for _, p := range primitives {
		if p == canonical {
			return true
		}
	}
	return false
}

// matchCallee reports whether n is an identifier imported as one of the
// primitives.
func (t importTable) matchCallee(n *syntax.Node, primitives ...string) bool {
	return n.Is(syntax.KindIdentifier) && t.match(n.Name, primitives...)
}
