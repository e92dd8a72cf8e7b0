package reactivity

import (
	"fmt"

	"github.com/jward/tracklint/internal/syntax"
)

// InternalError is an invariant violation inside the analyzer, such as a
// scope stack underflow or a declaration-scope merge between scopes that are
// not on the live stack. It aborts analysis of the file.
type InternalError struct {
	Op   string
	Node *syntax.Node
	Msg  string
}

func (e *InternalError) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("reactivity: %s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("reactivity: %s: %s (at %s)", e.Op, e.Msg, e.Node)
}

func fail(op string, node *syntax.Node, format string, args ...any) {
	panic(&InternalError{Op: op, Node: node, Msg: fmt.Sprintf(format, args...)})
}
