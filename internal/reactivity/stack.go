package reactivity

import "github.com/jward/tracklint/internal/syntax"

// ScopeID identifies a frame by the pre-order id of its function or
// program node.
type ScopeID int

func scopeIDOf(n *syntax.Node) ScopeID { return ScopeID(n.ID) }

// expectation is what a tracked position requires of the value found there.
type expectation uint8

const (
	// expectFunction: the node is a function the framework re-runs.
	expectFunction expectation = iota
	// expectCalledFunction: the framework calls the function, untracked.
	expectCalledFunction
	// expectExpression: any reactive read inside the node is tracked.
	expectExpression
)

type trackedScope struct {
	node   *syntax.Node
	expect expectation
}

// frame is one function or program nesting level.
type frame struct {
	node          *syntax.Node
	trackedScopes []trackedScope
	// unnamedDerived holds anonymous functions found to read reactive
	// values declared further out, in discovery order.
	unnamedDerived []*syntax.Node
	unnamedSeen    map[*syntax.Node]bool
	hasJSX         bool
}

func (f *frame) id() ScopeID { return scopeIDOf(f.node) }

func (f *frame) addUnnamedDerived(fn *syntax.Node) {
	if f.unnamedSeen == nil {
		f.unnamedSeen = make(map[*syntax.Node]bool)
	}
	if f.unnamedSeen[fn] {
		return
	}
	f.unnamedSeen[fn] = true
	f.unnamedDerived = append(f.unnamedDerived, fn)
}

// scopeStack mirrors the lexical function nesting of the walk. Synchronous
// callbacks do not get a frame; reads inside them belong to the caller.
type scopeStack struct {
	frames        []*frame
	syncCallbacks map[*syntax.Node]bool
}

func newScopeStack() *scopeStack {
	return &scopeStack{syncCallbacks: make(map[*syntax.Node]bool)}
}

func (s *scopeStack) enter(node *syntax.Node) *frame {
	f := &frame{node: node}
	s.frames = append(s.frames, f)
	return f
}

// exit pops the frame for node, which must be the current one.
func (s *scopeStack) exit(node *syntax.Node) *frame {
	f := s.current()
	if f.node != node {
		fail("exit", node, "current frame is %s", f.node)
	}
	s.frames = s.frames[:len(s.frames)-1]
	return f
}

func (s *scopeStack) current() *frame {
	if len(s.frames) == 0 {
		fail("current", nil, "scope stack underflow")
	}
	return s.frames[len(s.frames)-1]
}

func (s *scopeStack) parent() *frame {
	if len(s.frames) < 2 {
		fail("parent", nil, "no parent frame")
	}
	return s.frames[len(s.frames)-2]
}

func (s *scopeStack) atRoot() bool { return len(s.frames) == 1 }

// indexOf returns the stack position of the frame for node, or -1.
func (s *scopeStack) indexOf(node *syntax.Node) int {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].node == node {
			return i
		}
	}
	return -1
}

func (s *scopeStack) isSyncCallback(n *syntax.Node) bool {
	return s.syncCallbacks[n]
}

func (s *scopeStack) markSyncCallback(n *syntax.Node) {
	if n.IsFunction() {
		s.syncCallbacks[n] = true
	}
}

// findDeepestDeclarationScope returns whichever of a and b is nested
// deeper on the live stack.
func (s *scopeStack) findDeepestDeclarationScope(a, b ScopeID) ScopeID {
	if a == b {
		return a
	}
	for i := len(s.frames) - 1; i >= 0; i-- {
		if id := s.frames[i].id(); id == a || id == b {
			return id
		}
	}
	fail("findDeepestDeclarationScope", nil, "scopes %d and %d are not on the stack", a, b)
	return 0
}

// owningFunction returns the function or program a node belongs to for
// tracking purposes, skipping synchronous callbacks.
func (s *scopeStack) owningFunction(n *syntax.Node) *syntax.Node {
	fn := n.EnclosingFunction()
	for fn.IsFunction() && s.isSyncCallback(fn) {
		fn = fn.EnclosingFunction()
	}
	return fn
}

// isReferenceInCurrentScope reports whether the identifier belongs to the
// current frame.
func (s *scopeStack) isReferenceInCurrentScope(id *syntax.Node) bool {
	return s.owningFunction(id) == s.current().node
}
