// Package diag holds the findings produced by the reactivity analyzer: the
// diagnostic record, message rendering, suggested edits, inline suppression
// and output formatting.
package diag

import (
	"fmt"
	"sort"
)

// Kind identifies a class of finding. Values are stable and appear in
// output, suppression comments and the findings cache.
type Kind string

const (
	KindIllegalMutation          Kind = "illegal-mutation"
	KindUntrackedRead            Kind = "untracked-read"
	KindNeedsFunctionWrapper     Kind = "needs-function-wrapper"
	KindBadCallContext           Kind = "bad-call-context"
	KindUntrackedDerivedFunction Kind = "untracked-derived-function"
	KindAsyncTrackedScope        Kind = "async-tracked-scope"
	KindShouldDestructure        Kind = "should-destructure"
	KindShouldAssign             Kind = "should-assign"
)

// CallContext names where an uncalled signal read was found. Only set on
// bad-call-context findings.
type CallContext string

const (
	ContextNone               CallContext = ""
	ContextTemplateLiteral    CallContext = "template-literal"
	ContextArithmetic         CallContext = "arithmetic"
	ContextUnary              CallContext = "unary"
	ContextComputedProperty   CallContext = "computed-property"
	ContextUnwrappedMarkup    CallContext = "unwrapped-markup"
	ContextTrackedScopeReturn CallContext = "tracked-scope-return"
)

// Position identifies a location in source code. Line and Col are 1-based;
// Offset is a byte offset into the file.
type Position struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line"`
	Col    int    `json:"col"`
	Offset int    `json:"offset"`
}

// String returns the position in file:line:col format.
func (p Position) String() string {
	if p.Line == 0 {
		return p.File
	}
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Related is a secondary location attached to a finding.
type Related struct {
	Pos     Position `json:"pos"`
	Message string   `json:"message"`
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	Kind    Kind        `json:"kind"`
	Context CallContext `json:"context,omitempty"`

	// Pos and End delimit the flagged source range.
	Pos Position `json:"pos"`
	End Position `json:"end"`

	// Name is the binding the finding is about, when there is one.
	Name string `json:"name,omitempty"`

	// Message is the rendered, human-readable description.
	Message string `json:"message"`

	Related []Related  `json:"related,omitempty"`
	Fixes   []TextEdit `json:"fixes,omitempty"`
}

// String returns the diagnostic as file:line:col: message (kind) with any
// related locations appended as notes.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s (%s)", d.Pos, d.Message, d.Kind)
	for _, r := range d.Related {
		s += "\n  = note: " + r.Pos.String() + ": " + r.Message
	}
	return s
}

// SetFile stamps path on every position of d.
func (d *Diagnostic) SetFile(path string) {
	d.Pos.File = path
	d.End.File = path
	for i := range d.Related {
		d.Related[i].Pos.File = path
	}
}

// Sort orders diagnostics by file, then position, then kind.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Pos.File != b.Pos.File {
			return a.Pos.File < b.Pos.File
		}
		if a.Pos.Offset != b.Pos.Offset {
			return a.Pos.Offset < b.Pos.Offset
		}
		return a.Kind < b.Kind
	})
}

// Sink receives findings from the analyzer.
type Sink interface {
	Report(d Diagnostic)
}

// Collector is a Sink that keeps findings in report order.
type Collector struct {
	Diagnostics []Diagnostic
}

var _ Sink = (*Collector)(nil)

// Report appends d.
func (c *Collector) Report(d Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

// Rule describes one diagnostic kind for listing.
type Rule struct {
	Kind Kind   `json:"kind"`
	Doc  string `json:"doc"`
}

// Rules returns every diagnostic kind with a short description.
func Rules() []Rule {
	return []Rule{
		{KindIllegalMutation, "A signal, props or store binding is reassigned or mutated directly."},
		{KindUntrackedRead, "A reactive value is read outside any tracked scope, so changes are ignored."},
		{KindNeedsFunctionWrapper, "A reactive read inside a bound expression must be wrapped in a function."},
		{KindBadCallContext, "A signal is used without being called (templates, arithmetic, unary, computed keys, markup, tracked-scope returns)."},
		{KindUntrackedDerivedFunction, "A function that reads reactive values is never passed to a tracked scope or called from one."},
		{KindAsyncTrackedScope, "A tracked scope is declared async; reads after the first await are not tracked."},
		{KindShouldDestructure, "A factory result should be captured with array destructuring."},
		{KindShouldAssign, "A factory result should be captured in a variable."},
	}
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, bool) {
	for _, r := range Rules() {
		if string(r.Kind) == s {
			return r.Kind, true
		}
	}
	return "", false
}
