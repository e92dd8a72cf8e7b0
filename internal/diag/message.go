package diag

import "strings"

var callContextWhere = map[CallContext]string{
	ContextTemplateLiteral:    "template literals",
	ContextArithmetic:         "arithmetic or comparisons",
	ContextUnary:              "unary expressions",
	ContextComputedProperty:   "property accesses",
	ContextUnwrappedMarkup:    "JSX",
	ContextTrackedScopeReturn: "a tracked scope's return value",
}

var templates = map[Kind]string{
	KindIllegalMutation: "The reactive variable '{{name}}' should not be reassigned or altered directly.",
	KindUntrackedRead: "The reactive variable '{{name}}' should be used within JSX, a tracked scope (like createEffect), " +
		"or inside an event handler function, or else changes will be ignored.",
	KindNeedsFunctionWrapper: "The reactive variable '{{name}}' should be wrapped in a function for reactivity. " +
		"This includes event handler bindings on native elements, which are not reactive like other JSX props.",
	KindBadCallContext:    "The reactive variable '{{name}}' should be called as a function when used in {{where}}.",
	KindAsyncTrackedScope: "This tracked scope should not be async. Reactivity is only tracked synchronously.",
	KindShouldDestructure: "For proper analysis, array destructuring should be used to capture the {{nth}}result of this function call.",
	KindShouldAssign:      "For proper analysis, a variable should be used to capture the result of this function call.",
}

const (
	unnamedDerivedMessage = "This function should be passed to a tracked scope (like createEffect) or an event handler " +
		"because it contains reactivity, or else changes will be ignored."
	namedDerivedMessage = "The reactive function '{{name}}' should be called within JSX, a tracked scope (like createEffect), " +
		"or an event handler function, or else changes will be ignored."
)

// Args carries interpolation data for a message.
type Args struct {
	Name    string
	Context CallContext
	// Nth is the ordinal prefix for should-destructure ("first ").
	Nth string
}

// Message renders the message for kind with args.
func Message(kind Kind, args Args) string {
	tpl, ok := templates[kind]
	if kind == KindUntrackedDerivedFunction {
		tpl, ok = unnamedDerivedMessage, true
		if args.Name != "" {
			tpl = namedDerivedMessage
		}
	}
	if !ok {
		return string(kind)
	}
	return strings.NewReplacer(
		"{{name}}", args.Name,
		"{{where}}", callContextWhere[args.Context],
		"{{nth}}", args.Nth,
	).Replace(tpl)
}
