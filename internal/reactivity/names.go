package reactivity

import (
	"regexp"
	"strings"
)

// Primitives whose first argument is re-run on dependency change.
var trackedFunctionPrimitives = []string{
	"createMemo", "children", "createEffect", "onMount", "createRenderEffect",
	"createDeferred", "createComputed", "createSelector", "untrack",
	"mapArray", "indexArray", "observable",
}

// Lifecycle callbacks invoked by the framework, not tracked.
var calledFunctionPrimitives = []string{"onCleanup", "onError"}

// Host APIs that call back later; reading current values there is fine.
var timerFunctions = map[string]bool{
	"setInterval":           true,
	"setTimeout":            true,
	"setImmediate":          true,
	"requestAnimationFrame": true,
	"requestIdleCallback":   true,
}

var observerConstructors = map[string]bool{
	"IntersectionObserver": true,
	"MutationObserver":     true,
	"PerformanceObserver":  true,
	"ReportingObserver":    true,
	"ResizeObserver":       true,
}

// Primitives whose function argument runs synchronously in the caller.
var syncCallbackPrimitives = []string{"batch", "produce"}

var syncArrayMethods = map[string]bool{
	"forEach":     true,
	"map":         true,
	"flatMap":     true,
	"reduce":      true,
	"reduceRight": true,
	"find":        true,
	"findIndex":   true,
	"filter":      true,
	"every":       true,
	"some":        true,
}

// Operators whose operands must be values, not accessors.
var valueOperators = map[string]bool{
	"<": true, "<=": true, ">": true, ">=": true,
	"<<": true, ">>": true, ">>>": true,
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true,
	"|": true, "^": true, "&": true, "in": true,
}

var valueUnaryOperators = map[string]bool{"-": true, "+": true, "~": true}

var (
	hookName          = regexp.MustCompile(`^(?:use|create)[A-Z]`)
	eventAttribute    = regexp.MustCompile(`^on[:A-Z]`)
	eventProperty     = regexp.MustCompile(`^on[a-z]+$`)
	staticAttribute   = regexp.MustCompile(`^static[A-Z]`)
	nonReactiveMember = regexp.MustCompile(`^(?:initial|default|static[A-Z])`)
	propsName         = regexp.MustCompile(`[pP]rops`)
)

// isDOMElementName reports whether a tag names a native element.
func isDOMElementName(name string) bool {
	return name != "" && name[0] >= 'a' && name[0] <= 'z' && !strings.Contains(name, ".")
}

func isComponentName(name string) bool {
	return name != "" && !strings.Contains(name, ".") && !isDOMElementName(name)
}

func startsUppercase(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}
