package diag

import (
	"strings"

	"github.com/jward/tracklint/internal/syntax"
)

const (
	directiveNextLine = "tracklint-disable-next-line"
	directiveLine     = "tracklint-disable-line"
)

// Suppressions maps a line to the kinds disabled on it. A nil set disables
// every kind.
type Suppressions map[int]map[Kind]bool

// ParseDirectives collects tracklint-disable comments.
//
//	// tracklint-disable-next-line untracked-read, bad-call-context
//	foo(count) // tracklint-disable-line
func ParseDirectives(comments []syntax.Comment) Suppressions {
	s := make(Suppressions)
	for _, c := range comments {
		body := syntax.CommentBody(c.Text)
		var rest string
		var line int
		switch {
		case strings.HasPrefix(body, directiveNextLine):
			rest = strings.TrimPrefix(body, directiveNextLine)
			line = c.End.Line + 1
		case strings.HasPrefix(body, directiveLine):
			rest = strings.TrimPrefix(body, directiveLine)
			line = c.Start.Line
		default:
			continue
		}
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			continue
		}
		s.add(line, rest)
	}
	return s
}

func (s Suppressions) add(line int, list string) {
	// Anything after "--" is a free-form reason.
	if i := strings.Index(list, "--"); i >= 0 {
		list = list[:i]
	}
	var kinds map[Kind]bool
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if kinds == nil {
			kinds = make(map[Kind]bool)
		}
		kinds[Kind(name)] = true
	}
	existing, ok := s[line]
	switch {
	case !ok:
		s[line] = kinds
	case existing == nil || kinds == nil:
		s[line] = nil
	default:
		for k := range kinds {
			existing[k] = true
		}
	}
}

// Suppressed reports whether d is disabled by a directive.
func (s Suppressions) Suppressed(d Diagnostic) bool {
	kinds, ok := s[d.Pos.Line]
	if !ok {
		return false
	}
	return kinds == nil || kinds[d.Kind]
}

// Filter drops the suppressed diagnostics.
func (s Suppressions) Filter(diags []Diagnostic) []Diagnostic {
	if len(s) == 0 {
		return diags
	}
	var out []Diagnostic
	for _, d := range diags {
		if !s.Suppressed(d) {
			out = append(out, d)
		}
	}
	return out
}
