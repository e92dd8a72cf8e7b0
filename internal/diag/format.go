package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const noteWidth = 72

// palette holds the ANSI escape sequences for text output.
type palette struct {
	bold   string
	yellow string
	cyan   string
	reset  string
}

var ansiPalette = palette{
	bold:   "\033[1m",
	yellow: "\033[33m",
	cyan:   "\033[36m",
	reset:  "\033[0m",
}

// FormatText writes diagnostics one per line in file:line:col form. Related
// locations follow as wrapped note lines.
func FormatText(w io.Writer, diags []Diagnostic) {
	formatText(w, diags, palette{})
}

// FormatTextColor is FormatText with ANSI colors for terminals.
func FormatTextColor(w io.Writer, diags []Diagnostic) {
	formatText(w, diags, ansiPalette)
}

func formatText(w io.Writer, diags []Diagnostic, p palette) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s%s%s: %s %s(%s)%s\n", p.bold, d.Pos, p.reset, d.Message, p.yellow, d.Kind, p.reset) //nolint:errcheck // best-effort output
		for _, r := range d.Related {
			fmt.Fprintln(w, p.cyan+note(r.Pos.String()+": "+r.Message)+p.reset) //nolint:errcheck // best-effort output
		}
	}
}

func note(s string) string {
	lines := strings.Split(wordwrap.String(s, noteWidth), "\n")
	out := "  = note: " + lines[0]
	if len(lines) > 1 {
		out += "\n" + indent.String(strings.Join(lines[1:], "\n"), 10)
	}
	return out
}

// FormatJSON writes diagnostics as an indented JSON array.
func FormatJSON(w io.Writer, diags []Diagnostic) error {
	if diags == nil {
		diags = []Diagnostic{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(diags)
}
