package diag

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOverlappingEdits is returned when two edits touch the same bytes.
var ErrOverlappingEdits = errors.New("diag: overlapping edits")

// TextEdit replaces the bytes in [Start, End) with NewText.
type TextEdit struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	NewText string `json:"new_text"`
}

// Insert returns an edit inserting text at offset.
func Insert(offset int, text string) TextEdit {
	return TextEdit{Start: offset, End: offset, NewText: text}
}

func overlaps(a, b TextEdit) bool {
	if a.Start == a.End && b.Start == b.End {
		return a.Start == b.Start
	}
	return a.Start < b.End && b.Start < a.End
}

// ApplyEdits applies edits to src and returns the result.
func ApplyEdits(src []byte, edits []TextEdit) ([]byte, error) {
	sorted := make([]TextEdit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := make([]byte, 0, len(src))
	last := 0
	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(src) {
			return nil, fmt.Errorf("diag: edit [%d,%d) out of range", e.Start, e.End)
		}
		if i > 0 && overlaps(sorted[i-1], e) {
			return nil, fmt.Errorf("%w: [%d,%d) and [%d,%d)", ErrOverlappingEdits,
				sorted[i-1].Start, sorted[i-1].End, e.Start, e.End)
		}
		out = append(out, src[last:e.Start]...)
		out = append(out, e.NewText...)
		last = e.End
	}
	return append(out, src[last:]...), nil
}

// SelectFixes picks the fixes of diags in order, skipping a diagnostic
// whose edits conflict with one already chosen. It returns the chosen edits
// and how many diagnostics they fix.
func SelectFixes(diags []Diagnostic) ([]TextEdit, int) {
	var chosen []TextEdit
	fixed := 0
	for _, d := range diags {
		if len(d.Fixes) == 0 {
			continue
		}
		ok := true
		for _, e := range d.Fixes {
			for _, c := range chosen {
				if overlaps(c, e) {
					ok = false
				}
			}
		}
		if !ok {
			continue
		}
		chosen = append(chosen, d.Fixes...)
		fixed++
	}
	return chosen, fixed
}
