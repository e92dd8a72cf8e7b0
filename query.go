package tracklint

import (
	"fmt"
	"path/filepath"

	"github.com/jward/tracklint/internal/diag"
	"github.com/jward/tracklint/internal/store"
)

// QueryBuilder provides read access to the findings cache.
type QueryBuilder struct {
	store *store.Store
}

// Summary counts the cached findings.
type Summary struct {
	Files    int
	Findings int
	ByKind   []KindCount
	ByFile   []FileCount
}

// Findings returns the findings recorded for path by the last run that
// linted it, in source order. An unknown path yields nil.
func (q *QueryBuilder) Findings(path string) ([]diag.Diagnostic, error) {
	path = filepath.Clean(path)
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("findings: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	findings, err := q.store.FindingsByFile(f.ID)
	if err != nil {
		return nil, fmt.Errorf("findings: %w", err)
	}
	return toDiagnostics(path, findings), nil
}

// FindingsByKind returns the cached findings of the given kinds across all
// files, ordered by path and position. No kinds means every finding.
func (q *QueryBuilder) FindingsByKind(kinds ...diag.Kind) ([]diag.Diagnostic, error) {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	findings, err := q.store.FindingsByKind(names...)
	if err != nil {
		return nil, fmt.Errorf("findings by kind: %w", err)
	}
	paths, err := q.filePaths()
	if err != nil {
		return nil, fmt.Errorf("findings by kind: %w", err)
	}
	out := make([]diag.Diagnostic, 0, len(findings))
	for _, f := range findings {
		out = append(out, toDiagnostic(paths[f.FileID], f))
	}
	return out, nil
}

// Summary returns finding counts per kind and per file.
func (q *QueryBuilder) Summary() (*Summary, error) {
	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	byKind, err := q.store.KindCounts()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	byFile, err := q.store.FileCounts()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	s := &Summary{Files: len(files), ByKind: byKind, ByFile: byFile}
	for _, kc := range byKind {
		s.Findings += kc.Count
	}
	return s, nil
}

// Files returns every file in the cache ordered by path.
func (q *QueryBuilder) Files() ([]*File, error) {
	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

func (q *QueryBuilder) filePaths() (map[int64]string, error) {
	files, err := q.store.Files()
	if err != nil {
		return nil, err
	}
	paths := make(map[int64]string, len(files))
	for _, f := range files {
		paths[f.ID] = f.Path
	}
	return paths, nil
}

// toFinding converts a diagnostic into its cache row.
func toFinding(fileID int64, d diag.Diagnostic) *store.Finding {
	return &store.Finding{
		FileID:      fileID,
		Kind:        string(d.Kind),
		Context:     string(d.Context),
		Name:        d.Name,
		Message:     d.Message,
		StartLine:   d.Pos.Line,
		StartCol:    d.Pos.Col,
		StartOffset: d.Pos.Offset,
		EndLine:     d.End.Line,
		EndCol:      d.End.Col,
		EndOffset:   d.End.Offset,
		Related:     d.Related,
		Fixes:       d.Fixes,
	}
}

func toDiagnostic(path string, f *store.Finding) diag.Diagnostic {
	return diag.Diagnostic{
		Kind:    diag.Kind(f.Kind),
		Context: diag.CallContext(f.Context),
		Pos:     diag.Position{File: path, Line: f.StartLine, Col: f.StartCol, Offset: f.StartOffset},
		End:     diag.Position{File: path, Line: f.EndLine, Col: f.EndCol, Offset: f.EndOffset},
		Name:    f.Name,
		Message: f.Message,
		Related: f.Related,
		Fixes:   f.Fixes,
	}
}

func toDiagnostics(path string, findings []*store.Finding) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(findings))
	for _, f := range findings {
		out = append(out, toDiagnostic(path, f))
	}
	return out
}
