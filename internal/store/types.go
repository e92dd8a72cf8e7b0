package store

import (
	"time"

	"github.com/jward/tracklint/internal/diag"
)

type File struct {
	ID         int64
	Path       string
	Dialect    string
	Hash       string
	LastLinted time.Time
}

// Finding is a stored diagnostic. Related notes and fixes are kept as JSON.
type Finding struct {
	ID          int64
	FileID      int64
	Kind        string
	Context     string
	Name        string
	Message     string
	StartLine   int
	StartCol    int
	StartOffset int
	EndLine     int
	EndCol      int
	EndOffset   int
	Related     []diag.Related
	Fixes       []diag.TextEdit
}

// KindCount is the number of findings of one kind.
type KindCount struct {
	Kind  string
	Count int
}

// FileCount is the number of findings in one file.
type FileCount struct {
	Path  string
	Count int
}
