package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tracklint/internal/diag"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestFile is a helper that inserts a file and returns it with ID set.
func insertTestFile(t *testing.T, s *Store, path string) *File {
	t.Helper()
	f := &File{Path: path, Dialect: "javascript", Hash: "abc123", LastLinted: time.Now().Truncate(time.Second)}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

func insertTestFinding(t *testing.T, s *Store, fileID int64, kind string, offset int) *Finding {
	t.Helper()
	f := &Finding{
		FileID: fileID, Kind: kind, Name: "count", Message: "msg",
		StartLine: 1, StartCol: offset + 1, StartOffset: offset,
		EndLine: 1, EndCol: offset + 6, EndOffset: offset + 5,
	}
	id, err := s.InsertFinding(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "findings", "metadata"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestNewStore_BadPath(t *testing.T) {
	t.Parallel()
	_, err := NewStore(filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	require.Error(t, err)
}

// =============================================================================
// Files
// =============================================================================

func TestFileByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/src/App.jsx")

	got, err := s.FileByPath("/src/App.jsx")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "javascript", got.Dialect)
	assert.Equal(t, "abc123", got.Hash)

	missing, err := s.FileByPath("/nope.js")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsertFile_DuplicatePath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "/a.js")
	_, err := s.InsertFile(&File{Path: "/a.js", Dialect: "javascript"})
	require.Error(t, err)
}

func TestFiles_OrderedByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "/b.js")
	insertTestFile(t, s, "/a.js")
	_, err := s.InsertFile(&File{Path: "/c.ts", Dialect: "typescript"})
	require.NoError(t, err)

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "/a.js", files[0].Path)
	assert.Equal(t, "/c.ts", files[2].Path)
	assert.Empty(t, files[2].Hash, "NULL hash reads back empty")
}

func TestMarkLinted(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/a.js")
	require.NoError(t, s.MarkLinted(f.ID, "def456", time.Now()))

	got, err := s.FileByPath("/a.js")
	require.NoError(t, err)
	assert.Equal(t, "def456", got.Hash)
}

func TestDeleteFileData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/a.js")
	other := insertTestFile(t, s, "/b.js")
	insertTestFinding(t, s, f.ID, "untracked-read", 10)
	insertTestFinding(t, s, other.ID, "untracked-read", 10)

	require.NoError(t, s.DeleteFileData(f.ID))

	findings, err := s.FindingsByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, findings)

	got, err := s.FileByPath("/a.js")
	require.NoError(t, err)
	require.NotNil(t, got, "file row is kept")
	assert.Empty(t, got.Hash, "hash is reset")

	findings, err = s.FindingsByFile(other.ID)
	require.NoError(t, err)
	assert.Len(t, findings, 1)
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/a.js")
	insertTestFinding(t, s, f.ID, "untracked-read", 10)

	require.NoError(t, s.DeleteFile(f.ID))
	got, err := s.FileByPath("/a.js")
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := s.FindingsByKind()
	require.NoError(t, err)
	assert.Empty(t, all)
}

// =============================================================================
// Findings
// =============================================================================

func TestFinding_RoundTripsRelatedAndFixes(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	file := insertTestFile(t, s, "/a.js")

	in := &Finding{
		FileID: file.ID, Kind: "bad-call-context", Context: "arithmetic", Name: "count",
		Message: "The reactive variable 'count' should be called as a function when used in arithmetic.",
		StartLine: 4, StartCol: 11, StartOffset: 60, EndLine: 4, EndCol: 16, EndOffset: 65,
		Related: []diag.Related{{Pos: diag.Position{Line: 2, Col: 3}, Message: "declared here"}},
		Fixes:   []diag.TextEdit{diag.Insert(65, "()")},
	}
	_, err := s.InsertFinding(in)
	require.NoError(t, err)

	got, err := s.FindingsByFile(file.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, in, got[0])
}

func TestFinding_EmptyRelatedIsNil(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	file := insertTestFile(t, s, "/a.js")
	insertTestFinding(t, s, file.ID, "untracked-read", 0)

	got, err := s.FindingsByFile(file.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Related)
	assert.Nil(t, got[0].Fixes)
}

func TestFindingsByFile_SourceOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	file := insertTestFile(t, s, "/a.js")
	insertTestFinding(t, s, file.ID, "untracked-read", 50)
	insertTestFinding(t, s, file.ID, "illegal-mutation", 10)
	insertTestFinding(t, s, file.ID, "bad-call-context", 50)

	got, err := s.FindingsByFile(file.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "illegal-mutation", got[0].Kind)
	assert.Equal(t, "bad-call-context", got[1].Kind)
	assert.Equal(t, "untracked-read", got[2].Kind)
}

func TestFindingsByKind(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	b := insertTestFile(t, s, "/b.js")
	a := insertTestFile(t, s, "/a.js")
	insertTestFinding(t, s, b.ID, "untracked-read", 5)
	insertTestFinding(t, s, a.ID, "untracked-read", 30)
	insertTestFinding(t, s, a.ID, "illegal-mutation", 1)

	got, err := s.FindingsByKind("untracked-read")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].FileID, "ordered by path")
	assert.Equal(t, b.ID, got[1].FileID)

	got, err = s.FindingsByKind("untracked-read", "illegal-mutation")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = s.FindingsByKind()
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = s.FindingsByKind("should-assign")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCounts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "/a.js")
	b := insertTestFile(t, s, "/b.js")
	insertTestFile(t, s, "/clean.js")
	insertTestFinding(t, s, a.ID, "untracked-read", 1)
	insertTestFinding(t, s, a.ID, "untracked-read", 2)
	insertTestFinding(t, s, b.ID, "illegal-mutation", 1)

	kinds, err := s.KindCounts()
	require.NoError(t, err)
	assert.Equal(t, []KindCount{{"untracked-read", 2}, {"illegal-mutation", 1}}, kinds)

	files, err := s.FileCounts()
	require.NoError(t, err)
	assert.Equal(t, []FileCount{{"/a.js", 2}, {"/b.js", 1}}, files)
}

// =============================================================================
// Metadata
// =============================================================================

func TestMetadata(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("config_hash")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("config_hash", "one"))
	require.NoError(t, s.SetMetadata("config_hash", "two"))
	v, err = s.GetMetadata("config_hash")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestHashContent(t *testing.T) {
	t.Parallel()
	a := HashContent([]byte("const x = 1;\n"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashContent([]byte("const x = 1;\n")))
	assert.NotEqual(t, a, HashContent([]byte("const x = 2;\n")))
}

func TestClearFindings(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "/a.js")
	b := insertTestFile(t, s, "/b.js")
	insertTestFinding(t, s, a.ID, "untracked-read", 1)
	insertTestFinding(t, s, b.ID, "untracked-read", 1)

	require.NoError(t, s.ClearFindings())

	all, err := s.FindingsByKind()
	require.NoError(t, err)
	assert.Empty(t, all)
	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		assert.Empty(t, f.Hash)
	}
}
