package store

import (
	"sync"
	"time"
)

// BatchedStore buffers a file's findings in memory using fake (negative)
// IDs until the serial writer commits them. It implements DataStore so the
// analysis step can write to it without knowing whether it is hitting
// SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	// Buffered analysis data.
	Findings []Finding
	Linted   []LintedFile

	nextFakeID int64 // starts at -1, decrements
}

// LintedFile records the content hash a file was analyzed at. CommitBatch
// stores it together with the findings so a failed analysis never leaves
// a file marked as up to date.
type LintedFile struct {
	FileID int64
	Hash   string
	At     time.Time
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertFinding(f *Finding) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	f.ID = fakeID
	b.Findings = append(b.Findings, *f)
	return fakeID, nil
}

// MarkLinted buffers the file's new content hash.
func (b *BatchedStore) MarkLinted(fileID int64, hash string, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Linted = append(b.Linted, LintedFile{FileID: fileID, Hash: hash, At: at})
}

// FindingsByFile returns findings for a file, merging any buffered (not yet
// committed) findings with those already in the database.
func (b *BatchedStore) FindingsByFile(fileID int64) ([]*Finding, error) {
	dbFindings, err := b.store.FindingsByFile(fileID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Findings {
		if b.Findings[i].FileID == fileID {
			dbFindings = append(dbFindings, &b.Findings[i])
		}
	}
	return dbFindings, nil
}
