package store

// DataStore is the interface for recording analysis results. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for the parallel
// pipeline) implement this interface.
type DataStore interface {
	// InsertFinding records a finding and returns its assigned ID.
	InsertFinding(f *Finding) (int64, error)

	// FindingsByFile returns the findings recorded for a file so far.
	FindingsByFile(fileID int64) ([]*Finding, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
