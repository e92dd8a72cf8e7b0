package store

import (
	"fmt"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are replaced by the
// real IDs SQLite assigns.
//
// Findings are inserted first; the file hashes recorded by MarkLinted are
// updated last, so a file is only marked up to date together with its
// findings.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	batch.mu.Lock()
	defer batch.mu.Unlock()

	for i := range batch.Findings {
		f := &batch.Findings[i]
		if _, err := insertFinding(tx, f); err != nil {
			return fmt.Errorf("commit batch: finding %s at %d:%d: %w", f.Kind, f.StartLine, f.StartCol, err)
		}
	}

	for _, l := range batch.Linted {
		if _, err := tx.Exec("UPDATE files SET hash = ?, last_linted = ? WHERE id = ?", l.Hash, l.At, l.FileID); err != nil {
			return fmt.Errorf("commit batch: file %d: %w", l.FileID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}
