package store

import (
	"database/sql"
	"fmt"
	"time"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	var hash sql.NullString
	if f.Hash != "" {
		hash = sql.NullString{String: f.Hash, Valid: true}
	}
	res, err := s.db.Exec(
		"INSERT INTO files (path, dialect, hash, last_linted) VALUES (?, ?, ?, ?)",
		f.Path, f.Dialect, hash, f.LastLinted,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

const fileColumns = "id, path, dialect, hash, last_linted"

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var hash sql.NullString
	var linted sql.NullTime
	if err := scanner.Scan(&f.ID, &f.Path, &f.Dialect, &hash, &linted); err != nil {
		return nil, err
	}
	f.Hash = hash.String
	f.LastLinted = linted.Time
	return f, nil
}

func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileColumns+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every file record ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileColumns + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// MarkLinted records the hash a file was analyzed at.
func (s *Store) MarkLinted(fileID int64, hash string, at time.Time) error {
	if _, err := s.db.Exec("UPDATE files SET hash = ?, last_linted = ? WHERE id = ?", hash, at, fileID); err != nil {
		return fmt.Errorf("mark linted: %w", err)
	}
	return nil
}

// --- Finding operations ---

func (s *Store) InsertFinding(f *Finding) (int64, error) {
	return insertFinding(s.db, f)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertFinding(db execer, f *Finding) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO findings (file_id, kind, context, name, message,
		   start_line, start_col, start_offset, end_line, end_col, end_offset, related, fixes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FileID, f.Kind, f.Context, f.Name, f.Message,
		f.StartLine, f.StartCol, f.StartOffset, f.EndLine, f.EndCol, f.EndOffset,
		marshalJSON(f.Related), marshalJSON(f.Fixes),
	)
	if err != nil {
		return 0, fmt.Errorf("insert finding: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

const findingColumns = `f.id, f.file_id, f.kind, f.context, f.name, f.message,
  f.start_line, f.start_col, f.start_offset, f.end_line, f.end_col, f.end_offset, f.related, f.fixes`

func scanFinding(scanner interface{ Scan(...any) error }) (*Finding, error) {
	f := &Finding{}
	var related, fixes string
	if err := scanner.Scan(
		&f.ID, &f.FileID, &f.Kind, &f.Context, &f.Name, &f.Message,
		&f.StartLine, &f.StartCol, &f.StartOffset, &f.EndLine, &f.EndCol, &f.EndOffset,
		&related, &fixes,
	); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(related, &f.Related); err != nil {
		return nil, fmt.Errorf("related notes: %w", err)
	}
	if err := unmarshalJSON(fixes, &f.Fixes); err != nil {
		return nil, fmt.Errorf("fixes: %w", err)
	}
	return f, nil
}

func (s *Store) queryFindings(query string, args ...any) ([]*Finding, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var findings []*Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// FindingsByFile returns a file's findings in source order.
func (s *Store) FindingsByFile(fileID int64) ([]*Finding, error) {
	findings, err := s.queryFindings(
		"SELECT "+findingColumns+" FROM findings f WHERE f.file_id = ? ORDER BY f.start_offset, f.kind, f.id",
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("findings by file: %w", err)
	}
	return findings, nil
}

// FindingsByKind returns the findings of the given kinds across all files,
// ordered by file path and position. No kinds means all findings.
func (s *Store) FindingsByKind(kinds ...string) ([]*Finding, error) {
	query := "SELECT " + findingColumns + " FROM findings f JOIN files ON files.id = f.file_id"
	var args []any
	if len(kinds) > 0 {
		query += " WHERE f.kind IN (" + placeholderList(len(kinds)) + ")"
		args = stringsToArgs(kinds)
	}
	query += " ORDER BY files.path, f.start_offset, f.kind, f.id"
	findings, err := s.queryFindings(query, args...)
	if err != nil {
		return nil, fmt.Errorf("findings by kind: %w", err)
	}
	return findings, nil
}

// KindCounts returns the number of findings per kind, most frequent first.
func (s *Store) KindCounts() ([]KindCount, error) {
	rows, err := s.db.Query("SELECT kind, COUNT(*) FROM findings GROUP BY kind ORDER BY COUNT(*) DESC, kind")
	if err != nil {
		return nil, fmt.Errorf("kind counts: %w", err)
	}
	defer rows.Close()
	var counts []KindCount
	for rows.Next() {
		var kc KindCount
		if err := rows.Scan(&kc.Kind, &kc.Count); err != nil {
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		counts = append(counts, kc)
	}
	return counts, rows.Err()
}

// FileCounts returns the number of findings per file that has any, most
// findings first.
func (s *Store) FileCounts() ([]FileCount, error) {
	rows, err := s.db.Query(
		`SELECT files.path, COUNT(*) FROM findings f JOIN files ON files.id = f.file_id
		 GROUP BY files.path ORDER BY COUNT(*) DESC, files.path`,
	)
	if err != nil {
		return nil, fmt.Errorf("file counts: %w", err)
	}
	defer rows.Close()
	var counts []FileCount
	for rows.Next() {
		var fc FileCount
		if err := rows.Scan(&fc.Path, &fc.Count); err != nil {
			return nil, fmt.Errorf("scan file count: %w", err)
		}
		counts = append(counts, fc)
	}
	return counts, rows.Err()
}
