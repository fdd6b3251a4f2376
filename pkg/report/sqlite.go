package report

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	dupfind "github.com/mattkeenan/dupfind/pkg"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scan (
    id TEXT PRIMARY KEY,
    schema TEXT NOT NULL,
    version INTEGER NOT NULL,
    root TEXT NOT NULL,
    algorithm TEXT NOT NULL,
    prefix_size INTEGER NOT NULL,
    complete INTEGER NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    files_discovered INTEGER NOT NULL,
    size_candidates INTEGER NOT NULL,
    prefix_hashed INTEGER NOT NULL,
    full_hashed INTEGER NOT NULL,
    verified INTEGER NOT NULL,
    bytes_read INTEGER NOT NULL,
    errors INTEGER NOT NULL,
    duplicate_groups INTEGER NOT NULL,
    duplicate_files INTEGER NOT NULL,
    reclaimable_bytes INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS duplicate (
    scan_id TEXT NOT NULL REFERENCES scan(id),
    size INTEGER NOT NULL,
    digest TEXT NOT NULL,
    path TEXT NOT NULL,
    PRIMARY KEY (scan_id, path)
);
CREATE INDEX IF NOT EXISTS duplicate_group ON duplicate (scan_id, size, digest);
CREATE TABLE IF NOT EXISTS warning (
    scan_id TEXT NOT NULL REFERENCES scan(id),
    path TEXT NOT NULL,
    stage TEXT NOT NULL,
    reason TEXT NOT NULL
);
`

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// WriteSQLite stores the report in the sqlite database at path, creating
// the tables when missing
func WriteSQLite(path string, r *Report) error {
	db, err := openSQLite(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	s := r.Stats
	if _, err := tx.Exec(`
        INSERT INTO scan (id, schema, version, root, algorithm, prefix_size, complete, started_at, finished_at,
            files_discovered, size_candidates, prefix_hashed, full_hashed, verified, bytes_read, errors,
            duplicate_groups, duplicate_files, reclaimable_bytes)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ScanID, r.Schema, r.Version, r.Root, r.Algorithm, r.PrefixSize, r.Complete,
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.FinishedAt.UTC().Format(time.RFC3339Nano),
		s.FilesDiscovered, s.SizeCandidates, s.PrefixHashed, s.FullHashed, s.Verified, s.BytesRead, s.Errors,
		s.DuplicateGroups, s.DuplicateFiles, s.ReclaimableBytes); err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	dupStmt, err := tx.Prepare(`INSERT INTO duplicate (scan_id, size, digest, path) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer dupStmt.Close()
	for _, g := range r.Groups() {
		for _, path := range g.Paths {
			if _, err := dupStmt.Exec(r.ScanID, g.Size, g.Digest, path); err != nil {
				return fmt.Errorf("failed to insert %s: %w", path, err)
			}
		}
	}

	warnStmt, err := tx.Prepare(`INSERT INTO warning (scan_id, path, stage, reason) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer warnStmt.Close()
	for _, w := range r.Warnings {
		if _, err := warnStmt.Exec(r.ScanID, w.Path, w.Stage, w.Reason); err != nil {
			return fmt.Errorf("failed to insert warning for %s: %w", w.Path, err)
		}
	}

	return tx.Commit()
}

// ReadSQLite loads the most recently finished scan stored at path
func ReadSQLite(path string) (*Report, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	r := &Report{}
	var started, finished string
	s := &r.Stats
	err = db.QueryRow(`
        SELECT id, schema, version, root, algorithm, prefix_size, complete, started_at, finished_at,
            files_discovered, size_candidates, prefix_hashed, full_hashed, verified, bytes_read, errors,
            duplicate_groups, duplicate_files, reclaimable_bytes
        FROM scan ORDER BY finished_at DESC LIMIT 1`).Scan(
		&r.ScanID, &r.Schema, &r.Version, &r.Root, &r.Algorithm, &r.PrefixSize, &r.Complete, &started, &finished,
		&s.FilesDiscovered, &s.SizeCandidates, &s.PrefixHashed, &s.FullHashed, &s.Verified, &s.BytesRead, &s.Errors,
		&s.DuplicateGroups, &s.DuplicateFiles, &s.ReclaimableBytes)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s holds no scans", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scan: %w", err)
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, err
	}
	if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return nil, err
	}

	r.Duplicates = make(dupfind.DuplicateSet)
	rows, err := db.Query(`SELECT size, digest, path FROM duplicate WHERE scan_id = ? ORDER BY size, digest, path`, r.ScanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var size int64
		var digest, path string
		if err := rows.Scan(&size, &digest, &path); err != nil {
			return nil, err
		}
		if r.Duplicates[size] == nil {
			r.Duplicates[size] = make(map[string][]string)
		}
		r.Duplicates[size][digest] = append(r.Duplicates[size][digest], path)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Release the only connection before the next query
	rows.Close()

	warnRows, err := db.Query(`SELECT path, stage, reason FROM warning WHERE scan_id = ? ORDER BY rowid`, r.ScanID)
	if err != nil {
		return nil, err
	}
	defer warnRows.Close()
	for warnRows.Next() {
		var w dupfind.Warning
		if err := warnRows.Scan(&w.Path, &w.Stage, &w.Reason); err != nil {
			return nil, err
		}
		r.Warnings = append(r.Warnings, w)
	}
	if err := warnRows.Err(); err != nil {
		return nil, err
	}

	r.normalize()
	return r, nil
}
