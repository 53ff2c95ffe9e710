package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// RunInput is an input file of a run and its role (bed, donor, branch, genome).
type RunInput struct {
	Role string
	FileFingerprint
}

// Run describes one recorded classification run.
type Run struct {
	ID         int64
	FinishedAt time.Time
	Introns    int64
	Skipped    int64
	Inputs     []RunInput
}

// RecordRun stores a run and the fingerprints of its inputs, returning the new run id.
func (s *Store) RecordRun(introns, skipped int, inputs []RunInput) (int64, error) {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(run_id), 0) + 1 FROM runs").Scan(&id); err != nil {
		return 0, fmt.Errorf("next run id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO runs VALUES (?, ?, ?, ?)",
		id, time.Now().UTC(), int64(introns), int64(skipped)); err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	for _, in := range inputs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO run_inputs VALUES (?, ?, ?, ?, ?)",
			id, in.Role, in.Path, in.Size, storedTime(in.ModTime)); err != nil {
			return 0, fmt.Errorf("insert run input %s: %w", in.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

// LastRun returns the most recent run, or nil if none was recorded.
func (s *Store) LastRun() (*Run, error) {
	var r Run
	err := s.db.QueryRow(`SELECT run_id, finished_at, introns, skipped
		FROM runs ORDER BY run_id DESC LIMIT 1`).Scan(&r.ID, &r.FinishedAt, &r.Introns, &r.Skipped)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}

	rows, err := s.db.Query(`SELECT role, path, size, mod_time
		FROM run_inputs WHERE run_id=? ORDER BY role`, r.ID)
	if err != nil {
		return nil, fmt.Errorf("query run inputs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var in RunInput
		if err := rows.Scan(&in.Role, &in.Path, &in.Size, &in.ModTime); err != nil {
			return nil, fmt.Errorf("scan run input: %w", err)
		}
		r.Inputs = append(r.Inputs, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run inputs: %w", err)
	}
	return &r, nil
}

// Changed reports whether the file on disk no longer matches the fingerprint.
func (in RunInput) Changed() bool {
	fp, err := StatFile(in.Path)
	return err != nil || fp.Size != in.Size || !storedTime(fp.ModTime).Equal(in.ModTime)
}

// Unchanged reports whether every input of a run still matches its file on disk.
func (r *Run) Unchanged() bool {
	for _, in := range r.Inputs {
		if in.Changed() {
			return false
		}
	}
	return true
}

// storedTime truncates to the microsecond precision of a DuckDB TIMESTAMP.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
