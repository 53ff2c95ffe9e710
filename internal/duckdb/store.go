// Package duckdb stores intron classification results and run metadata in
// DuckDB (queryable, one row per intron).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for classification results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS intron_types (
			key VARCHAR PRIMARY KEY,
			chrom VARCHAR,
			chrom_start BIGINT,
			chrom_end BIGINT,
			strand VARCHAR,
			name VARCHAR,
			type VARCHAR,
			subtype VARCHAR,
			confidence VARCHAR,
			at_ac_u12_d DOUBLE,
			gt_ag_u12_d DOUBLE,
			gt_ag_u2_d DOUBLE,
			gc_ag_u2_d DOUBLE,
			at_ac_u12_b DOUBLE,
			gt_ag_u12_b DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id BIGINT PRIMARY KEY,
			finished_at TIMESTAMP,
			introns BIGINT,
			skipped BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS run_inputs (
			run_id BIGINT,
			role VARCHAR,
			path VARCHAR,
			size BIGINT,
			mod_time TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
