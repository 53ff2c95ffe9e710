package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-u12/internal/intron"
)

// ClassCount is the number of stored introns with one classification.
type ClassCount struct {
	Type       string
	Subtype    string
	Confidence string
	Count      int64
}

// WriteResults batch-inserts classified records into DuckDB using the Appender API.
// Duplicate keys within the batch are written once; rows already stored under
// the same key are replaced.
func (s *Store) WriteResults(records []*intron.Record) error {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(records))
	deduped := make([]*intron.Record, 0, len(records))
	for _, r := range records {
		if !r.Classified() {
			return fmt.Errorf("write %s: record not classified", r.Key())
		}
		k := r.Key()
		if !seen[k] {
			seen[k] = true
			deduped = append(deduped, r)
		}
	}

	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if err := deleteKeys(ctx, conn, deduped); err != nil {
		return err
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "intron_types")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range deduped {
		sc := r.Scores()
		if err := appender.AppendRow(
			r.Key(), r.Chrom, r.Start, r.End, r.Strand, r.Name,
			r.Type, r.Subtype, r.Confidence,
			sc[0], sc[1], sc[2], sc[3], sc[4], sc[5],
		); err != nil {
			return fmt.Errorf("append intron result: %w", err)
		}
	}

	return appender.Flush()
}

func deleteKeys(ctx context.Context, conn *sql.Conn, records []*intron.Record) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "DELETE FROM intron_types WHERE key = ?")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Key()); err != nil {
			tx.Rollback()
			return fmt.Errorf("replace %s: %w", r.Key(), err)
		}
	}
	return tx.Commit()
}

// ClearResults removes all stored intron results.
func (s *Store) ClearResults() error {
	_, err := s.db.Exec("DELETE FROM intron_types")
	return err
}

// LookupIntron returns the stored record of one intron, or nil if absent.
func (s *Store) LookupIntron(chrom string, start, end int64, strand string) (*intron.Record, error) {
	row := s.db.QueryRow(`SELECT
		name, type, subtype, confidence,
		at_ac_u12_d, gt_ag_u12_d, gt_ag_u2_d, gc_ag_u2_d, at_ac_u12_b, gt_ag_u12_b
		FROM intron_types
		WHERE key=?`, intron.FormatKey(chrom, start, end, strand))

	var name, typ, subtype, confidence string
	var sc [6]float64
	if err := row.Scan(&name, &typ, &subtype, &confidence,
		&sc[0], &sc[1], &sc[2], &sc[3], &sc[4], &sc[5]); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query intron: %w", err)
	}

	r := intron.NewRecord(intron.Intron{Chrom: chrom, Start: start, End: end, Name: name, Strand: strand})
	for i, slot := range intron.Slots() {
		if err := r.Set(slot, sc[i]); err != nil {
			return nil, err
		}
	}
	if err := r.SetClass(typ, subtype, confidence); err != nil {
		return nil, err
	}
	return r, nil
}

// CountResults returns the number of stored introns.
func (s *Store) CountResults() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM intron_types").Scan(&n); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// CountByClass returns stored intron counts grouped by type, subtype and confidence.
func (s *Store) CountByClass() ([]ClassCount, error) {
	rows, err := s.db.Query(`SELECT type, subtype, confidence, COUNT(*)
		FROM intron_types
		GROUP BY type, subtype, confidence
		ORDER BY type, subtype, confidence`)
	if err != nil {
		return nil, fmt.Errorf("query class counts: %w", err)
	}
	defer rows.Close()

	var counts []ClassCount
	for rows.Next() {
		var c ClassCount
		if err := rows.Scan(&c.Type, &c.Subtype, &c.Confidence, &c.Count); err != nil {
			return nil, fmt.Errorf("scan class count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate class counts: %w", err)
	}
	return counts, nil
}
