// Package output provides classification table formatters.
package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-u12/internal/intron"
)

// ErrUnclassified is returned when writing a record that has not been classified.
var ErrUnclassified = errors.New("record not classified")

// Columns is the header of the classification table.
var Columns = func() []string {
	cols := []string{"Chrom", "Start", "End", "Strand", "Type", "SubType", "Confidence"}
	for _, s := range intron.Slots() {
		cols = append(cols, s.String())
	}
	return cols
}()

// TabWriter writes classified introns in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: Columns,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single classified record.
func (tw *TabWriter) Write(r *intron.Record) error {
	if !r.Classified() {
		return fmt.Errorf("%s: %w", r.Key(), ErrUnclassified)
	}

	values := make([]string, 0, len(tw.columns))
	values = append(values,
		r.Chrom,
		strconv.FormatInt(r.Start, 10),
		strconv.FormatInt(r.End, 10),
		r.Strand,
		r.Type,
		r.Subtype,
		r.Confidence,
	)
	for _, s := range r.Scores() {
		values = append(values, FormatScore(s))
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// FormatScore renders a rescaled score with the fewest digits that
// round-trip.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
