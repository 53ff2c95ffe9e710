// Package window computes the donor and branch-point sequence windows of an
// intron and fetches their strand-corrected sequence from a reference.
package window

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-u12/internal/intron"
)

// Window geometry, in bases.
const (
	DonorExonBases   = 3  // upstream exon bases in the donor window
	DonorIntronBases = 10 // intron bases in the donor window
	BranchFar        = 38 // branch window start, upstream of the acceptor
	BranchNear       = 8  // branch window end, upstream of the acceptor
)

var (
	// ErrWindowOutOfBounds is returned when a window extends past its contig.
	ErrWindowOutOfBounds = errors.New("window out of bounds")
	// ErrUnknownContig is returned when the intron's contig is not in the reference.
	ErrUnknownContig = errors.New("contig not in reference")
)

// Reference provides contig lengths and strand-aware subsequences.
type Reference interface {
	ContigLen(chrom string) (int, bool)
	Fetch(chrom string, start, end int, revcomp bool) (string, error)
}

// Window is a half-open genomic interval around one splice site of an intron.
// Seq holds the sequence read 5'->3' on the intron's strand once extracted.
type Window struct {
	Chrom  string
	Start  int64
	End    int64
	Strand string
	Site   intron.Site
	Seq    string
}

// Len returns the window width.
func (w Window) Len() int64 {
	return w.End - w.Start
}

func (w Window) String() string {
	return fmt.Sprintf("%s:%d-%d(%s)", w.Chrom, w.Start, w.End, w.Strand)
}

// Donor returns the donor window: 3 exon bases and 10 intron bases at the
// intron's 5' boundary.
func Donor(in intron.Intron) Window {
	w := Window{Chrom: in.Chrom, Strand: in.Strand, Site: intron.Donor}
	if in.IsReverseStrand() {
		w.Start = in.End - DonorIntronBases
		w.End = in.End + DonorExonBases
	} else {
		w.Start = in.Start - DonorExonBases
		w.End = in.Start + DonorIntronBases
	}
	return w
}

// Branch returns the branch-point window, 38 to 8 bases upstream of the
// intron's 3' boundary.
func Branch(in intron.Intron) Window {
	w := Window{Chrom: in.Chrom, Strand: in.Strand, Site: intron.Branch}
	if in.IsReverseStrand() {
		w.Start = in.Start + BranchNear
		w.End = in.Start + BranchFar
	} else {
		w.Start = in.End - BranchFar
		w.End = in.End - BranchNear
	}
	return w
}

// For returns the window of the given site.
func For(in intron.Intron, site intron.Site) Window {
	if site == intron.Branch {
		return Branch(in)
	}
	return Donor(in)
}

// Error reports a window that could not be extracted for an intron.
type Error struct {
	Key    string
	Window Window
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("intron %s: %s window %s: %v", e.Key, e.Window.Site, e.Window, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extractor fetches window sequences from a reference.
type Extractor struct {
	ref Reference
}

// NewExtractor creates an extractor over a reference.
func NewExtractor(ref Reference) *Extractor {
	return &Extractor{ref: ref}
}

// Extract computes the site window of an intron and fills in its sequence.
// Windows are never clamped: a window past either contig end is an error.
func (e *Extractor) Extract(in intron.Intron, site intron.Site) (Window, error) {
	w := For(in, site)

	n, ok := e.ref.ContigLen(w.Chrom)
	if !ok {
		return w, &Error{Key: in.Key(), Window: w, Err: ErrUnknownContig}
	}
	if w.Start < 0 || w.End > int64(n) {
		return w, &Error{Key: in.Key(), Window: w, Err: ErrWindowOutOfBounds}
	}

	seq, err := e.ref.Fetch(w.Chrom, int(w.Start), int(w.End), in.IsReverseStrand())
	if err != nil {
		return w, &Error{Key: in.Key(), Window: w, Err: err}
	}
	w.Seq = seq
	return w, nil
}

// ExtractBoth returns the donor and branch windows of an intron.
func (e *Extractor) ExtractBoth(in intron.Intron) (donor, branch Window, err error) {
	if donor, err = e.Extract(in, intron.Donor); err != nil {
		return donor, branch, err
	}
	branch, err = e.Extract(in, intron.Branch)
	return donor, branch, err
}
