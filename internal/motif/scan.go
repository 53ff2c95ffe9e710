package motif

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-u12/internal/genome"
)

var (
	// ErrEmptySequence is returned when scanning an empty sequence.
	ErrEmptySequence = errors.New("empty sequence")
	// ErrSequenceTooShort is returned when a motif is wider than the sequence.
	ErrSequenceTooShort = errors.New("sequence shorter than motif")
)

// Match strand values.
const (
	StrandForward = "+"
	StrandReverse = "-"
)

// Match is the best-scoring alignment of one motif in one sequence.
type Match struct {
	Motif    string
	Score    float64 // raw sum of weights
	Rescaled float64 // Score on the 0-100 axis
	Offset   int     // leftmost base of the match in the scanned sequence
	Strand   string
}

// Best returns the highest-scoring offset of the motif on the forward
// sequence. Ties resolve to the lowest offset.
func (p *PWM) Best(seq string) (Match, error) {
	if len(seq) == 0 {
		return Match{}, fmt.Errorf("motif %s: %w", p.Name, ErrEmptySequence)
	}
	w := p.Width()
	if len(seq) < w {
		return Match{}, fmt.Errorf("motif %s: %w (%d < %d)", p.Name, ErrSequenceTooShort, len(seq), w)
	}

	best := Match{Motif: p.Name, Score: p.ScoreAt(seq, 0), Strand: StrandForward}
	for off := 1; off+w <= len(seq); off++ {
		if s := p.ScoreAt(seq, off); s > best.Score {
			best.Score = s
			best.Offset = off
		}
	}
	best.Rescaled = p.Rescale(best.Score)
	return best, nil
}

// Scanner scores sequences against motif libraries.
// The zero value scans the forward strand only.
type Scanner struct {
	// BothStrands also scans the reverse complement. Forward matches win ties.
	BothStrands bool
}

// ScanMotif returns the best match of one motif in seq.
func (s Scanner) ScanMotif(seq string, p *PWM) (Match, error) {
	fwd, err := p.Best(seq)
	if err != nil || !s.BothStrands {
		return fwd, err
	}

	rev, err := p.Best(genome.ReverseComplement(seq))
	if err != nil {
		return Match{}, err
	}
	if rev.Score > fwd.Score {
		rev.Offset = len(seq) - rev.Offset - p.Width()
		rev.Strand = StrandReverse
		return rev, nil
	}
	return fwd, nil
}

// Scan returns the best match of every library motif in seq, in library
// order. Motifs are scored independently.
func (s Scanner) Scan(seq string, lib *Library) ([]Match, error) {
	matches := make([]Match, 0, lib.Len())
	for _, p := range lib.Motifs() {
		m, err := s.ScanMotif(seq, p)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}
