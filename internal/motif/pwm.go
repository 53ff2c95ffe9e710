// Package motif provides position weight matrices for splice-site motifs,
// best-match scanning and rescaling of match scores onto 0-100.
package motif

import (
	"fmt"
	"math"
)

// Column order of a weight row.
const (
	BaseA = iota
	BaseC
	BaseG
	BaseT
)

// Bases is the default column order of a weight row.
const Bases = "ACGT"

var baseIndex [256]int8

func init() {
	for i := range baseIndex {
		baseIndex[i] = -1
	}
	for i, b := range Bases {
		baseIndex[b] = int8(i)
		baseIndex[b+'a'-'A'] = int8(i)
	}
}

// PWM is a position weight matrix of log-odds weights, one row per motif
// position and one column per base (A, C, G, T).
type PWM struct {
	Name    string
	Weights [][4]float64

	// MaxScore and MinScore are the best and worst achievable sums of weights.
	MaxScore float64
	MinScore float64

	// mean weight per row, used for ambiguous bases
	means []float64
}

// NewPWM creates a PWM and computes its score bounds.
func NewPWM(name string, weights [][4]float64) (*PWM, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("motif %s: %w: no positions", name, ErrMalformedMotif)
	}

	p := &PWM{
		Name:    name,
		Weights: weights,
		means:   make([]float64, len(weights)),
	}
	for i, row := range weights {
		hi, lo, sum := math.Inf(-1), math.Inf(1), 0.0
		for _, w := range row {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("motif %s: %w: non-finite weight at position %d", name, ErrMalformedMotif, i+1)
			}
			hi = math.Max(hi, w)
			lo = math.Min(lo, w)
			sum += w
		}
		p.MaxScore += hi
		p.MinScore += lo
		p.means[i] = sum / 4
	}
	return p, nil
}

// Width returns the number of motif positions.
func (p *PWM) Width() int {
	return len(p.Weights)
}

// weight returns the weight of base b at position i. Bases other than
// A, C, G and T score the row mean.
func (p *PWM) weight(i int, b byte) float64 {
	if j := baseIndex[b]; j >= 0 {
		return p.Weights[i][j]
	}
	return p.means[i]
}

// ScoreAt returns the raw score of the motif aligned at offset in seq.
// The caller guarantees offset+Width() <= len(seq).
func (p *PWM) ScoreAt(seq string, offset int) float64 {
	var s float64
	for i := range p.Weights {
		s += p.weight(i, seq[offset+i])
	}
	return s
}

// Rescale maps a raw score of this motif onto 0-100. See Rescale.
func (p *PWM) Rescale(score float64) float64 {
	return Rescale(score, p.MinScore, p.MaxScore)
}
