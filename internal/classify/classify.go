// Package classify assigns U2/U12 type, subtype and confidence to scored introns.
package classify

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-u12/internal/intron"
)

// Intron types.
const (
	TypeU2  = "U2"
	TypeU12 = "U12"
)

// Confidence tiers.
const (
	ConfidenceHigh = "High"
	ConfidenceMid  = "Mid"
	ConfidenceLow  = "Low"
)

// ErrIncompleteRecord is returned when a record lacks any of its six scores.
var ErrIncompleteRecord = errors.New("record is missing scores")

// Thresholds are the rescaled-score cutoffs of the decision rules.
type Thresholds struct {
	HighMargin float64 // donor margin for a High call
	MidMargin  float64 // donor margin for a Mid call
	BranchMin  float64 // branch score supporting a Mid call
}

// DefaultThresholds returns the standard cutoffs: margins of 25 and 10,
// branch support of 70.
func DefaultThresholds() Thresholds {
	return Thresholds{HighMargin: 25, MidMargin: 10, BranchMin: 70}
}

// Validate checks that the thresholds are usable.
func (t Thresholds) Validate() error {
	if t.MidMargin > t.HighMargin {
		return fmt.Errorf("mid margin %g exceeds high margin %g", t.MidMargin, t.HighMargin)
	}
	return nil
}

// Margins are the donor-score margins of each candidate subtype over the
// better of the two candidates of the other pathway.
type Margins struct {
	GTAGU12 float64
	ATACU12 float64
	GCAGU2  float64
	GTAGU2  float64
}

// ComputeMargins derives the four donor margins from a record.
func ComputeMargins(r *intron.Record) Margins {
	return Margins{
		GTAGU12: min(r.GTAGU12Donor-r.GTAGU2Donor, r.GTAGU12Donor-r.GCAGU2Donor),
		ATACU12: min(r.ATACU12Donor-r.GTAGU2Donor, r.ATACU12Donor-r.GCAGU2Donor),
		GCAGU2:  min(r.GCAGU2Donor-r.GTAGU12Donor, r.GCAGU2Donor-r.ATACU12Donor),
		GTAGU2:  min(r.GTAGU2Donor-r.GTAGU12Donor, r.GTAGU2Donor-r.ATACU12Donor),
	}
}

// Result is the outcome of classifying one intron.
type Result struct {
	Type       string
	Subtype    string
	Confidence string
	Rule       int // 1-based number of the rule that fired
}

// Classifier applies the ordered decision rules. It is stateless and safe
// for concurrent use.
type Classifier struct {
	t Thresholds
}

// New creates a classifier with the given thresholds.
func New(t Thresholds) *Classifier {
	return &Classifier{t: t}
}

// Thresholds returns the classifier's cutoffs.
func (c *Classifier) Thresholds() Thresholds {
	return c.t
}

// Classify evaluates the rules in order and returns the first that matches.
// The last rule always matches, so every complete record gets a result.
func (c *Classifier) Classify(r *intron.Record) (Result, error) {
	if !r.Complete() {
		return Result{}, fmt.Errorf("classify %s: %w: %v", r.Key(), ErrIncompleteRecord, r.Missing())
	}

	m := ComputeMargins(r)
	t := c.t

	switch {
	case m.GTAGU12 >= t.HighMargin && r.GTAGU12Donor > r.ATACU12Donor:
		return Result{TypeU12, intron.MotifGTAGU12, ConfidenceHigh, 1}, nil
	case m.GTAGU12 >= t.MidMargin && r.GTAGU12Donor > r.ATACU12Donor && r.GTAGU12Branch >= t.BranchMin:
		return Result{TypeU12, intron.MotifGTAGU12, ConfidenceMid, 2}, nil
	case m.ATACU12 >= t.HighMargin && r.ATACU12Donor > r.GTAGU12Donor:
		return Result{TypeU12, intron.MotifATACU12, ConfidenceHigh, 3}, nil
	case m.ATACU12 >= t.MidMargin && r.ATACU12Donor > r.GTAGU12Donor && r.ATACU12Branch >= t.BranchMin:
		return Result{TypeU12, intron.MotifATACU12, ConfidenceMid, 4}, nil
	case m.GCAGU2 >= t.HighMargin && r.GCAGU2Donor > r.GTAGU2Donor:
		return Result{TypeU2, intron.MotifGCAGU2, ConfidenceHigh, 5}, nil
	case m.GTAGU2 >= t.HighMargin && r.GTAGU2Donor > r.GCAGU2Donor:
		return Result{TypeU2, intron.MotifGTAGU2, ConfidenceHigh, 6}, nil
	default:
		return Result{TypeU2, intron.MotifGTAGU2, ConfidenceLow, 7}, nil
	}
}

// Apply classifies a record and stores the result on it.
func (c *Classifier) Apply(r *intron.Record) (Result, error) {
	res, err := c.Classify(r)
	if err != nil {
		return res, err
	}
	if err := r.SetClass(res.Type, res.Subtype, res.Confidence); err != nil {
		return res, err
	}
	return res, nil
}
