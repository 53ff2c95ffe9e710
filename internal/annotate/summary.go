package annotate

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/inodb/vibe-u12/internal/classify"
)

// Class is a (type, subtype, confidence) triple.
type Class struct {
	Type       string
	Subtype    string
	Confidence string
}

// Summary counts the outcome of a run.
type Summary struct {
	Introns    int      // distinct introns scanned
	Duplicates int      // BED rows repeating an earlier intron
	Skipped    []string // keys dropped by the skip policy
	Counts     map[Class]int
}

func newSummary() *Summary {
	return &Summary{Counts: make(map[Class]int)}
}

func (s *Summary) add(r classify.Result) {
	s.Counts[Class{r.Type, r.Subtype, r.Confidence}]++
}

// Classified returns the number of classified introns.
func (s *Summary) Classified() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// CountType returns the number of introns of one type.
func (s *Summary) CountType(typ string) int {
	n := 0
	for c, k := range s.Counts {
		if c.Type == typ {
			n += k
		}
	}
	return n
}

// Classes returns the observed classes sorted by type, subtype and confidence.
func (s *Summary) Classes() []Class {
	classes := make([]Class, 0, len(s.Counts))
	for c := range s.Counts {
		classes = append(classes, c)
	}
	slices.SortFunc(classes, func(a, b Class) int {
		return cmp.Or(
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(a.Subtype, b.Subtype),
			cmp.Compare(a.Confidence, b.Confidence),
		)
	})
	return classes
}

func (s *Summary) log(l *zap.Logger) {
	l.Info("classification complete",
		zap.Int("introns", s.Introns),
		zap.Int("classified", s.Classified()),
		zap.Int("u12", s.CountType(classify.TypeU12)),
		zap.Int("u2", s.CountType(classify.TypeU2)),
		zap.Int("skipped", len(s.Skipped)),
		zap.Int("duplicates", s.Duplicates))
	for _, c := range s.Classes() {
		l.Debug("class count",
			zap.String("type", c.Type),
			zap.String("subtype", c.Subtype),
			zap.String("confidence", c.Confidence),
			zap.Int("count", s.Counts[c]))
	}
}
