// Package annotate runs the intron classification pipeline: window
// extraction, motif scanning, score merging and classification.
package annotate

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-u12/internal/classify"
	"github.com/inodb/vibe-u12/internal/intron"
	"github.com/inodb/vibe-u12/internal/motif"
	"github.com/inodb/vibe-u12/internal/window"
)

// WindowErrorPolicy decides what happens to an intron whose window cannot
// be extracted.
type WindowErrorPolicy string

const (
	// PolicyAbort fails the run on the first window error.
	PolicyAbort WindowErrorPolicy = "abort"
	// PolicySkip drops the intron with a warning.
	PolicySkip WindowErrorPolicy = "skip"
)

// ParseWindowErrorPolicy parses a policy name.
func ParseWindowErrorPolicy(s string) (WindowErrorPolicy, error) {
	switch p := WindowErrorPolicy(strings.ToLower(s)); p {
	case PolicyAbort, PolicySkip:
		return p, nil
	case "":
		return PolicyAbort, nil
	}
	return "", fmt.Errorf("unknown window error policy %q (want abort or skip)", s)
}

// IntronParser yields introns until it returns nil, nil.
type IntronParser interface {
	Next() (*intron.Intron, error)
}

// RecordWriter defines the interface for writing classified records.
type RecordWriter interface {
	WriteHeader() error
	Write(r *intron.Record) error
	Flush() error
}

// Scores holds the windows and best motif matches of one intron.
type Scores struct {
	DonorWindow  window.Window
	BranchWindow window.Window
	Donor        []motif.Match
	Branch       []motif.Match
}

// Annotator scores and classifies introns against donor and branch motif
// libraries.
type Annotator struct {
	windows    *window.Extractor
	donor      *motif.Library
	branch     *motif.Library
	scanner    motif.Scanner
	classifier *classify.Classifier
	policy     WindowErrorPolicy
	workers    int
	logger     *zap.Logger
}

// NewAnnotator creates an annotator over a reference and the two motif
// libraries. Both libraries must define every motif the classifier reads.
func NewAnnotator(ref window.Reference, donor, branch *motif.Library) (*Annotator, error) {
	if err := donor.Require(intron.DonorMotifs...); err != nil {
		return nil, fmt.Errorf("donor motifs: %w", err)
	}
	if err := branch.Require(intron.BranchMotifs...); err != nil {
		return nil, fmt.Errorf("branch motifs: %w", err)
	}
	return &Annotator{
		windows:    window.NewExtractor(ref),
		donor:      donor,
		branch:     branch,
		classifier: classify.New(classify.DefaultThresholds()),
		policy:     PolicyAbort,
		logger:     zap.NewNop(),
	}, nil
}

// SetLogger sets the logger for warning and info messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// SetThresholds replaces the classifier cutoffs.
func (a *Annotator) SetThresholds(t classify.Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	a.classifier = classify.New(t)
	return nil
}

// SetWindowErrorPolicy configures how window extraction failures are handled.
func (a *Annotator) SetWindowErrorPolicy(p WindowErrorPolicy) {
	a.policy = p
}

// SetBothStrands configures whether windows are also scanned on the reverse complement.
func (a *Annotator) SetBothStrands(both bool) {
	a.scanner.BothStrands = both
}

// SetWorkers sets the scan worker count. 0 means runtime.NumCPU().
func (a *Annotator) SetWorkers(n int) {
	a.workers = n
}

// ScanIntron extracts both windows of an intron and scans them against
// their libraries.
func (a *Annotator) ScanIntron(in intron.Intron) (*Scores, error) {
	dw, bw, err := a.windows.ExtractBoth(in)
	if err != nil {
		return nil, err
	}

	donor, err := a.scanner.Scan(dw.Seq, a.donor)
	if err != nil {
		return nil, fmt.Errorf("intron %s: scan donor window: %w", in.Key(), err)
	}
	branch, err := a.scanner.Scan(bw.Seq, a.branch)
	if err != nil {
		return nil, fmt.Errorf("intron %s: scan branch window: %w", in.Key(), err)
	}

	return &Scores{DonorWindow: dw, BranchWindow: bw, Donor: donor, Branch: branch}, nil
}

// Result is the outcome of a classification run.
type Result struct {
	Records []*intron.Record // classified, in input order
	Summary *Summary
}

// Run reads all introns from parser, scores them in parallel and classifies
// every record once both passes are merged.
func (a *Annotator) Run(parser IntronParser) (*Result, error) {
	workers := a.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	items := make(chan WorkItem, 2*workers)
	var parseErr error
	summary := newSummary()

	go func() {
		defer close(items)
		seen := make(map[string]bool)
		seq := 0
		for {
			in, err := parser.Next()
			if err != nil {
				parseErr = fmt.Errorf("read intron: %w", err)
				return
			}
			if in == nil {
				return
			}
			key := in.Key()
			if seen[key] {
				summary.Duplicates++
				a.logger.Debug("duplicate intron",
					zap.String("intron", key),
					zap.String("name", in.Name))
				continue
			}
			seen[key] = true
			items <- WorkItem{Seq: seq, Intron: *in}
			seq++
		}
	}()

	results := a.ParallelScan(items, workers)
	store := intron.NewStore()

	if err := OrderedCollect(results, func(r WorkResult) error {
		summary.Introns++
		if r.Err != nil {
			var werr *window.Error
			if a.policy == PolicySkip && errors.As(r.Err, &werr) {
				a.logger.Warn("skipping intron",
					zap.String("intron", r.Intron.Key()),
					zap.Error(r.Err))
				summary.Skipped = append(summary.Skipped, r.Intron.Key())
				return nil
			}
			return r.Err
		}
		return a.merge(store, r.Intron, r.Scores)
	}); err != nil {
		return nil, err
	}

	if parseErr != nil {
		return nil, parseErr
	}

	if err := store.Validate(); err != nil {
		return nil, err
	}

	records := store.Records()
	for _, rec := range records {
		res, err := a.classifier.Apply(rec)
		if err != nil {
			return nil, err
		}
		summary.add(res)
	}

	if summary.Introns == 0 {
		a.logger.Info("0 introns processed")
	} else {
		summary.log(a.logger)
	}

	return &Result{Records: records, Summary: summary}, nil
}

// AnnotateAll classifies all introns from a parser and writes each record.
// The caller writes the header.
func (a *Annotator) AnnotateAll(parser IntronParser, writer RecordWriter) (*Result, error) {
	res, err := a.Run(parser)
	if err != nil {
		return nil, err
	}
	for _, rec := range res.Records {
		if err := writer.Write(rec); err != nil {
			return nil, fmt.Errorf("write record: %w", err)
		}
	}
	return res, writer.Flush()
}

// merge writes both passes of one intron into the store. Matches of motifs
// that have no score column are ignored.
func (a *Annotator) merge(store *intron.Store, in intron.Intron, s *Scores) error {
	if err := store.Merge(in, intron.Donor, siteScores(intron.Donor, s.Donor)); err != nil {
		return err
	}
	return store.Merge(in, intron.Branch, siteScores(intron.Branch, s.Branch))
}

func siteScores(site intron.Site, matches []motif.Match) map[string]float64 {
	want := site.Motifs()
	scores := make(map[string]float64, len(want))
	for _, m := range matches {
		if slices.Contains(want, m.Motif) {
			scores[m.Motif] = m.Rescaled
		}
	}
	return scores
}
