package motif

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrMalformedMotif is returned for non-rectangular, non-numeric or
	// otherwise invalid weight matrices.
	ErrMalformedMotif = errors.New("malformed motif definition")
	// ErrEmptyMotifSet is returned when a motif source defines no motifs.
	ErrEmptyMotifSet = errors.New("no motifs defined")
)

// WeightMode selects how matrix values are interpreted.
type WeightMode string

const (
	// WeightsAuto treats a motif as probabilities when every row is a
	// distribution over the four bases, and as log-odds otherwise.
	WeightsAuto WeightMode = "auto"
	// WeightsLogOdds uses the values as scoring weights unchanged.
	WeightsLogOdds WeightMode = "logodds"
	// WeightsProbability converts base frequencies to log-odds.
	WeightsProbability WeightMode = "probability"
)

// ParseWeightMode validates a weight mode name.
func ParseWeightMode(s string) (WeightMode, error) {
	switch m := WeightMode(strings.ToLower(s)); m {
	case WeightsAuto, WeightsLogOdds, WeightsProbability:
		return m, nil
	}
	return "", fmt.Errorf("unknown weight mode %q (want auto, logodds or probability)", s)
}

const (
	// DefaultPseudocount is added to frequency/background ratios before the log.
	DefaultPseudocount = 0.01

	background       = 0.25
	distributionSlop = 0.02
)

// ParseOptions controls how weights are read.
type ParseOptions struct {
	Weights     WeightMode
	Pseudocount float64
}

// DefaultParseOptions returns auto-detected weights with the default pseudocount.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{Weights: WeightsAuto, Pseudocount: DefaultPseudocount}
}

// ParseError represents a malformed motif definition with line context.
type ParseError struct {
	Line    int
	Motif   string
	Message string
}

func (e *ParseError) Error() string {
	if e.Motif == "" {
		return fmt.Sprintf("motif parse error at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("motif parse error at line %d (%s): %s", e.Line, e.Motif, e.Message)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedMotif
}

// pendingMotif is a motif whose rows are still being read.
type pendingMotif struct {
	name    string
	line    int
	columns [4]int // column index -> base index
	rows    [][4]float64
}

// Parse reads motifs in the ">NAME" + rows format: each row holds four
// whitespace-separated values in A C G T order, unless a column header row
// such as "A C G T" precedes the first row. Blank lines and lines starting
// with '#' are ignored.
func Parse(r io.Reader, opts ParseOptions) ([]*PWM, error) {
	if opts.Weights == "" {
		opts.Weights = WeightsAuto
	}
	if opts.Weights != WeightsLogOdds && opts.Pseudocount <= 0 {
		return nil, fmt.Errorf("pseudocount must be positive, got %g", opts.Pseudocount)
	}

	scanner := bufio.NewScanner(r)

	var (
		motifs  []*PWM
		seen    = make(map[string]bool)
		current *pendingMotif
		lineNum int
	)

	finish := func() error {
		if current == nil {
			return nil
		}
		if len(current.rows) == 0 {
			return &ParseError{Line: current.line, Motif: current.name, Message: "motif has no rows"}
		}
		p, err := NewPWM(current.name, convert(current.rows, opts))
		if err != nil {
			return err
		}
		motifs = append(motifs, p)
		return nil
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, ">") {
			if err := finish(); err != nil {
				return nil, err
			}
			fields := strings.Fields(line[1:])
			if len(fields) == 0 {
				return nil, &ParseError{Line: lineNum, Message: "empty motif name"}
			}
			name := fields[0]
			if seen[name] {
				return nil, &ParseError{Line: lineNum, Motif: name, Message: "duplicate motif name"}
			}
			seen[name] = true
			current = &pendingMotif{name: name, line: lineNum, columns: [4]int{BaseA, BaseC, BaseG, BaseT}}
			continue
		}

		if current == nil {
			return nil, &ParseError{Line: lineNum, Message: "weight row before first motif header"}
		}

		fields := strings.Fields(line)
		if len(current.rows) == 0 && isColumnHeader(fields) {
			cols, err := parseColumnHeader(fields)
			if err != nil {
				return nil, &ParseError{Line: lineNum, Motif: current.name, Message: err.Error()}
			}
			current.columns = cols
			continue
		}

		row, err := parseRow(fields, current.columns)
		if err != nil {
			return nil, &ParseError{Line: lineNum, Motif: current.name, Message: err.Error()}
		}
		current.rows = append(current.rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read motifs: %w", err)
	}
	if err := finish(); err != nil {
		return nil, err
	}

	if len(motifs) == 0 {
		return nil, ErrEmptyMotifSet
	}
	return motifs, nil
}

// isColumnHeader reports whether a row names bases instead of holding weights.
func isColumnHeader(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	if _, err := strconv.ParseFloat(fields[0], 64); err == nil {
		return false
	}
	for _, r := range fields[0] {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

func parseColumnHeader(fields []string) ([4]int, error) {
	var cols [4]int
	if len(fields) != 4 {
		return cols, fmt.Errorf("column header must name A, C, G and T, found %d columns", len(fields))
	}
	var have [4]bool
	for i, f := range fields {
		if len(f) != 1 || baseIndex[f[0]] < 0 {
			return cols, fmt.Errorf("column header must name A, C, G and T, found %q", f)
		}
		b := baseIndex[f[0]]
		if have[b] {
			return cols, fmt.Errorf("column header names %q twice", strings.ToUpper(f))
		}
		have[b] = true
		cols[i] = int(b)
	}
	return cols, nil
}

func parseRow(fields []string, columns [4]int) ([4]float64, error) {
	var row [4]float64
	if len(fields) != 4 {
		return row, fmt.Errorf("expected 4 columns, found %d", len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return row, fmt.Errorf("non-numeric weight %q", f)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return row, fmt.Errorf("non-finite weight %q", f)
		}
		row[columns[i]] = v
	}
	return row, nil
}

// convert applies the weight mode to a motif's rows.
func convert(rows [][4]float64, opts ParseOptions) [][4]float64 {
	switch opts.Weights {
	case WeightsLogOdds:
		return rows
	case WeightsAuto:
		if !isDistribution(rows) {
			return rows
		}
	}

	out := make([][4]float64, len(rows))
	for i, row := range rows {
		for j, p := range row {
			out[i][j] = math.Log(p/background + opts.Pseudocount)
		}
	}
	return out
}

// isDistribution reports whether every row is a base frequency distribution.
func isDistribution(rows [][4]float64) bool {
	for _, row := range rows {
		var sum float64
		for _, v := range row {
			if v < 0 || v > 1 {
				return false
			}
			sum += v
		}
		if math.Abs(sum-1) > distributionSlop {
			return false
		}
	}
	return true
}
