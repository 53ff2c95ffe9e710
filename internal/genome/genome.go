// Package genome provides in-memory access to a reference genome FASTA.
package genome

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

var (
	// ErrUnknownContig is returned when a contig is not present in the genome.
	ErrUnknownContig = errors.New("unknown contig")
	// ErrOutOfRange is returned when a requested range exceeds the contig.
	ErrOutOfRange = errors.New("range outside contig")
)

// Genome holds reference contigs keyed by name (first word of the FASTA header).
// It is read-only after loading and safe for concurrent use.
type Genome struct {
	contigs map[string]*linear.Seq
}

// Load reads a FASTA file. Files ending in .gz are decompressed.
func Load(path string) (*Genome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genome FASTA: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return Read(reader)
}

// Read parses FASTA content into a Genome.
func Read(r io.Reader) (*Genome, error) {
	g := &Genome{contigs: make(map[string]*linear.Seq)}

	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNAredundant)))
	for sc.Next() {
		s := sc.Seq().(*linear.Seq)
		if _, dup := g.contigs[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate contig %q in genome FASTA", s.Name())
		}
		g.contigs[s.Name()] = s
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("scan genome FASTA: %w", err)
	}

	return g, nil
}

// ContigLen returns the length of a contig.
func (g *Genome) ContigLen(chrom string) (int, bool) {
	s, ok := g.contigs[chrom]
	if !ok {
		return 0, false
	}
	return s.Len(), true
}

// Contigs returns the sorted contig names.
func (g *Genome) Contigs() []string {
	names := make([]string, 0, len(g.contigs))
	for name := range g.contigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fetch returns the upper-cased sequence of chrom[start:end).
// With revcomp set the reverse complement is returned.
func (g *Genome) Fetch(chrom string, start, end int, revcomp bool) (string, error) {
	s, ok := g.contigs[chrom]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownContig, chrom)
	}
	if start < 0 || end > s.Len() || start > end {
		return "", fmt.Errorf("%w: %s:%d-%d (length %d)", ErrOutOfRange, chrom, start, end, s.Len())
	}

	sub := linear.NewSeq(chrom, append(alphabet.Letters(nil), s.Seq[start:end]...), s.Alpha)
	if revcomp {
		sub.RevComp()
	}
	return lettersToString(sub.Seq), nil
}

// ReverseComplement returns the upper-cased reverse complement of a nucleotide string.
func ReverseComplement(seq string) string {
	s := linear.NewSeq("", alphabet.BytesToLetters([]byte(seq)), alphabet.DNAredundant)
	s.RevComp()
	return lettersToString(s.Seq)
}

func lettersToString(ls alphabet.Letters) string {
	b := make([]byte, len(ls))
	for i, l := range ls {
		b[i] = byte(l)
	}
	return string(bytes.ToUpper(b))
}
