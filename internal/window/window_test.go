package window

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-u12/internal/genome"
	"github.com/inodb/vibe-u12/internal/intron"
)

func TestGeometry(t *testing.T) {
	tests := []struct {
		strand                 string
		donorStart, donorEnd   int64
		branchStart, branchEnd int64
	}{
		{"+", 97, 110, 162, 192},
		{"-", 190, 203, 108, 138},
	}
	for _, tt := range tests {
		t.Run(tt.strand, func(t *testing.T) {
			in := intron.Intron{Chrom: "chr1", Start: 100, End: 200, Strand: tt.strand}

			d := Donor(in)
			assert.Equal(t, tt.donorStart, d.Start)
			assert.Equal(t, tt.donorEnd, d.End)
			assert.Equal(t, int64(13), d.Len())
			assert.Equal(t, intron.Donor, d.Site)

			b := Branch(in)
			assert.Equal(t, tt.branchStart, b.Start)
			assert.Equal(t, tt.branchEnd, b.End)
			assert.Equal(t, int64(30), b.Len())
			assert.Equal(t, intron.Branch, b.Site)

			assert.Equal(t, d, For(in, intron.Donor))
			assert.Equal(t, b, For(in, intron.Branch))
		})
	}
}

// 60 bases: exon|GTAAGT... intron on + strand at [10, 50).
const contig = "CCCCCCCAAG" + "GTAAGTATCC" + "TTTTTTTTTT" + "TTTTTCCTTAACTTTTTTT" + "TTTAGGGGGGG"

func newRef(t *testing.T) *genome.Genome {
	t.Helper()
	g, err := genome.Read(strings.NewReader(">chr1\n" + contig + "\n"))
	require.NoError(t, err)
	return g
}

func TestExtract_PlusStrand(t *testing.T) {
	e := NewExtractor(newRef(t))
	in := intron.Intron{Chrom: "chr1", Start: 10, End: 50, Strand: "+"}

	donor, branch, err := e.ExtractBoth(in)
	require.NoError(t, err)
	assert.Equal(t, contig[7:20], donor.Seq)
	assert.Equal(t, "AAGGTAAGTATCC", donor.Seq)
	assert.Equal(t, contig[12:42], branch.Seq)
}

func TestExtract_MinusStrandIsReverseComplemented(t *testing.T) {
	e := NewExtractor(newRef(t))
	in := intron.Intron{Chrom: "chr1", Start: 10, End: 50, Strand: "-"}

	donor, err := e.Extract(in, intron.Donor)
	require.NoError(t, err)
	assert.Equal(t, int64(40), donor.Start)
	assert.Equal(t, int64(53), donor.End)
	assert.Equal(t, genome.ReverseComplement(contig[40:53]), donor.Seq)

	branch, err := e.Extract(in, intron.Branch)
	require.NoError(t, err)
	assert.Equal(t, genome.ReverseComplement(contig[18:48]), branch.Seq)
}

func TestExtract_OutOfBounds(t *testing.T) {
	e := NewExtractor(newRef(t))

	tests := []struct {
		name string
		in   intron.Intron
		site intron.Site
	}{
		{"donor before contig start", intron.Intron{Chrom: "chr1", Start: 1, End: 50, Strand: "+"}, intron.Donor},
		{"donor past contig end", intron.Intron{Chrom: "chr1", Start: 5, End: 58, Strand: "-"}, intron.Donor},
		{"branch before contig start", intron.Intron{Chrom: "chr1", Start: 0, End: 30, Strand: "+"}, intron.Branch},
		{"branch past contig end", intron.Intron{Chrom: "chr1", Start: 40, End: 59, Strand: "-"}, intron.Branch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(tt.in, tt.site)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrWindowOutOfBounds)

			var we *Error
			require.True(t, errors.As(err, &we))
			assert.Equal(t, tt.in.Key(), we.Key)
			assert.Equal(t, tt.site, we.Window.Site)
		})
	}
}

func TestExtract_UnknownContig(t *testing.T) {
	e := NewExtractor(newRef(t))
	_, _, err := e.ExtractBoth(intron.Intron{Chrom: "chrUn", Start: 10, End: 50, Strand: "+"})
	assert.ErrorIs(t, err, ErrUnknownContig)
	assert.Contains(t, err.Error(), "chrUn|10|50|+")
}
