package annotate

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vibe-u12/internal/classify"
	"github.com/inodb/vibe-u12/internal/genome"
	"github.com/inodb/vibe-u12/internal/intron"
	"github.com/inodb/vibe-u12/internal/motif"
	"github.com/inodb/vibe-u12/internal/window"
)

// chr1 is poly-A with a single TCC at 12-14 and no G anywhere.
var chr1 = strings.Repeat("A", 12) + "TCC" + strings.Repeat("A", 285)

func testGenome(t *testing.T) *genome.Genome {
	t.Helper()
	g, err := genome.Read(strings.NewReader(">chr1 test contig\n" + chr1 + "\n"))
	require.NoError(t, err)
	return g
}

// favour builds a log-odds motif scoring 2 for each listed base and -1 otherwise.
func favour(t *testing.T, name, bases string) *motif.PWM {
	t.Helper()
	rows := make([][4]float64, len(bases))
	for i := range bases {
		rows[i] = [4]float64{-1, -1, -1, -1}
		rows[i][strings.IndexByte(motif.Bases, bases[i])] = 2
	}
	p, err := motif.NewPWM(name, rows)
	require.NoError(t, err)
	return p
}

func testLibraries(t *testing.T) (donor, branch *motif.Library) {
	t.Helper()
	donor, err := motif.NewLibrary([]*motif.PWM{
		favour(t, intron.MotifGTAGU12, "TCC"),
		favour(t, intron.MotifATACU12, "GGG"),
		favour(t, intron.MotifGTAGU2, "GGG"),
		favour(t, intron.MotifGCAGU2, "GGG"),
	})
	require.NoError(t, err)
	branch, err = motif.NewLibrary([]*motif.PWM{
		favour(t, intron.MotifATACU12, "TT"),
		favour(t, intron.MotifGTAGU12, "TT"),
	})
	require.NoError(t, err)
	return donor, branch
}

func newTestAnnotator(t *testing.T) *Annotator {
	t.Helper()
	donor, branch := testLibraries(t)
	a, err := NewAnnotator(testGenome(t), donor, branch)
	require.NoError(t, err)
	a.SetWorkers(4)
	return a
}

func bed(lines ...string) *intron.Parser {
	return intron.NewParserFromReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func TestNewAnnotator_RequiresMotifs(t *testing.T) {
	donor, branch := testLibraries(t)

	partial, err := motif.NewLibrary([]*motif.PWM{favour(t, intron.MotifGTAGU12, "GT")})
	require.NoError(t, err)

	_, err = NewAnnotator(testGenome(t), partial, branch)
	assert.ErrorIs(t, err, motif.ErrMissingMotif)
	assert.Contains(t, err.Error(), "donor motifs")

	_, err = NewAnnotator(testGenome(t), donor, partial)
	assert.ErrorIs(t, err, motif.ErrMissingMotif)
	assert.Contains(t, err.Error(), "branch motifs")
}

func TestScanIntron(t *testing.T) {
	a := newTestAnnotator(t)

	s, err := a.ScanIntron(intron.Intron{Chrom: "chr1", Start: 10, End: 60, Strand: "+"})
	require.NoError(t, err)

	assert.Equal(t, "AAAAATCCAAAAA", s.DonorWindow.Seq)
	assert.Equal(t, strings.Repeat("A", 30), s.BranchWindow.Seq)

	require.Len(t, s.Donor, 4)
	assert.Equal(t, intron.MotifGTAGU12, s.Donor[0].Motif)
	assert.Equal(t, 5, s.Donor[0].Offset)
	assert.Equal(t, 100.0, s.Donor[0].Rescaled)
	for _, m := range s.Donor[1:] {
		assert.Equal(t, 0.0, m.Rescaled, m.Motif)
	}

	require.Len(t, s.Branch, 2)
	assert.Equal(t, 0.0, s.Branch[0].Rescaled)
}

func TestScanIntron_WindowError(t *testing.T) {
	a := newTestAnnotator(t)

	_, err := a.ScanIntron(intron.Intron{Chrom: "chr1", Start: 1, End: 50, Strand: "+"})
	assert.ErrorIs(t, err, window.ErrWindowOutOfBounds)

	_, err = a.ScanIntron(intron.Intron{Chrom: "chr2", Start: 10, End: 60, Strand: "+"})
	assert.ErrorIs(t, err, window.ErrUnknownContig)
}

func TestRun_Classifies(t *testing.T) {
	a := newTestAnnotator(t)

	res, err := a.Run(bed(
		"#chrom\tstart\tend\tname\tscore\tstrand",
		"chr1\t10\t60\tintronA\t.\t+",
		"chr1\t30\t80\tintronB\t.\t+",
		"chr1\t10\t60\tintronA_dup\t.\t+",
	))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	a1 := res.Records[0]
	assert.Equal(t, "chr1|10|60|+", a1.Key())
	assert.Equal(t, "intronA", a1.Name)
	assert.Equal(t, classify.TypeU12, a1.Type)
	assert.Equal(t, intron.MotifGTAGU12, a1.Subtype)
	assert.Equal(t, classify.ConfidenceHigh, a1.Confidence)
	assert.Equal(t, [6]float64{0, 100, 0, 0, 0, 0}, a1.Scores())

	b := res.Records[1]
	assert.Equal(t, "chr1|30|80|+", b.Key())
	assert.Equal(t, classify.TypeU2, b.Type)
	assert.Equal(t, intron.MotifGTAGU2, b.Subtype)
	assert.Equal(t, classify.ConfidenceLow, b.Confidence)

	s := res.Summary
	assert.Equal(t, 2, s.Introns)
	assert.Equal(t, 1, s.Duplicates)
	assert.Equal(t, 2, s.Classified())
	assert.Equal(t, 1, s.CountType(classify.TypeU12))
	assert.Equal(t, []Class{
		{classify.TypeU12, intron.MotifGTAGU12, classify.ConfidenceHigh},
		{classify.TypeU2, intron.MotifGTAGU2, classify.ConfidenceLow},
	}, s.Classes())
}

func TestRun_AbortOnWindowError(t *testing.T) {
	a := newTestAnnotator(t)

	_, err := a.Run(bed(
		"chr1\t10\t60\tok\t.\t+",
		"chr1\t1\t50\tedge\t.\t+",
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, window.ErrWindowOutOfBounds)
	assert.Contains(t, err.Error(), "chr1|1|50|+")
}

func TestRun_SkipWindowError(t *testing.T) {
	a := newTestAnnotator(t)
	core, logs := observer.New(zapcore.WarnLevel)
	a.SetLogger(zap.New(core))
	a.SetWindowErrorPolicy(PolicySkip)

	res, err := a.Run(bed(
		"chr1\t10\t60\tok\t.\t+",
		"chr1\t1\t50\tedge\t.\t+",
		"chr2\t10\t60\telsewhere\t.\t-",
		"chr1\t30\t80\tok2\t.\t+",
	))
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "chr1|10|60|+", res.Records[0].Key())
	assert.Equal(t, "chr1|30|80|+", res.Records[1].Key())
	assert.Equal(t, []string{"chr1|1|50|+", "chr2|10|60|-"}, res.Summary.Skipped)

	warnings := logs.FilterMessage("skipping intron").All()
	require.Len(t, warnings, 2)
	assert.Equal(t, "chr1|1|50|+", warnings[0].ContextMap()["intron"])
}

func TestRun_ScanErrorNotSkipped(t *testing.T) {
	donor, _ := testLibraries(t)
	// Branch motifs wider than the 30-base branch window.
	wide, err := motif.NewLibrary([]*motif.PWM{
		favour(t, intron.MotifATACU12, strings.Repeat("T", 31)),
		favour(t, intron.MotifGTAGU12, "TT"),
	})
	require.NoError(t, err)

	a, err := NewAnnotator(testGenome(t), donor, wide)
	require.NoError(t, err)
	a.SetWindowErrorPolicy(PolicySkip)

	_, err = a.Run(bed("chr1\t10\t60\tok\t.\t+"))
	assert.ErrorIs(t, err, motif.ErrSequenceTooShort)
}

func TestRun_ParseError(t *testing.T) {
	a := newTestAnnotator(t)

	_, err := a.Run(bed(
		"chr1\t10\t60\tok\t.\t+",
		"chr1\tten\t60\tbad\t.\t+",
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read intron")
	assert.Contains(t, err.Error(), "line 2")
}

func TestRun_Empty(t *testing.T) {
	a := newTestAnnotator(t)
	core, logs := observer.New(zapcore.InfoLevel)
	a.SetLogger(zap.New(core))

	res, err := a.Run(bed("# nothing"))
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, logs.FilterMessage("0 introns processed").Len())
}

func TestRun_CustomThresholds(t *testing.T) {
	a := newTestAnnotator(t)
	require.Error(t, a.SetThresholds(classify.Thresholds{HighMargin: 5, MidMargin: 10}))
	require.NoError(t, a.SetThresholds(classify.Thresholds{HighMargin: 101, MidMargin: 10, BranchMin: 70}))

	res, err := a.Run(bed("chr1\t10\t60\tintronA\t.\t+"))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, classify.ConfidenceLow, res.Records[0].Confidence)
}

func TestAnnotateAll(t *testing.T) {
	a := newTestAnnotator(t)
	w := &mockWriter{buf: &bytes.Buffer{}}

	res, err := a.AnnotateAll(bed(
		"chr1\t30\t80\tb\t.\t+",
		"chr1\t10\t60\ta\t.\t+",
	), w)
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, "chr1|30|80|+\tU2\nchr1|10|60|+\tU12\n", w.buf.String())
	assert.True(t, w.flushed)
}

func TestParseWindowErrorPolicy(t *testing.T) {
	p, err := ParseWindowErrorPolicy("Skip")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	p, err = ParseWindowErrorPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)

	_, err = ParseWindowErrorPolicy("clamp")
	assert.Error(t, err)
}

// mockWriter implements RecordWriter for testing.
type mockWriter struct {
	buf     *bytes.Buffer
	flushed bool
}

func (w *mockWriter) WriteHeader() error {
	return nil
}

func (w *mockWriter) Write(r *intron.Record) error {
	w.buf.WriteString(r.Key() + "\t" + r.Type + "\n")
	return nil
}

func (w *mockWriter) Flush() error {
	w.flushed = true
	return nil
}
