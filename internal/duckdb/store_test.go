package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-u12/internal/intron"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(t *testing.T, chrom string, start, end int64, strand string, scores [6]float64, typ, subtype, conf string) *intron.Record {
	t.Helper()
	r := intron.NewRecord(intron.Intron{Chrom: chrom, Start: start, End: end, Name: "i", Strand: strand})
	for i, s := range intron.Slots() {
		require.NoError(t, r.Set(s, scores[i]))
	}
	require.NoError(t, r.SetClass(typ, subtype, conf))
	return r
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Equal(t, "", s.Path())
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "u12.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteAndLookupResults(t *testing.T) {
	s := openInMemory(t)

	records := []*intron.Record{
		record(t, "chr1", 100, 200, "+", [6]float64{10, 80, 40, 45, 0, 75}, "U12", "GT_AG_U12", "High"),
		record(t, "chr1", 300, 900, "-", [6]float64{50, 50, 50, 50, 50, 50}, "U2", "GT_AG_U2", "Low"),
	}
	require.NoError(t, s.WriteResults(records))

	got, err := s.LookupIntron("chr1", 100, 200, "+")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "U12", got.Type)
	assert.Equal(t, "GT_AG_U12", got.Subtype)
	assert.Equal(t, "High", got.Confidence)
	assert.Equal(t, [6]float64{10, 80, 40, 45, 0, 75}, got.Scores())
	assert.Equal(t, "i", got.Name)

	got, err = s.LookupIntron("chr1", 100, 200, "-")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.CountResults()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestWriteResults_DedupAndReplace(t *testing.T) {
	s := openInMemory(t)

	first := record(t, "chr2", 10, 60, "+", [6]float64{}, "U2", "GT_AG_U2", "Low")
	require.NoError(t, s.WriteResults([]*intron.Record{first, first}))

	n, err := s.CountResults()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	again := record(t, "chr2", 10, 60, "+", [6]float64{0, 100, 0, 0, 0, 0}, "U12", "GT_AG_U12", "High")
	require.NoError(t, s.WriteResults([]*intron.Record{again}))

	got, err := s.LookupIntron("chr2", 10, 60, "+")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "U12", got.Type)

	n, err = s.CountResults()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWriteResults_Unclassified(t *testing.T) {
	s := openInMemory(t)
	r := intron.NewRecord(intron.Intron{Chrom: "chr1", Start: 1, End: 2, Strand: "+"})
	assert.Error(t, s.WriteResults([]*intron.Record{r}))
	assert.NoError(t, s.WriteResults(nil))
}

func TestCountByClassAndClear(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.WriteResults([]*intron.Record{
		record(t, "chr1", 100, 200, "+", [6]float64{}, "U2", "GT_AG_U2", "Low"),
		record(t, "chr1", 300, 400, "+", [6]float64{}, "U12", "GT_AG_U12", "High"),
		record(t, "chr1", 500, 600, "+", [6]float64{}, "U2", "GT_AG_U2", "Low"),
	}))

	counts, err := s.CountByClass()
	require.NoError(t, err)
	assert.Equal(t, []ClassCount{
		{Type: "U12", Subtype: "GT_AG_U12", Confidence: "High", Count: 1},
		{Type: "U2", Subtype: "GT_AG_U2", Confidence: "Low", Count: 2},
	}, counts)

	require.NoError(t, s.ClearResults())
	counts, err = s.CountByClass()
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestRecordRun(t *testing.T) {
	s := openInMemory(t)

	last, err := s.LastRun()
	require.NoError(t, err)
	assert.Nil(t, last)

	bed := filepath.Join(t.TempDir(), "introns.bed")
	require.NoError(t, os.WriteFile(bed, []byte("chr1\t10\t60\ta\t.\t+\n"), 0644))
	fp, err := StatFile(bed)
	require.NoError(t, err)

	id, err := s.RecordRun(1, 0, []RunInput{{Role: "bed", FileFingerprint: fp}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	id, err = s.RecordRun(3, 1, []RunInput{{Role: "bed", FileFingerprint: fp}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	last, err = s.LastRun()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, int64(2), last.ID)
	assert.Equal(t, int64(3), last.Introns)
	assert.Equal(t, int64(1), last.Skipped)
	require.Len(t, last.Inputs, 1)
	assert.Equal(t, "bed", last.Inputs[0].Role)
	assert.Equal(t, bed, last.Inputs[0].Path)
	assert.Equal(t, fp.Size, last.Inputs[0].Size)
	assert.True(t, last.Unchanged())

	// Different modtime → changed
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(bed, later, later))
	assert.False(t, last.Unchanged())
}

func TestStatFile_Missing(t *testing.T) {
	_, err := StatFile(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
