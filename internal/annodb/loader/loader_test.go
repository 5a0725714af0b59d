package loader

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/overlap"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/textbed"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func countDecoder(_ *dbfile.File, rec dbfile.Record, _, _ int) (uint32, error) {
	return rec.Uint32(dbfile.OffBgCount), nil
}

func writeBackground(t *testing.T, chroms ...uint32) string {
	t.Helper()
	w, err := dbfile.NewWriter(dbfile.FamilyBackground)
	require.NoError(t, err)
	for i, c := range chroms {
		rec := w.Locus(c, 101, 200)
		rec.PutUint32(dbfile.OffBgCount, uint32(i+1))
		require.NoError(t, w.Add(rec))
	}
	path := filepath.Join(t.TempDir(), "bg.bin")
	require.NoError(t, w.WriteFile(path))
	return path
}

func TestFromFile(t *testing.T) {
	f, err := dbfile.Open(writeBackground(t, 0, 0, 1), dbfile.FamilyBackground)
	require.NoError(t, err)
	defer f.Close()

	idx := overlap.NewIndex[uint32](genome.DefaultCatalog)
	require.NoError(t, FromFile(f, idx, countDecoder))
	assert.ElementsMatch(t, []uint32{1, 2}, idx.Find(0, 100, 101))
	assert.Nil(t, idx.Find(0, 200, 300))
	assert.Equal(t, []uint32{3}, idx.Find(1, 150, 160))
}

func TestOpenKeepsMapping(t *testing.T) {
	idx := overlap.NewIndex[uint32](genome.DefaultCatalog)
	f, err := Open(writeBackground(t, 0), dbfile.FamilyBackground, idx, countDecoder)
	require.NoError(t, err)
	assert.True(t, f.Mapped())
	assert.Equal(t, []uint32{1}, idx.Find(0, 150, 160))

	m := Mappings{f, nil}
	require.NoError(t, m.Close())
	assert.False(t, f.Mapped())
	assert.NoError(t, m.Close())
}

func TestOpenFailure(t *testing.T) {
	idx := overlap.NewIndex[uint32](genome.DefaultCatalog)
	_, err := Open(writeBackground(t, 0, 200), dbfile.FamilyBackground, idx, countDecoder)
	assert.ErrorIs(t, err, apperrors.ErrUnknownChromosome)

	_, err = Open(writeBackground(t, 0), dbfile.FamilyTAD, idx, countDecoder)
	assert.ErrorIs(t, err, apperrors.ErrCorruptDatabase)
}

func TestFromFileUnknownChromosome(t *testing.T) {
	f, err := dbfile.Open(writeBackground(t, 0, 200), dbfile.FamilyBackground)
	require.NoError(t, err)
	defer f.Close()

	idx := overlap.NewIndex[uint32](genome.DefaultCatalog)
	err = FromFile(f, idx, countDecoder)
	assert.ErrorIs(t, err, apperrors.ErrUnknownChromosome)
	assert.True(t, apperrors.Fatal(err))
}

func TestFromText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.bed")
	body := "# header\n" +
		"chr1\t100\t200\tx\n" +
		"chr1\tbad\t200\tx\n" +
		"chrUn_gl000220\t1\t2\tx\n" +
		"2\t10\t20\ty\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	idx := overlap.NewIndex[string](genome.DefaultCatalog)
	skipped, err := FromText(path, idx, func(row textbed.Row) (textbed.Interval, string, error) {
		iv, err := textbed.ParseInterval(row)
		return iv, row.Field(3), err
	}, discard)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, []string{"x"}, idx.FindNamed("1", 150, 160))
	assert.Equal(t, []string{"y"}, idx.FindNamed("chr2", 0, 100))
}

func TestFromTextMissingFile(t *testing.T) {
	idx := overlap.NewIndex[string](genome.DefaultCatalog)
	_, err := FromText(filepath.Join(t.TempDir(), "missing.bed"), idx, nil, discard)
	assert.Error(t, err)
}

func TestIsText(t *testing.T) {
	assert.True(t, IsText("a/patho.bed"))
	assert.True(t, IsText("a/patho.bed.gz"))
	assert.True(t, IsText("tads.tsv.bgz"))
	assert.False(t, IsText("patho.bin"))
}

func TestSpanRange(t *testing.T) {
	start, end, ok := SpanRange(&variant.Candidate{Chrom: "1", Pos: 100, End: 200, SvType: variant.SvDel})
	require.True(t, ok)
	assert.Equal(t, 99, start)
	assert.Equal(t, 200, end)

	_, _, ok = SpanRange(&variant.Candidate{Chrom: "1", Pos: 100, SvType: variant.SvIns})
	assert.False(t, ok)
	_, _, ok = SpanRange(&variant.Candidate{Chrom: "1", Pos: 100, End: 5000, SvType: variant.SvBnd})
	assert.False(t, ok)

	start, end, ok = SpanRange(&variant.Candidate{Chrom: "1", Pos: 100, Ref: "A", Alt: "G"})
	require.True(t, ok)
	assert.Equal(t, 99, start)
	assert.Equal(t, 100, end)
}
