package background

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	chrom      uint32
	begin, end int32 // 0-based half-open
	count      uint32
}

func writeSource(t *testing.T, dir, name string, rows []row) string {
	t.Helper()
	w, err := dbfile.NewWriter(dbfile.FamilyBackground)
	require.NoError(t, err)
	for _, r := range rows {
		rec := w.Locus(r.chrom, r.begin+1, r.end)
		rec.PutUint32(dbfile.OffBgCount, r.count)
		require.NoError(t, w.Add(rec))
	}
	path := filepath.Join(dir, name+".bin")
	require.NoError(t, w.WriteFile(path))
	return path
}

func loadBundle(t *testing.T, gnomad []row) *Bundle {
	t.Helper()
	dir := t.TempDir()
	paths := make(map[Source]string)
	for _, src := range Sources {
		var rows []row
		if src == GnomadSV {
			rows = gnomad
		}
		paths[src] = writeSource(t, dir, fmt.Sprint(src), rows)
	}
	b, err := Load(paths, genome.DefaultCatalog, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestQueryThreeRecords(t *testing.T) {
	b := loadBundle(t, []row{
		{0, 100, 200, 1},
		{0, 150, 250, 2},
		{0, 500, 600, 3},
	})
	assert.Equal(t, 3, b.Len(GnomadSV))
	assert.Equal(t, 0, b.Len(DbVar))

	// 1-based 181..220 is the 0-based range [180, 220)
	v := &variant.Candidate{Chrom: "1", Pos: 181, End: 220, SvType: variant.SvDel}
	hits := b.Query(GnomadSV, v)
	counts := make([]uint32, 0, len(hits))
	for _, h := range hits {
		counts = append(counts, h.Count)
	}
	assert.ElementsMatch(t, []uint32{1, 2}, counts)
	assert.Empty(t, b.Query(DbVar, v))
}

func TestInsertionAndBreakendNeverOverlap(t *testing.T) {
	b := loadBundle(t, []row{{0, 0, 1000000, 7}})

	for _, v := range []*variant.Candidate{
		{Chrom: "1", Pos: 500, SvType: variant.SvIns},
		{Chrom: "1", Pos: 500, End: 900, SvType: variant.SvBnd, Chrom2: "1"},
	} {
		assert.Empty(t, b.Query(GnomadSV, v), v.SvType.String())
		assert.Zero(t, b.Carriers(GnomadSV, v, 0))
	}
	assert.NotEmpty(t, b.Query(GnomadSV, &variant.Candidate{Chrom: "1", Pos: 500, End: 900, SvType: variant.SvDup}))
}

func TestCarriers(t *testing.T) {
	b := loadBundle(t, []row{
		{0, 100, 200, 5},  // identical to the variant
		{0, 150, 450, 11}, // 50bp of 300bp
		{1, 100, 200, 99}, // other chromosome
	})
	v := &variant.Candidate{Chrom: "chr1", Pos: 101, End: 200, SvType: variant.SvDel}

	assert.Equal(t, uint64(16), b.Carriers(GnomadSV, v, 0))
	assert.Equal(t, uint64(5), b.Carriers(GnomadSV, v, 0.5))
	assert.Equal(t, uint64(5), b.Carriers(GnomadSV, v, 1))
}

func TestReciprocal(t *testing.T) {
	a := Record{Begin: 100, End: 200}
	tests := []struct {
		name string
		b    Record
		want float64
	}{
		{"identical", Record{Begin: 100, End: 200}, 1},
		{"disjoint", Record{Begin: 300, End: 400}, 0},
		{"touching", Record{Begin: 200, End: 300}, 0},
		{"half", Record{Begin: 150, End: 200}, 0.5},
		{"contains", Record{Begin: 0, End: 400}, 0.25},
		{"empty", Record{Begin: 150, End: 150}, 0},
		{"other chrom", Record{Chrom: 1, Begin: 100, End: 200}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Reciprocal(a, tt.b), 1e-9)
			assert.InDelta(t, Reciprocal(a, tt.b), Reciprocal(tt.b, a), 1e-12)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(map[Source]string{GnomadSV: "x"}, genome.DefaultCatalog, nil)
	assert.Error(t, err)

	dir := t.TempDir()
	paths := make(map[Source]string)
	for _, src := range Sources {
		paths[src] = writeSource(t, dir, fmt.Sprint(src), nil)
	}
	paths[ExAC] = writeSource(t, dir, "bad", []row{{77, 1, 2, 1}})
	_, err = Load(paths, genome.DefaultCatalog, nil)
	assert.ErrorIs(t, err, apperrors.ErrUnknownChromosome)
}

func TestParseSource(t *testing.T) {
	for _, src := range Sources {
		got, err := ParseSource(src.String())
		require.NoError(t, err)
		assert.Equal(t, src, got)
	}
	got, err := ParseSource("DGV-GS")
	require.NoError(t, err)
	assert.Equal(t, DGVGoldStandard, got)
	_, err = ParseSource("decipher")
	assert.Error(t, err)
}

func TestBundleKeepsSourcesMappedUntilClose(t *testing.T) {
	b := loadBundle(t, []row{{0, 100, 200, 1}})
	require.Len(t, b.files, len(Sources))
	for _, f := range b.files {
		assert.True(t, f.Mapped(), f.Path())
	}
	require.NoError(t, b.Close())
	for _, f := range b.files {
		assert.False(t, f.Mapped(), f.Path())
	}
	assert.NoError(t, b.Close())
}
