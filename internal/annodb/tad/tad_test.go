package tad

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTads(t *testing.T, dir, name string, rows [][3]int32) string {
	t.Helper()
	w, err := dbfile.NewWriter(dbfile.FamilyTAD)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, w.Add(w.Locus(uint32(r[0]), r[1], r[2])))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, w.WriteFile(path))
	return path
}

func loadBundle(t *testing.T) *Bundle {
	t.Helper()
	dir := t.TempDir()
	hesc := writeTads(t, dir, "hesc.bin", [][3]int32{
		{0, 0, 1000},
		{0, 1000, 2000},
		{4, 5000, 6000},
	})
	imr90 := filepath.Join(dir, "imr90.bed")
	require.NoError(t, os.WriteFile(imr90, []byte("chr1\t0\t5000\nchr1\tx\t1\n"), 0644))

	b, err := Load(hesc, imr90, genome.DefaultCatalog, Options{BreakendSlack: 50, InsertionSlack: 10}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSpanQuery(t *testing.T) {
	b := loadBundle(t)
	hits := b.Query(HESC, &variant.Candidate{Chrom: "1", Pos: 900, End: 1100, SvType: variant.SvDel})
	assert.ElementsMatch(t, []Record{{0, 0, 1000}, {0, 1000, 2000}}, hits)

	hits = b.Query(IMR90, &variant.Candidate{Chrom: "1", Pos: 900, End: 1100, SvType: variant.SvDel})
	assert.Equal(t, []Record{{0, 0, 5000}}, hits)
	assert.Equal(t, 1, b.Len(IMR90))
}

func TestInsertionWindow(t *testing.T) {
	b := loadBundle(t)
	// insertion point 0-based 995, window [985, 1006)
	hits := b.Query(HESC, &variant.Candidate{Chrom: "1", Pos: 996, SvType: variant.SvIns})
	assert.ElementsMatch(t, []Record{{0, 0, 1000}, {0, 1000, 2000}}, hits)

	hits = b.Query(HESC, &variant.Candidate{Chrom: "1", Pos: 500, SvType: variant.SvIns})
	assert.Equal(t, []Record{{0, 0, 1000}}, hits)
}

func TestBreakendWindowsUnionWithoutDedup(t *testing.T) {
	b := loadBundle(t)

	same := &variant.Candidate{Chrom: "1", Pos: 100, End: 300, SvType: variant.SvBnd}
	assert.Equal(t, []Record{{0, 0, 1000}, {0, 0, 1000}}, b.Query(HESC, same))

	cross := &variant.Candidate{Chrom: "1", Pos: 100, End: 5500, SvType: variant.SvBnd, Chrom2: "chr5"}
	assert.Equal(t, []Record{{0, 0, 1000}, {4, 5000, 6000}}, b.Query(HESC, cross))

	// the span between breakpoints is not queried
	far := &variant.Candidate{Chrom: "1", Pos: 200, End: 200, SvType: variant.SvBnd, Chrom2: "22"}
	assert.Equal(t, []Record{{0, 0, 1000}}, b.Query(HESC, far))
}

func TestBreakendSlackReachesNeighbour(t *testing.T) {
	b := loadBundle(t)
	// breakpoint 0-based 1030, window [980, 1081)
	v := &variant.Candidate{Chrom: "1", Pos: 1031, End: 1031, SvType: variant.SvBnd}
	hits := b.Query(HESC, v)
	assert.Len(t, hits, 4)
}

func TestUnknownSet(t *testing.T) {
	b := loadBundle(t)
	assert.Nil(t, b.Query(Set(9), &variant.Candidate{Chrom: "1", Pos: 1, End: 10, SvType: variant.SvDel}))
	assert.Zero(t, b.Len(Set(9)))
}

func TestParseSet(t *testing.T) {
	s, err := ParseSet("IMR90")
	require.NoError(t, err)
	assert.Equal(t, IMR90, s)
	_, err = ParseSet("gm12878")
	assert.Error(t, err)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "a.bin"), "b.bed", genome.DefaultCatalog, Options{}, nil)
	assert.Error(t, err)
}

func TestPointWindowsWithoutSlack(t *testing.T) {
	dir := t.TempDir()
	path := writeTads(t, dir, "hesc.bin", [][3]int32{{0, 0, 1000}, {0, 1001, 2000}})
	b, err := Load(path, path, genome.DefaultCatalog, Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	tests := []struct {
		name string
		v    *variant.Candidate
		want []Record
	}{
		{"insertion inside", &variant.Candidate{Chrom: "1", Pos: 500, SvType: variant.SvIns}, []Record{{0, 0, 1000}}},
		{"insertion on last base", &variant.Candidate{Chrom: "1", Pos: 1000, SvType: variant.SvIns}, []Record{{0, 0, 1000}}},
		{"insertion in gap", &variant.Candidate{Chrom: "1", Pos: 1001, SvType: variant.SvIns}, nil},
		{"breakend inside", &variant.Candidate{Chrom: "1", Pos: 500, End: 1500, SvType: variant.SvBnd}, []Record{{0, 0, 1000}, {0, 1001, 2000}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Query(HESC, tt.v))
		})
	}
}

func TestPointWindowReachesRightNeighbour(t *testing.T) {
	dir := t.TempDir()
	path := writeTads(t, dir, "hesc.bin", [][3]int32{{0, 0, 1000}, {0, 1001, 2000}})
	b, err := Load(path, path, genome.DefaultCatalog, Options{InsertionSlack: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	// insertion point 0-based 1000, window [999, 1002)
	hits := b.Query(HESC, &variant.Candidate{Chrom: "1", Pos: 1001, SvType: variant.SvIns})
	assert.ElementsMatch(t, []Record{{0, 0, 1000}, {0, 1001, 2000}}, hits)
}

func TestBundleMapsOnlyBinarySets(t *testing.T) {
	b := loadBundle(t)
	require.Len(t, b.files, 1)
	assert.True(t, b.files[0].Mapped())
	require.NoError(t, b.Close())
	assert.False(t, b.files[0].Mapped())
}
