package annodb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/annodbtest"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/background"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/genes"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/tad"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
)

func TestLoad(t *testing.T) {
	paths := annodbtest.WriteRelease(t, t.TempDir())
	b, err := Load(context.Background(), paths, Options{
		Overlap:         tad.Options{BreakendSlack: 50, InsertionSlack: 50},
		VerifyChecksums: true,
		Metrics:         metrics.NewWithRegistry(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	defer b.Close()

	del := &variant.Candidate{Chrom: "chr1", Pos: 181, End: 220, SvType: variant.SvDel}
	assert.Len(t, b.Background.Query(background.GnomadSV, del), 2)

	big := &variant.Candidate{Chrom: "1", Pos: 1001, End: 2000, SvType: variant.SvDel}
	assert.Equal(t, uint64(50), b.Background.Carriers(background.DbVar, big, 0.8))
	require.Len(t, b.Pathogenic.Query(big), 1)
	assert.Equal(t, "patho-1", b.Pathogenic.Query(big)[0].ID)
	assert.Len(t, b.ClinvarSV.Query(big), 1)
	assert.Len(t, b.Tads.Query(tad.IMR90, big), 1)
	assert.Equal(t, []string{annodbtest.BRCA1Hgnc}, b.Genes.HgncIDs(genes.Ensembl, big))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	paths := annodbtest.WriteRelease(t, dir)
	cfg := &config.Config{
		Databases: config.DatabasesConfig{
			Release:      "grch37",
			Releases:     map[string]config.ReleasePaths{"grch37": paths},
			ExtraContigs: []string{"hs37d5"},
		},
		Overlap: config.OverlapConfig{BreakendSlack: 10, InsertionSlack: 10},
	}
	b, err := LoadConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, 26, b.Catalog.Len())

	cfg.Databases.Release = "hg17"
	_, err = LoadConfig(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, apperrors.ErrConfig)
}

func TestLoadFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	paths := annodbtest.WriteRelease(t, dir)
	require.NoError(t, os.WriteFile(paths.ClinvarSv, []byte("garbage"), 0644))

	_, err := Load(context.Background(), paths, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCorruptDatabase)
	assert.True(t, apperrors.Fatal(err))
}

func TestLoadChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	paths := annodbtest.WriteRelease(t, dir)
	f, err := os.OpenFile(paths.Pathogenic, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Load(context.Background(), paths, Options{VerifyChecksums: true})
	assert.ErrorIs(t, err, apperrors.ErrCorruptDatabase)

	// without verification the trailing byte is harmless
	b, err := Load(context.Background(), paths, Options{})
	require.NoError(t, err)
	assert.NoError(t, b.Close())
}

func TestLoadMissingFile(t *testing.T) {
	paths := annodbtest.WriteRelease(t, t.TempDir())
	paths.Genes.Xlink = filepath.Join(t.TempDir(), "missing.bin")
	_, err := Load(context.Background(), paths, Options{})
	assert.Error(t, err)
}

func TestLoadCanceled(t *testing.T) {
	paths := annodbtest.WriteRelease(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, paths, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegisterHealth(t *testing.T) {
	paths := annodbtest.WriteRelease(t, t.TempDir())
	b, err := Load(context.Background(), paths, Options{})
	require.NoError(t, err)
	defer b.Close()

	c := health.NewChecker()
	b.RegisterHealth(c)
	report := c.Run(context.Background())
	assert.Equal(t, health.StatusUp, report.Status)
	require.Len(t, report.Components, 5)
	assert.Equal(t, "1 records", report.Components["pathogenic"].Message)
}

func TestCheck(t *testing.T) {
	paths := annodbtest.WriteRelease(t, t.TempDir())
	problems, err := Check(paths)
	require.NoError(t, err)
	assert.Empty(t, problems)

	require.NoError(t, os.WriteFile(paths.Tads.Hesc, []byte("garbage"), 0644))
	problems, err = Check(paths)
	require.NoError(t, err)
	names := make([]string, len(problems))
	for i, p := range problems {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"manifest", "tads.hesc"}, names)

	require.NoError(t, WriteManifest(paths))
	problems, err = Check(paths)
	require.NoError(t, err)
	require.Len(t, problems, 1, "rewritten manifest accepts the file, the header check still fails")
	assert.Equal(t, "tads.hesc", problems[0].Name)
}

func TestCheckMissingManifest(t *testing.T) {
	paths := annodbtest.WriteRelease(t, t.TempDir())
	paths.Manifest = filepath.Join(t.TempDir(), "MANIFEST")
	_, err := Check(paths)
	assert.ErrorIs(t, err, apperrors.ErrConfig)

	paths.Manifest = ""
	assert.ErrorIs(t, WriteManifest(paths), apperrors.ErrConfig)
}
