// Package annodbtest writes small database fixtures for tests.
package annodbtest

import (
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/clinvarsv"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
)

// Fixture contents, all 0-based half-open, chromosome index 0 is chr1:
//
//	gnomad_sv  [100,200) n=1  [150,250) n=2  [500,600) n=3
//	dbvar      [1000,2000) n=50
//	pathogenic [1000,2000) DEL "patho-1"
//	tads       hesc [0,10000)  imr90 [0,5000)
//	clinvar    chr1 [1000,2000) DEL pathogenic VCV 1, chr2 [1000,2000) DUP benign VCV 2
//	genes      chr1 [900,3000) BRCA1 (entrez 672, ENSG12048, HGNC:1100)
const (
	BRCA1Hgnc = "HGNC:1100"
	TP53Hgnc  = "HGNC:11998"
)

type locus struct {
	chrom      uint32
	begin, end int32
}

func writer(t testing.TB, family dbfile.Family) *dbfile.Writer {
	t.Helper()
	w, err := dbfile.NewWriter(family)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func save(t testing.TB, w *dbfile.Writer, path string) string {
	t.Helper()
	if err := w.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func add(t testing.TB, w *dbfile.Writer, rec dbfile.Record) {
	t.Helper()
	if err := w.Add(rec); err != nil {
		t.Fatal(err)
	}
}

// background writes one source. begins are converted to the on-disk 1-based
// convention.
func background(t testing.TB, path string, rows map[locus]uint32, order []locus) string {
	t.Helper()
	w := writer(t, dbfile.FamilyBackground)
	for _, l := range order {
		rec := w.Locus(l.chrom, l.begin+1, l.end)
		rec.PutUint32(dbfile.OffBgCount, rows[l])
		add(t, w, rec)
	}
	return save(t, w, path)
}

// WriteRelease writes a full set of fixture databases plus a manifest into
// dir and returns their paths.
func WriteRelease(t testing.TB, dir string) config.ReleasePaths {
	t.Helper()
	p := func(name string) string { return filepath.Join(dir, name) }

	gnomad := []locus{{0, 100, 200}, {0, 150, 250}, {0, 500, 600}}
	dbvar := []locus{{0, 1000, 2000}}
	var paths config.ReleasePaths
	paths.Background = config.BackgroundPaths{
		GnomadSv: background(t, p("gnomad_sv.bin"), map[locus]uint32{gnomad[0]: 1, gnomad[1]: 2, gnomad[2]: 3}, gnomad),
		Dbvar:    background(t, p("dbvar.bin"), map[locus]uint32{dbvar[0]: 50}, dbvar),
		Dgv:      background(t, p("dgv.bin"), nil, nil),
		DgvGs:    background(t, p("dgv_gs.bin"), nil, nil),
		Exac:     background(t, p("exac.bin"), nil, nil),
		G1k:      background(t, p("g1k.bin"), nil, nil),
	}

	w := writer(t, dbfile.FamilyPathogenic)
	off, n, err := w.AddString("patho-1")
	if err != nil {
		t.Fatal(err)
	}
	rec := w.Locus(0, 1001, 2000)
	rec.PutUint8(dbfile.OffPathoSvType, uint8(variant.SvDel))
	rec.PutUint32(dbfile.OffPathoIDOff, off)
	rec.PutUint32(dbfile.OffPathoIDLen, n)
	add(t, w, rec)
	paths.Pathogenic = save(t, w, p("pathogenic.bin"))

	w = writer(t, dbfile.FamilyTAD)
	add(t, w, w.Locus(0, 0, 10000))
	paths.Tads.Hesc = save(t, w, p("tads_hesc.bin"))
	w = writer(t, dbfile.FamilyTAD)
	add(t, w, w.Locus(0, 0, 5000))
	paths.Tads.Imr90 = save(t, w, p("tads_imr90.bin"))

	w = writer(t, dbfile.FamilyClinvarSV)
	for _, c := range []struct {
		chrom uint32
		vt    clinvarsv.VariationType
		sig   variant.Significance
		vcv   uint32
	}{
		{0, clinvarsv.Deletion, variant.Pathogenic, 1},
		{1, clinvarsv.Duplication, variant.Benign, 2},
	} {
		rec := w.Locus(c.chrom, 1001, 2000)
		rec.PutUint8(dbfile.OffClinvarVarType, uint8(c.vt))
		rec.PutUint8(dbfile.OffClinvarPatho, uint8(c.sig))
		rec.PutUint32(dbfile.OffClinvarVCV, c.vcv)
		add(t, w, rec)
	}
	paths.ClinvarSv = save(t, w, p("clinvar_sv.bin"))

	for _, g := range []struct {
		path *string
		name string
		id   uint32
	}{
		{&paths.Genes.Refseq, "genes_refseq.bin", 672},
		{&paths.Genes.Ensembl, "genes_ensembl.bin", 12048},
	} {
		w = writer(t, dbfile.FamilyGeneRegion)
		rec := w.Locus(0, 900, 3000)
		rec.PutUint32(dbfile.OffGeneID, g.id)
		add(t, w, rec)
		*g.path = save(t, w, p(g.name))
	}

	w = writer(t, dbfile.FamilyXlink)
	for _, x := range []struct {
		entrez, hgnc, ensembl uint32
		symbol                string
	}{
		{672, 1100, 12048, "BRCA1"},
		{7157, 11998, 141510, "TP53"},
	} {
		off, n, err := w.AddString(x.symbol)
		if err != nil {
			t.Fatal(err)
		}
		rec := w.Locus(0, 0, 0)
		rec.PutUint32(dbfile.OffXlinkEntrez, x.entrez)
		rec.PutUint32(dbfile.OffXlinkHgnc, x.hgnc)
		rec.PutUint32(dbfile.OffXlinkEnsembl, x.ensembl)
		rec.PutUint32(dbfile.OffXlinkSymOff, off)
		rec.PutUint32(dbfile.OffXlinkSymLen, n)
		add(t, w, rec)
	}
	paths.Genes.Xlink = save(t, w, p("genes_xlink.bin"))

	paths.Manifest = p("MANIFEST")
	files := []string{
		paths.Background.GnomadSv, paths.Background.Dbvar, paths.Background.Dgv,
		paths.Background.DgvGs, paths.Background.Exac, paths.Background.G1k,
		paths.Pathogenic, paths.Tads.Hesc, paths.Tads.Imr90, paths.ClinvarSv,
		paths.Genes.Refseq, paths.Genes.Ensembl, paths.Genes.Xlink,
	}
	if err := dbfile.WriteManifest(paths.Manifest, files); err != nil {
		t.Fatal(err)
	}
	return paths
}
