package interpreter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/annodbtest"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/query"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
)

type fakeClinVar struct {
	sigs  []variant.Significance
	err   error
	calls int
}

func (f *fakeClinVar) ClinVar(context.Context, *variant.Candidate) ([]variant.Significance, error) {
	f.calls++
	return f.sigs, f.err
}

func mustSpec(t *testing.T, doc string) *query.Spec {
	t.Helper()
	spec, err := query.Parse([]byte(doc))
	require.NoError(t, err)
	return spec
}

func mustInterp(t *testing.T, doc string, opts Options) *Interpreter {
	t.Helper()
	in, err := New(mustSpec(t, doc), opts)
	require.NoError(t, err)
	return in
}

func snv(chrom string, pos int) *variant.Candidate {
	return &variant.Candidate{Chrom: chrom, Pos: pos, Ref: "A", Alt: "G"}
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestEmptySpecPassesEverything(t *testing.T) {
	in := mustInterp(t, "{}", Options{})
	ok, err := in.Passes(context.Background(), snv("1", 100))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewRejectsMissingLookups(t *testing.T) {
	_, err := New(mustSpec(t, "frequency: {gnomad_sv: {enabled: true, maxCarriers: 1}}"), Options{})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidQuery))

	_, err = New(mustSpec(t, "clinvar: {requireInClinvar: true}"), Options{})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidQuery))

	_, err = New(nil, Options{})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidQuery))
}

func TestConsequenceFilter(t *testing.T) {
	in := mustInterp(t, "consequences: [missense]", Options{})
	ctx := context.Background()

	v := snv("1", 100)
	v.Consequences = []variant.Consequence{variant.MissenseVariant, variant.StopGained}
	ok, _ := in.Passes(ctx, v)
	assert.True(t, ok)

	v.Consequences = []variant.Consequence{variant.SynonymousVariant}
	ok, _ = in.Passes(ctx, v)
	assert.False(t, ok)

	v.Consequences = nil
	ok, _ = in.Passes(ctx, v)
	assert.False(t, ok)

	mt := snv("MT", 100)
	mt.Consequences = []variant.Consequence{variant.SynonymousVariant}
	ok, _ = in.Passes(ctx, mt)
	assert.True(t, ok, "mitochondrial variants bypass the consequence filter")
}

func TestGeneFilter(t *testing.T) {
	in := mustInterp(t, "genes: [HGNC:1100]", Options{})
	ctx := context.Background()

	v := snv("17", 100)
	v.Genes = []string{"hgnc:1100", "HGNC:11998"}
	ok, _ := in.Passes(ctx, v)
	assert.True(t, ok)

	v.Genes = []string{"HGNC:11998"}
	ok, _ = in.Passes(ctx, v)
	assert.False(t, ok)

	v.Genes = nil
	ok, _ = in.Passes(ctx, v)
	assert.False(t, ok)
}

func TestRegionFilter(t *testing.T) {
	in := mustInterp(t, "regions: [chr1:100-200]", Options{})
	ctx := context.Background()

	cases := []struct {
		name string
		v    *variant.Candidate
		want bool
	}{
		{"inside", snv("1", 150), true},
		{"first base", snv("chr1", 100), true},
		{"last base", snv("1", 200), true},
		{"after", snv("1", 201), false},
		{"other chromosome", snv("2", 150), false},
		{"deletion spanning start", &variant.Candidate{Chrom: "1", Pos: 50, End: 120, SvType: variant.SvDel}, true},
		{"deletion after", &variant.Candidate{Chrom: "1", Pos: 201, End: 300, SvType: variant.SvDel}, false},
		{"breakend in region, mate elsewhere", &variant.Candidate{Chrom: "1", Pos: 150, End: 9000, Chrom2: "5", SvType: variant.SvBnd}, true},
		{"only mate in region", &variant.Candidate{Chrom: "5", Pos: 9000, End: 150, Chrom2: "1", SvType: variant.SvBnd}, false},
		{"breakend ignores span to mate", &variant.Candidate{Chrom: "1", Pos: 50, End: 300, SvType: variant.SvBnd}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := in.Passes(ctx, tc.v)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestQualityDropAndNoCall(t *testing.T) {
	ctx := context.Background()
	v := snv("1", 100)
	v.Calls = map[string]variant.Call{
		"child": {Genotype: "0/1", Depth: intp(4), Quality: floatp(50)},
	}

	drop := mustInterp(t, "quality: {child: {minDpHet: 10}}", Options{})
	ok, _ := drop.Passes(ctx, v)
	assert.False(t, ok)

	ignore := mustInterp(t, "quality: {child: {minDpHet: 10, onFail: ignore}}\ngenotype: {child: het}", Options{})
	ok, _ = ignore.Passes(ctx, v)
	assert.True(t, ok)

	nocall := mustInterp(t, "quality: {child: {minDpHet: 10, onFail: nocall}}\ngenotype: {child: het}", Options{})
	ok, _ = nocall.Passes(ctx, v)
	assert.False(t, ok, "a no-call sample cannot satisfy a genotype constraint")

	nocallAny := mustInterp(t, "quality: {child: {minDpHet: 10, onFail: nocall}}", Options{})
	ok, _ = nocallAny.Passes(ctx, v)
	assert.True(t, ok)
}

func TestQualityThresholds(t *testing.T) {
	het := variant.Call{Genotype: "0/1", Depth: intp(20), Quality: floatp(40), AltDepth: intp(10)}
	hom := variant.Call{Genotype: "1/1", Depth: intp(6), Quality: floatp(40), AltDepth: intp(6)}

	assert.True(t, meetsThresholds(het, query.QualityThresholds{MinDpHet: 20, MinDpHom: 30, MinGq: 40, MinAb: 0.3, MinAd: 10}))
	assert.False(t, meetsThresholds(het, query.QualityThresholds{MinDpHet: 21}))
	assert.True(t, meetsThresholds(hom, query.QualityThresholds{MinDpHet: 20, MinDpHom: 6}))
	assert.False(t, meetsThresholds(hom, query.QualityThresholds{MinDpHom: 7}))
	assert.False(t, meetsThresholds(het, query.QualityThresholds{MinGq: 41}))
	assert.False(t, meetsThresholds(het, query.QualityThresholds{MaxAd: intp(9)}))
	assert.False(t, meetsThresholds(het, query.QualityThresholds{MinAd: 11}))

	skewed := variant.Call{Genotype: "0/1", Depth: intp(20), AltDepth: intp(2)}
	assert.False(t, meetsThresholds(skewed, query.QualityThresholds{MinAb: 0.2}))
	assert.True(t, meetsThresholds(skewed, query.QualityThresholds{}))

	bare := variant.Call{Genotype: "0/1"}
	assert.True(t, meetsThresholds(bare, query.QualityThresholds{MinDpHet: 10, MinGq: 20, MinAb: 0.2, MinAd: 3}))
}

func TestGenotypeFilter(t *testing.T) {
	in := mustInterp(t, "genotype: {child: het, mother: non_variant}", Options{})
	ctx := context.Background()

	v := snv("1", 100)
	v.Calls = map[string]variant.Call{
		"child":  {Genotype: "0/1"},
		"mother": {Genotype: "0/0"},
	}
	ok, _ := in.Passes(ctx, v)
	assert.True(t, ok)

	v.Calls["mother"] = variant.Call{Genotype: "0/1"}
	ok, _ = in.Passes(ctx, v)
	assert.False(t, ok)

	delete(v.Calls, "mother")
	ok, _ = in.Passes(ctx, v)
	assert.False(t, ok, "an absent sample cannot satisfy a genotype constraint")

	v.Calls["mother"] = variant.Call{Genotype: "./."}
	ok, _ = in.Passes(ctx, v)
	assert.False(t, ok)
}

func TestClinVarFilter(t *testing.T) {
	ctx := context.Background()
	const doc = "clinvar: {requireInClinvar: true, includeLikelyPathogenic: true}"

	notFound := &fakeClinVar{}
	ok, err := mustInterp(t, doc, Options{Annotator: notFound}).Passes(ctx, snv("1", 100))
	require.NoError(t, err)
	assert.True(t, ok, "variants without assertions pass")

	patho := &fakeClinVar{sigs: []variant.Significance{variant.Pathogenic}}
	ok, err = mustInterp(t, doc, Options{Annotator: patho}).Passes(ctx, snv("1", 100))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = mustInterp(t, "clinvar: {requireInClinvar: true, includePathogenic: true}", Options{Annotator: patho}).Passes(ctx, snv("1", 100))
	require.NoError(t, err)
	assert.True(t, ok)

	mixed := &fakeClinVar{sigs: []variant.Significance{variant.Benign, variant.LikelyPathogenic}}
	ok, err = mustInterp(t, doc, Options{Annotator: mixed}).Passes(ctx, snv("1", 100))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClinVarErrorWrapsAnnotator(t *testing.T) {
	lookup := &fakeClinVar{err: errors.New("connection refused")}
	in := mustInterp(t, "clinvar: {requireInClinvar: true, includePathogenic: true}", Options{Annotator: lookup})

	ok, err := in.Passes(context.Background(), snv("1", 100))
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAnnotator))
	assert.Contains(t, err.Error(), "1:100:A:G")
}

func TestEarlyFilterSkipsAnnotator(t *testing.T) {
	lookup := &fakeClinVar{sigs: []variant.Significance{variant.Pathogenic}}
	in := mustInterp(t, "genes: [HGNC:1100]\nclinvar: {requireInClinvar: true, includePathogenic: true}", Options{Annotator: lookup})

	ok, err := in.Passes(context.Background(), snv("1", 100))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, lookup.calls)
}

func TestFrequencyAndClinVarAgainstBundles(t *testing.T) {
	ctx := context.Background()
	paths := annodbtest.WriteRelease(t, t.TempDir())
	bundles, err := annodb.Load(ctx, paths, annodb.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bundles.Close() })

	del := &variant.Candidate{Chrom: "1", Pos: 1001, End: 2000, SvType: variant.SvDel}

	strict := mustInterp(t, "frequency: {dbvar: {enabled: true, minOverlap: 0.5, maxCarriers: 10}}",
		Options{Background: bundles.Background})
	ok, err := strict.Passes(ctx, del)
	require.NoError(t, err)
	assert.False(t, ok, "50 dbVar carriers exceed the limit")

	loose := mustInterp(t, "frequency: {dbvar: {enabled: true, minOverlap: 0.5, maxCarriers: 50}}",
		Options{Background: bundles.Background})
	ok, err = loose.Passes(ctx, del)
	require.NoError(t, err)
	assert.True(t, ok)

	clin := mustInterp(t, "clinvar: {requireInClinvar: true, includePathogenic: true}",
		Options{Annotator: bundles.ClinvarSV})
	ok, err = clin.Passes(ctx, del)
	require.NoError(t, err)
	assert.True(t, ok)

	dup := &variant.Candidate{Chrom: "2", Pos: 1001, End: 2000, SvType: variant.SvDup}
	ok, err = clin.Passes(ctx, dup)
	require.NoError(t, err)
	assert.False(t, ok, "the chr2 record is benign")
}
