package batch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/annodbtest"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/genes"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/interpreter"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/query"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
)

type fixedConsequences struct {
	cons []variant.Consequence
	err  error
}

func (f fixedConsequences) Consequences(context.Context, *variant.Candidate) ([]variant.Consequence, error) {
	return f.cons, f.err
}

func newRunner(t *testing.T, doc string, opts Options) *Runner {
	t.Helper()
	spec, err := query.Parse([]byte(doc))
	require.NoError(t, err)
	in, err := interpreter.New(spec, interpreter.Options{})
	require.NoError(t, err)
	return New(in, opts)
}

func readIDs(t *testing.T, out *bytes.Buffer) []string {
	t.Helper()
	var ids []string
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var v variant.Candidate
		require.NoError(t, json.Unmarshal(sc.Bytes(), &v))
		ids = append(ids, v.ID)
	}
	return ids
}

func TestRunPreservesOrderAcrossChunks(t *testing.T) {
	var in strings.Builder
	var want []string
	for i := 1; i <= 50; i++ {
		chrom := "1"
		if i%3 == 0 {
			chrom = "2"
		}
		id := "v" + string(rune('A'+i%26)) + strings.Repeat("x", i%5)
		in.WriteString(`{"id":"` + id + `","chrom":"` + chrom + `","pos":150,"ref":"A","alt":"T"}` + "\n")
		if chrom == "1" {
			want = append(want, id)
		}
	}

	r := newRunner(t, "regions: [chr1]", Options{Concurrency: 4, ChunkSize: 7})
	var out bytes.Buffer
	stats, err := r.Run(context.Background(), strings.NewReader(in.String()), &out)
	require.NoError(t, err)

	assert.Equal(t, 50, stats.Read)
	assert.Equal(t, len(want), stats.Passed)
	assert.Equal(t, 50-len(want), stats.Failed)
	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, want, readIDs(t, &out))
}

func TestRunSkipsMalformedLines(t *testing.T) {
	in := strings.Join([]string{
		`{"id":"ok","chrom":"1","pos":10,"ref":"A","alt":"C"}`,
		`not json`,
		``,
		`{"id":"nopos","chrom":"1"}`,
		`{"id":"badtype","chrom":"1","pos":10,"svType":"FOO"}`,
		`{"id":"del","chrom":"1","pos":10,"end":500,"svType":"DEL"}`,
	}, "\n")

	r := newRunner(t, "{}", Options{})
	var out bytes.Buffer
	stats, err := r.Run(context.Background(), strings.NewReader(in), &out)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Read)
	assert.Equal(t, 3, stats.Malformed)
	assert.Equal(t, 2, stats.Passed)
	assert.Equal(t, []string{"ok", "del"}, readIDs(t, &out))
}

func TestRunEnrichesConsequences(t *testing.T) {
	in := `{"id":"a","chrom":"1","pos":10,"ref":"A","alt":"C"}
{"id":"b","chrom":"1","pos":20,"ref":"A","alt":"C","consequences":["synonymous_variant"]}
`
	r := newRunner(t, "consequences: [missense]", Options{
		Consequences: fixedConsequences{cons: []variant.Consequence{variant.MissenseVariant}},
	})
	var out bytes.Buffer
	stats, err := r.Run(context.Background(), strings.NewReader(in), &out)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Passed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, []string{"a"}, readIDs(t, &out))
}

func TestRunCountsAnnotatorFailures(t *testing.T) {
	in := `{"id":"a","chrom":"1","pos":10,"ref":"A","alt":"C"}
{"id":"sv","chrom":"1","pos":10,"end":900,"svType":"DEL"}
`
	r := newRunner(t, "{}", Options{Consequences: fixedConsequences{err: errors.New("store down")}})
	var out bytes.Buffer
	stats, err := r.Run(context.Background(), strings.NewReader(in), &out)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.Passed)
	assert.Equal(t, []string{"sv"}, readIDs(t, &out))
}

func TestRunEnrichesGenesFromBundle(t *testing.T) {
	paths := annodbtest.WriteRelease(t, t.TempDir())
	bundles, err := annodb.Load(context.Background(), paths, annodb.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bundles.Close() })

	in := `{"id":"inside","chrom":"1","pos":1001,"end":2000,"svType":"DEL"}
{"id":"outside","chrom":"1","pos":5001,"end":6000,"svType":"DEL"}
`
	r := newRunner(t, "genes: [HGNC:1100]", Options{Genes: bundles.Genes, GeneModel: genes.RefSeq})
	var out bytes.Buffer
	_, err = r.Run(context.Background(), strings.NewReader(in), &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"inside"}, readIDs(t, &out))
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newRunner(t, "{}", Options{})
	_, err := r.Run(ctx, strings.NewReader(`{"chrom":"1","pos":1,"ref":"A","alt":"C"}`), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}
