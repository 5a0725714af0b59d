package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/annodbtest"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/genes"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/tad"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/middleware"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	paths := annodbtest.WriteRelease(t, t.TempDir())
	bundles, err := annodb.Load(context.Background(), paths, annodb.Options{
		Overlap: tad.Options{BreakendSlack: 50, InsertionSlack: 50},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bundles.Close() })

	s := New(bundles, nil, Options{GeneModel: genes.RefSeq, Concurrency: 2})
	ts := httptest.NewServer(s.Handler(health.NewChecker()))
	t.Cleanup(ts.Close)
	return ts
}

func getOverlaps(t *testing.T, ts *httptest.Server, params string) (int, OverlapResponse) {
	t.Helper()
	resp, err := http.Get(ts.URL + "/api/v1/overlaps?" + params)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out OverlapResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestOverlaps(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name   string
		params string
		check  func(t *testing.T, r OverlapResponse)
	}{
		{"background", "db=gnomad_sv&chrom=chr1&start=160&end=170", func(t *testing.T, r OverlapResponse) {
			require.Len(t, r.Hits, 2)
			assert.Equal(t, "1", r.Hits[0].Chrom)
		}},
		{"pathogenic", "db=pathogenic&chrom=1&start=1500&end=1600", func(t *testing.T, r OverlapResponse) {
			require.Len(t, r.Hits, 1)
			assert.Equal(t, "patho-1", r.Hits[0].ID)
			assert.Equal(t, 1001, r.Hits[0].Begin)
			assert.Equal(t, 2000, r.Hits[0].End)
		}},
		{"clinvar", "db=clinvar_sv&chrom=2&start=1500&end=1600&svType=DUP", func(t *testing.T, r OverlapResponse) {
			require.Len(t, r.Hits, 1)
			assert.Equal(t, "benign", r.Hits[0].Significance)
			assert.Equal(t, "VCV000000002", r.Hits[0].ID)
		}},
		{"tads", "db=tad_imr90&chrom=1&start=100&svType=INS", func(t *testing.T, r OverlapResponse) {
			assert.Len(t, r.Hits, 1)
		}},
		{"genes", "db=genes_refseq&chrom=1&start=1000&end=1100", func(t *testing.T, r OverlapResponse) {
			assert.Equal(t, []string{annodbtest.BRCA1Hgnc}, r.Genes)
		}},
		{"no hits", "db=dbvar&chrom=1&start=5000&end=6000", func(t *testing.T, r OverlapResponse) {
			assert.Empty(t, r.Hits)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, r := getOverlaps(t, ts, tc.params)
			require.Equal(t, http.StatusOK, code)
			tc.check(t, r)
		})
	}
}

func TestOverlapsRejectsBadParameters(t *testing.T) {
	ts := newTestServer(t)
	for _, params := range []string{
		"db=dbvar&start=10",
		"db=dbvar&chrom=1&start=zero",
		"db=dbvar&chrom=1&start=10&end=5",
		"db=dbvar&chrom=chrUn&start=10",
		"db=nope&chrom=1&start=10",
		"db=tad_gm12878&chrom=1&start=10",
	} {
		code, _ := getOverlaps(t, ts, params)
		assert.Equal(t, http.StatusBadRequest, code, params)
	}
}

func TestOverlapsErrorBody(t *testing.T) {
	ts := newTestServer(t)
	for params, code := range map[string]string{
		"db=dbvar&chrom=chrUn&start=10": "unknown_chromosome",
		"db=nope&chrom=1&start=10":      "invalid_input",
	} {
		resp, err := http.Get(ts.URL + "/api/v1/overlaps?" + params)
		require.NoError(t, err)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.Equal(t, code, body.Code, params)
		assert.NotEmpty(t, body.Error, params)
	}
}

func postEvaluate(t *testing.T, ts *httptest.Server, body string) (*http.Response, EvaluateResponse) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/v1/evaluate", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out EvaluateResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestEvaluate(t *testing.T) {
	ts := newTestServer(t)
	body := `{
		"query": {
			"frequency": {"dbvar": {"enabled": true, "minOverlap": 0.5, "maxCarriers": 10}},
			"genes": ["HGNC:1100"]
		},
		"variants": [
			{"id": "common", "chrom": "1", "pos": 1001, "end": 2000, "svType": "DEL"},
			{"id": "rare", "chrom": "1", "pos": 2101, "end": 2900, "svType": "DEL"},
			{"id": "intergenic", "chrom": "1", "pos": 5001, "end": 6000, "svType": "DEL"},
			{"id": "invalid", "chrom": "1", "pos": 0}
		]
	}`
	resp, out := postEvaluate(t, ts, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	require.Len(t, out.Results, 4)
	assert.Equal(t, 1, out.Passed)
	assert.False(t, out.Results[0].Pass)
	assert.True(t, out.Results[1].Pass)
	assert.False(t, out.Results[2].Pass)
	assert.NotEmpty(t, out.Results[3].Error)
}

func TestEvaluateRejectsInvalidQuery(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := postEvaluate(t, ts, `{"query": {"frequency": {"dbvar": {"enabled": true, "minOverlap": 2}}}, "variants": []}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postEvaluate(t, ts, `{"query": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthRoutes(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
