// Package genes indexes gene regions of the RefSeq and Ensembl gene models
// and the cross-reference table between their identifiers.
package genes

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/loader"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/overlap"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
)

// Model selects a gene model.
type Model int

const (
	RefSeq Model = iota
	Ensembl
)

func (m Model) String() string {
	switch m {
	case RefSeq:
		return "refseq"
	case Ensembl:
		return "ensembl"
	default:
		return fmt.Sprintf("model(%d)", int(m))
	}
}

// ParseModel maps a case-insensitive model label to a Model.
func ParseModel(label string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "refseq":
		return RefSeq, nil
	case "ensembl":
		return Ensembl, nil
	default:
		return 0, fmt.Errorf("unknown gene model %q", label)
	}
}

// NormalizeGeneID turns textual gene identifiers such as "ENSG00000141510",
// "HGNC:1100" or "672" into their numeric form.
func NormalizeGeneID(text string) (uint32, error) {
	s := strings.TrimSpace(text)
	i := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		return 0, fmt.Errorf("gene id %q has no digits", text)
	}
	digits := strings.TrimLeft(s[i:], "0")
	if digits == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("gene id %q: %w", text, err)
	}
	return uint32(v), nil
}

// Bundle holds the gene regions of both models and the xlink table. The
// model files stay mapped until Close.
type Bundle struct {
	refseq  *overlap.Index[uint32]
	ensembl *overlap.Index[uint32]
	xlink   *Xlink
	files   loader.Mappings
	metrics *metrics.Metrics
}

// Load indexes both gene models and the xlink table.
func Load(refseqPath, ensemblPath, xlinkPath string, catalog *genome.Catalog, m *metrics.Metrics) (*Bundle, error) {
	b := &Bundle{metrics: m}
	var err error
	if b.refseq, err = b.loadModel(refseqPath, catalog); err != nil {
		return nil, fmt.Errorf("gene model refseq: %w", err)
	}
	if b.ensembl, err = b.loadModel(ensemblPath, catalog); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("gene model ensembl: %w", err)
	}
	if b.xlink, err = LoadXlink(xlinkPath); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Bundle) loadModel(path string, catalog *genome.Catalog) (*overlap.Index[uint32], error) {
	idx := overlap.NewIndex[uint32](catalog)
	f, err := loader.Open(path, dbfile.FamilyGeneRegion, idx, func(_ *dbfile.File, rec dbfile.Record, _, _ int) (uint32, error) {
		return rec.Uint32(dbfile.OffGeneID), nil
	})
	if err != nil {
		return nil, err
	}
	b.files = append(b.files, f)
	return idx, nil
}

func (b *Bundle) index(model Model) *overlap.Index[uint32] {
	switch model {
	case RefSeq:
		return b.refseq
	case Ensembl:
		return b.ensembl
	default:
		return nil
	}
}

// Query returns the distinct gene IDs of model overlapping [start, end) on
// chrom, in ascending order.
func (b *Bundle) Query(model Model, chrom string, start, end int) []uint32 {
	idx := b.index(model)
	if idx == nil {
		return nil
	}
	hits := idx.FindNamed(chrom, start, end)
	b.metrics.ObserveOverlap("genes_"+model.String(), len(hits), false)
	if len(hits) == 0 {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i] < hits[j] })
	out := hits[:1]
	for _, id := range hits[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

// QueryVariant queries the span of v.
func (b *Bundle) QueryVariant(model Model, v *variant.Candidate) []uint32 {
	start, end := v.Span()
	return b.Query(model, v.Chrom, start, end)
}

// HgncIDs returns "HGNC:<n>" labels of the genes of model overlapping v.
// Genes missing from the xlink table are left out.
func (b *Bundle) HgncIDs(model Model, v *variant.Candidate) []string {
	ids := b.QueryVariant(model, v)
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint32]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		var e XlinkEntry
		var ok bool
		switch model {
		case RefSeq:
			e, ok = b.xlink.ByEntrez(id)
		case Ensembl:
			e, ok = b.xlink.ByEnsembl(id)
		}
		if !ok || e.Hgnc == 0 {
			continue
		}
		if _, dup := seen[e.Hgnc]; dup {
			continue
		}
		seen[e.Hgnc] = struct{}{}
		out = append(out, e.HgncLabel())
	}
	return out
}

// Xlink returns the gene identifier cross-reference table.
func (b *Bundle) Xlink() *Xlink { return b.xlink }

// Len is the number of gene regions of model.
func (b *Bundle) Len(model Model) int {
	if idx := b.index(model); idx != nil {
		return idx.Len()
	}
	return 0
}

// Close unmaps the model files and the xlink table.
func (b *Bundle) Close() error {
	err := b.files.Close()
	if b.xlink != nil {
		err = errors.Join(err, b.xlink.Close())
	}
	return err
}
