// Package background indexes the population background-frequency databases.
package background

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/loader"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/overlap"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
)

// Source is one population database.
type Source int

const (
	GnomadSV Source = iota
	DbVar
	DGV
	DGVGoldStandard
	ExAC
	G1K
	numSources
)

// Sources lists every source in a fixed order.
var Sources = [numSources]Source{GnomadSV, DbVar, DGV, DGVGoldStandard, ExAC, G1K}

var sourceLabels = [numSources]string{"gnomad_sv", "dbvar", "dgv", "dgv_gs", "exac", "g1k"}

func (s Source) String() string {
	if s >= 0 && s < numSources {
		return sourceLabels[s]
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// ParseSource accepts the labels of String plus a few spellings seen in
// query documents.
func ParseSource(label string) (Source, error) {
	l := strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(label)))
	switch l {
	case "gnomad_sv", "gnomadsv", "gnomad":
		return GnomadSV, nil
	case "dbvar":
		return DbVar, nil
	case "dgv":
		return DGV, nil
	case "dgv_gs", "dgvgs", "dgv_gold_standard":
		return DGVGoldStandard, nil
	case "exac":
		return ExAC, nil
	case "g1k", "thousand_genomes", "1000g":
		return G1K, nil
	default:
		return 0, fmt.Errorf("unknown background source %q", label)
	}
}

// Record is one background call with its carrier count. Begin is 0-based,
// End exclusive.
type Record struct {
	Chrom int
	Begin int
	End   int
	Count uint32
}

// Len is the length of the call in bases.
func (r Record) Len() int { return r.End - r.Begin }

// Reciprocal returns the reciprocal overlap of a and b: the overlap length
// divided by the longer of the two lengths. It is 0 for disjoint or empty
// intervals and 1 for identical ones.
func Reciprocal(a, b Record) float64 {
	if a.Chrom != b.Chrom {
		return 0
	}
	ovl := min(a.End, b.End) - max(a.Begin, b.Begin)
	if ovl <= 0 {
		return 0
	}
	longest := max(a.Len(), b.Len())
	return float64(ovl) / float64(longest)
}

// Bundle holds one index per source. It is read-only after Load and keeps
// the source files mapped until Close.
type Bundle struct {
	catalog *genome.Catalog
	sources [numSources]*overlap.Index[Record]
	files   loader.Mappings
	metrics *metrics.Metrics
}

// Load builds the bundle from one binary file per source. Every source must
// be present.
func Load(paths map[Source]string, catalog *genome.Catalog, m *metrics.Metrics) (*Bundle, error) {
	b := &Bundle{catalog: catalog, metrics: m}
	for _, src := range Sources {
		path, ok := paths[src]
		if !ok || path == "" {
			_ = b.Close()
			return nil, fmt.Errorf("background source %s: no database path", src)
		}
		idx := overlap.NewIndex[Record](catalog)
		f, err := loader.Open(path, dbfile.FamilyBackground, idx, decode)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("background source %s: %w", src, err)
		}
		b.sources[src] = idx
		b.files = append(b.files, f)
	}
	return b, nil
}

func decode(_ *dbfile.File, rec dbfile.Record, begin, end int) (Record, error) {
	return Record{
		Chrom: int(rec.Chrom()),
		Begin: begin,
		End:   end,
		Count: rec.Uint32(dbfile.OffBgCount),
	}, nil
}

// Query returns the records of src overlapping v. Insertions and breakends
// never overlap anything.
func (b *Bundle) Query(src Source, v *variant.Candidate) []Record {
	start, end, ok := loader.SpanRange(v)
	if !ok || src < 0 || src >= numSources {
		b.metrics.ObserveOverlap("background", 0, true)
		return nil
	}
	hits := b.sources[src].FindNamed(v.Chrom, start, end)
	b.metrics.ObserveOverlap("background", len(hits), false)
	return hits
}

// Carriers sums the counts of src records whose reciprocal overlap with v is
// at least minOverlap.
func (b *Bundle) Carriers(src Source, v *variant.Candidate, minOverlap float64) uint64 {
	hits := b.Query(src, v)
	if len(hits) == 0 {
		return 0
	}
	chrom, _ := b.catalog.Index(v.Chrom)
	begin, end := v.Span()
	self := Record{Chrom: chrom, Begin: begin, End: end}
	var total uint64
	for _, h := range hits {
		if Reciprocal(self, h) >= minOverlap {
			total += uint64(h.Count)
		}
	}
	return total
}

// Len returns the number of records of src.
func (b *Bundle) Len(src Source) int {
	if src < 0 || src >= numSources {
		return 0
	}
	return b.sources[src].Len()
}

// Close unmaps the source files.
func (b *Bundle) Close() error { return b.files.Close() }
