// Package tad indexes topologically associating domains of two cell types.
package tad

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/loader"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/overlap"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/textbed"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
)

// Set selects the cell type of a TAD set.
type Set int

const (
	HESC Set = iota
	IMR90
)

func (s Set) String() string {
	switch s {
	case HESC:
		return "hesc"
	case IMR90:
		return "imr90"
	default:
		return fmt.Sprintf("set(%d)", int(s))
	}
}

// ParseSet maps a case-insensitive set label to a Set.
func ParseSet(label string) (Set, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "hesc":
		return HESC, nil
	case "imr90":
		return IMR90, nil
	default:
		return 0, fmt.Errorf("unknown tad set %q", label)
	}
}

// Record is one domain. Begin is 0-based, End exclusive.
type Record struct {
	Chrom int
	Begin int
	End   int
}

// Options holds the window half-widths used for point-like variants.
type Options struct {
	BreakendSlack  int
	InsertionSlack int
}

// Bundle holds the domain indexes of both cell types. Sets loaded from
// binary files keep them mapped until Close.
type Bundle struct {
	hesc    *overlap.Index[Record]
	imr90   *overlap.Index[Record]
	files   loader.Mappings
	opts    Options
	metrics *metrics.Metrics
}

// Load builds both sets. Each path may be a binary snapshot or BED text.
func Load(hescPath, imr90Path string, catalog *genome.Catalog, opts Options, m *metrics.Metrics) (*Bundle, error) {
	b := &Bundle{opts: opts, metrics: m}
	var err error
	if b.hesc, err = b.loadSet(hescPath, catalog); err != nil {
		return nil, fmt.Errorf("tad set hesc: %w", err)
	}
	if b.imr90, err = b.loadSet(imr90Path, catalog); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("tad set imr90: %w", err)
	}
	return b, nil
}

func (b *Bundle) loadSet(path string, catalog *genome.Catalog) (*overlap.Index[Record], error) {
	idx := overlap.NewIndex[Record](catalog)
	if loader.IsText(path) {
		logger := slog.Default().With("component", "tad")
		_, err := loader.FromText(path, idx, func(row textbed.Row) (textbed.Interval, Record, error) {
			iv, err := textbed.ParseInterval(row)
			if err != nil {
				return iv, Record{}, err
			}
			chrom, _ := catalog.Index(iv.Chrom)
			return iv, Record{Chrom: chrom, Begin: iv.Begin, End: iv.End}, nil
		}, logger)
		return idx, err
	}

	f, err := loader.Open(path, dbfile.FamilyTAD, idx, func(_ *dbfile.File, rec dbfile.Record, begin, end int) (Record, error) {
		return Record{Chrom: int(rec.Chrom()), Begin: begin, End: end}, nil
	})
	if err != nil {
		return nil, err
	}
	b.files = append(b.files, f)
	return idx, nil
}

func (b *Bundle) index(set Set) *overlap.Index[Record] {
	switch set {
	case HESC:
		return b.hesc
	case IMR90:
		return b.imr90
	default:
		return nil
	}
}

type window struct {
	chrom      string
	start, end int
}

// pointWindow covers the base at 0-based p and slack bases on either side.
func pointWindow(chrom string, p, slack int) window {
	return window{chrom, p - slack, p + slack + 1}
}

// windows builds the query ranges for v. Breakends query a slack window
// around each breakpoint, insertions a slack window around the insertion
// point, everything else its span.
func (b *Bundle) windows(v *variant.Candidate) []window {
	switch v.SvType {
	case variant.SvBnd:
		s := b.opts.BreakendSlack
		return []window{
			pointWindow(v.Chrom, v.Pos-1, s),
			pointWindow(v.MateChrom(), v.MatePos()-1, s),
		}
	case variant.SvIns:
		return []window{pointWindow(v.Chrom, v.Pos-1, b.opts.InsertionSlack)}
	default:
		start, end := v.Span()
		return []window{{v.Chrom, start, end}}
	}
}

// Query returns the domains of set touched by v. Hits from separate
// breakpoint windows are concatenated, so a domain spanning both appears
// twice.
func (b *Bundle) Query(set Set, v *variant.Candidate) []Record {
	idx := b.index(set)
	if idx == nil {
		return nil
	}
	var out []Record
	for _, w := range b.windows(v) {
		out = append(out, idx.FindNamed(w.chrom, w.start, w.end)...)
	}
	b.metrics.ObserveOverlap("tad_"+set.String(), len(out), false)
	return out
}

// Len is the number of domains of set.
func (b *Bundle) Len(set Set) int {
	if idx := b.index(set); idx != nil {
		return idx.Len()
	}
	return 0
}

// Close unmaps the binary set files.
func (b *Bundle) Close() error { return b.files.Close() }
