// Package pathogenic indexes the catalog of known pathogenic structural
// variants.
package pathogenic

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/loader"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/overlap"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/textbed"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
)

// Record is one known pathogenic call. Begin is 0-based, End exclusive.
type Record struct {
	Begin  int
	End    int
	SvType variant.SvType
	ID     string
}

// Bundle is the known-pathogenic index. When loaded from a binary file the
// record IDs alias the file mapping, which the bundle keeps open until Close.
type Bundle struct {
	idx     *overlap.Index[Record]
	file    *dbfile.File
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Load reads path as a binary snapshot, or as BED text
// (chrom, begin, end, id, [svtype]) when the extension says so.
func Load(path string, catalog *genome.Catalog, m *metrics.Metrics) (*Bundle, error) {
	b := &Bundle{
		idx:     overlap.NewIndex[Record](catalog),
		metrics: m,
		logger:  slog.Default().With("component", "pathogenic"),
	}
	if loader.IsText(path) {
		skipped, err := loader.FromText(path, b.idx, parseRow, b.logger)
		if err != nil {
			return nil, fmt.Errorf("loading pathogenic text: %w", err)
		}
		b.logger.Info("loaded pathogenic text database", "path", path, "records", b.idx.Len(), "skipped", skipped)
		return b, nil
	}

	f, err := dbfile.Open(path, dbfile.FamilyPathogenic)
	if err != nil {
		return nil, err
	}
	if err := loader.FromFile(f, b.idx, decode); err != nil {
		f.Close()
		return nil, err
	}
	b.file = f
	return b, nil
}

func decode(f *dbfile.File, rec dbfile.Record, begin, end int) (Record, error) {
	svType := variant.SvType(rec.Uint8(dbfile.OffPathoSvType))
	if !svType.Valid() {
		return Record{}, fmt.Errorf("invalid sv type code %d", uint8(svType))
	}
	id, err := f.String(rec.Uint32(dbfile.OffPathoIDOff), rec.Uint32(dbfile.OffPathoIDLen))
	if err != nil {
		return Record{}, err
	}
	return Record{Begin: begin, End: end, SvType: svType, ID: id}, nil
}

func parseRow(row textbed.Row) (textbed.Interval, Record, error) {
	iv, err := textbed.ParseInterval(row)
	if err != nil {
		return iv, Record{}, err
	}
	rec := Record{Begin: iv.Begin, End: iv.End, ID: row.Field(3)}
	if label := row.Field(4); label != "" {
		t, err := variant.ParseSvType(label)
		if err != nil {
			return iv, Record{}, fmt.Errorf("line %d: %w", row.Line, err)
		}
		rec.SvType = t
	}
	return iv, rec, nil
}

// Query returns the known pathogenic records overlapping v.
func (b *Bundle) Query(v *variant.Candidate) []Record {
	start, end, ok := loader.SpanRange(v)
	if !ok {
		b.metrics.ObserveOverlap("pathogenic", 0, true)
		return nil
	}
	hits := b.idx.FindNamed(v.Chrom, start, end)
	b.metrics.ObserveOverlap("pathogenic", len(hits), false)
	return hits
}

// Len is the number of indexed records.
func (b *Bundle) Len() int { return b.idx.Len() }

// Close releases the file mapping. Records returned by Query must not be
// used afterwards.
func (b *Bundle) Close() error {
	if b.file == nil {
		return nil
	}
	return b.file.Close()
}
