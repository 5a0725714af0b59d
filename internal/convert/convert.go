// Package convert turns legacy text databases into binary database files and
// reads the annotation TSV exports loaded into Postgres.
package convert

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/clinvarsv"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/genes"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/textbed"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
)

// ParseFamily maps a command-line family label to a record family.
func ParseFamily(label string) (dbfile.Family, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "background":
		return dbfile.FamilyBackground, nil
	case "pathogenic":
		return dbfile.FamilyPathogenic, nil
	case "clinvar-sv", "clinvar_sv", "clinvarsv":
		return dbfile.FamilyClinvarSV, nil
	case "gene-region", "gene_region", "genes":
		return dbfile.FamilyGeneRegion, nil
	case "tad":
		return dbfile.FamilyTAD, nil
	case "xlink":
		return dbfile.FamilyXlink, nil
	default:
		return 0, fmt.Errorf("%w: unknown record family %q", apperrors.ErrInvalidInput, label)
	}
}

// Stats reports the outcome of one conversion.
type Stats struct {
	Family  string `json:"family"`
	Records int    `json:"records"`
	Skipped int    `json:"skipped"`
}

// Converter writes one family of binary records from BED-like text rows.
type Converter struct {
	family  dbfile.Family
	catalog *genome.Catalog
	logger  *slog.Logger
}

func New(family dbfile.Family, catalog *genome.Catalog) (*Converter, error) {
	if family.RecordSize() == 0 {
		return nil, fmt.Errorf("%w: unknown record family %d", apperrors.ErrInvalidInput, uint32(family))
	}
	if catalog == nil {
		catalog = genome.DefaultCatalog
	}
	return &Converter{
		family:  family,
		catalog: catalog,
		logger:  slog.Default().With("component", "convert", "family", family.String()),
	}, nil
}

// ToBinary converts the text file at in and writes the binary table to out.
// Rows that fail to parse or name an unknown chromosome are logged and
// skipped.
//
// Text columns per family, with 0-based begins:
//
//	background   chrom begin end count
//	pathogenic   chrom begin end id [svtype]
//	clinvar-sv   chrom begin end variation_type significance vcv
//	gene-region  chrom begin end gene_id
//	tad          chrom begin end
//	xlink        entrez hgnc ensembl symbol
func (c *Converter) ToBinary(in, out string) (Stats, error) {
	stats := Stats{Family: c.family.String()}
	sc, err := textbed.Open(in)
	if err != nil {
		return stats, err
	}
	defer sc.Close()

	w, err := dbfile.NewWriter(c.family)
	if err != nil {
		return stats, err
	}
	for sc.Scan() {
		row := sc.Row()
		rec, err := c.record(w, row)
		if err != nil {
			c.logger.Warn("skipping row", "path", in, "line", row.Line, "error", err)
			stats.Skipped++
			continue
		}
		if err := w.Add(rec); err != nil {
			return stats, err
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("reading %s: %w", in, err)
	}
	if err := w.WriteFile(out); err != nil {
		return stats, err
	}
	stats.Records = w.Len()
	c.logger.Info("database converted", "in", in, "out", out, "records", stats.Records, "skipped", stats.Skipped)
	return stats, nil
}

func (c *Converter) record(w *dbfile.Writer, row textbed.Row) (dbfile.Record, error) {
	if c.family == dbfile.FamilyXlink {
		return xlinkRecord(w, row)
	}
	rec, err := c.locus(w, row)
	if err != nil {
		return nil, err
	}
	switch c.family {
	case dbfile.FamilyBackground:
		count, err := row.Int(3)
		if err != nil {
			return nil, err
		}
		if count < 0 || int64(count) > math.MaxUint32 {
			return nil, fmt.Errorf("line %d: count %d out of range", row.Line, count)
		}
		rec.PutUint32(dbfile.OffBgCount, uint32(count))
	case dbfile.FamilyPathogenic:
		t, err := variant.ParseSvType(row.Field(4))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", row.Line, err)
		}
		off, n, err := w.AddString(row.Field(3))
		if err != nil {
			return nil, err
		}
		rec.PutUint8(dbfile.OffPathoSvType, uint8(t))
		rec.PutUint32(dbfile.OffPathoIDOff, off)
		rec.PutUint32(dbfile.OffPathoIDLen, n)
	case dbfile.FamilyClinvarSV:
		vcv, err := genes.NormalizeGeneID(row.Field(5))
		if err != nil {
			return nil, fmt.Errorf("line %d: vcv: %w", row.Line, err)
		}
		rec.PutUint8(dbfile.OffClinvarVarType, uint8(clinvarsv.ParseVariationType(row.Field(3))))
		rec.PutUint8(dbfile.OffClinvarPatho, uint8(variant.ParseSignificance(row.Field(4))))
		rec.PutUint32(dbfile.OffClinvarVCV, vcv)
	case dbfile.FamilyGeneRegion:
		id, err := genes.NormalizeGeneID(row.Field(3))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", row.Line, err)
		}
		rec.PutUint32(dbfile.OffGeneID, id)
	}
	return rec, nil
}

// locus fills the chromosome index and interval of rec, shifting begins to
// the family's on-disk convention.
func (c *Converter) locus(w *dbfile.Writer, row textbed.Row) (dbfile.Record, error) {
	iv, err := textbed.ParseInterval(row)
	if err != nil {
		return nil, err
	}
	chrom, ok := c.catalog.Index(iv.Chrom)
	if !ok {
		return nil, fmt.Errorf("line %d: %w: %q", row.Line, apperrors.ErrUnknownChromosome, iv.Chrom)
	}
	begin := iv.Begin
	if c.family.OneBasedBegin() {
		begin++
	}
	if begin > math.MaxInt32 || iv.End > math.MaxInt32 {
		return nil, fmt.Errorf("line %d: position beyond %d", row.Line, math.MaxInt32)
	}
	return w.Locus(uint32(chrom), int32(begin), int32(iv.End)), nil
}

func xlinkRecord(w *dbfile.Writer, row textbed.Row) (dbfile.Record, error) {
	if len(row.Fields) < 4 {
		return nil, fmt.Errorf("line %d: want 4 columns, got %d", row.Line, len(row.Fields))
	}
	var ids [3]uint32
	for i := range ids {
		if row.Field(i) == "" {
			continue
		}
		id, err := genes.NormalizeGeneID(row.Field(i))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", row.Line, err)
		}
		ids[i] = id
	}
	off, n, err := w.AddString(row.Field(3))
	if err != nil {
		return nil, err
	}
	rec := w.Locus(0, 0, 0)
	rec.PutUint32(dbfile.OffXlinkEntrez, ids[0])
	rec.PutUint32(dbfile.OffXlinkHgnc, ids[1])
	rec.PutUint32(dbfile.OffXlinkEnsembl, ids[2])
	rec.PutUint32(dbfile.OffXlinkSymOff, off)
	rec.PutUint32(dbfile.OffXlinkSymLen, n)
	return rec, nil
}
