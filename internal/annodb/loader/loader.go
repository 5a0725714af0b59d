// Package loader fills per-chromosome overlap indexes from database files.
package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/overlap"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/textbed"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
)

// DecodeFunc extracts the payload of one binary record.
type DecodeFunc[T any] func(f *dbfile.File, rec dbfile.Record, begin, end int) (T, error)

// Open maps path as family and fills idx from it. The caller owns the
// returned file; it is closed again when filling fails.
func Open[T any](path string, family dbfile.Family, idx *overlap.Index[T], decode DecodeFunc[T]) (*dbfile.File, error) {
	f, err := dbfile.Open(path, family)
	if err != nil {
		return nil, err
	}
	if err := FromFile(f, idx, decode); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// Mappings are the database files a bundle keeps mapped for its lifetime.
type Mappings []*dbfile.File

// Close unmaps every file and joins the errors.
func (m Mappings) Close() error {
	var errs []error
	for _, f := range m {
		if f != nil {
			errs = append(errs, f.Close())
		}
	}
	return errors.Join(errs...)
}

// FromFile inserts every record of f into idx and finalizes it. Begins are
// converted to 0-based using the family convention. A chromosome index
// outside the catalog aborts the load with ErrUnknownChromosome; binary
// snapshots are validated upstream so any such record means a mismatched
// catalog.
func FromFile[T any](f *dbfile.File, idx *overlap.Index[T], decode DecodeFunc[T]) error {
	family := f.Family()
	for i := 0; i < f.Len(); i++ {
		rec := f.Record(i)
		chrom, begin, end := rec.Locus(family)
		if !idx.Catalog().Valid(int(chrom)) {
			return fmt.Errorf("%s record %d: %w: index %d", f.Path(), i, apperrors.ErrUnknownChromosome, chrom)
		}
		payload, err := decode(f, rec, begin, end)
		if err != nil {
			return fmt.Errorf("%s record %d: %w", f.Path(), i, err)
		}
		if err := idx.Insert(int(chrom), begin, end, payload); err != nil {
			return fmt.Errorf("%s record %d: %w: %v", f.Path(), i, apperrors.ErrCorruptDatabase, err)
		}
	}
	idx.Finalize()
	return nil
}

// ParseFunc turns one text row into an interval and payload. Begins in the
// returned interval are 0-based.
type ParseFunc[T any] func(row textbed.Row) (textbed.Interval, T, error)

// FromText reads a legacy text file into idx and finalizes it. Rows that fail
// to parse or name an unknown chromosome are logged and skipped. It returns
// the number of rows skipped.
func FromText[T any](path string, idx *overlap.Index[T], parse ParseFunc[T], logger *slog.Logger) (int, error) {
	sc, err := textbed.Open(path)
	if err != nil {
		return 0, err
	}
	defer sc.Close()

	skipped := 0
	for sc.Scan() {
		row := sc.Row()
		iv, payload, err := parse(row)
		if err != nil {
			logger.Warn("skipping malformed row", "path", path, "line", row.Line, "error", err)
			skipped++
			continue
		}
		if err := idx.InsertNamed(iv.Chrom, iv.Begin, iv.End, payload); err != nil {
			if errors.Is(err, apperrors.ErrUnknownChromosome) {
				logger.Warn("skipping row on unknown chromosome", "path", path, "line", row.Line, "chrom", iv.Chrom)
			} else {
				logger.Warn("skipping row", "path", path, "line", row.Line, "error", err)
			}
			skipped++
		}
	}
	if err := sc.Err(); err != nil {
		return skipped, fmt.Errorf("reading %s: %w", path, err)
	}
	idx.Finalize()
	return skipped, nil
}

// IsText reports whether path names a legacy text file rather than a binary
// snapshot.
func IsText(path string) bool {
	p := strings.TrimSuffix(strings.TrimSuffix(path, ".gz"), ".bgz")
	return strings.HasSuffix(p, ".bed") || strings.HasSuffix(p, ".tsv") || strings.HasSuffix(p, ".txt")
}

// SpanRange returns the 0-based half-open query range [pos-1, end) of v.
// Insertions and breakends have no interior span and report ok=false.
func SpanRange(v *variant.Candidate) (start, end int, ok bool) {
	if v.IsStructural() && !v.SvType.HasSpan() {
		return 0, 0, false
	}
	start, end = v.Span()
	return start, end, true
}
