package convert

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annotation"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/textbed"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
)

// sequenceKey reads the leading chrom, pos, ref and alt columns shared by the
// annotation exports. Positions are 1-based.
func sequenceKey(row textbed.Row) (chrom string, pos int, ref, alt string, err error) {
	if len(row.Fields) < 5 {
		return "", 0, "", "", fmt.Errorf("line %d: want 5 columns, got %d", row.Line, len(row.Fields))
	}
	pos, err = row.Int(1)
	if err != nil {
		return "", 0, "", "", err
	}
	if pos < 1 {
		return "", 0, "", "", fmt.Errorf("line %d: position %d is not 1-based", row.Line, pos)
	}
	return row.Field(0), pos, row.Field(2), row.Field(3), nil
}

// ReadClinVar reads "chrom pos ref alt significance" rows.
func ReadClinVar(path string) ([]annotation.ClinVarRow, int, error) {
	return readRows(path, func(row textbed.Row) (annotation.ClinVarRow, error) {
		chrom, pos, ref, alt, err := sequenceKey(row)
		if err != nil {
			return annotation.ClinVarRow{}, err
		}
		return annotation.ClinVarRow{
			Chrom: chrom, Pos: pos, Ref: ref, Alt: alt,
			Significance: variant.ParseSignificance(row.Field(4)),
		}, nil
	})
}

// ReadConsequences reads "chrom pos ref alt consequence" rows. Unknown
// consequence terms skip the row.
func ReadConsequences(path string) ([]annotation.ConsequenceRow, int, error) {
	return readRows(path, func(row textbed.Row) (annotation.ConsequenceRow, error) {
		chrom, pos, ref, alt, err := sequenceKey(row)
		if err != nil {
			return annotation.ConsequenceRow{}, err
		}
		c, err := variant.ParseConsequence(row.Field(4))
		if err != nil {
			return annotation.ConsequenceRow{}, fmt.Errorf("line %d: %w", row.Line, err)
		}
		return annotation.ConsequenceRow{Chrom: chrom, Pos: pos, Ref: ref, Alt: alt, Consequence: c}, nil
	})
}

func readRows[T any](path string, parse func(textbed.Row) (T, error)) ([]T, int, error) {
	logger := slog.Default().With("component", "convert")
	sc, err := textbed.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer sc.Close()

	var (
		rows    []T
		skipped int
	)
	for sc.Scan() {
		row := sc.Row()
		v, err := parse(row)
		if err != nil {
			logger.Warn("skipping row", "path", path, "line", row.Line, "error", err)
			skipped++
			continue
		}
		rows = append(rows, v)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, skipped, nil
}
