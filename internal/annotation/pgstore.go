package annotation

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/postgres"
)

// Schema creates the annotation tables. Chromosomes are stored canonical.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS clinvar_assertions (
		release      TEXT     NOT NULL,
		chrom        TEXT     NOT NULL,
		pos          INTEGER  NOT NULL,
		ref          TEXT     NOT NULL,
		alt          TEXT     NOT NULL,
		significance SMALLINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS clinvar_assertions_locus
		ON clinvar_assertions (release, chrom, pos, ref, alt)`,
	`CREATE TABLE IF NOT EXISTS transcript_consequences (
		release     TEXT    NOT NULL,
		chrom       TEXT    NOT NULL,
		pos         INTEGER NOT NULL,
		ref         TEXT    NOT NULL,
		alt         TEXT    NOT NULL,
		consequence TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transcript_consequences_locus
		ON transcript_consequences (release, chrom, pos, ref, alt)`,
}

const (
	clinvarQuery = `SELECT significance FROM clinvar_assertions
		WHERE release = $1 AND chrom = $2 AND pos = $3 AND ref = $4 AND alt = $5`
	consequenceQuery = `SELECT DISTINCT consequence FROM transcript_consequences
		WHERE release = $1 AND chrom = $2 AND pos = $3 AND ref = $4 AND alt = $5
		ORDER BY consequence`
)

// PGStore answers lookups of sequence variants from Postgres.
type PGStore struct {
	client  *postgres.Client
	release string
	logger  *slog.Logger
}

func NewPGStore(client *postgres.Client, release genome.Release) *PGStore {
	return &PGStore{
		client:  client,
		release: release.String(),
		logger:  slog.Default().With("component", "annotation-store", "release", release.String()),
	}
}

// EnsureSchema creates missing tables and indexes.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	return s.client.Exec(ctx, Schema...)
}

func (s *PGStore) ClinVar(ctx context.Context, v *variant.Candidate) ([]variant.Significance, error) {
	rows, err := s.client.Query(ctx, clinvarQuery, s.release, genome.Canonicalize(v.Chrom), v.Pos, v.Ref, v.Alt)
	if err != nil {
		return nil, fmt.Errorf("querying clinvar assertions: %w", err)
	}
	defer rows.Close()

	var out []variant.Significance
	for rows.Next() {
		var code int16
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scanning clinvar assertion: %w", err)
		}
		if code < 0 || code > 255 {
			return nil, fmt.Errorf("%w: clinvar significance code %d", apperrors.ErrInvalidInput, code)
		}
		sig, err := variant.SignificanceFromCode(uint8(code))
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *PGStore) Consequences(ctx context.Context, v *variant.Candidate) ([]variant.Consequence, error) {
	rows, err := s.client.Query(ctx, consequenceQuery, s.release, genome.Canonicalize(v.Chrom), v.Pos, v.Ref, v.Alt)
	if err != nil {
		return nil, fmt.Errorf("querying transcript consequences: %w", err)
	}
	defer rows.Close()

	var out []variant.Consequence
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scanning transcript consequence: %w", err)
		}
		c, err := variant.ParseConsequence(label)
		if err != nil {
			s.logger.Warn("skipping unknown consequence", "consequence", label, "variant", v.Key())
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ClinVarRow is one assertion of a sequence variant.
type ClinVarRow struct {
	Chrom        string
	Pos          int
	Ref, Alt     string
	Significance variant.Significance
}

// ConsequenceRow is one predicted consequence of a sequence variant.
type ConsequenceRow struct {
	Chrom       string
	Pos         int
	Ref, Alt    string
	Consequence variant.Consequence
}

// ReplaceClinVar swaps all assertions of the store's release for rows in a
// single transaction.
func (s *PGStore) ReplaceClinVar(ctx context.Context, rows []ClinVarRow) error {
	return s.replace(ctx, "clinvar_assertions", "significance", len(rows), func(i int) []any {
		r := rows[i]
		return []any{s.release, genome.Canonicalize(r.Chrom), r.Pos, r.Ref, r.Alt, int16(r.Significance)}
	})
}

// ReplaceConsequences swaps all consequences of the store's release for rows.
func (s *PGStore) ReplaceConsequences(ctx context.Context, rows []ConsequenceRow) error {
	return s.replace(ctx, "transcript_consequences", "consequence", len(rows), func(i int) []any {
		r := rows[i]
		return []any{s.release, genome.Canonicalize(r.Chrom), r.Pos, r.Ref, r.Alt, string(r.Consequence)}
	})
}

func (s *PGStore) replace(ctx context.Context, table, valueColumn string, n int, row func(int) []any) error {
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(table)+" WHERE release = $1", s.release); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
		return postgres.CopyIn(ctx, tx, table, []string{"release", "chrom", "pos", "ref", "alt", valueColumn}, n, row)
	})
	if err != nil {
		return err
	}
	s.logger.Info("annotation table replaced", "table", table, "rows", n)
	return nil
}
