// Package annotation looks up per-variant annotations that the binary
// databases do not carry: ClinVar assertions and transcript consequences of
// sequence variants. Backends are layered: a Postgres store, a Redis cache in
// front of it, a resilience wrapper, and a composite that sends structural
// variants to the ClinVar SV bundle instead.
package annotation

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
)

// Lookup kinds, used in cache keys and metric labels.
const (
	KindClinVar     = "clinvar"
	KindConsequence = "consequence"
)

// Annotator answers annotation lookups for one variant. A variant without
// annotations yields an empty result and a nil error; errors mean the
// backend could not answer.
type Annotator interface {
	ClinVar(ctx context.Context, v *variant.Candidate) ([]variant.Significance, error)
	Consequences(ctx context.Context, v *variant.Candidate) ([]variant.Consequence, error)
}

// Nop knows no annotations.
type Nop struct{}

func (Nop) ClinVar(context.Context, *variant.Candidate) ([]variant.Significance, error) {
	return nil, nil
}

func (Nop) Consequences(context.Context, *variant.Candidate) ([]variant.Consequence, error) {
	return nil, nil
}
