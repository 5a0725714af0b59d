package annotation

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
)

// SVClinVar answers ClinVar lookups of structural variants by overlap.
type SVClinVar interface {
	ClinVar(ctx context.Context, v *variant.Candidate) ([]variant.Significance, error)
}

// Composite dispatches structural variants to an overlap bundle and sequence
// variants to a per-allele annotator. Structural variants have no transcript
// consequence lookup; theirs come with the input.
type Composite struct {
	structural SVClinVar
	sequence   Annotator
}

// NewComposite treats nil arguments as knowing no annotations.
func NewComposite(structural SVClinVar, sequence Annotator) *Composite {
	if structural == nil {
		structural = Nop{}
	}
	if sequence == nil {
		sequence = Nop{}
	}
	return &Composite{structural: structural, sequence: sequence}
}

func (c *Composite) ClinVar(ctx context.Context, v *variant.Candidate) ([]variant.Significance, error) {
	if v.IsStructural() {
		return c.structural.ClinVar(ctx, v)
	}
	return c.sequence.ClinVar(ctx, v)
}

func (c *Composite) Consequences(ctx context.Context, v *variant.Candidate) ([]variant.Consequence, error) {
	if v.IsStructural() {
		return nil, nil
	}
	return c.sequence.Consequences(ctx, v)
}
