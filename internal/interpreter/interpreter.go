// Package interpreter evaluates a query specification against candidate
// variants. Filters run in a fixed order, cheapest first, and the first
// failing filter decides the verdict.
package interpreter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/background"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/query"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
)

// BackgroundLookup counts population carriers of a variant.
type BackgroundLookup interface {
	Carriers(src background.Source, v *variant.Candidate, minOverlap float64) uint64
}

// ClinVarLookup returns the ClinVar significances asserted for a variant.
// A variant without assertions yields an empty slice and no error.
type ClinVarLookup interface {
	ClinVar(ctx context.Context, v *variant.Candidate) ([]variant.Significance, error)
}

type Options struct {
	Background BackgroundLookup
	Annotator  ClinVarLookup
	Metrics    *metrics.Metrics
}

// evaluation carries state from one filter to the next for a single variant.
type evaluation struct {
	noCall map[string]struct{}
}

func (e *evaluation) markNoCall(sample string) {
	if e.noCall == nil {
		e.noCall = make(map[string]struct{})
	}
	e.noCall[sample] = struct{}{}
}

func (e *evaluation) isNoCall(sample string) bool {
	_, ok := e.noCall[sample]
	return ok
}

type filter interface {
	name() string
	pass(ctx context.Context, v *variant.Candidate, e *evaluation) (bool, error)
}

// Interpreter is immutable after New and safe for concurrent use.
type Interpreter struct {
	spec    *query.Spec
	filters []filter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds the filter chain for spec. A frequency filter without
// background databases, or a ClinVar requirement without a lookup, is an
// invalid query.
func New(spec *query.Spec, opts Options) (*Interpreter, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: nil specification", apperrors.ErrInvalidQuery)
	}
	if spec.FrequencyEnabled() && opts.Background == nil {
		return nil, fmt.Errorf("%w: frequency filter enabled without background databases", apperrors.ErrInvalidQuery)
	}
	if spec.ClinVar.RequireInClinvar && opts.Annotator == nil {
		return nil, fmt.Errorf("%w: clinvar filter enabled without an annotator", apperrors.ErrInvalidQuery)
	}

	return &Interpreter{
		spec: spec,
		filters: []filter{
			newFrequencyFilter(spec, opts.Background),
			consequenceFilter{allowed: spec.Consequences},
			newQualityFilter(spec.Quality),
			newGenotypeFilter(spec.Genotype),
			geneFilter{allowed: spec.Genes},
			regionFilter{regions: spec.Regions},
			clinvarFilter{cfg: spec.ClinVar, lookup: opts.Annotator},
		},
		metrics: opts.Metrics,
		logger:  slog.Default().With("component", "interpreter"),
	}, nil
}

func (in *Interpreter) Spec() *query.Spec { return in.spec }

// Passes runs the filter chain on v. The only error source is the ClinVar
// lookup; such errors wrap ErrAnnotator and concern this variant alone.
func (in *Interpreter) Passes(ctx context.Context, v *variant.Candidate) (bool, error) {
	var e evaluation
	for _, f := range in.filters {
		ok, err := f.pass(ctx, v, &e)
		if err != nil {
			in.metrics.ObserveVariant("error")
			return false, fmt.Errorf("%w: variant %s: %v", apperrors.ErrAnnotator, v.Key(), err)
		}
		in.metrics.ObserveFilter(f.name(), ok)
		if !ok {
			in.logger.Debug("variant rejected", "variant", v.Key(), "filter", f.name())
			in.metrics.ObserveVariant("fail")
			return false, nil
		}
	}
	in.metrics.ObserveVariant("pass")
	return true, nil
}
