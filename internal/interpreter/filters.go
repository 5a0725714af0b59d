package interpreter

import (
	"context"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/background"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/query"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
)

type sourceLimit struct {
	src   background.Source
	limit query.FrequencyLimit
}

type frequencyFilter struct {
	limits []sourceLimit
	lookup BackgroundLookup
}

func newFrequencyFilter(spec *query.Spec, lookup BackgroundLookup) frequencyFilter {
	f := frequencyFilter{lookup: lookup}
	for _, src := range background.Sources {
		if l, ok := spec.Frequency[src]; ok && l.Enabled {
			f.limits = append(f.limits, sourceLimit{src: src, limit: l})
		}
	}
	return f
}

func (frequencyFilter) name() string { return "frequency" }

func (f frequencyFilter) pass(_ context.Context, v *variant.Candidate, _ *evaluation) (bool, error) {
	for _, l := range f.limits {
		if f.lookup.Carriers(l.src, v, l.limit.MinOverlap) > l.limit.MaxCarriers {
			return false, nil
		}
	}
	return true, nil
}

type consequenceFilter struct {
	allowed map[variant.Consequence]struct{}
}

func (consequenceFilter) name() string { return "consequence" }

func (f consequenceFilter) pass(_ context.Context, v *variant.Candidate, _ *evaluation) (bool, error) {
	if len(f.allowed) == 0 || genome.IsMitochondrial(v.Chrom) {
		return true, nil
	}
	for _, c := range v.Consequences {
		if _, ok := f.allowed[c]; ok {
			return true, nil
		}
	}
	return false, nil
}

type sampleQuality struct {
	sample string
	th     query.QualityThresholds
}

type qualityFilter struct {
	samples []sampleQuality
}

func newQualityFilter(q map[string]query.QualityThresholds) qualityFilter {
	var f qualityFilter
	for sample, th := range q {
		f.samples = append(f.samples, sampleQuality{sample: sample, th: th})
	}
	sort.Slice(f.samples, func(i, j int) bool { return f.samples[i].sample < f.samples[j].sample })
	return f
}

func (qualityFilter) name() string { return "quality" }

// pass applies the thresholds of every configured sample. Samples without a
// call, or with a no-call genotype, are recorded as no-calls.
func (f qualityFilter) pass(_ context.Context, v *variant.Candidate, e *evaluation) (bool, error) {
	for _, s := range f.samples {
		call, ok := v.Calls[s.sample]
		if !ok || call.Zygosity() == variant.NoCall {
			e.markNoCall(s.sample)
			continue
		}
		if meetsThresholds(call, s.th) {
			continue
		}
		switch s.th.OnFail {
		case query.FailDrop:
			return false, nil
		case query.FailNoCall:
			e.markNoCall(s.sample)
		case query.FailIgnore:
		}
	}
	return true, nil
}

// meetsThresholds checks one call. Values absent from the call are not
// checked.
func meetsThresholds(c variant.Call, th query.QualityThresholds) bool {
	z := c.Zygosity()
	if c.Depth != nil {
		switch {
		case z == variant.Heterozygous && *c.Depth < th.MinDpHet:
			return false
		case z != variant.Heterozygous && *c.Depth < th.MinDpHom:
			return false
		}
	}
	if c.Quality != nil && *c.Quality < th.MinGq {
		return false
	}
	if z == variant.Heterozygous && th.MinAb > 0 {
		if ab, ok := c.AlleleBalance(); ok && (ab < th.MinAb || ab > 1-th.MinAb) {
			return false
		}
	}
	if c.AltDepth != nil {
		if z.IsVariant() && *c.AltDepth < th.MinAd {
			return false
		}
		if th.MaxAd != nil && *c.AltDepth > *th.MaxAd {
			return false
		}
	}
	return true
}

type sampleGenotype struct {
	sample string
	choice query.GenotypeChoice
}

type genotypeFilter struct {
	samples []sampleGenotype
}

func newGenotypeFilter(g map[string]query.GenotypeChoice) genotypeFilter {
	var f genotypeFilter
	for sample, choice := range g {
		if choice == query.GenotypeAny {
			continue
		}
		f.samples = append(f.samples, sampleGenotype{sample: sample, choice: choice})
	}
	sort.Slice(f.samples, func(i, j int) bool { return f.samples[i].sample < f.samples[j].sample })
	return f
}

func (genotypeFilter) name() string { return "genotype" }

// pass requires every constrained sample to match. A sample the quality
// filter marked as no-call cannot match.
func (f genotypeFilter) pass(_ context.Context, v *variant.Candidate, e *evaluation) (bool, error) {
	for _, s := range f.samples {
		if e.isNoCall(s.sample) {
			return false, nil
		}
		call, ok := v.Calls[s.sample]
		if !ok || !s.choice.Matches(call.Zygosity()) {
			return false, nil
		}
	}
	return true, nil
}

type geneFilter struct {
	allowed map[string]struct{}
}

func (geneFilter) name() string { return "genes" }

func (f geneFilter) pass(_ context.Context, v *variant.Candidate, _ *evaluation) (bool, error) {
	if len(f.allowed) == 0 {
		return true, nil
	}
	for _, g := range v.Genes {
		if _, ok := f.allowed[strings.ToUpper(strings.TrimSpace(g))]; ok {
			return true, nil
		}
	}
	return false, nil
}

type regionFilter struct {
	regions []query.Region
}

func (regionFilter) name() string { return "regions" }

// pass matches the span of v against the allowlist. A breakend is matched
// by its first breakpoint only; the mate is not consulted.
func (f regionFilter) pass(_ context.Context, v *variant.Candidate, _ *evaluation) (bool, error) {
	if len(f.regions) == 0 {
		return true, nil
	}
	for _, r := range f.regions {
		if r.Contains(v.Chrom, v.Pos, v.Stop()) {
			return true, nil
		}
	}
	return false, nil
}

type clinvarFilter struct {
	cfg    query.ClinVarFilter
	lookup ClinVarLookup
}

func (clinvarFilter) name() string { return "clinvar" }

// pass looks up the ClinVar assertions of v. A variant without assertions
// passes. Otherwise it passes when any asserted significance is included.
//
// TODO: report "not in ClinVar" as a third outcome once the annotator can
// tell a missing record from an unavailable one.
func (f clinvarFilter) pass(ctx context.Context, v *variant.Candidate, _ *evaluation) (bool, error) {
	if !f.cfg.RequireInClinvar {
		return true, nil
	}
	sigs, err := f.lookup.ClinVar(ctx, v)
	if err != nil {
		return false, err
	}
	if len(sigs) == 0 {
		return true, nil
	}
	for _, s := range sigs {
		if f.cfg.Includes(s) {
			return true, nil
		}
	}
	return false, nil
}
