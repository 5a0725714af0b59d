// Package query parses and validates query specifications: which filters of
// the variant pipeline are active and their thresholds.
package query

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/background"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
)

// Spec is a validated query specification. It is immutable once returned by
// Parse and may be shared between goroutines.
type Spec struct {
	Frequency    map[background.Source]FrequencyLimit
	Consequences map[variant.Consequence]struct{}
	Quality      map[string]QualityThresholds
	Genotype     map[string]GenotypeChoice
	Genes        map[string]struct{}
	Regions      []Region
	ClinVar      ClinVarFilter
}

// FrequencyLimit caps the carrier count of one background source. Only
// background records with reciprocal overlap of at least MinOverlap count.
type FrequencyLimit struct {
	Enabled     bool
	MinOverlap  float64
	MaxCarriers uint64
}

// FrequencyEnabled reports whether any background source is checked.
func (s *Spec) FrequencyEnabled() bool {
	for _, l := range s.Frequency {
		if l.Enabled {
			return true
		}
	}
	return false
}

// FailAction says what happens when a sample misses a quality threshold.
type FailAction int

const (
	// FailDrop rejects the variant.
	FailDrop FailAction = iota
	// FailIgnore keeps the variant as if the threshold passed.
	FailIgnore
	// FailNoCall keeps the variant and treats the sample as not called.
	FailNoCall
)

func (a FailAction) String() string {
	switch a {
	case FailIgnore:
		return "ignore"
	case FailNoCall:
		return "nocall"
	default:
		return "drop"
	}
}

func ParseFailAction(label string) (FailAction, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "drop":
		return FailDrop, nil
	case "ignore":
		return FailIgnore, nil
	case "nocall", "no-call", "no_call":
		return FailNoCall, nil
	default:
		return 0, fmt.Errorf("unknown quality fail action %q", label)
	}
}

// QualityThresholds are the per-sample call quality limits. Zero minimums
// and a nil MaxAd disable the respective check.
type QualityThresholds struct {
	MinDpHet int
	MinDpHom int
	MinGq    float64
	MinAb    float64
	MinAd    int
	MaxAd    *int
	OnFail   FailAction
}

// GenotypeChoice constrains the genotype of one sample.
type GenotypeChoice int

const (
	GenotypeAny GenotypeChoice = iota
	GenotypeRef
	GenotypeHet
	GenotypeHom
	GenotypeNonHom
	GenotypeVariant
	GenotypeNonVariant
	GenotypeNonReference
)

var genotypeLabels = [...]string{
	GenotypeAny:          "any",
	GenotypeRef:          "ref",
	GenotypeHet:          "het",
	GenotypeHom:          "hom",
	GenotypeNonHom:       "non-hom",
	GenotypeVariant:      "variant",
	GenotypeNonVariant:   "non-variant",
	GenotypeNonReference: "non-reference",
}

func (g GenotypeChoice) String() string {
	if int(g) < len(genotypeLabels) && g >= 0 {
		return genotypeLabels[g]
	}
	return fmt.Sprintf("genotype(%d)", int(g))
}

func ParseGenotypeChoice(label string) (GenotypeChoice, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.ReplaceAll(l, "_", "-")
	for i, v := range genotypeLabels {
		if v == l {
			return GenotypeChoice(i), nil
		}
	}
	return 0, fmt.Errorf("unknown genotype choice %q", label)
}

// Matches reports whether a call of zygosity z satisfies the choice. A
// no-call only satisfies GenotypeAny.
func (g GenotypeChoice) Matches(z variant.Zygosity) bool {
	if g == GenotypeAny {
		return true
	}
	if z == variant.NoCall {
		return false
	}
	switch g {
	case GenotypeRef:
		return z.IsRef()
	case GenotypeHet:
		return z == variant.Heterozygous
	case GenotypeHom:
		return z.IsHom()
	case GenotypeNonHom:
		return !z.IsHom()
	case GenotypeVariant:
		return z.IsVariant()
	case GenotypeNonVariant:
		return !z.IsVariant()
	case GenotypeNonReference:
		return !z.IsRef()
	default:
		return false
	}
}

// Region is an allowlisted chromosome, optionally restricted to the 1-based
// inclusive range [Start, End].
type Region struct {
	Chrom    string
	Start    int
	End      int
	HasRange bool
}

func (r Region) String() string {
	if !r.HasRange {
		return r.Chrom
	}
	return fmt.Sprintf("%s:%d-%d", r.Chrom, r.Start, r.End)
}

// Contains reports whether the 1-based inclusive locus [pos, end] on chrom
// intersects the region.
func (r Region) Contains(chrom string, pos, end int) bool {
	if genome.Canonicalize(chrom) != r.Chrom {
		return false
	}
	if !r.HasRange {
		return true
	}
	return pos <= r.End && end >= r.Start
}

// ClinVarFilter holds the ClinVar requirement and the per-significance
// inclusion toggles.
type ClinVarFilter struct {
	RequireInClinvar        bool
	IncludeBenign           bool
	IncludeLikelyBenign     bool
	IncludeUncertain        bool
	IncludeLikelyPathogenic bool
	IncludePathogenic       bool
}

// Includes returns the toggle matching s.
func (c ClinVarFilter) Includes(s variant.Significance) bool {
	switch s {
	case variant.Benign:
		return c.IncludeBenign
	case variant.LikelyBenign:
		return c.IncludeLikelyBenign
	case variant.LikelyPathogenic:
		return c.IncludeLikelyPathogenic
	case variant.Pathogenic:
		return c.IncludePathogenic
	default:
		return c.IncludeUncertain
	}
}
