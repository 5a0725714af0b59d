package variant

import (
	"strconv"
	"strings"
)

// Call is the per-sample genotype call of a candidate.
type Call struct {
	Genotype string   `json:"gt"`
	Depth    *int     `json:"dp,omitempty"`
	Quality  *float64 `json:"gq,omitempty"`
	AltDepth *int     `json:"ad,omitempty"`
}

// Zygosity classifies a genotype call.
type Zygosity int

const (
	NoCall Zygosity = iota
	// Diploid or higher
	HomozygousReference
	Heterozygous
	HomozygousAlternate
	// Haploid
	Reference
	Alternate
)

func (z Zygosity) String() string {
	switch z {
	case HomozygousReference:
		return "HOMOZYGOUS_REFERENCE"
	case Heterozygous:
		return "HETEROZYGOUS"
	case HomozygousAlternate:
		return "HOMOZYGOUS_ALTERNATE"
	case Reference:
		return "REFERENCE"
	case Alternate:
		return "ALTERNATE"
	default:
		return "NO_CALL"
	}
}

// IsVariant reports whether the call carries at least one alternate allele.
func (z Zygosity) IsVariant() bool {
	return z == Heterozygous || z == HomozygousAlternate || z == Alternate
}

// IsHom reports whether all called alleles are alternate.
func (z Zygosity) IsHom() bool {
	return z == HomozygousAlternate || z == Alternate
}

// IsRef reports whether all called alleles are reference.
func (z Zygosity) IsRef() bool {
	return z == HomozygousReference || z == Reference
}

// Zygosity parses the VCF GT value. Any missing allele makes the call a
// no-call.
func (c Call) Zygosity() Zygosity {
	gt := strings.TrimSpace(c.Genotype)
	if gt == "" {
		return NoCall
	}
	alleles := strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' })
	if len(alleles) == 0 {
		return NoCall
	}
	nums := make([]int, 0, len(alleles))
	for _, a := range alleles {
		n, err := strconv.Atoi(a)
		if err != nil {
			return NoCall
		}
		nums = append(nums, n)
	}
	if len(nums) == 1 {
		if nums[0] == 0 {
			return Reference
		}
		return Alternate
	}
	refs := 0
	for _, n := range nums {
		if n == 0 {
			refs++
		}
	}
	switch {
	case refs == len(nums):
		return HomozygousReference
	case refs > 0:
		return Heterozygous
	}
	for _, n := range nums[1:] {
		if n != nums[0] {
			return Heterozygous
		}
	}
	return HomozygousAlternate
}

// AlleleBalance returns the alternate allele fraction and whether it could
// be computed.
func (c Call) AlleleBalance() (float64, bool) {
	if c.Depth == nil || c.AltDepth == nil || *c.Depth <= 0 {
		return 0, false
	}
	return float64(*c.AltDepth) / float64(*c.Depth), true
}
