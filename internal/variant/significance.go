package variant

import (
	"fmt"
	"strings"
)

// Significance is a ClinVar clinical significance category.
type Significance uint8

const (
	Uncertain Significance = iota
	Benign
	LikelyBenign
	LikelyPathogenic
	Pathogenic
)

func (s Significance) String() string {
	switch s {
	case Benign:
		return "benign"
	case LikelyBenign:
		return "likely_benign"
	case LikelyPathogenic:
		return "likely_pathogenic"
	case Pathogenic:
		return "pathogenic"
	default:
		return "uncertain"
	}
}

// ParseSignificance maps ClinVar labels such as "Likely pathogenic" or
// "Benign/Likely benign" to a category. Anything unrecognised is Uncertain.
func ParseSignificance(label string) Significance {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.NewReplacer("_", " ", "-", " ").Replace(l)
	switch {
	case l == "pathogenic", l == "pathogenic/likely pathogenic":
		return Pathogenic
	case l == "likely pathogenic":
		return LikelyPathogenic
	case l == "benign", l == "benign/likely benign":
		return Benign
	case l == "likely benign":
		return LikelyBenign
	default:
		return Uncertain
	}
}

// SignificanceFromCode converts the on-disk byte representation.
func SignificanceFromCode(code uint8) (Significance, error) {
	if code > uint8(Pathogenic) {
		return Uncertain, fmt.Errorf("invalid significance code %d", code)
	}
	return Significance(code), nil
}

func (s Significance) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Significance) UnmarshalText(b []byte) error {
	*s = ParseSignificance(string(b))
	return nil
}
