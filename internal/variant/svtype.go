package variant

import (
	"fmt"
	"strings"
)

// SvType is the structural variant type. The zero value marks a sequence
// variant.
type SvType uint8

const (
	SvNone SvType = iota
	SvDel
	SvDup
	SvIns
	SvInv
	SvBnd
	SvCnv
)

var svTypeLabels = [...]string{
	SvNone: "",
	SvDel:  "DEL",
	SvDup:  "DUP",
	SvIns:  "INS",
	SvInv:  "INV",
	SvBnd:  "BND",
	SvCnv:  "CNV",
}

func (t SvType) String() string {
	if int(t) < len(svTypeLabels) {
		return svTypeLabels[t]
	}
	return fmt.Sprintf("SvType(%d)", uint8(t))
}

// Valid reports whether t is one of the known constants.
func (t SvType) Valid() bool { return int(t) < len(svTypeLabels) }

// ParseSvType accepts VCF symbolic alleles ("<DEL>", "<DUP:TANDEM>") and plain
// labels, case-insensitively. The empty string parses to SvNone.
func ParseSvType(text string) (SvType, error) {
	label := strings.ToUpper(strings.Trim(strings.TrimSpace(text), "<>"))
	if i := strings.IndexByte(label, ':'); i >= 0 {
		label = label[:i]
	}
	switch label {
	case "":
		return SvNone, nil
	case "DEL":
		return SvDel, nil
	case "DUP":
		return SvDup, nil
	case "INS":
		return SvIns, nil
	case "INV":
		return SvInv, nil
	case "BND", "TRA":
		return SvBnd, nil
	case "CNV":
		return SvCnv, nil
	default:
		return SvNone, fmt.Errorf("unable to parse sv type %q", text)
	}
}

func (t SvType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *SvType) UnmarshalText(b []byte) error {
	v, err := ParseSvType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// HasSpan reports whether variants of this type cover an interior interval.
// Insertions and breakends only mark positions.
func (t SvType) HasSpan() bool {
	return t != SvIns && t != SvBnd
}
