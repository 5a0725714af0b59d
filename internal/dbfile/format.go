// Package dbfile reads and writes the binary annotation database files.
//
// A file is a 64-byte header followed by a table of fixed-width records and
// a string table. All integers are little endian. Records of every family
// except xlink begin with a locus prefix of chromosome index, begin and end.
package dbfile

import "fmt"

const (
	// Magic identifies a database file ("SVDB").
	Magic         uint32 = 0x53564442
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
)

// Family names the record layout stored in a file.
type Family uint32

const (
	FamilyBackground Family = iota + 1
	FamilyPathogenic
	FamilyClinvarSV
	FamilyGeneRegion
	FamilyTAD
	FamilyXlink
)

// Locus prefix offsets.
const (
	OffChrom   = 0
	OffBegin   = 4
	OffEnd     = 8
	LocusBytes = 12
)

// Payload offsets per family.
const (
	OffBgCount = 12

	OffPathoSvType = 12
	OffPathoIDOff  = 16
	OffPathoIDLen  = 20

	OffClinvarVarType = 12
	OffClinvarPatho   = 13
	OffClinvarVCV     = 16

	OffGeneID = 12

	OffXlinkEntrez  = 0
	OffXlinkHgnc    = 4
	OffXlinkEnsembl = 8
	OffXlinkSymOff  = 12
	OffXlinkSymLen  = 16
)

func (f Family) String() string {
	switch f {
	case FamilyBackground:
		return "background"
	case FamilyPathogenic:
		return "pathogenic"
	case FamilyClinvarSV:
		return "clinvar-sv"
	case FamilyGeneRegion:
		return "gene-region"
	case FamilyTAD:
		return "tad"
	case FamilyXlink:
		return "xlink"
	default:
		return fmt.Sprintf("family(%d)", uint32(f))
	}
}

// RecordSize returns the width in bytes of one record, or 0 for an unknown
// family.
func (f Family) RecordSize() int {
	switch f {
	case FamilyBackground, FamilyGeneRegion:
		return 16
	case FamilyPathogenic:
		return 24
	case FamilyClinvarSV, FamilyXlink:
		return 20
	case FamilyTAD:
		return 12
	default:
		return 0
	}
}

// HasLocus reports whether records start with the locus prefix.
func (f Family) HasLocus() bool { return f != FamilyXlink }

// OneBasedBegin reports whether begins are stored 1-based on disk. Loaders
// subtract one for these families to obtain 0-based half-open intervals.
func (f Family) OneBasedBegin() bool {
	switch f {
	case FamilyBackground, FamilyPathogenic, FamilyClinvarSV:
		return true
	default:
		return false
	}
}

// Header is the decoded file header.
type Header struct {
	Magic         uint32
	Version       uint32
	Family        Family
	RecordSize    uint32
	RecordCount   uint64
	RecordsOffset uint64
	StringsOffset uint64
	StringsSize   uint64
	Checksum      uint32
}
