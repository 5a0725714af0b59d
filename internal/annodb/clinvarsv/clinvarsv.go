// Package clinvarsv indexes ClinVar structural variant assertions.
package clinvarsv

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/loader"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/overlap"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
)

// VariationType is the ClinVar variation type of a record.
type VariationType uint8

const (
	VariationUnknown VariationType = iota
	Deletion
	Duplication
	Insertion
	Inversion
	CopyNumberGain
	CopyNumberLoss
	Indel
	Translocation
	Complex
)

var variationLabels = [...]string{
	VariationUnknown: "unknown",
	Deletion:         "deletion",
	Duplication:      "duplication",
	Insertion:        "insertion",
	Inversion:        "inversion",
	CopyNumberGain:   "copy_number_gain",
	CopyNumberLoss:   "copy_number_loss",
	Indel:            "indel",
	Translocation:    "translocation",
	Complex:          "complex",
}

func (t VariationType) String() string {
	if int(t) < len(variationLabels) {
		return variationLabels[t]
	}
	return fmt.Sprintf("variation(%d)", uint8(t))
}

// ParseVariationType maps ClinVar labels ("copy number gain", "Deletion")
// to a type. Unrecognised labels are VariationUnknown.
func ParseVariationType(label string) VariationType {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.NewReplacer(" ", "_", "-", "_").Replace(l)
	for i, v := range variationLabels {
		if v == l {
			return VariationType(i)
		}
	}
	switch l {
	case "del":
		return Deletion
	case "dup", "tandem_duplication":
		return Duplication
	case "ins":
		return Insertion
	case "inv":
		return Inversion
	case "gain":
		return CopyNumberGain
	case "loss":
		return CopyNumberLoss
	}
	return VariationUnknown
}

// Record is one assertion. Begin is 0-based, End exclusive.
type Record struct {
	Begin         int
	End           int
	VariationType VariationType
	Pathogenicity variant.Significance
	VCV           uint32
}

// Accession formats the VCV identifier.
func (r Record) Accession() string { return fmt.Sprintf("VCV%09d", r.VCV) }

// Bundle is the ClinVar SV index. It keeps its file mapped until Close.
type Bundle struct {
	idx     *overlap.Index[Record]
	file    *dbfile.File
	metrics *metrics.Metrics
}

// Load indexes the binary ClinVar SV database at path.
func Load(path string, catalog *genome.Catalog, m *metrics.Metrics) (*Bundle, error) {
	idx := overlap.NewIndex[Record](catalog)
	f, err := loader.Open(path, dbfile.FamilyClinvarSV, idx, func(_ *dbfile.File, rec dbfile.Record, begin, end int) (Record, error) {
		vt := VariationType(rec.Uint8(dbfile.OffClinvarVarType))
		if int(vt) >= len(variationLabels) {
			vt = VariationUnknown
		}
		patho, err := variant.SignificanceFromCode(rec.Uint8(dbfile.OffClinvarPatho))
		if err != nil {
			return Record{}, err
		}
		return Record{
			Begin:         begin,
			End:           end,
			VariationType: vt,
			Pathogenicity: patho,
			VCV:           rec.Uint32(dbfile.OffClinvarVCV),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &Bundle{idx: idx, file: f, metrics: m}, nil
}

// Query returns the assertions overlapping v. Insertions and breakends never
// overlap anything.
func (b *Bundle) Query(v *variant.Candidate) []Record {
	start, end, ok := loader.SpanRange(v)
	if !ok {
		b.metrics.ObserveOverlap("clinvar_sv", 0, true)
		return nil
	}
	hits := b.idx.FindNamed(v.Chrom, start, end)
	b.metrics.ObserveOverlap("clinvar_sv", len(hits), false)
	return hits
}

// ClinVar returns the significance of every overlapping assertion. No
// overlap is not an error.
func (b *Bundle) ClinVar(_ context.Context, v *variant.Candidate) ([]variant.Significance, error) {
	hits := b.Query(v)
	if len(hits) == 0 {
		return nil, nil
	}
	out := make([]variant.Significance, len(hits))
	for i, h := range hits {
		out[i] = h.Pathogenicity
	}
	return out, nil
}

// Len is the number of indexed assertions.
func (b *Bundle) Len() int { return b.idx.Len() }

// Close unmaps the database file.
func (b *Bundle) Close() error {
	if b.file == nil {
		return nil
	}
	return b.file.Close()
}
