package variant

import (
	"fmt"
	"strings"
)

// Consequence is a transcript consequence term from the Sequence Ontology.
type Consequence string

const (
	TranscriptAblation      Consequence = "transcript_ablation"
	SpliceAcceptor          Consequence = "splice_acceptor_variant"
	SpliceDonor             Consequence = "splice_donor_variant"
	StopGained              Consequence = "stop_gained"
	FrameshiftVariant       Consequence = "frameshift_variant"
	StopLost                Consequence = "stop_lost"
	StartLost               Consequence = "start_lost"
	TranscriptAmplification Consequence = "transcript_amplification"
	InframeInsertion        Consequence = "inframe_insertion"
	InframeDeletion         Consequence = "inframe_deletion"
	MissenseVariant         Consequence = "missense_variant"
	SpliceRegion            Consequence = "splice_region_variant"
	SynonymousVariant       Consequence = "synonymous_variant"
	StopRetained            Consequence = "stop_retained_variant"
	FivePrimeUTR            Consequence = "5_prime_UTR_variant"
	ThreePrimeUTR           Consequence = "3_prime_UTR_variant"
	NonCodingExon           Consequence = "non_coding_transcript_exon_variant"
	IntronVariant           Consequence = "intron_variant"
	UpstreamGene            Consequence = "upstream_gene_variant"
	DownstreamGene          Consequence = "downstream_gene_variant"
	IntergenicVariant       Consequence = "intergenic_variant"
	FeatureTruncation       Consequence = "feature_truncation"
	FeatureElongation       Consequence = "feature_elongation"
)

var consequenceByLabel = func() map[string]Consequence {
	m := make(map[string]Consequence)
	for _, c := range []Consequence{
		TranscriptAblation, SpliceAcceptor, SpliceDonor, StopGained, FrameshiftVariant,
		StopLost, StartLost, TranscriptAmplification, InframeInsertion, InframeDeletion,
		MissenseVariant, SpliceRegion, SynonymousVariant, StopRetained, FivePrimeUTR,
		ThreePrimeUTR, NonCodingExon, IntronVariant, UpstreamGene, DownstreamGene,
		IntergenicVariant, FeatureTruncation, FeatureElongation,
	} {
		m[strings.ToLower(string(c))] = c
	}
	// short names used by query documents
	m["missense"] = MissenseVariant
	m["nonsense"] = StopGained
	m["synonymous"] = SynonymousVariant
	m["frameshift"] = FrameshiftVariant
	m["splice_acceptor"] = SpliceAcceptor
	m["splice_donor"] = SpliceDonor
	m["splice_region"] = SpliceRegion
	m["inframe_indel"] = InframeDeletion
	m["intronic"] = IntronVariant
	m["intergenic"] = IntergenicVariant
	m["upstream"] = UpstreamGene
	m["downstream"] = DownstreamGene
	m["5utr"] = FivePrimeUTR
	m["3utr"] = ThreePrimeUTR
	return m
}()

// ParseConsequence maps a Sequence Ontology term or one of its short names to
// a Consequence.
func ParseConsequence(label string) (Consequence, error) {
	c, ok := consequenceByLabel[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return "", fmt.Errorf("unknown consequence %q", label)
	}
	return c, nil
}

func (c *Consequence) UnmarshalText(b []byte) error {
	v, err := ParseConsequence(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
