// Package variant defines the candidate variants evaluated by the filter
// pipeline together with the annotation vocabularies attached to them.
package variant

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
)

// Candidate is one structural or sequence variant. Positions are 1-based and
// inclusive. A Candidate must not be modified while it is being evaluated.
type Candidate struct {
	ID     string `json:"id,omitempty"`
	Chrom  string `json:"chrom"`
	Pos    int    `json:"pos"`
	End    int    `json:"end,omitempty"`
	SvType SvType `json:"svType,omitempty"`
	// Chrom2 is the mate contig of a breakend; empty means Chrom.
	Chrom2 string `json:"chrom2,omitempty"`

	Ref string `json:"ref,omitempty"`
	Alt string `json:"alt,omitempty"`

	Calls        map[string]Call `json:"calls,omitempty"`
	Consequences []Consequence   `json:"consequences,omitempty"`
	// Genes holds HGNC identifiers such as "HGNC:1100".
	Genes []string `json:"genes,omitempty"`
}

// IsStructural reports whether the candidate has the structural shape.
func (c *Candidate) IsStructural() bool { return c.SvType != SvNone }

// Stop returns the 1-based inclusive end position. For sequence variants
// without an explicit end it is derived from the reference allele. A
// breakend covers only its first breakpoint.
func (c *Candidate) Stop() int {
	if c.SvType == SvBnd {
		return c.Pos
	}
	if c.End > 0 {
		return c.End
	}
	if !c.IsStructural() && len(c.Ref) > 1 {
		return c.Pos + len(c.Ref) - 1
	}
	return c.Pos
}

// Span returns the 0-based half-open interval covered by the candidate.
func (c *Candidate) Span() (begin, end int) {
	return c.Pos - 1, c.Stop()
}

// MatePos returns the position of the second breakpoint of a breakend, which
// is carried in End.
func (c *Candidate) MatePos() int {
	if c.End > 0 {
		return c.End
	}
	return c.Pos
}

// MateChrom returns the contig of the second breakpoint.
func (c *Candidate) MateChrom() string {
	if c.Chrom2 == "" {
		return c.Chrom
	}
	return c.Chrom2
}

// Validate checks the fields every filter relies on.
func (c *Candidate) Validate() error {
	if strings.TrimSpace(c.Chrom) == "" {
		return fmt.Errorf("variant %s: chromosome is required", c.ID)
	}
	if c.Pos < 1 {
		return fmt.Errorf("variant %s: position must be 1-based, got %d", c.ID, c.Pos)
	}
	if !c.SvType.Valid() {
		return fmt.Errorf("variant %s: invalid sv type %d", c.ID, c.SvType)
	}
	if c.End > 0 && c.End < c.Pos && c.SvType != SvBnd {
		return fmt.Errorf("variant %s: end %d before pos %d", c.ID, c.End, c.Pos)
	}
	return nil
}

// Key is a stable textual identity used for caching and logging.
func (c *Candidate) Key() string {
	if c.SvType == SvBnd {
		return fmt.Sprintf("%s:%d-%s:%d:%s", genome.Canonicalize(c.Chrom), c.Pos,
			genome.Canonicalize(c.MateChrom()), c.MatePos(), c.SvType)
	}
	if c.IsStructural() {
		return fmt.Sprintf("%s:%d-%d:%s", genome.Canonicalize(c.Chrom), c.Pos, c.Stop(), c.SvType)
	}
	return fmt.Sprintf("%s:%d:%s:%s", genome.Canonicalize(c.Chrom), c.Pos, c.Ref, c.Alt)
}
