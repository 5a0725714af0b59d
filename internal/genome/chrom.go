// Package genome holds the chromosome catalog every database and query is
// bucketed by, and the supported genome releases.
package genome

import (
	"fmt"
	"strings"
)

// canonicalNames is the fixed contig order of the default catalog.
var canonicalNames = [...]string{
	"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12",
	"13", "14", "15", "16", "17", "18", "19", "20", "21", "22",
	"X", "Y", "MT",
}

// Catalog is an ordered, immutable set of canonical contig names. Every other
// component refers to a chromosome by its dense index into a Catalog.
type Catalog struct {
	names []string
	index map[string]int
}

// DefaultCatalog holds 1..22, X, Y and MT.
var DefaultCatalog = NewCatalog()

// NewCatalog returns the default contigs followed by the given extra contigs.
// Extra names are canonicalized; names already present are ignored.
func NewCatalog(extra ...string) *Catalog {
	c := &Catalog{
		names: make([]string, 0, len(canonicalNames)+len(extra)),
		index: make(map[string]int, len(canonicalNames)+len(extra)),
	}
	for _, name := range canonicalNames {
		c.add(name)
	}
	for _, name := range extra {
		if name = Canonicalize(name); name != "" {
			c.add(name)
		}
	}
	return c
}

func (c *Catalog) add(name string) {
	if _, ok := c.index[name]; ok {
		return
	}
	c.index[name] = len(c.names)
	c.names = append(c.names, name)
}

// Len returns the number of contigs.
func (c *Catalog) Len() int { return len(c.names) }

// Valid reports whether i is an index into the catalog.
func (c *Catalog) Valid(i int) bool { return i >= 0 && i < len(c.names) }

// Name returns the canonical name at index i, or "" if i is out of range.
func (c *Catalog) Name(i int) string {
	if !c.Valid(i) {
		return ""
	}
	return c.names[i]
}

// Names returns a copy of the contig names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Index canonicalizes name and returns its catalog index.
func (c *Catalog) Index(name string) (int, bool) {
	i, ok := c.index[Canonicalize(name)]
	return i, ok
}

// MustIndex is Index for names known at compile time.
func (c *Catalog) MustIndex(name string) int {
	i, ok := c.Index(name)
	if !ok {
		panic(fmt.Sprintf("genome: unknown chromosome %q", name))
	}
	return i
}

// Canonicalize strips a case-insensitive "chr" prefix, upper-cases the
// remainder and maps the mitochondrial aliases to "MT".
func Canonicalize(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= 3 && strings.EqualFold(name[:3], "chr") {
		name = name[3:]
	}
	name = strings.ToUpper(name)
	if name == "M" {
		return "MT"
	}
	return name
}

// SameChrom reports whether a and b name the same contig.
func SameChrom(a, b string) bool {
	return Canonicalize(a) == Canonicalize(b)
}

// IsMitochondrial reports whether name is the mitochondrial contig.
func IsMitochondrial(name string) bool {
	return Canonicalize(name) == "MT"
}
