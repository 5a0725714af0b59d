package overlap

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
)

// Index holds one Store per chromosome of a catalog.
type Index[T any] struct {
	catalog *genome.Catalog
	stores  []Store[T]
}

// NewIndex returns an empty index with one store per chromosome of catalog.
func NewIndex[T any](catalog *genome.Catalog) *Index[T] {
	return &Index[T]{
		catalog: catalog,
		stores:  make([]Store[T], catalog.Len()),
	}
}

func (x *Index[T]) Catalog() *genome.Catalog { return x.catalog }

// Insert adds payload to chromosome chrom. An index outside the catalog is
// reported as ErrUnknownChromosome.
func (x *Index[T]) Insert(chrom, begin, end int, payload T) error {
	if !x.catalog.Valid(chrom) {
		return fmt.Errorf("%w: index %d", apperrors.ErrUnknownChromosome, chrom)
	}
	return x.stores[chrom].Insert(begin, end, payload)
}

// InsertNamed resolves name through the catalog first.
func (x *Index[T]) InsertNamed(name string, begin, end int, payload T) error {
	chrom, ok := x.catalog.Index(name)
	if !ok {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownChromosome, name)
	}
	return x.stores[chrom].Insert(begin, end, payload)
}

// Finalize finalizes every chromosome's store.
func (x *Index[T]) Finalize() {
	for i := range x.stores {
		x.stores[i].Finalize()
	}
}

// Find returns payloads on chrom overlapping [start, end). Unknown
// chromosomes have no records.
func (x *Index[T]) Find(chrom, start, end int) []T {
	if !x.catalog.Valid(chrom) {
		return nil
	}
	return x.stores[chrom].Find(start, end)
}

// FindNamed is Find with the chromosome resolved through the catalog.
func (x *Index[T]) FindNamed(name string, start, end int) []T {
	chrom, ok := x.catalog.Index(name)
	if !ok {
		return nil
	}
	return x.stores[chrom].Find(start, end)
}

// Store returns the store of chrom, or nil for an index outside the catalog.
func (x *Index[T]) Store(chrom int) *Store[T] {
	if !x.catalog.Valid(chrom) {
		return nil
	}
	return &x.stores[chrom]
}

// Len returns the number of records across all chromosomes.
func (x *Index[T]) Len() int {
	n := 0
	for i := range x.stores {
		n += x.stores[i].Len()
	}
	return n
}
