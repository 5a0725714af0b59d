// Package overlap provides write-once interval indexes answering half-open
// overlap queries.
package overlap

import (
	"errors"
	"fmt"

	"github.com/biogo/store/interval"
)

var (
	// ErrFinalized is returned by Insert once the store is read-only.
	ErrFinalized = errors.New("store already finalized")
	// ErrInvertedRange is returned by Insert for begin > end.
	ErrInvertedRange = errors.New("interval begin after end")
)

type entry struct {
	begin, end int
	id         uintptr
}

func (e entry) Overlap(b interval.IntRange) bool { return e.begin < b.End && e.end > b.Start }
func (e entry) ID() uintptr { return e.id }
func (e entry) Range() interval.IntRange { return interval.IntRange{Start: e.begin, End: e.end} }

type span struct{ start, end int }

func (q span) Overlap(b interval.IntRange) bool { return b.Start < q.end && b.End > q.start }

// Store holds the records of one chromosome and an interval tree over them.
// Records are inserted during a build phase, then Finalize is called once.
// Queries before Finalize return nothing. After Finalize the store is
// read-only and safe for concurrent queries.
type Store[T any] struct {
	records   []T
	tree      interval.IntTree
	finalized bool
}

// Insert appends payload covering [begin, end). The record's data index is
// its insertion order.
func (s *Store[T]) Insert(begin, end int, payload T) error {
	if s.finalized {
		return ErrFinalized
	}
	if begin > end {
		return fmt.Errorf("%w: [%d, %d)", ErrInvertedRange, begin, end)
	}
	e := entry{begin: begin, end: end, id: uintptr(len(s.records))}
	if err := s.tree.Insert(e, true); err != nil {
		return fmt.Errorf("indexing [%d, %d): %w", begin, end, err)
	}
	s.records = append(s.records, payload)
	return nil
}

// Finalize builds the subtree ranges. Calling it again is a no-op.
func (s *Store[T]) Finalize() {
	if s.finalized {
		return
	}
	s.tree.AdjustRanges()
	s.finalized = true
}

// Finalized reports whether Finalize has run.
func (s *Store[T]) Finalized() bool { return s.finalized }

// Query returns the data indices of every record whose interval intersects
// [start, end). An empty or inverted range selects nothing, even inside a
// record.
func (s *Store[T]) Query(start, end int) []int {
	if !s.finalized || start >= end || s.tree.Len() == 0 {
		return nil
	}
	hits := s.tree.Get(span{start: start, end: end})
	if len(hits) == 0 {
		return nil
	}
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = int(h.ID())
	}
	return ids
}

// Find returns the payloads of every record intersecting [start, end).
func (s *Store[T]) Find(start, end int) []T {
	ids := s.Query(start, end)
	if len(ids) == 0 {
		return nil
	}
	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = s.records[id]
	}
	return out
}

// At returns the payload with data index i.
func (s *Store[T]) At(i int) T { return s.records[i] }

// Len is the number of inserted records.
func (s *Store[T]) Len() int { return len(s.records) }
