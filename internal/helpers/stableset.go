// Package helpers provides small generic containers used across the
// plan layer: an insertion-ordered set and a one-shot initialization
// cell.
package helpers

import "fmt"

// StableSet is a set that remembers insertion order, so iteration is
// deterministic across runs regardless of map randomization.
type StableSet[T comparable] struct {
	order []T
	seen  map[T]struct{}
}

// NewStableSet creates a set containing the given items, deduplicated in
// insertion order.
func NewStableSet[T comparable](items ...T) *StableSet[T] {
	s := &StableSet[T]{seen: make(map[T]struct{}, len(items))}
	s.Add(items...)
	return s
}

// Add inserts items not already present.
func (s *StableSet[T]) Add(items ...T) {
	for _, item := range items {
		if _, ok := s.seen[item]; ok {
			continue
		}
		s.seen[item] = struct{}{}
		s.order = append(s.order, item)
	}
}

// Contains reports membership.
func (s *StableSet[T]) Contains(item T) bool {
	_, ok := s.seen[item]
	return ok
}

// Len returns the number of elements.
func (s *StableSet[T]) Len() int { return len(s.order) }

// Items returns the elements in insertion order. The returned slice is a
// copy.
func (s *StableSet[T]) Items() []T {
	return append([]T(nil), s.order...)
}

// Union returns a new set with the elements of s followed by the
// elements of others, preserving first-insertion order.
func (s *StableSet[T]) Union(others ...*StableSet[T]) *StableSet[T] {
	out := NewStableSet(s.order...)
	for _, other := range others {
		out.Add(other.order...)
	}
	return out
}

// SetOnce is a cell that can be assigned exactly once. A second
// assignment is an error, never a silent overwrite.
type SetOnce[T any] struct {
	value T
	set   bool
}

// Set stores the value. It fails if a value is already present.
func (c *SetOnce[T]) Set(value T) error {
	if c.set {
		return fmt.Errorf("value already set")
	}
	c.value = value
	c.set = true
	return nil
}

// Get returns the stored value and whether one was set.
func (c *SetOnce[T]) Get() (T, bool) {
	return c.value, c.set
}
