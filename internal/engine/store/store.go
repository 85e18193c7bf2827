// Package store provides append-only named collections addressed by typed
// handles. Records are never removed, so a handle stays valid for the life
// of its store.
package store

import (
	"errors"
	"fmt"
	"iter"
)

// Errors returned by Store.
var (
	ErrDuplicateName = errors.New("store: duplicate name")
	ErrNotFound      = errors.New("store: name not found")
)

// Handle addresses a record in a Store[T]. The zero Handle is invalid.
type Handle[T any] struct {
	slot int32
}

// Valid reports whether the handle was issued by a store.
func (h Handle[T]) Valid() bool { return h.slot > 0 }

// Index returns the insertion index of the record.
func (h Handle[T]) Index() int { return int(h.slot) - 1 }

// Store is an append-only collection of records keyed by name.
type Store[T any] struct {
	items  []*T
	names  []string
	byName map[string]Handle[T]
}

// New creates an empty store.
func New[T any]() *Store[T] {
	return &Store[T]{byName: make(map[string]Handle[T])}
}

// Add inserts a record under a unique name.
func (s *Store[T]) Add(name string, v *T) (Handle[T], error) {
	if _, ok := s.byName[name]; ok {
		return Handle[T]{}, fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}
	s.items = append(s.items, v)
	s.names = append(s.names, name)
	h := Handle[T]{slot: int32(len(s.items))}
	s.byName[name] = h
	return h, nil
}

// Get returns the record for h. It panics on a handle from another store
// with a larger index, like an out-of-range slice access.
func (s *Store[T]) Get(h Handle[T]) *T {
	return s.items[h.Index()]
}

// Lookup finds a record handle by name.
func (s *Store[T]) Lookup(name string) (Handle[T], error) {
	h, ok := s.byName[name]
	if !ok {
		return Handle[T]{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return h, nil
}

// Name returns the name h was registered under.
func (s *Store[T]) Name(h Handle[T]) string {
	return s.names[h.Index()]
}

// Len returns the number of records.
func (s *Store[T]) Len() int { return len(s.items) }

// All iterates records in insertion order.
func (s *Store[T]) All() iter.Seq2[Handle[T], *T] {
	return func(yield func(Handle[T], *T) bool) {
		for i, v := range s.items {
			if !yield(Handle[T]{slot: int32(i + 1)}, v) {
				return
			}
		}
	}
}
