// Package state holds the local, observable copy of the signed-in user's
// data. Reads are safe from any goroutine; writes are expected from a single
// owner goroutine.
package state

import (
	"sync"

	"costtracker/internal/remote"
)

// Record is a locally held document.
type Record interface {
	Key() string
}

// Slice is one independently addressable collection. Every applied
// transition bumps Seq. Rev is the remote revision the contents reflect.
type Slice[T Record] struct {
	mu    sync.RWMutex
	name  string
	items []T
	seq   uint64
	rev   remote.Revision

	changed func(name string)
}

func NewSlice[T Record](name string) *Slice[T] {
	return &Slice[T]{name: name}
}

func (s *Slice[T]) Name() string { return s.name }

// All returns a copy in arrival order.
func (s *Slice[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.items...)
}

func (s *Slice[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Slice[T]) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

func (s *Slice[T]) Revision() remote.Revision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

func (s *Slice[T]) SetAll(list []T) {
	s.apply(func([]T) []T { return append([]T(nil), list...) })
}

func (s *Slice[T]) Append(rec T) {
	s.apply(Upsert(rec))
}

// UpdateByID replaces the record with id. Absent ids are ignored.
func (s *Slice[T]) UpdateByID(id string, rec T) {
	s.apply(Replace(id, rec))
}

// RemoveByID drops the record with id. Absent ids are ignored.
func (s *Slice[T]) RemoveByID(id string) {
	s.apply(Remove[T](id))
}

// ApplySnapshot replaces the contents unless rev is older than the
// revision already applied. It reports whether the snapshot was applied.
func (s *Slice[T]) ApplySnapshot(list []T, rev remote.Revision) bool {
	s.mu.Lock()
	if rev < s.rev {
		s.mu.Unlock()
		return false
	}
	s.items = append([]T(nil), list...)
	s.rev = rev
	s.seq++
	s.mu.Unlock()
	s.notify()
	return true
}

// ApplyWrite runs fn for a write confirmed at rev. A write at or below the
// applied revision is already reflected in a snapshot and is skipped.
func (s *Slice[T]) ApplyWrite(rev remote.Revision, fn func([]T) []T) bool {
	s.mu.Lock()
	if rev <= s.rev {
		s.mu.Unlock()
		return false
	}
	s.items = fn(s.items)
	s.rev = rev
	s.seq++
	s.mu.Unlock()
	s.notify()
	return true
}

// reset empties the slice and forgets its revision.
func (s *Slice[T]) reset() {
	s.mu.Lock()
	s.items = nil
	s.rev = 0
	s.seq++
	s.mu.Unlock()
	s.notify()
}

func (s *Slice[T]) apply(fn func([]T) []T) {
	s.mu.Lock()
	s.items = fn(s.items)
	s.seq++
	s.mu.Unlock()
	s.notify()
}

func (s *Slice[T]) notify() {
	if s.changed != nil {
		s.changed(s.name)
	}
}

// Upsert appends rec, or replaces the record with the same key.
func Upsert[T Record](rec T) func([]T) []T {
	return func(items []T) []T {
		for i := range items {
			if items[i].Key() == rec.Key() {
				out := append([]T(nil), items...)
				out[i] = rec
				return out
			}
		}
		return append(append([]T(nil), items...), rec)
	}
}

func Replace[T Record](id string, rec T) func([]T) []T {
	return func(items []T) []T {
		out := append([]T(nil), items...)
		for i := range out {
			if out[i].Key() == id {
				out[i] = rec
			}
		}
		return out
	}
}

func Remove[T Record](id string) func([]T) []T {
	return func(items []T) []T {
		out := make([]T, 0, len(items))
		for _, it := range items {
			if it.Key() != id {
				out = append(out, it)
			}
		}
		return out
	}
}
