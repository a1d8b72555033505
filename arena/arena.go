// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package arena provides a generational slot arena.
//
// Render resources refer to windows through a Handle instead of a pointer.
// When a slot is freed its generation is bumped, so any Handle still held
// by a texture, grab slot or effect stops resolving instead of dangling.
package arena

import "fmt"

// Handle identifies a value stored in an Arena. The zero Handle never
// resolves.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h == Handle{} }

// String formats the handle as index#generation.
func (h Handle) String() string {
	return fmt.Sprintf("%d#%d", h.Index, h.Generation)
}

type slot[T any] struct {
	value      T
	generation uint32
	used       bool
}

// Arena stores values addressed by generational handles.
// An Arena is not safe for concurrent use.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// New creates an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Insert stores v and returns its handle. Freed slots are reused with a
// new generation.
func (a *Arena[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		//nolint:gosec // G115: slot count is bounded by live windows
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.generation++
	s.value = v
	s.used = true
	a.live++
	return Handle{Index: idx, Generation: s.generation}
}

// Get returns the value for h. The second result is false when h was
// removed or never issued by this arena.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	s := a.lookup(h)
	if s == nil {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Set replaces the value for h. It reports false when h is stale.
func (a *Arena[T]) Set(h Handle, v T) bool {
	s := a.lookup(h)
	if s == nil {
		return false
	}
	s.value = v
	return true
}

// Valid reports whether h still resolves.
func (a *Arena[T]) Valid(h Handle) bool { return a.lookup(h) != nil }

// Remove frees h. It reports false when h was already stale.
func (a *Arena[T]) Remove(h Handle) bool {
	s := a.lookup(h)
	if s == nil {
		return false
	}
	var zero T
	s.value = zero
	s.used = false
	a.free = append(a.free, h.Index)
	a.live--
	return true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int { return a.live }

// All iterates live values in slot order.
func (a *Arena[T]) All() func(yield func(Handle, T) bool) {
	return func(yield func(Handle, T) bool) {
		for i := range a.slots {
			s := &a.slots[i]
			if !s.used {
				continue
			}
			//nolint:gosec // G115: index fits, see Insert
			if !yield(Handle{Index: uint32(i), Generation: s.generation}, s.value) {
				return
			}
		}
	}
}

func (a *Arena[T]) lookup(h Handle) *slot[T] {
	if h.Generation == 0 || int(h.Index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.Index]
	if !s.used || s.generation != h.Generation {
		return nil
	}
	return s
}
