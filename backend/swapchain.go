// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"fmt"
	"image"

	"github.com/gogpu/compositor/render"
)

// Buffer is one backbuffer of a swapchain.
type Buffer struct {
	index  int
	target render.RenderTarget
	age    int
}

// Target returns the render target of the buffer.
func (b *Buffer) Target() render.RenderTarget { return b.target }

// Age returns the number of presentations since the buffer was last
// presented, or 0 if its contents are undefined.
func (b *Buffer) Age() int { return b.age }

// Index returns the position of the buffer in its swapchain.
func (b *Buffer) Index() int { return b.index }

// Swapchain rotates a fixed number of backbuffers and tracks their age.
//
// Buffers are allocated lazily on first use. Acquire returns the buffer
// after the last presented one; a buffer whose frame failed keeps its
// slot and comes back with age 0.
type Swapchain struct {
	alloc   render.TargetAllocator
	size    image.Point
	buffers []*Buffer
	next    int
}

// NewSwapchain creates a swapchain of n buffers of the given size.
func NewSwapchain(n int, size image.Point, alloc render.TargetAllocator) *Swapchain {
	s := &Swapchain{alloc: alloc, size: size, buffers: make([]*Buffer, max(n, 1))}
	for i := range s.buffers {
		s.buffers[i] = &Buffer{index: i}
	}
	return s
}

// Len returns the number of buffers.
func (s *Swapchain) Len() int { return len(s.buffers) }

// Size returns the buffer size.
func (s *Swapchain) Size() image.Point { return s.size }

// Acquire returns the next buffer, allocating it if needed.
func (s *Swapchain) Acquire() (*Buffer, error) {
	b := s.buffers[s.next]
	if b.target == nil {
		t, err := s.alloc(s.size.X, s.size.Y)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoBackbuffer, err)
		}
		if t == nil {
			return nil, ErrNoBackbuffer
		}
		b.target = t
		b.age = 0
	}
	return b, nil
}

// Presented records that b was shown. Its age becomes 1 and every other
// buffer with defined contents gets one older.
func (s *Swapchain) Presented(b *Buffer) {
	for _, o := range s.buffers {
		if o != b && o.age > 0 {
			o.age++
		}
	}
	b.age = 1
	s.next = (b.index + 1) % len(s.buffers)
}

// Invalidate marks the contents of b undefined.
func (s *Swapchain) Invalidate(b *Buffer) { b.age = 0 }

// Resize drops every buffer; they are reallocated at the new size.
func (s *Swapchain) Resize(size image.Point) {
	if size == s.size {
		return
	}
	s.Release()
	s.size = size
}

// Release destroys the buffers.
func (s *Swapchain) Release() {
	for _, b := range s.buffers {
		if d, ok := b.target.(interface{ Destroy() }); ok {
			d.Destroy()
		}
		b.target = nil
		b.age = 0
	}
	s.next = 0
}
