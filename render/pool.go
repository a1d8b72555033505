// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"fmt"
	"image"
	"sync"
)

// DefaultPoolSize is the number of idle offscreen targets a TargetPool keeps.
const DefaultPoolSize = 8

// TargetAllocator creates an offscreen target of the given size.
type TargetAllocator func(width, height int) (RenderTarget, error)

// poolNode is a node in the doubly-linked list of idle targets.
// The head is the most recently returned target, the tail the oldest.
type poolNode struct {
	target RenderTarget
	size   image.Point
	prev   *poolNode
	next   *poolNode
}

// TargetPool recycles offscreen render targets for effects that redirect
// drawing (thumbnails, desktop previews).
//
// Targets borrowed with Get must be returned with Put once the paint call
// that used them is over. Idle targets beyond the pool size are destroyed
// least recently used first.
//
// TargetPool is safe for concurrent use.
type TargetPool struct {
	mu      sync.Mutex
	alloc   TargetAllocator
	maxIdle int

	head *poolNode
	tail *poolNode
	idle int

	allocated int
	reused    int
}

// NewTargetPool creates a pool. A nil alloc creates PixmapTargets.
func NewTargetPool(alloc TargetAllocator, maxIdle int) *TargetPool {
	if alloc == nil {
		alloc = func(w, h int) (RenderTarget, error) { return NewPixmapTarget(w, h), nil }
	}
	if maxIdle <= 0 {
		maxIdle = DefaultPoolSize
	}
	return &TargetPool{alloc: alloc, maxIdle: maxIdle}
}

// Get returns an idle target of exactly the given size, or allocates one.
func (p *TargetPool) Get(width, height int) (RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrTargetAllocation, width, height)
	}
	size := image.Pt(width, height)

	p.mu.Lock()
	for n := p.head; n != nil; n = n.next {
		if n.size == size {
			p.unlink(n)
			p.reused++
			p.mu.Unlock()
			return n.target, nil
		}
	}
	p.mu.Unlock()

	t, err := p.alloc(width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTargetAllocation, err)
	}
	p.mu.Lock()
	p.allocated++
	p.mu.Unlock()
	return t, nil
}

// Put returns a target to the pool.
func (p *TargetPool) Put(t RenderTarget) {
	if t == nil {
		return
	}
	n := &poolNode{target: t, size: image.Pt(t.Width(), t.Height())}

	p.mu.Lock()
	n.next = p.head
	if p.head != nil {
		p.head.prev = n
	}
	p.head = n
	if p.tail == nil {
		p.tail = n
	}
	p.idle++
	var evicted []RenderTarget
	for p.idle > p.maxIdle {
		old := p.tail
		p.unlink(old)
		evicted = append(evicted, old.target)
	}
	p.mu.Unlock()

	for _, e := range evicted {
		destroyTarget(e)
	}
}

// Idle returns the number of idle targets.
func (p *TargetPool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle
}

// Stats returns how many targets were allocated and how many Gets were
// served from the pool.
func (p *TargetPool) Stats() (allocated, reused int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated, p.reused
}

// Close destroys every idle target.
func (p *TargetPool) Close() {
	p.mu.Lock()
	var all []RenderTarget
	for n := p.head; n != nil; n = n.next {
		all = append(all, n.target)
	}
	p.head, p.tail, p.idle = nil, nil, 0
	p.mu.Unlock()

	for _, t := range all {
		destroyTarget(t)
	}
}

// unlink removes a node from the idle list. Caller holds p.mu.
func (p *TargetPool) unlink(n *poolNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		p.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		p.tail = n.prev
	}
	n.prev, n.next = nil, nil
	p.idle--
}

func destroyTarget(t RenderTarget) {
	if d, ok := t.(interface{ Destroy() }); ok {
		d.Destroy()
	}
}
