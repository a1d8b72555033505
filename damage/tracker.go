// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package damage accumulates per-output damage and keeps the buffer-age
// history used to repair recycled backbuffers.
package damage

import (
	"errors"
	"image"
	"sync"

	"github.com/gogpu/compositor/region"
)

// ErrUnknownOutput is returned when damage is reported for an output that
// is not tracked.
var ErrUnknownOutput = errors.New("damage: unknown output")

// OutputID identifies an output to the tracker.
type OutputID uint32

type pending struct {
	geometry image.Rectangle
	damage   region.Region
	serial   uint64
}

// Tracker accumulates pending damage per output.
//
// Producers (window damage, effects, hot-plug) may call AddDamage from any
// goroutine. The rendering goroutine calls SnapshotAndClear exactly once
// per frame attempt. Damage added between two snapshots is never lost.
type Tracker struct {
	mu      sync.Mutex
	outputs map[OutputID]*pending
	notify  chan struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		outputs: make(map[OutputID]*pending),
		notify:  make(chan struct{}, 1),
	}
}

// Track starts tracking an output. A newly tracked output is fully damaged.
func (t *Tracker) Track(id OutputID, geometry image.Rectangle) {
	t.mu.Lock()
	t.outputs[id] = &pending{geometry: geometry, damage: region.Rect(geometry), serial: 1}
	t.mu.Unlock()
	t.wake()
}

// Untrack stops tracking an output and drops its pending damage.
func (t *Tracker) Untrack(id OutputID) {
	t.mu.Lock()
	delete(t.outputs, id)
	t.mu.Unlock()
}

// SetGeometry updates an output's geometry and damages all of it.
func (t *Tracker) SetGeometry(id OutputID, geometry image.Rectangle) error {
	t.mu.Lock()
	p, ok := t.outputs[id]
	if ok {
		p.geometry = geometry
		p.damage = region.Rect(geometry)
		p.serial++
	}
	t.mu.Unlock()
	if !ok {
		return ErrUnknownOutput
	}
	t.wake()
	return nil
}

// Geometry returns the tracked geometry of an output.
func (t *Tracker) Geometry(id OutputID) (image.Rectangle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.outputs[id]
	if !ok {
		return image.Rectangle{}, false
	}
	return p.geometry, true
}

// AddDamage merges r, given in global coordinates, into the output's
// pending damage. Damage outside the output geometry is discarded.
func (t *Tracker) AddDamage(id OutputID, r region.Region) error {
	t.mu.Lock()
	p, ok := t.outputs[id]
	added := false
	if ok {
		clipped := r.IntersectRect(p.geometry)
		if !clipped.IsEmpty() {
			p.damage = p.damage.Union(clipped)
			p.serial++
			added = true
		}
	}
	t.mu.Unlock()
	if !ok {
		return ErrUnknownOutput
	}
	if added {
		t.wake()
	}
	return nil
}

// AddDamageAll merges r into every output it overlaps. It returns the
// outputs that received damage.
func (t *Tracker) AddDamageAll(r region.Region) []OutputID {
	var hit []OutputID
	t.mu.Lock()
	for id, p := range t.outputs {
		clipped := r.IntersectRect(p.geometry)
		if clipped.IsEmpty() {
			continue
		}
		p.damage = p.damage.Union(clipped)
		p.serial++
		hit = append(hit, id)
	}
	t.mu.Unlock()
	if len(hit) > 0 {
		t.wake()
	}
	return hit
}

// SnapshotAndClear atomically returns and clears an output's pending damage.
func (t *Tracker) SnapshotAndClear(id OutputID) region.Region {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.outputs[id]
	if !ok {
		return region.Region{}
	}
	d := p.damage
	p.damage = region.Region{}
	return d
}

// Restore merges damage from an abandoned or failed frame back into the
// pending damage without waking the scheduler. It is serviced together
// with the next real damage, which keeps a failing commit from spinning.
func (t *Tracker) Restore(id OutputID, r region.Region) {
	t.mu.Lock()
	if p, ok := t.outputs[id]; ok {
		p.damage = p.damage.Union(r.IntersectRect(p.geometry))
	}
	t.mu.Unlock()
}

// Pending reports whether an output has pending damage.
func (t *Tracker) Pending(id OutputID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.outputs[id]
	return ok && !p.damage.IsEmpty()
}

// Peek returns the pending damage of an output without clearing it.
func (t *Tracker) Peek(id OutputID) region.Region {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.outputs[id]; ok {
		return p.damage
	}
	return region.Region{}
}

// Serial returns a counter that increases whenever new damage is added to
// an output. Restore does not change it.
func (t *Tracker) Serial(id OutputID) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.outputs[id]; ok {
		return p.serial
	}
	return 0
}

// Notify returns a channel that receives a value whenever new damage
// arrives. Notifications coalesce.
func (t *Tracker) Notify() <-chan struct{} { return t.notify }

func (t *Tracker) wake() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}
