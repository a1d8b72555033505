// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package effect

import (
	"errors"
	"fmt"

	"github.com/gogpu/compositor/arena"
)

// Window data grab errors.
var (
	// ErrSlotClaimed is returned when another effect holds the slot.
	ErrSlotClaimed = errors.New("effect: window data slot claimed by another effect")

	// ErrNotClaimant is returned when releasing a slot the caller does not hold.
	ErrNotClaimant = errors.New("effect: window data slot not held by caller")
)

type grabKey struct {
	window arena.Handle
	role   Role
}

// WindowGrabs tracks which effect drives which attribute of which window.
// At most one effect holds a (window, role) slot.
//
// WindowGrabs is not safe for concurrent use; the Registry serializes
// access.
type WindowGrabs struct {
	slots map[grabKey]Effect
}

func newWindowGrabs() *WindowGrabs {
	return &WindowGrabs{slots: make(map[grabKey]Effect)}
}

// Claim gives the (w, role) slot to claimant. Claiming a slot the caller
// already holds is a no-op. A slot held by another effect is only taken
// over when force is set.
func (g *WindowGrabs) Claim(w arena.Handle, role Role, claimant Effect, force bool) error {
	key := grabKey{window: w, role: role}
	holder, held := g.slots[key]
	if held && holder == claimant {
		return nil
	}
	if held && !force {
		return fmt.Errorf("%w: %s/%s held by %s", ErrSlotClaimed, w, role, holder.Name())
	}
	g.slots[key] = claimant
	return nil
}

// Release frees the (w, role) slot held by claimant.
func (g *WindowGrabs) Release(w arena.Handle, role Role, claimant Effect) error {
	key := grabKey{window: w, role: role}
	if holder, ok := g.slots[key]; !ok || holder != claimant {
		return fmt.Errorf("%w: %s/%s", ErrNotClaimant, w, role)
	}
	delete(g.slots, key)
	return nil
}

// Claimant returns the effect holding the (w, role) slot.
func (g *WindowGrabs) Claimant(w arena.Handle, role Role) (Effect, bool) {
	e, ok := g.slots[grabKey{window: w, role: role}]
	return e, ok
}

// ForgetWindow drops every slot of a destroyed window.
func (g *WindowGrabs) ForgetWindow(w arena.Handle) {
	for key := range g.slots {
		if key.window == w {
			delete(g.slots, key)
		}
	}
}

// ForgetClaimant drops every slot held by an unloaded effect.
func (g *WindowGrabs) ForgetClaimant(e Effect) int {
	n := 0
	for key, holder := range g.slots {
		if holder == e {
			delete(g.slots, key)
			n++
		}
	}
	return n
}

// Len returns the number of held slots.
func (g *WindowGrabs) Len() int { return len(g.slots) }
