// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"time"

	"github.com/gogpu/compositor/arena"
	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// host is the compositor as seen by effects.
type host struct {
	c *Compositor
}

func (h *host) Registry() *effect.Registry  { return h.c.registry }
func (h *host) Chain() *effect.Chain        { return h.c.chain }
func (h *host) CurrentDesktop() int         { return h.c.scene.CurrentDesktop() }
func (h *host) Desktops() int               { return h.c.scene.Desktops() }
func (h *host) SetCurrentDesktop(d int)     { h.c.scene.SetCurrentDesktop(d) }
func (h *host) Targets() *render.TargetPool { return h.c.targets }
func (h *host) Pin(hd arena.Handle)         { h.c.scene.Pin(hd) }
func (h *host) Unpin(hd arena.Handle)       { h.c.scene.Unpin(hd) }
func (h *host) Now() time.Duration          { return h.c.clock() }

// Stacking returns the windows of the frame being painted, or nothing
// between frames.
func (h *host) Stacking() []effect.Window { return h.c.scene.Stacking().Windows() }

func (h *host) Window(hd arena.Handle) (effect.Window, bool) {
	w, ok := h.c.scene.Window(hd)
	if !ok {
		return nil, false
	}
	return w, true
}

// AddRepaint damages r, in global coordinates, on every output it
// overlaps.
func (h *host) AddRepaint(r region.Region) {
	h.c.tracker.AddDamageAll(r)
}

// AddRepaintFull damages every enabled output.
func (h *host) AddRepaintFull() {
	for _, o := range h.c.outputs.Enabled() {
		// Untracked outputs are being unplugged.
		_ = h.c.tracker.AddDamage(o.ID(), region.Rect(o.Geometry()))
	}
}

var _ effect.Host = (*host)(nil)
