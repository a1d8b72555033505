// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package effect

import (
	"fmt"

	"github.com/gogpu/compositor/region"
)

// Pass identifies one walk through the chain.
type Pass uint8

const (
	PassPrePaintScreen Pass = iota
	PassPaintScreen
	PassPostPaintScreen
	PassPrePaintWindow
	PassPaintWindow
	PassPostPaintWindow
	PassDrawWindow
	PassBuildQuads
	passCount
)

var passNames = [passCount]string{
	"pre-paint-screen", "paint-screen", "post-paint-screen",
	"pre-paint-window", "paint-window", "post-paint-window",
	"draw-window", "build-quads",
}

// String returns the pass name.
func (p Pass) String() string {
	if p < passCount {
		return passNames[p]
	}
	return fmt.Sprintf("Pass(%d)", p)
}

// Terminal is the base renderer the chain falls through to once every
// active effect of a pass has run.
type Terminal interface {
	FinalPaintScreen(mask PaintMask, r region.Region, data *ScreenPaintData)
	FinalPaintWindow(w Window, mask PaintMask, r region.Region, data *WindowPaintData)
	FinalDrawWindow(w Window, mask PaintMask, r region.Region, data *WindowPaintData)
}

// Cursor is a resume point: the saved position of one pass. It is
// returned by Enter and consumed by Exit.
type Cursor struct {
	pass Pass
	pos  int
}

// Chain walks the active effects of a frame.
//
// StartPaint snapshots the active effects; the snapshot is fixed until
// the next StartPaint. Every pass keeps a cursor into the snapshot. A pass
// entry point runs the effect under the cursor with the cursor advanced,
// hands it the entry point as continuation, and moves the cursor back
// when the effect returns. An effect that does not call the continuation
// therefore cuts the pass short for that call only.
//
// Chain is not safe for concurrent use; it belongs to the rendering
// goroutine.
type Chain struct {
	registry *Registry
	terminal Terminal
	active   []Effect
	cursors  [passCount]int

	buildingQuads bool
	painting      bool
	frames        uint64
}

// NewChain creates a chain over the effects of registry, ending in terminal.
func NewChain(registry *Registry, terminal Terminal) *Chain {
	return &Chain{registry: registry, terminal: terminal}
}

// SetTerminal replaces the base renderer.
func (c *Chain) SetTerminal(t Terminal) { c.terminal = t }

// Registry returns the registry the chain snapshots.
func (c *Chain) Registry() *Registry { return c.registry }

// StartPaint snapshots the active effects for a frame.
func (c *Chain) StartPaint() {
	c.active = c.registry.Active()
	c.cursors = [passCount]int{}
	c.buildingQuads = false
	c.painting = true
	c.frames++
}

// EndPaint closes the frame. The snapshot is kept for inspection.
func (c *Chain) EndPaint() {
	c.painting = false
}

// Painting reports whether a frame is between StartPaint and EndPaint.
func (c *Chain) Painting() bool { return c.painting }

// Active returns a copy of the active-effect snapshot.
func (c *Chain) Active() []Effect {
	out := make([]Effect, len(c.active))
	copy(out, c.active)
	return out
}

// IsActive reports whether the named effect is in the snapshot.
func (c *Chain) IsActive(name string) bool {
	for _, e := range c.active {
		if e.Name() == name {
			return true
		}
	}
	return false
}

// Enter saves the cursor of pass and rewinds it, so that a nested walk of
// the same pass starts from the first effect.
func (c *Chain) Enter(pass Pass) Cursor {
	cur := Cursor{pass: pass, pos: c.cursors[pass]}
	c.cursors[pass] = 0
	return cur
}

// Exit restores the cursor saved by Enter.
func (c *Chain) Exit(cur Cursor) {
	c.cursors[cur.pass] = cur.pos
}

// Nested runs fn with the cursor of pass rewound and restores it after.
// Effects use it to draw another window from inside their own hook.
func (c *Chain) Nested(pass Pass, fn func()) {
	cur := c.Enter(pass)
	defer c.Exit(cur)
	fn()
}

// Position returns the current cursor of pass.
func (c *Chain) Position(pass Pass) int { return c.cursors[pass] }

// next returns the effect under the cursor of pass and advances the
// cursor. The returned restore function moves it back.
func (c *Chain) next(pass Pass) (Effect, func(), bool) {
	i := c.cursors[pass]
	if i >= len(c.active) {
		return nil, nil, false
	}
	c.cursors[pass] = i + 1
	return c.active[i], func() { c.cursors[pass] = i }, true
}

// PrePaintScreen runs the screen pre-paint pass.
func (c *Chain) PrePaintScreen(data *ScreenPrePaintData) {
	for {
		e, restore, ok := c.next(PassPrePaintScreen)
		if !ok {
			return
		}
		if h, ok := e.(ScreenPrePainter); ok {
			h.PrePaintScreen(data, c.PrePaintScreen)
			restore()
			return
		}
		defer restore()
	}
}

// PaintScreen runs the screen paint pass.
func (c *Chain) PaintScreen(mask PaintMask, r region.Region, data *ScreenPaintData) {
	for {
		e, restore, ok := c.next(PassPaintScreen)
		if !ok {
			c.terminal.FinalPaintScreen(mask, r, data)
			return
		}
		if h, ok := e.(ScreenPainter); ok {
			h.PaintScreen(mask, r, data, c.PaintScreen)
			restore()
			return
		}
		defer restore()
	}
}

// PaintDesktop paints a virtual desktop through the whole screen pass
// while an outer screen pass is in progress, typically into an
// offscreen target. The outer pass resumes where it left off.
func (c *Chain) PaintDesktop(desktop int, mask PaintMask, r region.Region, data *ScreenPaintData) {
	cur := c.Enter(PassPaintScreen)
	defer c.Exit(cur)
	saved := data.Desktop
	data.Desktop = desktop
	c.PaintScreen(mask, r, data)
	data.Desktop = saved
}

// PostPaintScreen runs the screen post-paint pass.
func (c *Chain) PostPaintScreen() {
	for {
		e, restore, ok := c.next(PassPostPaintScreen)
		if !ok {
			return
		}
		if h, ok := e.(ScreenPostPainter); ok {
			h.PostPaintScreen(c.PostPaintScreen)
			restore()
			return
		}
		defer restore()
	}
}

// PrePaintWindow runs the window pre-paint pass.
func (c *Chain) PrePaintWindow(w Window, data *WindowPrePaintData) {
	for {
		e, restore, ok := c.next(PassPrePaintWindow)
		if !ok {
			return
		}
		if h, ok := e.(WindowPrePainter); ok {
			h.PrePaintWindow(w, data, c.PrePaintWindow)
			restore()
			return
		}
		defer restore()
	}
}

// PaintWindow runs the window paint pass.
func (c *Chain) PaintWindow(w Window, mask PaintMask, r region.Region, data *WindowPaintData) {
	for {
		e, restore, ok := c.next(PassPaintWindow)
		if !ok {
			c.terminal.FinalPaintWindow(w, mask, r, data)
			return
		}
		if h, ok := e.(WindowPainter); ok {
			h.PaintWindow(w, mask, r, data, c.PaintWindow)
			restore()
			return
		}
		defer restore()
	}
}

// PostPaintWindow runs the window post-paint pass.
func (c *Chain) PostPaintWindow(w Window) {
	for {
		e, restore, ok := c.next(PassPostPaintWindow)
		if !ok {
			return
		}
		if h, ok := e.(WindowPostPainter); ok {
			h.PostPaintWindow(w, c.PostPaintWindow)
			restore()
			return
		}
		defer restore()
	}
}

// DrawWindow runs the window draw pass.
func (c *Chain) DrawWindow(w Window, mask PaintMask, r region.Region, data *WindowPaintData) {
	for {
		e, restore, ok := c.next(PassDrawWindow)
		if !ok {
			c.terminal.FinalDrawWindow(w, mask, r, data)
			return
		}
		if h, ok := e.(WindowDrawer); ok {
			h.DrawWindow(w, mask, r, data, c.DrawWindow)
			restore()
			return
		}
		defer restore()
	}
}

// BuildQuads lets effects change the drawable geometry of w.
//
// Quad building may recurse, for example to build a thumbnail of one
// window while building another. The outermost call owns the latch
// reported by BuildingQuads; nested calls walk the chain from the first
// effect and leave the latch alone.
func (c *Chain) BuildQuads(w Window, quads *QuadList) {
	outermost := !c.buildingQuads
	if outermost {
		c.buildingQuads = true
		defer func() { c.buildingQuads = false }()
	}
	cur := c.Enter(PassBuildQuads)
	defer c.Exit(cur)
	c.buildQuadsStep(w, quads)
}

// BuildingQuads reports whether quad building is in progress.
func (c *Chain) BuildingQuads() bool { return c.buildingQuads }

func (c *Chain) buildQuadsStep(w Window, quads *QuadList) {
	for {
		e, restore, ok := c.next(PassBuildQuads)
		if !ok {
			return
		}
		if h, ok := e.(QuadBuilder); ok {
			h.BuildQuads(w, quads, c.buildQuadsStep)
			restore()
			return
		}
		defer restore()
	}
}
