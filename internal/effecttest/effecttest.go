// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package effecttest runs effects against a real scene with software
// painting, for tests of the built-in effects.
package effecttest

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/gogpu/compositor/arena"
	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/scene"
)

// Host is an effect.Host over one output.
type Host struct {
	tb testing.TB

	Reg    *effect.Registry
	Ch     *effect.Chain
	Scene  *scene.Scene
	Pool   *render.TargetPool
	Output effect.OutputInfo

	// Clock is returned by Now. Tests advance it.
	Clock time.Duration

	// Repaints collects requested damage since the last Paint.
	Repaints     region.Region
	FullRepaints int

	// Last holds the result of the last Paint.
	Last scene.PaintResult
}

// New creates a host for one output covering geom.
func New(tb testing.TB, geom image.Rectangle) *Host {
	tb.Helper()
	h := &Host{
		tb:     tb,
		Reg:    effect.NewRegistry(),
		Pool:   render.NewTargetPool(nil, 0),
		Output: effect.OutputInfo{ID: 1, Name: "test", Geometry: geom, Scale: 1},
	}
	h.Ch = effect.NewChain(h.Reg, nil)
	h.Scene = scene.New(h.Ch, scene.WithDamageFunc(h.AddRepaint))
	tb.Cleanup(h.Pool.Close)
	return h
}

// Load loads e at position, calling its Load hook first.
func (h *Host) Load(e effect.Effect, position int) {
	h.tb.Helper()
	if l, ok := e.(effect.Loader); ok {
		if err := l.Load(h); err != nil {
			h.tb.Fatalf("Load(%s) error = %v", e.Name(), err)
		}
	}
	if err := h.Reg.Register(e, position); err != nil {
		h.tb.Fatalf("Register(%s) error = %v", e.Name(), err)
	}
}

// AddWindow adds an opaque window filled with c.
func (h *Host) AddWindow(caption string, geom image.Rectangle, c color.Color) (arena.Handle, *scene.ImageClient) {
	client := scene.NewImageClient(caption, geom, c)
	return h.Scene.AddWindow(client), client
}

// Paint paints the whole output into a fresh image and returns it.
func (h *Host) Paint() *image.RGBA {
	h.tb.Helper()
	geom := h.Output.Geometry
	target := render.NewPixmapTarget(geom.Dx(), geom.Dy())
	stack := render.NewTargetStack()
	stack.Push(target, geom)
	h.Repaints = region.Region{}
	h.FullRepaints = 0

	h.Scene.NextFrame()
	if _, err := h.Scene.CreateStackingOrder(h.Scene.Order()); err != nil {
		h.tb.Fatalf("CreateStackingOrder() error = %v", err)
	}
	res, err := h.Scene.PaintOutput(scene.Frame{
		Output:      h.Output,
		Painter:     render.NewSoftwarePainter(stack),
		Stack:       stack,
		Pending:     region.Rect(geom),
		PresentTime: h.Clock,
	})
	if _, perr := stack.Pop(); perr != nil {
		h.tb.Errorf("backbuffer missing after paint: %v", perr)
	}
	if err := stack.CheckEmpty(); err != nil {
		h.tb.Errorf("target stack unbalanced: %v", err)
	}
	h.Scene.ClearStackingOrder()
	if err != nil {
		h.tb.Fatalf("PaintOutput() error = %v", err)
	}
	h.Last = res
	return target.Image()
}

// Registry returns the effect registry.
func (h *Host) Registry() *effect.Registry { return h.Reg }

// Chain returns the effect chain.
func (h *Host) Chain() *effect.Chain { return h.Ch }

// Stacking returns the windows of the current snapshot.
func (h *Host) Stacking() []effect.Window { return h.Scene.Stacking().Windows() }

// Window resolves a handle.
func (h *Host) Window(hd arena.Handle) (effect.Window, bool) {
	w, ok := h.Scene.Window(hd)
	if !ok {
		return nil, false
	}
	return w, true
}

// CurrentDesktop returns the current desktop.
func (h *Host) CurrentDesktop() int { return h.Scene.CurrentDesktop() }

// Desktops returns the number of desktops.
func (h *Host) Desktops() int { return h.Scene.Desktops() }

// SetCurrentDesktop switches desktops.
func (h *Host) SetCurrentDesktop(d int) { h.Scene.SetCurrentDesktop(d) }

// Targets returns the offscreen target pool.
func (h *Host) Targets() *render.TargetPool { return h.Pool }

// AddRepaint records r.
func (h *Host) AddRepaint(r region.Region) { h.Repaints = h.Repaints.Union(r) }

// AddRepaintFull records a full repaint.
func (h *Host) AddRepaintFull() {
	h.FullRepaints++
	h.Repaints = h.Repaints.UnionRect(h.Output.Geometry)
}

// Pin pins a window.
func (h *Host) Pin(hd arena.Handle) { h.Scene.Pin(hd) }

// Unpin unpins a window.
func (h *Host) Unpin(hd arena.Handle) { h.Scene.Unpin(hd) }

// Now returns Clock.
func (h *Host) Now() time.Duration { return h.Clock }

var _ effect.Host = (*Host)(nil)
