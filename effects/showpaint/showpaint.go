// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package showpaint tints every painted area with a color that changes
// each frame, to make repaints visible while debugging damage tracking.
package showpaint

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// Name is the effect name.
const Name = "showpaint"

// DefaultOpacity is the strength of the tint.
const DefaultOpacity = 0.2

// Colors cycled through, one per frame.
var Colors = []color.RGBA{
	{R: 0xff, A: 0xff},
	{G: 0xff, A: 0xff},
	{B: 0xff, A: 0xff},
	{G: 0xff, B: 0xff, A: 0xff},
	{R: 0xff, B: 0xff, A: 0xff},
	{R: 0xff, G: 0xff, A: 0xff},
	{R: 0x80, G: 0x80, B: 0x80, A: 0xff},
}

// Effect overlays painted regions.
type Effect struct {
	opacity float64
	index   int
	painted region.Region

	// overlay is a solid image of the current color, grown on demand.
	overlay *image.RGBA
	tint    color.RGBA
}

// New creates the effect.
func New() *Effect {
	return &Effect{opacity: DefaultOpacity}
}

// Name returns Name.
func (e *Effect) Name() string { return Name }

// IsActive reports true; the effect runs while loaded.
func (e *Effect) IsActive() bool { return true }

// Painted returns the area tinted during the last frame.
func (e *Effect) Painted() region.Region { return e.painted }

// Color returns the tint of the next frame.
func (e *Effect) Color() color.RGBA { return Colors[e.index] }

// Reconfigure reads "opacity".
func (e *Effect) Reconfigure(s effect.Settings) {
	e.opacity = min(max(s.Float("opacity", DefaultOpacity), 0), 1)
}

// PrePaintScreen starts a new frame.
func (e *Effect) PrePaintScreen(data *effect.ScreenPrePaintData, next effect.ScreenPrePaintFunc) {
	e.painted = region.Region{}
	next(data)
}

// PaintScreen paints the screen, then tints what was painted.
func (e *Effect) PaintScreen(mask effect.PaintMask, r region.Region, data *effect.ScreenPaintData, next effect.ScreenPaintFunc) {
	next(mask, r, data)
	if r.IsEmpty() || data.Painter == nil {
		return
	}
	e.painted = e.painted.Union(r)
	b := r.Bounds()
	img := e.solid(b.Size())
	if err := data.Painter.DrawImage(img, r, e.options(b.Min)); err != nil {
		logging.Logger().Warn("showpaint overlay failed", "err", err)
	}
}

// PostPaintScreen moves to the next color.
func (e *Effect) PostPaintScreen(next effect.ScreenPostFunc) {
	e.index = (e.index + 1) % len(Colors)
	next()
}

func (e *Effect) options(at image.Point) render.DrawOptions {
	o := render.DrawAt(at)
	o.Opacity = e.opacity
	return o
}

// solid returns an image of at least size filled with the current color.
func (e *Effect) solid(size image.Point) *image.RGBA {
	c := Colors[e.index]
	if e.overlay == nil || e.overlay.Bounds().Dx() < size.X || e.overlay.Bounds().Dy() < size.Y {
		w, h := size.X, size.Y
		if e.overlay != nil {
			w = max(w, e.overlay.Bounds().Dx())
			h = max(h, e.overlay.Bounds().Dy())
		}
		e.overlay = image.NewRGBA(image.Rect(0, 0, w, h))
		e.tint = color.RGBA{}
	}
	if e.tint != c {
		draw.Draw(e.overlay, e.overlay.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
		e.tint = c
	}
	return e.overlay
}

var (
	_ effect.ScreenPrePainter  = (*Effect)(nil)
	_ effect.ScreenPainter     = (*Effect)(nil)
	_ effect.ScreenPostPainter = (*Effect)(nil)
	_ effect.Configurable      = (*Effect)(nil)
)
