// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package showpaint

import (
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/internal/effecttest"
)

func TestTintsPaintedArea(t *testing.T) {
	geom := image.Rect(0, 0, 40, 20)
	h := effecttest.New(t, geom)
	h.AddWindow("a", image.Rect(0, 0, 20, 20), color.RGBA{B: 0xff, A: 0xff})
	e := New()
	h.Load(e, 0)

	img := h.Paint()
	bg := img.RGBAAt(30, 5)
	if bg.R == 0 || bg.G != 0 || bg.B != 0 {
		t.Errorf("background pixel = %v, want a red tint", bg)
	}
	if win := img.RGBAAt(5, 5); win.R == 0 || win.B == 0 {
		t.Errorf("window pixel = %v, want blue with a red tint", win)
	}
	if !e.Painted().ContainsRect(geom) {
		t.Errorf("Painted() = %v, want %v", e.Painted(), geom)
	}

	img = h.Paint()
	if bg := img.RGBAAt(30, 5); bg.G == 0 || bg.R != 0 {
		t.Errorf("background pixel on second frame = %v, want a green tint", bg)
	}
	if !h.Repaints.IsEmpty() {
		t.Errorf("Repaints = %v, want none", h.Repaints)
	}
}

func TestColorCycles(t *testing.T) {
	h := effecttest.New(t, image.Rect(0, 0, 8, 8))
	e := New()
	h.Load(e, 0)
	for i := range len(Colors) + 1 {
		if got, want := e.Color(), Colors[i%len(Colors)]; got != want {
			t.Errorf("frame %d: Color() = %v, want %v", i, got, want)
		}
		h.Paint()
	}
}

func TestOpacity(t *testing.T) {
	h := effecttest.New(t, image.Rect(0, 0, 8, 8))
	e := New()
	e.Reconfigure(effect.Settings{"opacity": 0.0})
	h.Load(e, 0)
	if got := h.Paint().RGBAAt(4, 4); got != (color.RGBA{A: 0xff}) {
		t.Errorf("pixel with zero opacity = %v, want background", got)
	}

	e.Reconfigure(effect.Settings{"opacity": 3.0})
	if e.opacity != 1 {
		t.Errorf("opacity = %v, want clamped to 1", e.opacity)
	}
}
