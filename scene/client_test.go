// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/compositor/region"
)

func TestImageClient(t *testing.T) {
	red := color.RGBA{R: 0xff, A: 0xff}
	c := NewImageClient("term", image.Rect(10, 10, 30, 20), red)
	if !c.IsVisible() || c.Opacity() != 1 || c.Caption() != "term" {
		t.Fatalf("new client = visible %v opacity %v caption %q", c.IsVisible(), c.Opacity(), c.Caption())
	}
	if want := region.Rect(image.Rect(0, 0, 20, 10)); !c.OpaqueRegion().Equal(want) {
		t.Errorf("OpaqueRegion() = %v, want %v", c.OpaqueRegion(), want)
	}

	blue := color.RGBA{B: 0xff, A: 0xff}
	changed := c.Fill(image.Rect(15, 5, 40, 40), blue)
	if want := region.Rect(image.Rect(15, 5, 20, 10)); !changed.Equal(want) {
		t.Errorf("Fill() = %v, want clipped %v", changed, want)
	}
	img := c.Image().(*image.RGBA)
	if got := img.RGBAAt(16, 6); got != blue {
		t.Errorf("pixel after Fill = %v, want %v", got, blue)
	}

	c.SetGeometry(image.Rect(0, 0, 10, 10))
	img = c.Image().(*image.RGBA)
	if img.Bounds().Dx() != 10 || img.RGBAAt(1, 1) != red {
		t.Errorf("after resize: bounds %v pixel %v, want 10 wide keeping contents", img.Bounds(), img.RGBAAt(1, 1))
	}

	translucent := NewImageClient("ghost", image.Rect(0, 0, 4, 4), color.RGBA{A: 0x80})
	if !translucent.OpaqueRegion().IsEmpty() {
		t.Error("translucent client reported an opaque region")
	}
}
