// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"image"
	"image/color"

	"github.com/gogpu/compositor/region"
)

// ErrUnsupportedTarget is returned when a painter cannot draw into the
// current render target.
var ErrUnsupportedTarget = errors.New("render: target does not support this painter")

// ErrNoTarget is returned when drawing with an empty target stack.
var ErrNoTarget = errors.New("render: no render target bound")

// Painter draws into the current top of a TargetStack.
//
// All coordinates are global compositor coordinates; the painter maps them
// onto the bound target through its viewport. Every draw is clipped to the
// given region. An empty clip draws nothing.
//
// Painters are NOT thread-safe. A painter belongs to the rendering
// goroutine of one backend.
type Painter interface {
	// Fill replaces the pixels inside clip with c.
	Fill(clip region.Region, c color.Color) error

	// DrawTexture composites a window texture.
	DrawTexture(tex Texture, clip region.Region, opts DrawOptions) error

	// DrawImage composites an arbitrary image.
	DrawImage(src image.Image, clip region.Region, opts DrawOptions) error

	// Flush ensures all pending drawing is complete.
	//
	// For CPU painters this is a no-op. GPU painters submit command
	// buffers and wait on the device fence.
	Flush() error
}

// Filter selects the sampling used for transformed draws.
type Filter uint8

const (
	// FilterNearest samples the nearest source pixel.
	FilterNearest Filter = iota

	// FilterBilinear interpolates between neighboring pixels.
	FilterBilinear

	// FilterSmooth uses a higher quality kernel for downscaling.
	FilterSmooth
)

// String returns the filter name.
func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterBilinear:
		return "bilinear"
	case FilterSmooth:
		return "smooth"
	default:
		return "unknown"
	}
}

// DrawOptions describe how a source is composited.
type DrawOptions struct {
	// Transform maps source pixel coordinates to global coordinates.
	Transform Matrix

	// Opacity multiplies the source alpha, in [0, 1].
	Opacity float64

	// Brightness multiplies the source color, 1 keeps it unchanged.
	Brightness float64

	// Saturation blends toward grayscale, 1 keeps it unchanged.
	Saturation float64

	// Filter is used when Transform is not an integer translation.
	Filter Filter
}

// DrawAt returns options placing the source's top-left corner at pos
// without any color adjustment.
func DrawAt(pos image.Point) DrawOptions {
	return DrawOptions{
		Transform:  Translate(float64(pos.X), float64(pos.Y)),
		Opacity:    1,
		Brightness: 1,
		Saturation: 1,
	}
}

// DrawInto returns options scaling a source of the given size onto dst.
func DrawInto(size image.Point, dst image.Rectangle) DrawOptions {
	o := DrawAt(dst.Min)
	if size.X > 0 && size.Y > 0 {
		sx := float64(dst.Dx()) / float64(size.X)
		sy := float64(dst.Dy()) / float64(size.Y)
		o.Transform = o.Transform.Multiply(Scale(sx, sy))
		o.Filter = FilterBilinear
	}
	return o
}
