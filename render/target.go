// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"
)

// RenderTarget defines where rendering output goes.
//
// A RenderTarget is an abstraction over different rendering destinations:
//   - PixmapTarget: CPU-backed *image.RGBA for software presentation
//   - TextureTarget: GPU texture for backbuffers and offscreen passes
//
// Targets may support CPU access (Pixels), GPU access (TextureView), or both.
type RenderTarget interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat

	// TextureView returns the GPU texture view for this target.
	// Returns nil for CPU-only targets.
	TextureView() TextureView

	// Pixels returns direct access to pixel data.
	// Returns nil for GPU-only targets.
	Pixels() []byte

	// Stride returns the number of bytes per row.
	Stride() int
}

// ImageTarget is a RenderTarget whose pixels can be drawn with the
// image/draw family of functions.
type ImageTarget interface {
	RenderTarget

	// Image returns the pixels of the target. The returned image shares
	// memory with the target.
	Image() *image.RGBA
}

// PixmapTarget is a CPU-backed render target using *image.RGBA.
//
// Example:
//
//	target := render.NewPixmapTarget(800, 600)
//	stack.Push(target, output.Geometry)
type PixmapTarget struct {
	img *image.RGBA
}

// NewPixmapTarget creates a new CPU-backed render target.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return &PixmapTarget{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// NewPixmapTargetFromImage wraps an existing *image.RGBA as a render target.
// The image is used directly without copying.
func NewPixmapTargetFromImage(img *image.RGBA) *PixmapTarget {
	return &PixmapTarget{img: img}
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int {
	return t.img.Bounds().Dx()
}

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int {
	return t.img.Bounds().Dy()
}

// Format returns the pixel format (RGBA8).
func (t *PixmapTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// TextureView returns nil as this is a CPU-only target.
func (t *PixmapTarget) TextureView() TextureView {
	return nil
}

// Pixels returns direct access to the pixel data.
func (t *PixmapTarget) Pixels() []byte {
	return t.img.Pix
}

// Stride returns the number of bytes per row.
func (t *PixmapTarget) Stride() int {
	return t.img.Stride
}

// Image returns the underlying *image.RGBA.
func (t *PixmapTarget) Image() *image.RGBA {
	return t.img
}

// Clear fills the entire target with the given color.
func (t *PixmapTarget) Clear(c color.Color) {
	xdraw.Draw(t.img, t.img.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
}

// Ensure PixmapTarget implements ImageTarget.
var _ ImageTarget = (*PixmapTarget)(nil)

// TextureTarget is a GPU texture-backed render target.
//
// The target keeps a CPU shadow of its contents so that software painting
// and readback work when the device cannot execute the draw itself.
type TextureTarget struct {
	format gputypes.TextureFormat
	view   TextureView
	shadow *image.RGBA
}

// NewTextureTarget wraps a GPU texture view as a render target.
func NewTextureTarget(view TextureView, width, height int, format gputypes.TextureFormat) *TextureTarget {
	return &TextureTarget{
		format: format,
		view:   view,
		shadow: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Width returns the target width in pixels.
func (t *TextureTarget) Width() int {
	return t.shadow.Bounds().Dx()
}

// Height returns the target height in pixels.
func (t *TextureTarget) Height() int {
	return t.shadow.Bounds().Dy()
}

// Format returns the pixel format.
func (t *TextureTarget) Format() gputypes.TextureFormat {
	return t.format
}

// TextureView returns the GPU texture view.
func (t *TextureTarget) TextureView() TextureView {
	return t.view
}

// Pixels returns the CPU shadow pixels.
func (t *TextureTarget) Pixels() []byte {
	return t.shadow.Pix
}

// Stride returns the stride of the CPU shadow.
func (t *TextureTarget) Stride() int {
	return t.shadow.Stride
}

// Image returns the CPU shadow image.
func (t *TextureTarget) Image() *image.RGBA {
	return t.shadow
}

// Destroy releases GPU resources.
func (t *TextureTarget) Destroy() {
	if t.view != nil {
		t.view.Destroy()
		t.view = nil
	}
}

// Ensure TextureTarget implements ImageTarget.
var _ ImageTarget = (*TextureTarget)(nil)
