// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/gogpu/compositor/region"
)

// ImageClient is a Client backed by an in-memory image. It serves
// synthetic windows in demos, previews and tests.
//
// ImageClient is safe for concurrent use. Callers that change it must
// report the change to the scene (WindowDamaged, GeometryChanged, ...).
type ImageClient struct {
	mu      sync.RWMutex
	geom    image.Rectangle
	img     *image.RGBA
	opacity float64
	visible bool
	opaque  bool
	desktop int
	active  bool
	caption string
}

// NewImageClient creates a visible, fully opaque window filled with c.
func NewImageClient(caption string, geom image.Rectangle, c color.Color) *ImageClient {
	img := image.NewRGBA(image.Rect(0, 0, geom.Dx(), geom.Dy()))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	_, _, _, a := c.RGBA()
	return &ImageClient{
		geom:    geom,
		img:     img,
		opacity: 1,
		visible: true,
		opaque:  a == 0xffff,
		caption: caption,
	}
}

// Geometry returns the frame geometry.
func (c *ImageClient) Geometry() image.Rectangle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.geom
}

// Image returns the contents.
func (c *ImageClient) Image() image.Image {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.img
}

// Opacity returns the window opacity.
func (c *ImageClient) Opacity() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opacity
}

// IsVisible reports whether the window is mapped.
func (c *ImageClient) IsVisible() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.visible
}

// OpaqueRegion returns the whole window when it is opaque.
func (c *ImageClient) OpaqueRegion() region.Region {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.opaque {
		return region.Region{}
	}
	return region.Rect(image.Rect(0, 0, c.geom.Dx(), c.geom.Dy()))
}

// Desktop returns the virtual desktop.
func (c *ImageClient) Desktop() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.desktop
}

// IsActive reports whether the window has focus.
func (c *ImageClient) IsActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Caption returns the title.
func (c *ImageClient) Caption() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caption
}

// Fill paints r, in window coordinates, with col and returns the changed
// region.
func (c *ImageClient) Fill(r image.Rectangle, col color.Color) region.Region {
	c.mu.Lock()
	defer c.mu.Unlock()
	r = r.Intersect(c.img.Bounds())
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
	return region.Rect(r)
}

// SetGeometry moves or resizes the window. A resize keeps the top-left
// contents and clears the rest.
func (c *ImageClient) SetGeometry(geom image.Rectangle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if geom.Size() != c.geom.Size() {
		img := image.NewRGBA(image.Rect(0, 0, geom.Dx(), geom.Dy()))
		draw.Draw(img, img.Bounds(), c.img, image.Point{}, draw.Src)
		c.img = img
	}
	c.geom = geom
}

// SetOpacity sets the window opacity.
func (c *ImageClient) SetOpacity(v float64) {
	c.mu.Lock()
	c.opacity = v
	c.mu.Unlock()
}

// SetVisible maps or unmaps the window.
func (c *ImageClient) SetVisible(v bool) {
	c.mu.Lock()
	c.visible = v
	c.mu.Unlock()
}

// SetOpaque declares whether the contents are fully opaque.
func (c *ImageClient) SetOpaque(v bool) {
	c.mu.Lock()
	c.opaque = v
	c.mu.Unlock()
}

// SetDesktop moves the window to a virtual desktop, 0 for all.
func (c *ImageClient) SetDesktop(d int) {
	c.mu.Lock()
	c.desktop = d
	c.mu.Unlock()
}

// SetActive sets the focus state.
func (c *ImageClient) SetActive(v bool) {
	c.mu.Lock()
	c.active = v
	c.mu.Unlock()
}

var _ Client = (*ImageClient)(nil)
