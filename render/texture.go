// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"image"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/compositor/region"
)

// ErrTextureDestroyed is returned when updating a destroyed texture.
var ErrTextureDestroyed = errors.New("render: texture destroyed")

// PixmapTexture is a CPU texture holding a copy of window contents.
type PixmapTexture struct {
	img       *image.RGBA
	destroyed bool
	uploads   int
}

// NewPixmapTexture creates an empty texture of the given size.
func NewPixmapTexture(width, height int) *PixmapTexture {
	return &PixmapTexture{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Width returns the texture width in pixels.
func (t *PixmapTexture) Width() int { return t.img.Bounds().Dx() }

// Height returns the texture height in pixels.
func (t *PixmapTexture) Height() int { return t.img.Bounds().Dy() }

// Format returns RGBA8.
func (t *PixmapTexture) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// Image returns the texture pixels.
func (t *PixmapTexture) Image() *image.RGBA { return t.img }

// Uploads returns how many times Update copied pixels.
func (t *PixmapTexture) Uploads() int { return t.uploads }

// Destroyed reports whether Destroy was called.
func (t *PixmapTexture) Destroyed() bool { return t.destroyed }

// Update copies the damaged part of src into the texture.
func (t *PixmapTexture) Update(src image.Image, damage region.Region) error {
	if t.destroyed {
		return ErrTextureDestroyed
	}
	if src == nil {
		return nil
	}
	sb := src.Bounds()
	if sb.Dx() != t.img.Bounds().Dx() || sb.Dy() != t.img.Bounds().Dy() {
		t.img = image.NewRGBA(image.Rect(0, 0, sb.Dx(), sb.Dy()))
		damage = region.Rect(t.img.Bounds())
	}
	for _, r := range damage.IntersectRect(t.img.Bounds()).Rects() {
		xdraw.Draw(t.img, r, src, sb.Min.Add(r.Min), xdraw.Src)
	}
	t.uploads++
	return nil
}

// Destroy releases the pixels.
func (t *PixmapTexture) Destroy() {
	t.destroyed = true
	t.img = image.NewRGBA(image.Rectangle{})
}

var _ Texture = (*PixmapTexture)(nil)
