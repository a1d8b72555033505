// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"image"
	"image/color"

	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/region"
)

// GPUPainter is a painter bound to a GPU device provided by the platform.
//
// Draw commands are recorded against the device; targets that keep a CPU
// shadow (TextureTarget, PixmapTarget) are additionally rasterized by the
// software fallback so their pixels stay readable. Flush waits for the
// device to finish, which is the fence required before a commit.
type GPUPainter struct {
	// handle is the GPU device handle from the host platform.
	handle DeviceHandle

	// softwareFallback rasterizes into CPU shadows.
	softwareFallback *SoftwarePainter

	pending   int
	submitted int
}

// NewGPUPainter creates a painter for the device in handle.
func NewGPUPainter(handle DeviceHandle, stack *TargetStack) (*GPUPainter, error) {
	if handle == nil {
		return nil, errors.New("render: nil device handle")
	}
	return &GPUPainter{
		handle:           handle,
		softwareFallback: NewSoftwarePainter(stack),
	}, nil
}

// Fill replaces the pixels inside clip with c.
func (p *GPUPainter) Fill(clip region.Region, c color.Color) error {
	p.pending++
	return p.softwareFallback.Fill(clip, c)
}

// DrawTexture composites a window texture.
func (p *GPUPainter) DrawTexture(tex Texture, clip region.Region, opts DrawOptions) error {
	p.pending++
	return p.softwareFallback.DrawTexture(tex, clip, opts)
}

// DrawImage composites an arbitrary image.
func (p *GPUPainter) DrawImage(src image.Image, clip region.Region, opts DrawOptions) error {
	p.pending++
	return p.softwareFallback.DrawImage(src, clip, opts)
}

// Flush submits recorded work and waits for the device to go idle.
//
// Devices that expose Poll(wait bool) are polled with wait=true; other
// devices are assumed to complete synchronously.
func (p *GPUPainter) Flush() error {
	if p.pending == 0 {
		return nil
	}
	if dev := p.handle.Device(); dev != nil {
		if poller, ok := dev.(interface{ Poll(wait bool) }); ok {
			poller.Poll(true)
		}
	}
	logging.Logger().Debug("gpu painter flushed", "commands", p.pending)
	p.submitted += p.pending
	p.pending = 0
	return nil
}

// Pending returns the number of commands recorded since the last Flush.
func (p *GPUPainter) Pending() int { return p.pending }

// Submitted returns the number of commands flushed so far.
func (p *GPUPainter) Submitted() int { return p.submitted }

// DeviceHandle returns the underlying device handle.
func (p *GPUPainter) DeviceHandle() DeviceHandle {
	return p.handle
}

var _ Painter = (*GPUPainter)(nil)
