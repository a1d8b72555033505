// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// Texture is a window texture with a device copy and a CPU shadow.
//
// The device copy is managed by a MemoryManager and may be evicted. The
// next Update after an eviction uploads the full shadow again.
type Texture struct {
	mu sync.Mutex

	// Device resources. Nil while the texture is not resident or the
	// device has no HAL access.
	device hal.Device
	queue  hal.Queue
	tex    hal.Texture
	view   hal.TextureView

	label    string
	format   gputypes.TextureFormat
	shadow   *render.PixmapTexture
	manager  *MemoryManager
	resident bool
	stale    bool // device copy must be uploaded in full
	uploads  int
}

func newTexture(desc render.TextureDescriptor, d *Device) (*Texture, error) {
	format := desc.Format
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8Unorm
	}
	t := &Texture{
		label:   desc.Label,
		format:  format,
		shadow:  render.NewPixmapTexture(int(desc.Width), int(desc.Height)),
		manager: d.memory,
		device:  d.halDevice,
		queue:   d.halQueue,
	}
	if err := t.manager.reserve(t, t.sizeBytes()); err != nil {
		return nil, err
	}
	return t, nil
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.shadow.Width() }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.shadow.Height() }

// Format returns the device pixel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Image returns the CPU shadow.
func (t *Texture) Image() *image.RGBA {
	t.manager.touch(t)
	return t.shadow.Image()
}

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// DeviceTexture returns the device texture, or nil while the texture is
// evicted or the device has no HAL access.
func (t *Texture) DeviceTexture() hal.Texture {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tex
}

// Uploads returns the number of device uploads.
func (t *Texture) Uploads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.uploads
}

// Update copies src inside damage into the shadow and uploads it. An
// evicted texture is made resident again and uploaded in full.
func (t *Texture) Update(src image.Image, damage region.Region) error {
	if t.shadow.Destroyed() {
		return render.ErrTextureDestroyed
	}
	if err := t.shadow.Update(src, damage); err != nil {
		return err
	}
	if err := t.manager.reserve(t, t.sizeBytes()); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.resident {
		// Evicted between reserve and here; the next update retries.
		return nil
	}
	area := damage.Bounds()
	if t.stale {
		area = t.shadow.Image().Bounds()
	}
	t.writeLocked(area.Intersect(t.shadow.Image().Bounds()))
	t.stale = false
	t.uploads++
	return nil
}

// writeLocked copies area of the shadow into the device texture.
func (t *Texture) writeLocked(area image.Rectangle) {
	if t.tex == nil || area.Empty() {
		return
	}
	img := t.shadow.Image()
	//nolint:gosec // G115: area lies inside the shadow bounds
	t.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(area.Min.X), Y: uint32(area.Min.Y)},
		},
		img.Pix[img.PixOffset(area.Min.X, area.Min.Y):],
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(img.Stride),
			RowsPerImage: uint32(area.Dy()),
		},
		&hal.Extent3D{Width: uint32(area.Dx()), Height: uint32(area.Dy()), DepthOrArrayLayers: 1},
	)
}

// Destroy releases the device copy and the shadow.
func (t *Texture) Destroy() {
	t.manager.release(t)
	t.unbind()
	t.shadow.Destroy()
}

func (t *Texture) sizeBytes() uint64 {
	//nolint:gosec // G115: texture dimensions are non-negative
	return uint64(t.shadow.Width() * t.shadow.Height() * 4)
}

// bind creates device resources. It runs under the manager lock.
func (t *Texture) bind() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.device != nil {
		//nolint:gosec // G115: texture dimensions are non-negative
		tex, err := t.device.CreateTexture(&hal.TextureDescriptor{
			Label:         t.label,
			Size:          hal.Extent3D{Width: uint32(t.shadow.Width()), Height: uint32(t.shadow.Height()), DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        t.format,
			Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("gpu: create texture %q: %w", t.label, err)
		}
		view, err := t.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:         t.label + "_view",
			Format:        t.format,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		})
		if err != nil {
			t.device.DestroyTexture(tex)
			return fmt.Errorf("gpu: create texture view %q: %w", t.label, err)
		}
		t.tex, t.view = tex, view
	}
	t.resident = true
	t.stale = true
	return nil
}

// unbind drops device resources. It may run under the manager lock.
func (t *Texture) unbind() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.resident {
		logging.Logger().Debug("texture evicted", "label", t.label)
	}
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.device.DestroyTexture(t.tex)
		t.tex = nil
	}
	t.resident = false
}

var _ render.Texture = (*Texture)(nil)
