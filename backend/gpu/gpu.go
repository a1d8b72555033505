// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/render"
)

// Name is the registry name of the GPU backend.
const Name = "gpu"

// Priority is the registry priority of the GPU backend.
const Priority = 100

// Errors returned by the GPU backend.
var (
	// ErrNoDevice is returned when no device handle was provided.
	ErrNoDevice = errors.New("gpu: no device handle")

	// ErrInvalidDimensions is returned for empty buffers.
	ErrInvalidDimensions = errors.New("gpu: invalid dimensions")
)

func init() {
	backend.Register(Name, Priority, func(opts backend.Options) (backend.Backend, error) {
		return New(opts)
	})
}

// Backend presents frames rendered on a GPU device.
type Backend struct {
	*backend.Pipeline
	dev *Device
}

// New creates a GPU backend on opts.Device. It must be initialized with
// Init.
func New(opts backend.Options) (*Backend, error) {
	dev, err := NewDevice(opts.Device, opts.TextureBudgetMB)
	if err != nil {
		return nil, err
	}
	return &Backend{Pipeline: backend.NewPipeline(Name, dev, opts), dev: dev}, nil
}

// Memory returns the texture memory manager.
func (b *Backend) Memory() *MemoryManager { return b.dev.memory }

// Device allocates backbuffers and window textures on a GPU.
//
// When the handle exposes its HAL device and queue, backbuffers and
// resident window textures own device textures created on it. Otherwise
// only the CPU shadows exist.
type Device struct {
	handle render.DeviceHandle
	format gputypes.TextureFormat
	memory *MemoryManager

	halDevice hal.Device
	halQueue  hal.Queue

	mu     sync.Mutex
	views  int
	fences int
}

// NewDevice wraps a platform device handle. budgetMB bounds texture
// memory; zero selects DefaultMaxMemoryMB.
func NewDevice(handle render.DeviceHandle, budgetMB int) (*Device, error) {
	if handle == nil {
		return nil, ErrNoDevice
	}
	format := handle.SurfaceFormat()
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	d := &Device{handle: handle, format: format, memory: NewMemoryManager(budgetMB)}
	d.halDevice, d.halQueue = halOf(handle)
	return d, nil
}

// halOf returns the HAL device and queue of providers that expose them.
func halOf(provider render.DeviceHandle) (hal.Device, hal.Queue) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil
	}
	return device, queue
}

// HAL reports whether the device creates device textures.
func (d *Device) HAL() bool { return d.halDevice != nil }

// Format returns the backbuffer format.
func (d *Device) Format() gputypes.TextureFormat { return d.format }

// NewBuffer allocates a backbuffer texture.
func (d *Device) NewBuffer(w, h int) (render.RenderTarget, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	v := &view{device: d.halDevice}
	if d.halDevice != nil {
		//nolint:gosec // G115: dimensions checked positive above
		tex, err := d.halDevice.CreateTexture(&hal.TextureDescriptor{
			Label:         "compositor_backbuffer",
			Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        d.format,
			Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			return nil, fmt.Errorf("gpu: create backbuffer: %w", err)
		}
		tv, err := d.halDevice.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:         "compositor_backbuffer_view",
			Format:        d.format,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		})
		if err != nil {
			d.halDevice.DestroyTexture(tex)
			return nil, fmt.Errorf("gpu: create backbuffer view: %w", err)
		}
		v.texture, v.view = tex, tv
	}
	d.mu.Lock()
	d.views++
	d.mu.Unlock()
	return render.NewTextureTarget(v, w, h, d.format), nil
}

// NewPainter creates a painter recording against the device.
func (d *Device) NewPainter(stack *render.TargetStack) (render.Painter, error) {
	return render.NewGPUPainter(d.handle, stack)
}

// NewTexture creates a window texture within the memory budget.
func (d *Device) NewTexture(desc render.TextureDescriptor) (render.Texture, error) {
	return newTexture(desc, d)
}

// Fence waits for the painter's work to complete.
func (d *Device) Fence(p render.Painter) error {
	d.mu.Lock()
	d.fences++
	d.mu.Unlock()
	return p.Flush()
}

// Fences returns the number of fences waited on.
func (d *Device) Fences() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fences
}

// Close drops all device textures.
func (d *Device) Close() { d.memory.Close() }

// view is the device view of a backbuffer. texture and view are nil on
// devices without HAL access.
type view struct {
	device    hal.Device
	texture   hal.Texture
	view      hal.TextureView
	destroyed bool
}

func (v *view) Destroy() {
	if v.view != nil {
		v.device.DestroyTextureView(v.view)
		v.view = nil
	}
	if v.texture != nil {
		v.device.DestroyTexture(v.texture)
		v.texture = nil
	}
	v.destroyed = true
}

var (
	_ backend.Device  = (*Device)(nil)
	_ backend.Backend = (*Backend)(nil)
)
