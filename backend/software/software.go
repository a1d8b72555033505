// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/render"
)

// Name is the registry name of the software backend.
const Name = "software"

// Priority is the registry priority of the software backend.
const Priority = 0

// MaxBufferSide bounds the size of a backbuffer in pixels.
const MaxBufferSide = 16384

// ErrInvalidDimensions is returned for empty or oversized buffers.
var ErrInvalidDimensions = errors.New("software: invalid dimensions")

func init() {
	backend.Register(Name, Priority, func(opts backend.Options) (backend.Backend, error) {
		return New(opts), nil
	})
}

// Backend presents frames rendered on the CPU.
type Backend struct {
	*backend.Pipeline
	dev *Device
}

// New creates a software backend. It must be initialized with Init.
func New(opts backend.Options) *Backend {
	dev := &Device{}
	return &Backend{Pipeline: backend.NewPipeline(Name, dev, opts), dev: dev}
}

// Stats returns the allocation counters of the device.
func (b *Backend) Stats() Stats { return b.dev.Stats() }

// Stats counts device allocations.
type Stats struct {
	Buffers  int
	Textures int
	Fences   int
}

// Device allocates CPU buffers and textures.
//
// Device is safe for concurrent use.
type Device struct {
	mu     sync.Mutex
	stats  Stats
	closed bool
}

// NewBuffer allocates an RGBA backbuffer.
func (d *Device) NewBuffer(w, h int) (render.RenderTarget, error) {
	if w <= 0 || h <= 0 || w > MaxBufferSide || h > MaxBufferSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	d.count(&d.stats.Buffers)
	return render.NewPixmapTarget(w, h), nil
}

// NewPainter returns a software painter drawing into stack.
func (d *Device) NewPainter(stack *render.TargetStack) (render.Painter, error) {
	return render.NewSoftwarePainter(stack), nil
}

// NewTexture allocates a CPU texture.
func (d *Device) NewTexture(desc render.TextureDescriptor) (render.Texture, error) {
	d.count(&d.stats.Textures)
	return render.NewPixmapTexture(int(desc.Width), int(desc.Height)), nil
}

// Fence flushes the painter. Software drawing completes synchronously.
func (d *Device) Fence(p render.Painter) error {
	d.count(&d.stats.Fences)
	return p.Flush()
}

// Close marks the device closed.
func (d *Device) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Stats returns the allocation counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Device) count(n *int) {
	d.mu.Lock()
	*n++
	d.mu.Unlock()
}

var (
	_ backend.Device  = (*Device)(nil)
	_ backend.Backend = (*Backend)(nil)
)
