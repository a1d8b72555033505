// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/output"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

func TestNewRequiresDevice(t *testing.T) {
	if _, err := New(backend.Options{}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("New() error = %v, want %v", err, ErrNoDevice)
	}
	if _, err := backend.New(Name, backend.Options{}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("backend.New(%q) error = %v, want %v", Name, err, ErrNoDevice)
	}
}

func TestPresentFrame(t *testing.T) {
	b, err := backend.New(Name, backend.Options{Device: render.NullDeviceHandle{}})
	if err != nil {
		t.Fatalf("backend.New() error = %v", err)
	}
	defer b.Close()
	g := b.(*Backend)
	if got := g.dev.Format(); got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format() = %v, want BGRA8Unorm for a device without surface", got)
	}

	m := output.NewManager()
	o := m.Add(output.Config{Name: "eDP-1", Geometry: image.Rect(0, 0, 20, 10), Enabled: true})
	f, err := b.BeginFrame(o)
	if err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if _, ok := f.Buffer.Target().(*render.TextureTarget); !ok {
		t.Errorf("backbuffer = %T, want *render.TextureTarget", f.Buffer.Target())
	}
	if err := f.Draw(); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	all := region.Rect(o.Geometry())
	if err := f.Painter.Fill(all, color.White); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	res, err := b.EndFrame(f, all, all)
	if err != nil || !res.Presented {
		t.Fatalf("EndFrame() = %+v, %v; want presented", res, err)
	}
	if got := g.dev.Fences(); got != 1 {
		t.Errorf("Fences() = %d, want 1", got)
	}
	if p := f.Painter.(*render.GPUPainter); p.Pending() != 0 || p.Submitted() != 1 {
		t.Errorf("painter pending %d submitted %d, want 0 and 1", p.Pending(), p.Submitted())
	}
}

func texDesc(label string, side int) render.TextureDescriptor {
	return render.WindowTextureDescriptor(label, side, side)
}

func TestMemoryEviction(t *testing.T) {
	dev, err := NewDevice(render.NullDeviceHandle{}, MinMemoryMB)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	const side = 1024 // 4 MB each
	var texs []*Texture
	for i := range 4 {
		tex, err := dev.NewTexture(texDesc("w", side))
		if err != nil {
			t.Fatalf("NewTexture(%d) error = %v", i, err)
		}
		texs = append(texs, tex.(*Texture))
	}
	stats := dev.memory.Stats()
	if stats.TextureCount != 4 || stats.AvailableBytes != 0 {
		t.Fatalf("Stats() = %v, want 4 textures and a full budget", stats)
	}

	content := image.NewRGBA(image.Rect(0, 0, side, side))
	content.Set(3, 3, color.White)
	if err := texs[0].Update(content, region.Rect(content.Bounds())); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// texs[1] is now the least recently used.
	if _, err := dev.NewTexture(texDesc("new", side)); err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	if dev.memory.Resident(texs[1]) {
		t.Error("least recently used texture still resident")
	}
	if !dev.memory.Resident(texs[0]) {
		t.Error("recently updated texture was evicted")
	}
	if got := dev.memory.Stats().EvictionCount; got != 1 {
		t.Errorf("EvictionCount = %d, want 1", got)
	}

	if err := texs[1].Update(content, region.Rect(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("Update() of evicted texture error = %v", err)
	}
	if !dev.memory.Resident(texs[1]) {
		t.Error("Update() did not make the evicted texture resident")
	}
	if dev.memory.Resident(texs[2]) {
		t.Error("re-upload did not evict the next least recently used texture")
	}
	if got := texs[0].Image().RGBAAt(3, 3); got != (color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}) {
		t.Errorf("shadow pixel = %v, want white", got)
	}
}

func TestMemoryBudgetExceeded(t *testing.T) {
	dev, err := NewDevice(render.NullDeviceHandle{}, MinMemoryMB)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	if _, err := dev.NewTexture(texDesc("huge", 4096)); !errors.Is(err, ErrMemoryBudgetExceeded) {
		t.Errorf("NewTexture(64 MB) error = %v, want %v", err, ErrMemoryBudgetExceeded)
	}
}

func TestTextureDestroy(t *testing.T) {
	dev, err := NewDevice(render.NullDeviceHandle{}, 0)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	if got := dev.memory.Stats().TotalBytes; got != DefaultMaxMemoryMB*1024*1024 {
		t.Errorf("TotalBytes = %d, want default budget", got)
	}
	tex, err := dev.NewTexture(texDesc("w", 8))
	if err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	tex.Destroy()
	if got := dev.memory.Stats(); got.UsedBytes != 0 || got.TextureCount != 0 {
		t.Errorf("Stats() after Destroy = %v, want empty", got)
	}
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	if err := tex.Update(src, region.Rect(src.Bounds())); !errors.Is(err, render.ErrTextureDestroyed) {
		t.Errorf("Update() after Destroy error = %v, want %v", err, render.ErrTextureDestroyed)
	}
}

func TestSetBudgetEvicts(t *testing.T) {
	m := NewMemoryManager(32)
	dev := &Device{handle: render.NullDeviceHandle{}, memory: m}
	for range 6 {
		if _, err := dev.NewTexture(texDesc("w", 1024)); err != nil {
			t.Fatalf("NewTexture() error = %v", err)
		}
	}
	if err := m.SetBudget(MinMemoryMB); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	st := m.Stats()
	if st.TextureCount != 4 || st.EvictionCount != 2 {
		t.Errorf("Stats() = %v, want 4 textures and 2 evictions", st)
	}
	m.Close()
	if err := m.SetBudget(64); !errors.Is(err, ErrMemoryManagerClosed) {
		t.Errorf("SetBudget() after Close error = %v, want %v", err, ErrMemoryManagerClosed)
	}
}

// halHandle is a device handle exposing a noop HAL device.
type halHandle struct {
	render.NullDeviceHandle
	device hal.Device
	queue  hal.Queue
}

func (h halHandle) HalDevice() any { return h.device }
func (h halHandle) HalQueue() any  { return h.queue }

func newHALHandle(t *testing.T) halHandle {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance() error = %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		open.Device.Destroy()
		instance.Destroy()
	})
	return halHandle{device: open.Device, queue: open.Queue}
}

func TestDeviceTexturesFollowResidency(t *testing.T) {
	dev, err := NewDevice(newHALHandle(t), MinMemoryMB)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	if !dev.HAL() {
		t.Fatal("HAL() = false for a handle exposing a HAL device")
	}
	const side = 1024 // 4 MB each
	var texs []*Texture
	for range 4 {
		tex, err := dev.NewTexture(texDesc("w", side))
		if err != nil {
			t.Fatalf("NewTexture() error = %v", err)
		}
		texs = append(texs, tex.(*Texture))
	}
	for i, tex := range texs {
		if tex.DeviceTexture() == nil {
			t.Errorf("texture %d has no device texture while resident", i)
		}
	}

	if _, err := dev.NewTexture(texDesc("new", side)); err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	if texs[0].DeviceTexture() != nil {
		t.Error("evicted texture kept its device texture")
	}

	content := image.NewRGBA(image.Rect(0, 0, side, side))
	if err := texs[0].Update(content, region.Rect(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if texs[0].DeviceTexture() == nil {
		t.Error("Update() did not recreate the device texture")
	}
	if got := texs[0].Uploads(); got != 1 {
		t.Errorf("Uploads() = %d, want 1", got)
	}

	texs[0].Destroy()
	if texs[0].DeviceTexture() != nil {
		t.Error("Destroy() kept the device texture")
	}
	dev.Close()
	for i, tex := range texs[1:] {
		if tex.DeviceTexture() != nil {
			t.Errorf("texture %d kept its device texture after Close", i+1)
		}
	}
}

func TestBackbufferDeviceTexture(t *testing.T) {
	dev, err := NewDevice(newHALHandle(t), 0)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	target, err := dev.NewBuffer(16, 8)
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	v := target.(*render.TextureTarget).TextureView().(*view)
	if v.texture == nil || v.view == nil {
		t.Fatal("backbuffer has no device texture")
	}
	v.Destroy()
	if v.texture != nil || v.view != nil || !v.destroyed {
		t.Errorf("Destroy() left texture %v view %v destroyed %v", v.texture, v.view, v.destroyed)
	}

	plain, err := NewDevice(render.NullDeviceHandle{}, 0)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	if plain.HAL() {
		t.Error("HAL() = true for a handle without a HAL device")
	}
	target, err = plain.NewBuffer(16, 8)
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	if v := target.(*render.TextureTarget).TextureView().(*view); v.texture != nil {
		t.Error("backbuffer has a device texture without HAL access")
	}
}
