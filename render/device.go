// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/region"
)

// DeviceHandle provides GPU device access from the host platform.
//
// The compositor RECEIVES the device from the platform layer (DRM lease,
// nested session, test harness), it does NOT create one. Backends that
// need a GPU take a DeviceHandle at construction.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider.
type DeviceHandle = gpucontext.DeviceProvider

// TextureDescriptor describes parameters for creating a texture.
type TextureDescriptor struct {
	// Label is an optional debug label for the texture.
	Label string

	// Width is the texture width in pixels.
	Width uint32

	// Height is the texture height in pixels.
	Height uint32

	// Format is the texture pixel format.
	Format gputypes.TextureFormat

	// Usage specifies how the texture will be used.
	Usage gputypes.TextureUsage
}

// WindowTextureDescriptor returns the descriptor used for window content
// textures: sampled during compositing and updated from client buffers.
func WindowTextureDescriptor(label string, width, height int) TextureDescriptor {
	return TextureDescriptor{
		Label:  label,
		Width:  clampDim(width),
		Height: clampDim(height),
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}
}

// TargetTextureDescriptor returns the descriptor used for backbuffers and
// offscreen render targets.
func TargetTextureDescriptor(label string, width, height int, format gputypes.TextureFormat) TextureDescriptor {
	return TextureDescriptor{
		Label:  label,
		Width:  clampDim(width),
		Height: clampDim(height),
		Format: format,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc,
	}
}

// Texture is a per-backend image resource holding window content.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() int

	// Height returns the texture height in pixels.
	Height() int

	// Format returns the texture pixel format.
	Format() gputypes.TextureFormat

	// Image returns the CPU copy of the contents used by software paths.
	Image() *image.RGBA

	// Update copies the pixels of src inside damage, given in texture
	// coordinates, into the texture. A source of a different size
	// reallocates the texture and copies everything.
	Update(src image.Image, damage region.Region) error

	// Destroy releases the resources held by the texture.
	Destroy()
}

// TextureView represents a GPU view into a texture or framebuffer.
type TextureView interface {
	// Destroy releases resources associated with this view.
	Destroy()
}

// NullDeviceHandle is a DeviceHandle without a GPU.
// Used by headless and software presentation.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}

func clampDim(v int) uint32 {
	if v < 0 {
		return 0
	}
	//nolint:gosec // G115: checked non-negative, dimensions fit in uint32
	return uint32(v)
}
