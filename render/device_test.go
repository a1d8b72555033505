// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestNullDeviceHandle(t *testing.T) {
	var handle DeviceHandle = NullDeviceHandle{}

	if handle.Device() != nil {
		t.Error("NullDeviceHandle.Device() should return nil")
	}
	if handle.Queue() != nil {
		t.Error("NullDeviceHandle.Queue() should return nil")
	}
	if handle.Adapter() != nil {
		t.Error("NullDeviceHandle.Adapter() should return nil")
	}
	if handle.SurfaceFormat() != gputypes.TextureFormatUndefined {
		t.Error("NullDeviceHandle.SurfaceFormat() should return Undefined")
	}
}

func TestTextureDescriptors(t *testing.T) {
	w := WindowTextureDescriptor("xterm", 640, 480)
	if w.Width != 640 || w.Height != 480 {
		t.Errorf("window descriptor size = %dx%d, want 640x480", w.Width, w.Height)
	}
	if w.Usage&gputypes.TextureUsageTextureBinding == 0 {
		t.Error("window texture not sampleable")
	}

	tgt := TargetTextureDescriptor("backbuffer", -1, 10, gputypes.TextureFormatBGRA8Unorm)
	if tgt.Width != 0 {
		t.Errorf("negative width clamped to %d, want 0", tgt.Width)
	}
	if tgt.Usage&gputypes.TextureUsageRenderAttachment == 0 {
		t.Error("target texture not a render attachment")
	}
	if tgt.Format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format = %v, want BGRA8Unorm", tgt.Format)
	}
}
