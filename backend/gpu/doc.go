// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpu provides a presentation backend on a platform GPU device.
//
// The compositor does not create the device. The host passes it in
// backend.Options.Device; without one the backend is unavailable and
// backend.Default falls back to the next registered backend:
//
//	import _ "github.com/gogpu/compositor/backend/gpu"
//
//	b, err := backend.Default(backend.Options{Device: provider})
//
// Window textures are kept within a memory budget by a MemoryManager.
// Providers that also expose HalDevice() and HalQueue() get device
// textures for backbuffers and resident window textures.
package gpu
