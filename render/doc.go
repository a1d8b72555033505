// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package render provides render targets, the render-target stack and the
// painters that draw window contents into them.
//
// # Key Principle
//
// The compositor RECEIVES a GPU device from the platform, it does NOT
// create its own. Backends take a DeviceHandle and hand targets and
// painters to the scene.
//
// # Render-Target Stack
//
// Every frame draws through a TargetStack. The backend pushes the
// backbuffer when the frame begins; an effect that renders offscreen
// pushes its own target, draws, and pops before returning. The stack must
// be empty once drawing completes:
//
//	stack.Push(thumb, window.Geometry())
//	err := chain.DrawWindow(w, mask, clip, data)
//	stack.Pop()
//
// A violation is logged and reported as ErrUnbalancedStack. Building with
// the compdebug tag turns it into a panic.
//
// # Painters
//
//   - SoftwarePainter: CPU drawing with golang.org/x/image/draw
//   - GPUPainter: device-bound drawing with a fence on Flush
//
// # RenderTarget Implementations
//
//   - PixmapTarget: CPU-backed *image.RGBA target
//   - TextureTarget: GPU texture target with a CPU shadow
package render
