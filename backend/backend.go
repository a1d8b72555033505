// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"errors"

	"github.com/gogpu/compositor/output"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrInvalidState is returned when a frame operation does not match
	// the frame state.
	ErrInvalidState = errors.New("backend: invalid frame state")

	// ErrOutputDisabled is returned when a frame is begun on a disabled output.
	ErrOutputDisabled = errors.New("backend: output disabled")

	// ErrNoBackbuffer is returned when no backbuffer could be allocated.
	// The frame is skipped for that output only.
	ErrNoBackbuffer = errors.New("backend: no backbuffer")

	// ErrTestFailed is returned when the display rejected the atomic test.
	ErrTestFailed = errors.New("backend: atomic test failed")

	// ErrCommitFailed is returned when the display rejected the commit.
	ErrCommitFailed = errors.New("backend: commit failed")
)

// Backend presents frames painted by the scene to outputs.
//
// A backend runs at most one frame per output at a time. The frame state
// machine is Idle → BeginFrame → Drawing → {Commit | Rollback} → Idle.
type Backend interface {
	// Name returns the backend identifier (e.g., "software", "gpu").
	Name() string

	// Init initializes the backend.
	Init() error

	// Close releases all backend resources.
	Close()

	// SupportsBufferAge reports whether backbuffer contents survive
	// presentation so that only damage needs repainting.
	SupportsBufferAge() bool

	// BeginFrame acquires a backbuffer for o and computes the area of it
	// that must be repaired.
	BeginFrame(o *output.Output) (*Frame, error)

	// EndFrame finishes drawing, then tests and commits the backbuffer.
	// rendered is what was painted, damaged what changed on screen.
	EndFrame(f *Frame, rendered, damaged region.Region) (Result, error)

	// AbandonFrame rolls a frame back without presenting it or checking
	// the render target stack.
	AbandonFrame(f *Frame)

	// TestConfig checks a proposed output configuration with the display.
	TestConfig(o *output.Output, cfg output.Config) error

	// OutputRemoved releases the per-output resources of an unplugged output.
	OutputRemoved(id output.ID)

	// NewTexture creates a window texture.
	NewTexture(desc render.TextureDescriptor) (render.Texture, error)
}

// Result reports the outcome of EndFrame.
type Result struct {
	// Presented is false when the frame had no damage on its output.
	Presented bool

	// Damage is the region recorded in the output history.
	Damage region.Region

	// Age is the age of the backbuffer the frame was drawn into.
	Age int
}

// Device is what a concrete backend provides to a Pipeline.
type Device interface {
	// NewBuffer allocates a backbuffer.
	NewBuffer(width, height int) (render.RenderTarget, error)

	// NewPainter creates a painter drawing into the top of stack.
	NewPainter(stack *render.TargetStack) (render.Painter, error)

	// NewTexture creates a window texture.
	NewTexture(desc render.TextureDescriptor) (render.Texture, error)

	// Fence waits until the work recorded by p is complete.
	Fence(p render.Painter) error

	// Close releases the device.
	Close()
}

// Options configure a backend.
type Options struct {
	// Buffers is the number of backbuffers per output. Defaults to
	// DefaultBuffers.
	Buffers int

	// DisableBufferAge makes every frame repaint the whole output.
	DisableBufferAge bool

	// Connectors creates the display connector of an output. Defaults to
	// headless connectors.
	Connectors ConnectorFactory

	// Device is the GPU device handle used by GPU backends.
	Device render.DeviceHandle

	// TextureBudgetMB bounds the device memory used by window textures
	// on GPU backends. Zero selects the backend default.
	TextureBudgetMB int
}

// DefaultBuffers is the default swapchain length.
const DefaultBuffers = 2

func (o Options) withDefaults() Options {
	if o.Buffers <= 0 {
		o.Buffers = DefaultBuffers
	}
	if o.Connectors == nil {
		o.Connectors = HeadlessConnectors
	}
	return o
}
