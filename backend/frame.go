// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"fmt"

	"github.com/gogpu/compositor/output"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// FrameState is the state of a frame.
type FrameState uint8

// Frame states.
const (
	StateIdle FrameState = iota
	StateBeginFrame
	StateDrawing
	StateCommit
	StateRollback
)

// String returns the state name.
func (s FrameState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBeginFrame:
		return "begin-frame"
	case StateDrawing:
		return "drawing"
	case StateCommit:
		return "commit"
	case StateRollback:
		return "rollback"
	default:
		return fmt.Sprintf("FrameState(%d)", uint8(s))
	}
}

// Finished reports whether the frame reached a final state.
func (s FrameState) Finished() bool {
	return s == StateCommit || s == StateRollback
}

// Frame is one attempt at presenting an output.
type Frame struct {
	Output *output.Output

	// Buffer is the backbuffer being drawn.
	Buffer *Buffer

	// Age is the buffer age used to compute Repair; 0 means the contents
	// are undefined.
	Age int

	// Repair is the part of the backbuffer that is stale, in global
	// coordinates.
	Repair region.Region

	// Stack holds the backbuffer while drawing. Painter draws into its top.
	Stack   *render.TargetStack
	Painter render.Painter

	state FrameState
}

// State returns the frame state.
func (f *Frame) State() FrameState { return f.state }

// Draw moves the frame to Drawing and binds the backbuffer.
func (f *Frame) Draw() error {
	if f.state != StateBeginFrame {
		return fmt.Errorf("%w: draw in state %s", ErrInvalidState, f.state)
	}
	f.Stack.Push(f.Buffer.Target(), f.Output.Geometry())
	f.state = StateDrawing
	return nil
}
