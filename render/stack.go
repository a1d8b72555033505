// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/compositor/internal/logging"
)

// Render-target stack errors.
var (
	// ErrStackUnderflow is returned by Pop on an empty stack.
	ErrStackUnderflow = errors.New("render: target stack underflow")

	// ErrUnbalancedStack reports targets left pushed at the end of a frame.
	ErrUnbalancedStack = errors.New("render: target stack not empty at end of frame")

	// ErrTargetAllocation is returned when a render target cannot be allocated.
	ErrTargetAllocation = errors.New("render: target allocation failed")
)

// Binding is one entry of a TargetStack: a target and the rectangle of
// global compositor space it covers. Drawing maps Viewport onto the full
// target, scaling when the sizes differ.
type Binding struct {
	Target   RenderTarget
	Viewport image.Rectangle
}

// Transform returns the mapping from global coordinates to target pixels.
func (b Binding) Transform() Matrix {
	vw, vh := b.Viewport.Dx(), b.Viewport.Dy()
	sx, sy := 1.0, 1.0
	if vw > 0 && vh > 0 {
		sx = float64(b.Target.Width()) / float64(vw)
		sy = float64(b.Target.Height()) / float64(vh)
	}
	return Scale(sx, sy).Multiply(Translate(-float64(b.Viewport.Min.X), -float64(b.Viewport.Min.Y)))
}

// TargetStack is the LIFO of render targets a frame draws into.
//
// The backbuffer is pushed by the backend when a frame begins. Effects
// push an offscreen target to redirect drawing and must pop it before
// returning. The stack must be empty when the frame's drawing completes.
//
// TargetStack is not safe for concurrent use.
type TargetStack struct {
	entries []Binding
	pushes  int
}

// NewTargetStack creates an empty stack.
func NewTargetStack() *TargetStack {
	return &TargetStack{}
}

// Push makes t the current target for the area viewport.
func (s *TargetStack) Push(t RenderTarget, viewport image.Rectangle) {
	s.entries = append(s.entries, Binding{Target: t, Viewport: viewport})
	s.pushes++
}

// Pop removes the current target.
func (s *TargetStack) Pop() (RenderTarget, error) {
	n := len(s.entries)
	if n == 0 {
		return nil, ErrStackUnderflow
	}
	b := s.entries[n-1]
	s.entries[n-1] = Binding{}
	s.entries = s.entries[:n-1]
	return b.Target, nil
}

// Top returns the current binding. ok is false when the stack is empty.
func (s *TargetStack) Top() (b Binding, ok bool) {
	if len(s.entries) == 0 {
		return Binding{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Len returns the stack depth.
func (s *TargetStack) Len() int { return len(s.entries) }

// Pushes returns the number of pushes since the stack was created.
func (s *TargetStack) Pushes() int { return s.pushes }

// Discard empties the stack without checking balance and returns the
// number of entries dropped. It is used when a frame is abandoned, for
// example because its output was disabled while drawing.
func (s *TargetStack) Discard() int {
	n := len(s.entries)
	clear(s.entries)
	s.entries = s.entries[:0]
	return n
}

// CheckEmpty verifies the stack is empty at the end of a frame.
//
// A non-empty stack is a contract violation of whoever pushed without
// popping. It is logged, the stack is reset so the next frame starts
// clean, and ErrUnbalancedStack is returned. Builds with the compdebug tag
// panic instead.
func (s *TargetStack) CheckEmpty() error {
	n := len(s.entries)
	if n == 0 {
		return nil
	}
	err := fmt.Errorf("%w: %d entries", ErrUnbalancedStack, n)
	logging.Logger().Error("render target stack unbalanced at frame end", "depth", n)
	s.Discard()
	assertBalanced(err)
	return err
}
