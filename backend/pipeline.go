// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"fmt"
	"sync"

	"github.com/gogpu/compositor/damage"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/output"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// outputState holds the per-output resources of a pipeline.
type outputState struct {
	swapchain *Swapchain
	connector Connector
	frame     *Frame
}

// Pipeline implements the frame protocol shared by all backends on top of
// a Device: swapchains with buffer age, the frame state machine and the
// atomic test and commit of each frame.
//
// Pipeline is safe for concurrent use, but frames of one output are
// strictly sequential.
type Pipeline struct {
	name string
	dev  Device
	opts Options

	mu          sync.Mutex
	outputs     map[output.ID]*outputState
	initialized bool
}

// NewPipeline creates a pipeline named name over dev.
func NewPipeline(name string, dev Device, opts Options) *Pipeline {
	return &Pipeline{
		name:    name,
		dev:     dev,
		opts:    opts.withDefaults(),
		outputs: make(map[output.ID]*outputState),
	}
}

// Name returns the backend identifier.
func (p *Pipeline) Name() string { return p.name }

// Init initializes the pipeline.
func (p *Pipeline) Init() error {
	p.mu.Lock()
	p.initialized = true
	p.mu.Unlock()
	return nil
}

// Close releases every swapchain and the device.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, st := range p.outputs {
		st.swapchain.Release()
		delete(p.outputs, id)
	}
	if p.initialized {
		p.dev.Close()
	}
	p.initialized = false
}

// SupportsBufferAge reports whether buffer age is used.
func (p *Pipeline) SupportsBufferAge() bool { return !p.opts.DisableBufferAge }

// Device returns the device of the pipeline.
func (p *Pipeline) Device() Device { return p.dev }

// NewTexture creates a window texture on the device.
func (p *Pipeline) NewTexture(desc render.TextureDescriptor) (render.Texture, error) {
	return p.dev.NewTexture(desc)
}

// Connector returns the connector of an output, creating it if needed.
func (p *Pipeline) Connector(o *output.Output) (Connector, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, err := p.state(o)
	if err != nil {
		return nil, err
	}
	return st.connector, nil
}

// state returns the resources of o. p.mu must be held.
func (p *Pipeline) state(o *output.Output) (*outputState, error) {
	if st, ok := p.outputs[o.ID()]; ok {
		return st, nil
	}
	conn, err := p.opts.Connectors(o)
	if err != nil {
		return nil, fmt.Errorf("backend: connector for %s: %w", o.Name(), err)
	}
	if conn == nil {
		return nil, errNoConnector
	}
	st := &outputState{
		swapchain: NewSwapchain(p.opts.Buffers, o.Geometry().Size(), p.dev.NewBuffer),
		connector: conn,
	}
	p.outputs[o.ID()] = st
	return st, nil
}

// BeginFrame acquires a backbuffer and computes its repair region.
func (p *Pipeline) BeginFrame(o *output.Output) (*Frame, error) {
	if !o.IsEnabled() {
		return nil, fmt.Errorf("%w: %s", ErrOutputDisabled, o.Name())
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return nil, ErrNotInitialized
	}
	st, err := p.state(o)
	if err != nil {
		return nil, err
	}
	if st.frame != nil {
		return nil, fmt.Errorf("%w: %s has a frame in state %s", ErrInvalidState, o.Name(), st.frame.state)
	}

	geom := o.Geometry()
	st.swapchain.Resize(geom.Size())
	buf, err := st.swapchain.Acquire()
	if err != nil {
		logging.Logger().Warn("frame skipped", "output", o.Name(), "err", err)
		return nil, err
	}

	stack := render.NewTargetStack()
	painter, err := p.dev.NewPainter(stack)
	if err != nil {
		return nil, fmt.Errorf("backend: painter for %s: %w", o.Name(), err)
	}

	age := buf.Age()
	f := &Frame{
		Output:  o,
		Buffer:  buf,
		Age:     age,
		Repair:  damage.RepaintRegion(p.SupportsBufferAge(), age, o.History(), geom),
		Stack:   stack,
		Painter: painter,
		state:   StateBeginFrame,
	}
	st.frame = f
	return f, nil
}

// EndFrame presents a frame.
//
// A frame without damage on its output is not presented: pending drawing
// is flushed, the frame is rolled back and the history is left alone.
// Otherwise the device is fenced, the state is tested and committed, and
// on success the damage is pushed into the output history. A failed test
// or commit rolls back, keeps the history and marks the backbuffer
// undefined.
func (p *Pipeline) EndFrame(f *Frame, rendered, damaged region.Region) (Result, error) {
	if f.state != StateDrawing {
		return Result{}, fmt.Errorf("%w: end frame in state %s", ErrInvalidState, f.state)
	}
	o := f.Output
	geom := o.Geometry()
	p.finishDrawing(f)

	p.mu.Lock()
	st, ok := p.outputs[o.ID()]
	p.mu.Unlock()
	if !ok || st.frame != f {
		f.state = StateRollback
		return Result{}, fmt.Errorf("%w: output %s removed during frame", ErrInvalidState, o.Name())
	}
	defer p.release(st)

	dmg := damaged.IntersectRect(geom)
	res := Result{Age: f.Age}
	if dmg.IsEmpty() {
		if !rendered.IsEmpty() {
			if err := f.Painter.Flush(); err != nil {
				logging.Logger().Warn("flush failed", "output", o.Name(), "err", err)
			}
		}
		f.state = StateRollback
		return res, nil
	}

	if err := p.dev.Fence(f.Painter); err != nil {
		p.rollback(st, f)
		return res, fmt.Errorf("backend: fence %s: %w", o.Name(), err)
	}
	state := State{
		Config: o.Config(),
		Buffer: f.Buffer.Target(),
		Damage: dmg.Translate(geom.Min.Mul(-1)),
	}
	if err := st.connector.Test(state); err != nil {
		p.rollback(st, f)
		return res, fmt.Errorf("%w: %s: %w", ErrTestFailed, o.Name(), err)
	}
	o.SetPendingCommit(true)
	err := st.connector.Commit(state)
	o.SetPendingCommit(false)
	if err != nil {
		p.rollback(st, f)
		return res, fmt.Errorf("%w: %s: %w", ErrCommitFailed, o.Name(), err)
	}

	st.swapchain.Presented(f.Buffer)
	o.History().Push(dmg)
	f.state = StateCommit
	res.Presented = true
	res.Damage = dmg
	return res, nil
}

// AbandonFrame rolls back a frame whose drawing was interrupted, for
// example because its output was disabled. The target stack is discarded
// without the balance check.
func (p *Pipeline) AbandonFrame(f *Frame) {
	if f.state.Finished() || f.state == StateIdle {
		return
	}
	n := f.Stack.Discard()
	logging.Logger().Info("frame abandoned", "output", f.Output.Name(), "state", f.state, "targets", n)

	p.mu.Lock()
	st, ok := p.outputs[f.Output.ID()]
	p.mu.Unlock()
	if ok && st.frame == f {
		p.rollback(st, f)
		p.release(st)
		return
	}
	f.state = StateRollback
}

// TestConfig checks a configuration with the connector of o.
func (p *Pipeline) TestConfig(o *output.Output, cfg output.Config) error {
	conn, err := p.Connector(o)
	if err != nil {
		return err
	}
	return conn.Test(State{Config: cfg})
}

// OutputRemoved releases the resources of an output.
func (p *Pipeline) OutputRemoved(id output.ID) {
	p.mu.Lock()
	st, ok := p.outputs[id]
	delete(p.outputs, id)
	p.mu.Unlock()
	if !ok {
		return
	}
	if st.frame != nil {
		st.frame.Stack.Discard()
		st.frame.state = StateRollback
	}
	st.swapchain.Release()
}

// finishDrawing unbinds the backbuffer and checks the stack is balanced.
func (p *Pipeline) finishDrawing(f *Frame) {
	if f.Stack.Len() == 1 {
		if b, ok := f.Stack.Top(); ok && b.Target == f.Buffer.Target() {
			_, _ = f.Stack.Pop()
		}
	}
	// Leftover targets are logged and discarded by the stack; the frame
	// is still presented.
	_ = f.Stack.CheckEmpty()
}

func (p *Pipeline) rollback(st *outputState, f *Frame) {
	st.swapchain.Invalidate(f.Buffer)
	f.state = StateRollback
}

func (p *Pipeline) release(st *outputState) {
	p.mu.Lock()
	st.frame = nil
	p.mu.Unlock()
}

var _ Backend = (*Pipeline)(nil)
