// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package output models the physical displays the compositor paints.
//
// Outputs are created and destroyed by hot-plug through a Manager. Each
// output carries the buffer-age history of its swapchain; the history is
// discarded whenever the contents of the backbuffers become meaningless,
// such as when the output is disabled or resized.
package output

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/compositor/damage"
)

// ID identifies an output. It is shared with the damage tracker.
type ID = damage.OutputID

// DefaultRefreshRate is the refresh rate in millihertz used when a
// configuration does not name one.
const DefaultRefreshRate = 60000

// Transform is the rotation applied when scanning out the output.
type Transform uint8

// Output transforms.
const (
	TransformNormal Transform = iota
	TransformRotate90
	TransformRotate180
	TransformRotate270
)

// String returns the transform name.
func (t Transform) String() string {
	switch t {
	case TransformNormal:
		return "normal"
	case TransformRotate90:
		return "90"
	case TransformRotate180:
		return "180"
	case TransformRotate270:
		return "270"
	default:
		return fmt.Sprintf("Transform(%d)", uint8(t))
	}
}

// Config is the configurable state of an output.
type Config struct {
	Name      string
	Geometry  image.Rectangle
	Scale     float64
	Transform Transform
	Enabled   bool

	// RefreshRate is in millihertz.
	RefreshRate int
}

func (c Config) normalize() Config {
	if c.Scale <= 0 {
		c.Scale = 1
	}
	if c.RefreshRate <= 0 {
		c.RefreshRate = DefaultRefreshRate
	}
	return c
}

// Output is one physical display.
//
// Configuration accessors are safe for concurrent use. History belongs to
// the rendering goroutine.
type Output struct {
	id ID

	mu  sync.RWMutex
	cfg Config

	history damage.History
	pending atomic.Bool
}

// ID returns the output identifier.
func (o *Output) ID() ID { return o.id }

// Name returns the connector name.
func (o *Output) Name() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg.Name
}

// Geometry returns the position and size in global coordinates.
func (o *Output) Geometry() image.Rectangle {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg.Geometry
}

// Scale returns the scale factor.
func (o *Output) Scale() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg.Scale
}

// Transform returns the scan-out transform.
func (o *Output) Transform() Transform {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg.Transform
}

// IsEnabled reports whether the output is painted.
func (o *Output) IsEnabled() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg.Enabled
}

// RefreshRate returns the refresh rate in millihertz.
func (o *Output) RefreshRate() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg.RefreshRate
}

// RefreshInterval returns the duration of one refresh cycle.
func (o *Output) RefreshInterval() time.Duration {
	return time.Duration(int64(time.Second) * 1000 / int64(max(o.RefreshRate(), 1)))
}

// Config returns a copy of the configuration.
func (o *Output) Config() Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg
}

// History returns the buffer-age history.
func (o *Output) History() *damage.History { return &o.history }

// PendingCommit reports whether a commit is waiting for presentation.
func (o *Output) PendingCommit() bool { return o.pending.Load() }

// SetPendingCommit marks a commit as in flight or presented.
func (o *Output) SetPendingCommit(v bool) { o.pending.Store(v) }

// String returns a short description for logs.
func (o *Output) String() string {
	c := o.Config()
	return fmt.Sprintf("%s#%d %v@%gx", c.Name, o.id, c.Geometry, c.Scale)
}

// set replaces the configuration and reports whether the buffer contents
// became invalid.
func (o *Output) set(cfg Config) (invalidated bool) {
	o.mu.Lock()
	old := o.cfg
	o.cfg = cfg
	o.mu.Unlock()

	invalidated = !cfg.Enabled || old.Geometry.Size() != cfg.Geometry.Size() ||
		old.Scale != cfg.Scale || old.Transform != cfg.Transform
	if invalidated {
		o.history.Clear()
	}
	return invalidated
}
