// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package dim darkens windows that do not have focus.
package dim

import (
	"sync"

	"github.com/gogpu/compositor/arena"
	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/region"
)

// Name is the effect name.
const Name = "dim"

// Defaults for inactive windows.
const (
	DefaultBrightness = 0.75
	DefaultSaturation = 0.6
)

// Effect dims inactive windows.
type Effect struct {
	mu         sync.Mutex
	host       effect.Host
	brightness float64
	saturation float64
	active     arena.Handle
	hasActive  bool
}

// New creates the effect with default strength.
func New() *Effect {
	return &Effect{brightness: DefaultBrightness, saturation: DefaultSaturation}
}

// Name returns Name.
func (e *Effect) Name() string { return Name }

// IsActive reports true; every frame may contain inactive windows.
func (e *Effect) IsActive() bool { return true }

// Load keeps the host for repaint requests.
func (e *Effect) Load(host effect.Host) error {
	e.host = host
	return nil
}

// Reconfigure reads "brightness" and "saturation".
func (e *Effect) Reconfigure(s effect.Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.brightness = clamp(s.Float("brightness", DefaultBrightness))
	e.saturation = clamp(s.Float("saturation", DefaultSaturation))
}

// PaintWindow dims w unless it has focus or is a closing remnant.
func (e *Effect) PaintWindow(w effect.Window, mask effect.PaintMask, r region.Region, data *effect.WindowPaintData, next effect.WindowPaintFunc) {
	if !w.IsActive() && w.Remnant() == nil {
		e.mu.Lock()
		data.Brightness *= e.brightness
		data.Saturation *= e.saturation
		e.mu.Unlock()
	}
	next(w, mask, r, data)
}

// WindowActivated repaints the windows losing and gaining focus.
func (e *Effect) WindowActivated(w effect.Window) {
	if e.host == nil {
		return
	}
	e.mu.Lock()
	prev, hadPrev := e.active, e.hasActive
	e.active, e.hasActive = w.Handle(), true
	e.mu.Unlock()

	dirty := region.Rect(w.Geometry())
	if hadPrev && prev != w.Handle() {
		if pw, ok := e.host.Window(prev); ok {
			dirty = dirty.UnionRect(pw.Geometry())
		}
	}
	e.host.AddRepaint(dirty)
}

// WindowAdded does nothing.
func (e *Effect) WindowAdded(effect.Window) {}

// WindowClosed forgets a closed active window.
func (e *Effect) WindowClosed(w effect.Window) {
	e.mu.Lock()
	if e.hasActive && e.active == w.Handle() {
		e.hasActive = false
	}
	e.mu.Unlock()
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}

var (
	_ effect.WindowPainter  = (*Effect)(nil)
	_ effect.WindowListener = (*Effect)(nil)
	_ effect.Configurable   = (*Effect)(nil)
	_ effect.Loader         = (*Effect)(nil)
)
