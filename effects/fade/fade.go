// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package fade fades windows in when they appear and out when they close.
//
// A closing window is kept as a remnant: the effect takes a reference
// when the window closes and drops it when the animation ends.
package fade

import (
	"time"

	"github.com/gogpu/compositor/arena"
	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/region"
)

// Name is the effect name.
const Name = "fade"

// DefaultDuration is the length of both animations.
const DefaultDuration = 150 * time.Millisecond

type animation struct {
	window  effect.Window
	start   time.Duration
	in      bool
	remnant effect.Remnant
}

// Effect animates window opacity. It is used from the rendering
// goroutine only.
type Effect struct {
	host     effect.Host
	duration time.Duration
	fadeIn   bool
	fadeOut  bool
	anims    map[arena.Handle]*animation
}

// New creates the effect with default settings.
func New() *Effect {
	return &Effect{
		duration: DefaultDuration,
		fadeIn:   true,
		fadeOut:  true,
		anims:    make(map[arena.Handle]*animation),
	}
}

// Name returns Name.
func (e *Effect) Name() string { return Name }

// IsActive reports whether an animation is running.
func (e *Effect) IsActive() bool { return len(e.anims) > 0 }

// Animating reports whether w is being faded.
func (e *Effect) Animating(h arena.Handle) bool {
	_, ok := e.anims[h]
	return ok
}

// Load keeps the host.
func (e *Effect) Load(host effect.Host) error {
	e.host = host
	return nil
}

// Unload ends every animation and drops the remnants it holds.
func (e *Effect) Unload() {
	for h, a := range e.anims {
		e.finish(h, a)
	}
}

// Reconfigure reads "duration", "fade_in" and "fade_out".
func (e *Effect) Reconfigure(s effect.Settings) {
	e.duration = s.Duration("duration", DefaultDuration)
	e.fadeIn = s.Bool("fade_in", true)
	e.fadeOut = s.Bool("fade_out", true)
}

// WindowAdded starts a fade-in.
func (e *Effect) WindowAdded(w effect.Window) {
	if !e.fadeIn || e.host == nil {
		return
	}
	if err := e.host.Registry().ClaimWindow(w.Handle(), effect.RoleWindowAdded, e, false); err != nil {
		logging.Logger().Debug("fade-in skipped", "window", w.Handle(), "err", err)
		return
	}
	e.anims[w.Handle()] = &animation{window: w, start: e.host.Now(), in: true}
	e.host.AddRepaint(region.Rect(w.Geometry()))
}

// WindowClosed starts a fade-out of the remnant of w.
func (e *Effect) WindowClosed(w effect.Window) {
	if e.host == nil {
		return
	}
	if a, ok := e.anims[w.Handle()]; ok {
		// Closed while fading in.
		e.finish(w.Handle(), a)
	}
	rem := w.Remnant()
	if !e.fadeOut || rem == nil {
		return
	}
	if err := e.host.Registry().ClaimWindow(w.Handle(), effect.RoleWindowClosed, e, false); err != nil {
		logging.Logger().Debug("fade-out skipped", "window", w.Handle(), "err", err)
		return
	}
	rem.Ref()
	e.anims[w.Handle()] = &animation{window: w, start: e.host.Now(), remnant: rem}
	e.host.AddRepaint(region.Rect(w.Geometry()))
}

// WindowActivated does nothing.
func (e *Effect) WindowActivated(effect.Window) {}

// PrePaintWindow marks animated windows translucent.
func (e *Effect) PrePaintWindow(w effect.Window, data *effect.WindowPrePaintData, next effect.WindowPrePaintFunc) {
	if _, ok := e.anims[w.Handle()]; ok {
		data.SetTranslucent()
	}
	next(w, data)
}

// PaintWindow scales the opacity of animated windows.
func (e *Effect) PaintWindow(w effect.Window, mask effect.PaintMask, r region.Region, data *effect.WindowPaintData, next effect.WindowPaintFunc) {
	if a, ok := e.anims[w.Handle()]; ok {
		p := e.progress(a)
		if a.in {
			data.Opacity *= p
		} else {
			data.Opacity *= 1 - p
		}
	}
	next(w, mask, r, data)
}

// PostPaintScreen ends finished animations and schedules the next frame
// of running ones.
func (e *Effect) PostPaintScreen(next effect.ScreenPostFunc) {
	for h, a := range e.anims {
		if e.progress(a) >= 1 {
			e.finish(h, a)
			continue
		}
		e.host.AddRepaint(region.Rect(a.window.Geometry()))
	}
	next()
}

func (e *Effect) progress(a *animation) float64 {
	if e.duration <= 0 {
		return 1
	}
	p := float64(e.host.Now()-a.start) / float64(e.duration)
	return min(max(p, 0), 1)
}

func (e *Effect) finish(h arena.Handle, a *animation) {
	delete(e.anims, h)
	role := effect.RoleWindowClosed
	if a.in {
		role = effect.RoleWindowAdded
	}
	if err := e.host.Registry().ReleaseWindow(h, role, e); err != nil {
		logging.Logger().Debug("fade release", "window", h, "err", err)
	}
	e.host.AddRepaint(region.Rect(a.window.Geometry()))
	if a.remnant != nil {
		a.remnant.Unref()
	}
}

var (
	_ effect.WindowPrePainter  = (*Effect)(nil)
	_ effect.WindowPainter     = (*Effect)(nil)
	_ effect.ScreenPostPainter = (*Effect)(nil)
	_ effect.WindowListener    = (*Effect)(nil)
	_ effect.Unloader          = (*Effect)(nil)
)
