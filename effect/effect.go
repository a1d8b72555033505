// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package effect

import (
	"image"
	"time"

	"github.com/gogpu/compositor/arena"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/region"
)

// Effect is a stage of the effect chain.
//
// An effect takes part in a pass by implementing the matching hook
// interface (ScreenPainter, WindowPainter, ...). Effects that do not
// implement a hook are skipped for that pass.
type Effect interface {
	// Name returns the unique name of the effect.
	Name() string

	// IsActive reports whether the effect takes part in the next frame.
	// It is evaluated once per frame when painting starts.
	IsActive() bool
}

// Continuations handed to hooks. Calling one delegates to the next stage
// of the chain; not calling it ends the pass for that call.
type (
	ScreenPrePaintFunc func(data *ScreenPrePaintData)
	ScreenPaintFunc    func(mask PaintMask, r region.Region, data *ScreenPaintData)
	ScreenPostFunc     func()
	WindowPrePaintFunc func(w Window, data *WindowPrePaintData)
	WindowPaintFunc    func(w Window, mask PaintMask, r region.Region, data *WindowPaintData)
	WindowPostFunc     func(w Window)
	QuadFunc           func(w Window, quads *QuadList)
)

// ScreenPrePainter runs before anything is painted. It may extend the
// paint region and set mask flags.
type ScreenPrePainter interface {
	PrePaintScreen(data *ScreenPrePaintData, next ScreenPrePaintFunc)
}

// ScreenPainter wraps painting of the whole screen.
type ScreenPainter interface {
	PaintScreen(mask PaintMask, r region.Region, data *ScreenPaintData, next ScreenPaintFunc)
}

// ScreenPostPainter runs after the screen is painted, typically to
// schedule the next animation frame.
type ScreenPostPainter interface {
	PostPaintScreen(next ScreenPostFunc)
}

// WindowPrePainter runs for each window before painting.
type WindowPrePainter interface {
	PrePaintWindow(w Window, data *WindowPrePaintData, next WindowPrePaintFunc)
}

// WindowPainter wraps painting of one window.
type WindowPainter interface {
	PaintWindow(w Window, mask PaintMask, r region.Region, data *WindowPaintData, next WindowPaintFunc)
}

// WindowPostPainter runs for each window after painting.
type WindowPostPainter interface {
	PostPaintWindow(w Window, next WindowPostFunc)
}

// WindowDrawer wraps the final drawing of one window. Unlike PaintWindow
// it is also used when a window is drawn outside of screen painting, for
// example into a thumbnail.
type WindowDrawer interface {
	DrawWindow(w Window, mask PaintMask, r region.Region, data *WindowPaintData, next WindowPaintFunc)
}

// QuadBuilder may change the drawable geometry of a window.
type QuadBuilder interface {
	BuildQuads(w Window, quads *QuadList, next QuadFunc)
}

// Loader is implemented by effects that need the host when loaded.
type Loader interface {
	Load(host Host) error
}

// Unloader is implemented by effects that release state when unloaded.
type Unloader interface {
	Unload()
}

// Settings holds effect specific configuration values.
type Settings map[string]any

// Float returns the number stored under key, or def when it is missing or
// not a number.
func (s Settings) Float(key string, def float64) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// Bool returns the boolean stored under key, or def.
func (s Settings) Bool(key string, def bool) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return def
}

// Duration returns the duration stored under key, or def. Numbers are
// read as milliseconds and strings with time.ParseDuration.
func (s Settings) Duration(key string, def time.Duration) time.Duration {
	switch v := s[key].(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		return def
	default:
		if ms := s.Float(key, -1); ms >= 0 {
			return time.Duration(ms * float64(time.Millisecond))
		}
		return def
	}
}

// Configurable is implemented by effects that accept configuration.
type Configurable interface {
	Reconfigure(s Settings)
}

// WindowListener receives window lifecycle notifications.
type WindowListener interface {
	WindowAdded(w Window)
	WindowClosed(w Window)
	WindowActivated(w Window)
}

// KeyboardGrabber receives keyboard events while holding the grab.
type KeyboardGrabber interface {
	GrabbedKeyboardEvent(ev KeyEvent)
}

// PointerInterceptor receives pointer events while intercepting.
type PointerInterceptor interface {
	InterceptedPointerEvent(ev PointerEvent)
}

// Remnant is the frozen state of a closed window kept for an outgoing
// animation. Holders call Ref before using it across frames and Unref
// when done.
type Remnant interface {
	Ref()
	Unref()
	Refs() int
}

// Window is the paint-time view of a window.
type Window interface {
	// Handle identifies the window for the current frame.
	Handle() arena.Handle

	// Geometry is the frame geometry in global coordinates.
	Geometry() image.Rectangle

	// Opacity is the window opacity set by window management.
	Opacity() float64

	// Desktop returns the virtual desktop, 0 for all desktops.
	Desktop() int

	// IsActive reports whether the window has focus.
	IsActive() bool

	// Caption is the window title.
	Caption() string

	// Remnant returns the remnant of a closed window, nil while the
	// window is alive.
	Remnant() Remnant

	// Texture returns the window contents, nil if not yet created.
	Texture() render.Texture
}

// Host is the compositor as seen by effects.
type Host interface {
	Registry() *Registry
	Chain() *Chain

	// Stacking returns the stacking order of the current frame, bottom
	// to top.
	Stacking() []Window

	// Window resolves a handle. It reports false for destroyed windows.
	Window(h arena.Handle) (Window, bool)

	CurrentDesktop() int
	Desktops() int

	// SetCurrentDesktop switches the virtual desktop shown on every output.
	SetCurrentDesktop(d int)

	// Targets is the pool of offscreen render targets.
	Targets() *render.TargetPool

	// AddRepaint damages r on every output it overlaps.
	AddRepaint(r region.Region)

	// AddRepaintFull damages every output.
	AddRepaintFull()

	// Pin keeps the render resources of a window alive while it is not
	// visible. Every Pin must be matched by an Unpin.
	Pin(h arena.Handle)
	Unpin(h arena.Handle)

	// Now is the presentation clock used for animations.
	Now() time.Duration
}
