// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"image"

	"github.com/gogpu/compositor/arena"
	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/region"
)

// Client is a window as provided by window management.
type Client interface {
	// Geometry is the frame geometry in global coordinates.
	Geometry() image.Rectangle

	// Image returns the current contents, sized like Geometry.
	// It returns nil while no buffer is attached.
	Image() image.Image

	Opacity() float64

	// IsVisible reports whether the window is mapped and not minimized.
	IsVisible() bool

	// OpaqueRegion is the part of the window, in window coordinates,
	// that is fully opaque at opacity 1.
	OpaqueRegion() region.Region

	// Desktop returns the virtual desktop, 0 for all desktops.
	Desktop() int

	IsActive() bool
	Caption() string
}

// Window is the scene record of a client or of its remnant.
type Window struct {
	scene   *Scene
	handle  arena.Handle
	client  Client
	remnant *Remnant

	texture   render.Texture
	dirty     region.Region
	fullDirty bool

	// hidden counts consecutive scene frames the window was not shown.
	// counted is the scene frame hidden was last advanced in.
	hidden  int
	counted uint64
	pins    int
}

var _ effect.Window = (*Window)(nil)

// Handle returns the arena handle of the window.
func (w *Window) Handle() arena.Handle { return w.handle }

// Geometry returns the frame geometry in global coordinates.
func (w *Window) Geometry() image.Rectangle {
	if w.remnant != nil {
		return w.remnant.geometry
	}
	return w.client.Geometry()
}

// Opacity returns the window opacity.
func (w *Window) Opacity() float64 {
	if w.remnant != nil {
		return w.remnant.opacity
	}
	return w.client.Opacity()
}

// Desktop returns the virtual desktop, 0 for all desktops.
func (w *Window) Desktop() int {
	if w.remnant != nil {
		return w.remnant.desktop
	}
	return w.client.Desktop()
}

// IsActive reports whether the window has focus. Remnants report the
// state at the time they were closed.
func (w *Window) IsActive() bool {
	if w.remnant != nil {
		return w.remnant.active
	}
	return w.client.IsActive()
}

// Caption returns the window title.
func (w *Window) Caption() string {
	if w.remnant != nil {
		return w.remnant.caption
	}
	return w.client.Caption()
}

// Remnant returns the remnant of a closed window, nil while it is alive.
func (w *Window) Remnant() effect.Remnant {
	if w.remnant == nil {
		return nil
	}
	return w.remnant
}

// Texture returns the window texture, nil until the window is shown.
func (w *Window) Texture() render.Texture { return w.texture }

// IsRemnant reports whether the client is gone.
func (w *Window) IsRemnant() bool { return w.remnant != nil }

// IsVisible reports whether the window takes part in stacking snapshots.
func (w *Window) IsVisible() bool {
	return w.remnant != nil || w.client.IsVisible()
}

// OnDesktop reports whether the window is shown on desktop d.
func (w *Window) OnDesktop(d int) bool {
	wd := w.Desktop()
	return wd == 0 || wd == d
}

// Pinned reports whether an effect holds the render resources alive.
func (w *Window) Pinned() bool { return w.pins > 0 }

// HiddenFrames returns the number of consecutive frames the window was
// not shown.
func (w *Window) HiddenFrames() int { return w.hidden }

// Clip returns the opaque part of the window in global coordinates.
// Translucent windows have no clip.
func (w *Window) Clip() region.Region {
	if w.Opacity() < 1 {
		return region.Region{}
	}
	var local region.Region
	if w.remnant != nil {
		local = w.remnant.opaque
	} else {
		local = w.client.OpaqueRegion()
	}
	g := w.Geometry()
	return local.Translate(g.Min).IntersectRect(g)
}

func (w *Window) label() string {
	return "window " + w.handle.String()
}

// BaseQuads returns the quads of a window drawn as is: its contents
// covering the whole geometry, in window coordinates.
func BaseQuads(w effect.Window) effect.QuadList {
	g := w.Geometry()
	return effect.QuadList{{Kind: effect.QuadContents, Rect: image.Rect(0, 0, g.Dx(), g.Dy())}}
}
