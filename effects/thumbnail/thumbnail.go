// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package thumbnail draws live, scaled copies of windows at fixed places
// on the screen.
//
// A window is first drawn into an offscreen target the size of its
// thumbnail, then the target is composited at the destination. The
// window's render resources are pinned while it has a thumbnail, so it
// keeps updating when hidden.
package thumbnail

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/compositor/arena"
	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// Name is the effect name.
const Name = "thumbnail"

// Thumbnail errors.
var (
	// ErrNotLoaded is returned by Add before the effect was loaded.
	ErrNotLoaded = errors.New("thumbnail: effect not loaded")

	// ErrUnknownWindow is returned for a handle that does not resolve.
	ErrUnknownWindow = errors.New("thumbnail: unknown window")

	// ErrEmptyDestination is returned for an empty destination rectangle.
	ErrEmptyDestination = errors.New("thumbnail: empty destination")
)

type thumb struct {
	window arena.Handle
	dest   image.Rectangle
}

// Effect paints window thumbnails.
type Effect struct {
	host   effect.Host
	thumbs []thumb
}

// New creates the effect.
func New() *Effect { return &Effect{} }

// Name returns Name.
func (e *Effect) Name() string { return Name }

// IsActive reports whether any thumbnail exists.
func (e *Effect) IsActive() bool { return len(e.thumbs) > 0 }

// Load keeps the host.
func (e *Effect) Load(host effect.Host) error {
	e.host = host
	return nil
}

// Unload removes every thumbnail.
func (e *Effect) Unload() {
	for len(e.thumbs) > 0 {
		e.remove(0)
	}
}

// Add shows window h scaled into dest. The window keeps its aspect ratio
// and is never scaled up. A window has at most one thumbnail.
func (e *Effect) Add(h arena.Handle, dest image.Rectangle) error {
	if e.host == nil {
		return ErrNotLoaded
	}
	if dest.Empty() {
		return ErrEmptyDestination
	}
	if _, ok := e.host.Window(h); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWindow, h)
	}
	if i := e.index(h); i >= 0 {
		e.host.AddRepaint(region.Rect(e.thumbs[i].dest))
		e.thumbs[i].dest = dest
		e.host.AddRepaint(region.Rect(dest))
		return nil
	}
	if err := e.host.Registry().ClaimWindow(h, effect.RolePreview, e, false); err != nil {
		return err
	}
	e.host.Pin(h)
	e.thumbs = append(e.thumbs, thumb{window: h, dest: dest})
	e.host.AddRepaint(region.Rect(dest))
	return nil
}

// Remove drops the thumbnail of window h.
func (e *Effect) Remove(h arena.Handle) {
	if i := e.index(h); i >= 0 {
		e.remove(i)
	}
}

// Destination returns where the thumbnail of h is painted.
func (e *Effect) Destination(h arena.Handle) (image.Rectangle, bool) {
	if i := e.index(h); i >= 0 {
		return e.thumbs[i].dest, true
	}
	return image.Rectangle{}, false
}

// Fit returns the rectangle a window of the given size occupies inside
// dest: scaled down to fit, aspect ratio kept, centered.
func Fit(size image.Point, dest image.Rectangle) image.Rectangle {
	if size.X <= 0 || size.Y <= 0 || dest.Empty() {
		return image.Rectangle{}
	}
	scale := min(float64(dest.Dx())/float64(size.X), float64(dest.Dy())/float64(size.Y), 1)
	w := max(int(float64(size.X)*scale), 1)
	h := max(int(float64(size.Y)*scale), 1)
	x := dest.Min.X + (dest.Dx()-w)/2
	y := dest.Min.Y + (dest.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// WindowAdded does nothing.
func (e *Effect) WindowAdded(effect.Window) {}

// WindowClosed removes the thumbnail of a closed window.
func (e *Effect) WindowClosed(w effect.Window) { e.Remove(w.Handle()) }

// WindowActivated does nothing.
func (e *Effect) WindowActivated(effect.Window) {}

// PrePaintScreen repaints thumbnails of windows whose contents are being
// repainted.
func (e *Effect) PrePaintScreen(data *effect.ScreenPrePaintData, next effect.ScreenPrePaintFunc) {
	for _, t := range e.thumbs {
		w, ok := e.host.Window(t.window)
		if !ok {
			continue
		}
		if !data.Paint.IntersectRect(w.Geometry()).IsEmpty() {
			data.Paint = data.Paint.UnionRect(t.dest)
		}
	}
	next(data)
}

// PaintScreen paints the screen, then the thumbnails on top of it.
func (e *Effect) PaintScreen(mask effect.PaintMask, r region.Region, data *effect.ScreenPaintData, next effect.ScreenPaintFunc) {
	next(mask, r, data)
	for _, t := range e.thumbs {
		clip := r.IntersectRect(t.dest)
		if clip.IsEmpty() {
			continue
		}
		w, ok := e.host.Window(t.window)
		if !ok {
			continue
		}
		if err := e.paintThumbnail(w, t.dest, clip, data); err != nil {
			logging.Logger().Warn("thumbnail skipped", "window", t.window, "err", err)
		}
	}
}

func (e *Effect) paintThumbnail(w effect.Window, dest image.Rectangle, clip region.Region, data *effect.ScreenPaintData) error {
	geom := w.Geometry()
	fit := Fit(geom.Size(), dest)
	if fit.Empty() {
		return nil
	}
	pool := e.host.Targets()
	target, err := pool.Get(fit.Dx(), fit.Dy())
	if err != nil {
		return err
	}
	defer pool.Put(target)

	data.Stack.Push(target, geom)
	// Pooled targets hold stale pixels.
	err = data.Painter.Fill(region.Rect(geom), image.Transparent)
	if err == nil {
		chain := e.host.Chain()
		chain.Nested(effect.PassDrawWindow, func() {
			wd := effect.NewWindowPaintData(w.Opacity())
			mask := effect.PaintWindowTranslucent | effect.PaintWindowTransformed | effect.PaintWindowSmooth
			chain.DrawWindow(w, mask, region.Rect(geom), &wd)
		})
	}
	if _, perr := data.Stack.Pop(); perr != nil {
		return perr
	}
	if err != nil {
		return err
	}

	it, ok := target.(render.ImageTarget)
	if !ok {
		return render.ErrUnsupportedTarget
	}
	return data.Painter.DrawImage(it.Image(), clip.IntersectRect(fit), render.DrawAt(fit.Min))
}

func (e *Effect) index(h arena.Handle) int {
	for i, t := range e.thumbs {
		if t.window == h {
			return i
		}
	}
	return -1
}

func (e *Effect) remove(i int) {
	t := e.thumbs[i]
	e.thumbs = append(e.thumbs[:i], e.thumbs[i+1:]...)
	if err := e.host.Registry().ReleaseWindow(t.window, effect.RolePreview, e); err != nil {
		logging.Logger().Debug("thumbnail release", "window", t.window, "err", err)
	}
	e.host.Unpin(t.window)
	e.host.AddRepaint(region.Rect(t.dest))
}

var (
	_ effect.ScreenPrePainter = (*Effect)(nil)
	_ effect.ScreenPainter    = (*Effect)(nil)
	_ effect.WindowListener   = (*Effect)(nil)
	_ effect.Unloader         = (*Effect)(nil)
)
