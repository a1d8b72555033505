// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package effect

import (
	"image"
	"strings"
	"time"

	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/region"
)

// PaintMask carries flags between the paint passes.
type PaintMask uint32

const (
	// PaintWindowOpaque paints the opaque part of a window.
	PaintWindowOpaque PaintMask = 1 << iota

	// PaintWindowTranslucent paints the translucent part of a window.
	PaintWindowTranslucent

	// PaintWindowTransformed marks a window drawn with a transform.
	PaintWindowTransformed

	// PaintScreenRegion limits screen painting to the paint region.
	PaintScreenRegion

	// PaintScreenTransformed marks the whole screen as transformed.
	PaintScreenTransformed

	// PaintScreenWithTransformedWindows allows windows to be transformed.
	PaintScreenWithTransformedWindows

	// PaintScreenBackgroundFirst clears the background before any window
	// is painted and forces a full repaint of the output.
	PaintScreenBackgroundFirst

	// PaintWindowSmooth requests high quality sampling for scaled windows.
	PaintWindowSmooth
)

var maskNames = []string{
	"window-opaque", "window-translucent", "window-transformed",
	"screen-region", "screen-transformed", "screen-with-transformed-windows",
	"screen-background-first", "window-smooth",
}

// Has reports whether every flag in f is set.
func (m PaintMask) Has(f PaintMask) bool { return m&f == f }

// String lists the set flags.
func (m PaintMask) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for i, name := range maskNames {
		if m&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// NeedsGenericPaint reports whether a screen mask forces the generic
// paint path, where occlusion culling is impossible.
func (m PaintMask) NeedsGenericPaint() bool {
	return m&(PaintScreenTransformed|PaintScreenWithTransformedWindows|PaintScreenBackgroundFirst) != 0
}

// OutputInfo describes the output being painted.
type OutputInfo struct {
	ID       uint32
	Name     string
	Geometry image.Rectangle
	Scale    float64
}

// ScreenPrePaintData is passed through the screen pre-paint pass.
// Effects add to Paint and set Mask flags.
type ScreenPrePaintData struct {
	Mask        PaintMask
	Paint       region.Region
	Output      OutputInfo
	PresentTime time.Duration
}

// ScreenPaintData is passed through the screen paint pass.
type ScreenPaintData struct {
	Output OutputInfo

	// Transform is applied to everything painted on the screen.
	Transform render.Matrix

	// Desktop selects the virtual desktop being painted.
	Desktop int

	// Painter draws into the top of Stack. Effects push an offscreen
	// target onto Stack to redirect drawing and pop it before returning.
	Painter render.Painter
	Stack   *render.TargetStack
}

// WindowPrePaintData is passed through the window pre-paint pass.
type WindowPrePaintData struct {
	Mask PaintMask

	// Paint is the part of the window that must be repainted.
	Paint region.Region

	// Clip is the part of the window known to be opaque. Effects that make
	// a window translucent must clear it.
	Clip region.Region

	Quads QuadList
}

// SetTranslucent marks the window translucent and drops its clip.
func (d *WindowPrePaintData) SetTranslucent() {
	d.Mask |= PaintWindowTranslucent
	d.Mask &^= PaintWindowOpaque
	d.Clip = region.Region{}
}

// SetTransformed marks the window transformed and drops its clip.
func (d *WindowPrePaintData) SetTransformed() {
	d.Mask |= PaintWindowTransformed
	d.Clip = region.Region{}
}

// WindowPaintData is passed through the window paint and draw passes.
type WindowPaintData struct {
	Opacity    float64
	Brightness float64
	Saturation float64

	// Transform is applied in global coordinates after the window is
	// placed at its geometry.
	Transform render.Matrix

	Quads QuadList
}

// NewWindowPaintData returns paint data for a window drawn as is.
func NewWindowPaintData(opacity float64) WindowPaintData {
	return WindowPaintData{
		Opacity:    opacity,
		Brightness: 1,
		Saturation: 1,
		Transform:  render.Identity(),
	}
}

// QuadKind tells what part of a window a quad covers.
type QuadKind uint8

const (
	// QuadContents covers client contents.
	QuadContents QuadKind = iota

	// QuadDecoration covers the server-side decoration.
	QuadDecoration

	// QuadShadow covers the drop shadow.
	QuadShadow
)

// Quad is a drawable piece of a window in window-local coordinates.
type Quad struct {
	Kind QuadKind
	Rect image.Rectangle
}

// QuadList is the drawable geometry of a window.
type QuadList []Quad

// Select returns the quads of the given kind.
func (q QuadList) Select(kind QuadKind) QuadList {
	var out QuadList
	for _, quad := range q {
		if quad.Kind == kind {
			out = append(out, quad)
		}
	}
	return out
}

// Bounds returns the union of all quad rectangles.
func (q QuadList) Bounds() image.Rectangle {
	var b image.Rectangle
	for _, quad := range q {
		b = b.Union(quad.Rect)
	}
	return b
}

// Region returns the area covered by the quads.
func (q QuadList) Region() region.Region {
	var g region.Region
	for _, quad := range q {
		g = g.UnionRect(quad.Rect)
	}
	return g
}

// MakeGrid splits every quad into cells of at most size pixels.
func (q QuadList) MakeGrid(size int) QuadList {
	if size <= 0 {
		return q
	}
	var out QuadList
	for _, quad := range q {
		r := quad.Rect
		for y := r.Min.Y; y < r.Max.Y; y += size {
			for x := r.Min.X; x < r.Max.X; x += size {
				cell := image.Rect(x, y, min(x+size, r.Max.X), min(y+size, r.Max.Y))
				out = append(out, Quad{Kind: quad.Kind, Rect: cell})
			}
		}
	}
	return out
}

// Role names a visual attribute of a window that one effect at a time
// may drive.
type Role uint8

const (
	// RoleWindowAdded is the appear animation of a new window.
	RoleWindowAdded Role = iota

	// RoleWindowClosed is the disappear animation of a closed window.
	RoleWindowClosed

	// RoleWindowMinimized is the minimize animation.
	RoleWindowMinimized

	// RolePreview is a live preview of the window elsewhere on screen.
	RolePreview
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleWindowAdded:
		return "window-added"
	case RoleWindowClosed:
		return "window-closed"
	case RoleWindowMinimized:
		return "window-minimized"
	case RolePreview:
		return "preview"
	default:
		return "unknown"
	}
}

// CursorShape is the pointer shape requested by an intercepting effect.
type CursorShape uint8

const (
	CursorDefault CursorShape = iota
	CursorPointer
	CursorCrosshair
	CursorMove
	CursorWait
)

// Key identifies a keyboard key delivered to a grabbing effect.
type Key uint16

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyEnter
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyTab
)

// KeyEvent is a key press or release.
type KeyEvent struct {
	Key     Key
	Rune    rune
	Pressed bool
}

// PointerEvent is a pointer motion or button event in global coordinates.
type PointerEvent struct {
	Pos     image.Point
	Button  int
	Pressed bool
}
