// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package overview shows every virtual desktop side by side and lets the
// user pick one with the keyboard or the pointer.
//
// While shown, the effect is the fullscreen effect, holds the keyboard
// grab and intercepts the pointer. Each desktop is painted through the
// whole screen pass into an offscreen target, which is then drawn scaled
// into its cell of the grid.
package overview

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// Name is the effect name.
const Name = "overview"

// Layout defaults.
const (
	DefaultGap    = 8
	DefaultBorder = 2
)

var (
	// DefaultBackground fills the space between cells.
	DefaultBackground = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}

	// DefaultHighlight frames the selected desktop.
	DefaultHighlight = color.RGBA{R: 0x3d, G: 0xae, B: 0xe9, A: 0xff}
)

// Effect is the desktop overview.
type Effect struct {
	host effect.Host

	gap        int
	border     int
	background color.RGBA
	highlight  color.RGBA

	shown    bool
	selected int

	// inside is set while a desktop is painted through the chain, which
	// enters this effect again.
	inside bool

	// cells of the last painted output, indexed by desktop-1.
	cells []image.Rectangle
}

// New creates the effect.
func New() *Effect {
	return &Effect{
		gap:        DefaultGap,
		border:     DefaultBorder,
		background: DefaultBackground,
		highlight:  DefaultHighlight,
	}
}

// Name returns Name.
func (e *Effect) Name() string { return Name }

// IsActive reports whether the overview is shown.
func (e *Effect) IsActive() bool { return e.shown }

// Selected returns the highlighted desktop.
func (e *Effect) Selected() int { return e.selected }

// Load keeps the host.
func (e *Effect) Load(host effect.Host) error {
	e.host = host
	return nil
}

// Unload hides the overview. The registry has already dropped the grabs.
func (e *Effect) Unload() {
	if e.shown {
		e.shown = false
		e.host.AddRepaintFull()
	}
}

// Reconfigure reads "gap" and "border".
func (e *Effect) Reconfigure(s effect.Settings) {
	e.gap = max(int(s.Float("gap", DefaultGap)), 0)
	e.border = max(int(s.Float("border", DefaultBorder)), 0)
}

// Activate shows the overview with the current desktop selected.
func (e *Effect) Activate() error {
	if e.shown {
		return nil
	}
	if e.host == nil {
		return effect.ErrNotLoaded
	}
	reg := e.host.Registry()
	if err := reg.GrabKeyboard(e); err != nil {
		return err
	}
	reg.StartPointerInterception(e, effect.CursorPointer)
	reg.SetFullscreen(e)
	e.shown = true
	e.selected = e.host.CurrentDesktop()
	e.host.AddRepaintFull()
	logging.Logger().Debug("overview shown", "desktops", e.host.Desktops())
	return nil
}

// Deactivate hides the overview.
func (e *Effect) Deactivate() {
	if !e.shown {
		return
	}
	reg := e.host.Registry()
	if err := reg.UngrabKeyboard(e); err != nil {
		logging.Logger().Debug("overview ungrab", "err", err)
	}
	reg.StopPointerInterception(e)
	if fs, ok := reg.Fullscreen(); ok && fs == e {
		reg.SetFullscreen(nil)
	}
	e.shown = false
	e.host.AddRepaintFull()
}

// Toggle shows or hides the overview.
func (e *Effect) Toggle() error {
	if e.shown {
		e.Deactivate()
		return nil
	}
	return e.Activate()
}

// GrabbedKeyboardEvent moves the selection with the arrow keys, switches
// to the selected desktop on Enter and closes on Escape.
func (e *Effect) GrabbedKeyboardEvent(ev effect.KeyEvent) {
	if !ev.Pressed {
		return
	}
	n := e.host.Desktops()
	cols, _ := Grid(n)
	switch ev.Key {
	case effect.KeyEscape:
		e.Deactivate()
	case effect.KeyEnter:
		e.host.SetCurrentDesktop(e.selected)
		e.Deactivate()
	case effect.KeyLeft:
		e.selectDesktop(wrap(e.selected-1, n))
	case effect.KeyRight, effect.KeyTab:
		e.selectDesktop(wrap(e.selected+1, n))
	case effect.KeyUp:
		e.selectDesktop(wrap(e.selected-cols, n))
	case effect.KeyDown:
		e.selectDesktop(wrap(e.selected+cols, n))
	}
}

// InterceptedPointerEvent switches to the desktop under a button press.
// Motion moves the selection.
func (e *Effect) InterceptedPointerEvent(ev effect.PointerEvent) {
	d := e.desktopAt(ev.Pos)
	if d == 0 {
		return
	}
	if ev.Pressed && ev.Button == 1 {
		e.host.SetCurrentDesktop(d)
		e.Deactivate()
		return
	}
	e.selectDesktop(d)
}

// PrePaintScreen repaints the whole output while shown.
func (e *Effect) PrePaintScreen(data *effect.ScreenPrePaintData, next effect.ScreenPrePaintFunc) {
	if e.shown && !e.inside {
		data.Mask |= effect.PaintScreenBackgroundFirst
		data.Paint = region.Rect(data.Output.Geometry)
	}
	next(data)
}

// PaintScreen paints the desktop grid instead of the screen.
func (e *Effect) PaintScreen(mask effect.PaintMask, r region.Region, data *effect.ScreenPaintData, next effect.ScreenPaintFunc) {
	if !e.shown || e.inside {
		next(mask, r, data)
		return
	}
	geom := data.Output.Geometry
	e.cells = Cells(geom, e.host.Desktops(), e.gap)
	if err := data.Painter.Fill(r, e.background); err != nil {
		logging.Logger().Warn("overview background failed", "err", err)
		return
	}
	for i, cell := range e.cells {
		clip := r.IntersectRect(cell)
		if clip.IsEmpty() {
			continue
		}
		if err := e.paintCell(i+1, cell, mask, clip, data); err != nil {
			logging.Logger().Warn("overview desktop skipped", "desktop", i+1, "err", err)
		}
	}
	if e.selected >= 1 && e.selected <= len(e.cells) {
		frame := Frame(e.cells[e.selected-1], e.border).Intersect(r)
		if err := data.Painter.Fill(frame, e.highlight); err != nil {
			logging.Logger().Warn("overview highlight failed", "err", err)
		}
	}
}

func (e *Effect) paintCell(desktop int, cell image.Rectangle, mask effect.PaintMask, clip region.Region, data *effect.ScreenPaintData) error {
	pool := e.host.Targets()
	target, err := pool.Get(cell.Dx(), cell.Dy())
	if err != nil {
		return err
	}
	defer pool.Put(target)

	geom := data.Output.Geometry
	data.Stack.Push(target, geom)
	e.inside = true
	e.host.Chain().PaintDesktop(desktop, mask|effect.PaintScreenBackgroundFirst, region.Rect(geom), data)
	e.inside = false
	if _, err := data.Stack.Pop(); err != nil {
		return err
	}

	it, ok := target.(render.ImageTarget)
	if !ok {
		return render.ErrUnsupportedTarget
	}
	return data.Painter.DrawImage(it.Image(), clip, render.DrawAt(cell.Min))
}

func (e *Effect) selectDesktop(d int) {
	if d == e.selected {
		return
	}
	e.selected = d
	e.host.AddRepaintFull()
}

func (e *Effect) desktopAt(p image.Point) int {
	for i, c := range e.cells {
		if p.In(c) {
			return i + 1
		}
	}
	return 0
}

// Grid returns the number of columns and rows used for n desktops.
func Grid(n int) (cols, rows int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = (n + cols - 1) / cols
	return cols, rows
}

// Cells lays out n desktops on an output covering geom, in desktop order.
// Every cell has the aspect ratio of the output and is centered in its
// slot of the grid.
func Cells(geom image.Rectangle, n, gap int) []image.Rectangle {
	cols, rows := Grid(n)
	if cols == 0 || geom.Empty() {
		return nil
	}
	slotW := (geom.Dx() - gap*(cols+1)) / cols
	slotH := (geom.Dy() - gap*(rows+1)) / rows
	if slotW <= 0 || slotH <= 0 {
		return nil
	}
	scale := min(float64(slotW)/float64(geom.Dx()), float64(slotH)/float64(geom.Dy()))
	w := max(int(float64(geom.Dx())*scale), 1)
	h := max(int(float64(geom.Dy())*scale), 1)

	cells := make([]image.Rectangle, n)
	for i := range cells {
		col, row := i%cols, i/cols
		x := geom.Min.X + gap + col*(slotW+gap) + (slotW-w)/2
		y := geom.Min.Y + gap + row*(slotH+gap) + (slotH-h)/2
		cells[i] = image.Rect(x, y, x+w, y+h)
	}
	return cells
}

// Frame returns a border of the given width around r.
func Frame(r image.Rectangle, width int) region.Region {
	if width <= 0 {
		return region.Region{}
	}
	return region.Rect(r.Inset(-width)).SubtractRect(r)
}

func wrap(d, n int) int {
	if n <= 0 {
		return 0
	}
	return (d-1+n)%n + 1
}

var (
	_ effect.ScreenPrePainter   = (*Effect)(nil)
	_ effect.ScreenPainter      = (*Effect)(nil)
	_ effect.KeyboardGrabber    = (*Effect)(nil)
	_ effect.PointerInterceptor = (*Effect)(nil)
	_ effect.Unloader           = (*Effect)(nil)
	_ effect.Configurable       = (*Effect)(nil)
)
