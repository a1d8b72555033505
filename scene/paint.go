// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"time"

	"github.com/gogpu/compositor/damage"
	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/region"
)

// Frame carries what the scene needs to paint one output.
type Frame struct {
	Output effect.OutputInfo

	// Painter draws into the top of Stack, which holds the backbuffer.
	Painter render.Painter
	Stack   *render.TargetStack

	// Pending is the new damage of the output since its last frame.
	Pending region.Region

	// Repair is the stale area of the backbuffer derived from its age.
	Repair region.Region

	PresentTime time.Duration
}

// PaintResult reports what a frame drew.
type PaintResult struct {
	// Rendered is the area painted into the backbuffer, stale repair
	// included.
	Rendered region.Region

	// Damaged is the area whose contents changed on screen. It is what
	// the output history records.
	Damaged region.Region

	Mask effect.PaintMask
}

type paintState struct {
	frame Frame
	pre   map[*Window]*effect.WindowPrePaintData
}

// PaintOutput paints one output through the effect chain. It must be
// called between CreateStackingOrder and ClearStackingOrder.
func (s *Scene) PaintOutput(f Frame) (PaintResult, error) {
	if !s.bracketed {
		return PaintResult{}, ErrNoSnapshot
	}
	if s.paint != nil {
		return PaintResult{}, ErrPaintInProgress
	}
	geom := f.Output.Geometry
	ps := &paintState{frame: f, pre: make(map[*Window]*effect.WindowPrePaintData, len(s.snapshot))}
	s.paint = ps
	defer func() { s.paint = nil }()

	s.chain.StartPaint()
	defer s.chain.EndPaint()

	pre := effect.ScreenPrePaintData{
		Mask:        effect.PaintScreenRegion,
		Paint:       f.Pending.IntersectRect(geom),
		Output:      f.Output,
		PresentTime: f.PresentTime,
	}
	s.chain.PrePaintScreen(&pre)

	mask := pre.Mask
	generic := mask.NeedsGenericPaint()
	if generic {
		mask &^= effect.PaintScreenRegion
	}
	paint := damage.PaintRegion(f.Repair, pre.Paint, geom, generic)
	update := pre.Paint.IntersectRect(geom)
	if generic {
		update = region.Rect(geom)
	}

	// Windows start from the new damage, not from the stale repair.
	screenUpdate := update
	painted := make([]*Window, 0, len(s.snapshot))
	for _, w := range s.snapshot {
		if !w.OnDesktop(s.desktop) {
			continue
		}
		d := s.prePaintWindow(w, mask, screenUpdate)
		ps.pre[w] = d
		painted = append(painted, w)
		update = update.Union(d.Paint.IntersectRect(geom))
	}
	if !generic {
		paint = paint.Union(update)
	}

	data := effect.ScreenPaintData{
		Output:    f.Output,
		Transform: render.Identity(),
		Desktop:   s.desktop,
		Painter:   f.Painter,
		Stack:     f.Stack,
	}
	s.chain.PaintScreen(mask, paint, &data)

	for _, w := range painted {
		s.chain.PostPaintWindow(w)
	}
	s.chain.PostPaintScreen()

	return PaintResult{Rendered: paint, Damaged: update, Mask: mask}, nil
}

func (s *Scene) prePaintWindow(w *Window, screen effect.PaintMask, update region.Region) *effect.WindowPrePaintData {
	d := &effect.WindowPrePaintData{
		Mask:  screen &^ (effect.PaintScreenRegion | effect.PaintScreenTransformed | effect.PaintScreenWithTransformedWindows | effect.PaintScreenBackgroundFirst),
		Paint: update.IntersectRect(w.Geometry()),
		Clip:  w.Clip(),
		Quads: BaseQuads(w),
	}
	if d.Clip.IsEmpty() {
		d.Mask |= effect.PaintWindowTranslucent
	} else {
		d.Mask |= effect.PaintWindowOpaque
		if !d.Clip.ContainsRect(w.Geometry()) {
			d.Mask |= effect.PaintWindowTranslucent
		}
	}
	s.chain.PrePaintWindow(w, d)
	return d
}

// prePaintData returns the pre-paint result of a window, or defaults for
// windows not prepared this frame, such as those of another desktop.
func (s *Scene) prePaintData(w *Window) *effect.WindowPrePaintData {
	if s.paint != nil {
		if d, ok := s.paint.pre[w]; ok {
			return d
		}
	}
	return &effect.WindowPrePaintData{
		Mask:  effect.PaintWindowTranslucent,
		Quads: BaseQuads(w),
	}
}

func (s *Scene) windowsOn(desktop int) []*Window {
	out := make([]*Window, 0, len(s.snapshot))
	for _, w := range s.snapshot {
		if w.OnDesktop(desktop) {
			out = append(out, w)
		}
	}
	return out
}

func hidden(d *effect.WindowPrePaintData) bool {
	return d.Mask&(effect.PaintWindowOpaque|effect.PaintWindowTranslucent) == 0
}

// FinalPaintScreen paints the windows of data.Desktop. Without generic
// flags in mask it skips everything occluded by opaque windows and paints
// the background only where no window covers it.
func (s *Scene) FinalPaintScreen(mask effect.PaintMask, r region.Region, data *effect.ScreenPaintData) {
	if data.Painter == nil {
		logging.Logger().Warn("paint without painter", "output", data.Output.Name)
		return
	}
	if mask.NeedsGenericPaint() {
		s.paintGeneric(mask, r, data)
		return
	}
	s.paintSimple(mask, r, data)
}

func (s *Scene) paintSimple(_ effect.PaintMask, r region.Region, data *effect.ScreenPaintData) {
	type phase struct {
		w    *Window
		mask effect.PaintMask
		r    region.Region
		pre  *effect.WindowPrePaintData
	}
	windows := s.windowsOn(data.Desktop)
	phases := make([]phase, len(windows))
	var covered region.Region
	for i := len(windows) - 1; i >= 0; i-- {
		w := windows[i]
		pre := s.prePaintData(w)
		if hidden(pre) {
			continue
		}
		var vis region.Region
		if pre.Mask.Has(effect.PaintWindowTransformed) {
			vis = r.Subtract(covered)
		} else {
			vis = r.IntersectRect(w.Geometry()).Subtract(covered)
		}
		if vis.IsEmpty() {
			continue
		}
		phases[i] = phase{w: w, mask: pre.Mask, r: vis, pre: pre}
		covered = covered.Union(pre.Clip)
	}

	if err := data.Painter.Fill(r.Subtract(covered), s.background); err != nil {
		logging.Logger().Warn("background fill failed", "err", err)
	}
	for _, p := range phases {
		if p.w == nil {
			continue
		}
		wd := effect.NewWindowPaintData(p.w.Opacity())
		wd.Transform = data.Transform
		wd.Quads = p.pre.Quads
		s.chain.PaintWindow(p.w, p.mask, p.r, &wd)
	}
}

func (s *Scene) paintGeneric(_ effect.PaintMask, r region.Region, data *effect.ScreenPaintData) {
	if err := data.Painter.Fill(r, s.background); err != nil {
		logging.Logger().Warn("background fill failed", "err", err)
	}
	for _, w := range s.windowsOn(data.Desktop) {
		pre := s.prePaintData(w)
		if hidden(pre) {
			continue
		}
		wd := effect.NewWindowPaintData(w.Opacity())
		wd.Transform = data.Transform
		wd.Quads = pre.Quads
		s.chain.PaintWindow(w, pre.Mask, r, &wd)
	}
}

// FinalPaintWindow hands the window to the draw pass.
func (s *Scene) FinalPaintWindow(w effect.Window, mask effect.PaintMask, r region.Region, data *effect.WindowPaintData) {
	s.chain.DrawWindow(w, mask, r, data)
}

// FinalDrawWindow draws the quads of a window with its texture.
func (s *Scene) FinalDrawWindow(ew effect.Window, mask effect.PaintMask, r region.Region, data *effect.WindowPaintData) {
	w, ok := ew.(*Window)
	if !ok || s.paint == nil || data.Opacity <= 0 || r.IsEmpty() {
		return
	}
	if err := s.prepare(w); err != nil {
		logging.Logger().Warn("window texture unavailable", "window", w.handle, "err", err)
		return
	}
	if w.texture == nil {
		return
	}
	quads := data.Quads
	if len(quads) == 0 {
		quads = BaseQuads(w)
	}
	s.chain.BuildQuads(w, &quads)

	g := w.Geometry()
	base := data.Transform.Multiply(render.Translate(float64(g.Min.X), float64(g.Min.Y)))
	filter := render.FilterNearest
	switch {
	case mask.Has(effect.PaintWindowSmooth):
		filter = render.FilterSmooth
	case !base.IsIntegerTranslation():
		filter = render.FilterBilinear
	}

	img := w.texture.Image()
	painter := s.paint.frame.Painter
	for _, q := range quads {
		src := img.SubImage(q.Rect.Intersect(img.Bounds()))
		if src.Bounds().Empty() {
			continue
		}
		opts := render.DrawOptions{
			Transform:  base.Multiply(render.Translate(float64(q.Rect.Min.X), float64(q.Rect.Min.Y))),
			Opacity:    data.Opacity,
			Brightness: data.Brightness,
			Saturation: data.Saturation,
			Filter:     filter,
		}
		if err := painter.DrawImage(src, r, opts); err != nil {
			logging.Logger().Warn("draw window failed", "window", w.handle, "err", err)
			return
		}
	}
}

var _ effect.Terminal = (*Scene)(nil)

