// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/compositor/arena"
	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/region"
)

type fakeClient struct {
	geom    image.Rectangle
	img     *image.RGBA
	opacity float64
	visible bool
	opaque  bool
	desktop int
	caption string
}

func newClient(r image.Rectangle, c color.RGBA) *fakeClient {
	img := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return &fakeClient{geom: r, img: img, opacity: 1, visible: true, opaque: true, caption: "client"}
}

func (c *fakeClient) Geometry() image.Rectangle { return c.geom }
func (c *fakeClient) Image() image.Image        { return c.img }
func (c *fakeClient) Opacity() float64          { return c.opacity }
func (c *fakeClient) IsVisible() bool           { return c.visible }
func (c *fakeClient) Desktop() int              { return c.desktop }
func (c *fakeClient) IsActive() bool            { return false }
func (c *fakeClient) Caption() string           { return c.caption }

func (c *fakeClient) OpaqueRegion() region.Region {
	if !c.opaque {
		return region.Region{}
	}
	return region.Rect(image.Rect(0, 0, c.geom.Dx(), c.geom.Dy()))
}

type drawCall struct {
	size image.Point
	clip region.Region
	opts render.DrawOptions
}

type recPainter struct {
	fills []region.Region
	draws []drawCall
}

func (p *recPainter) Fill(clip region.Region, _ color.Color) error {
	p.fills = append(p.fills, clip)
	return nil
}

func (p *recPainter) DrawTexture(tex render.Texture, clip region.Region, opts render.DrawOptions) error {
	return p.DrawImage(tex.Image(), clip, opts)
}

func (p *recPainter) DrawImage(src image.Image, clip region.Region, opts render.DrawOptions) error {
	p.draws = append(p.draws, drawCall{size: src.Bounds().Size(), clip: clip, opts: opts})
	return nil
}

func (p *recPainter) Flush() error { return nil }

// closer keeps remnants of closed windows when keep is set.
type closer struct {
	keep   bool
	closed []effect.Window
}

func (c *closer) Name() string                  { return "closer" }
func (c *closer) IsActive() bool                { return true }
func (c *closer) WindowAdded(effect.Window)     {}
func (c *closer) WindowActivated(effect.Window) {}

func (c *closer) WindowClosed(w effect.Window) {
	c.closed = append(c.closed, w)
	if r := w.Remnant(); c.keep && r != nil {
		r.Ref()
	}
}

// backgroundFirst forces generic painting.
type backgroundFirst struct{}

func (backgroundFirst) Name() string   { return "background-first" }
func (backgroundFirst) IsActive() bool { return true }

func (backgroundFirst) PrePaintScreen(data *effect.ScreenPrePaintData, next effect.ScreenPrePaintFunc) {
	data.Mask |= effect.PaintScreenBackgroundFirst
	next(data)
}

type harness struct {
	scene    *Scene
	registry *effect.Registry
	damage   region.Region
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{registry: effect.NewRegistry()}
	chain := effect.NewChain(h.registry, nil)
	opts = append([]Option{WithDamageFunc(func(r region.Region) { h.damage = h.damage.Union(r) })}, opts...)
	h.scene = New(chain, opts...)
	return h
}

func (h *harness) frame(t *testing.T) {
	t.Helper()
	h.scene.NextFrame()
	if _, err := h.scene.CreateStackingOrder(h.scene.Order()); err != nil {
		t.Fatalf("CreateStackingOrder() error = %v", err)
	}
	h.scene.ClearStackingOrder()
}

func (h *harness) paint(t *testing.T, f Frame) PaintResult {
	t.Helper()
	if _, err := h.scene.CreateStackingOrder(h.scene.Order()); err != nil {
		t.Fatalf("CreateStackingOrder() error = %v", err)
	}
	defer h.scene.ClearStackingOrder()
	res, err := h.scene.PaintOutput(f)
	if err != nil {
		t.Fatalf("PaintOutput() error = %v", err)
	}
	return res
}

func outputFrame(geom image.Rectangle, p render.Painter) Frame {
	return Frame{
		Output:  effect.OutputInfo{ID: 1, Name: "test", Geometry: geom, Scale: 1},
		Painter: p,
	}
}

func TestAddWindowDamagesGeometry(t *testing.T) {
	h := newHarness(t)
	r := image.Rect(10, 10, 50, 40)
	id := h.scene.AddWindow(newClient(r, color.RGBA{R: 0xff, A: 0xff}))

	if !h.damage.Equal(region.Rect(r)) {
		t.Errorf("damage = %v, want %v", h.damage, region.Rect(r))
	}
	w, ok := h.scene.Window(id)
	if !ok {
		t.Fatal("Window() = false, want true")
	}
	if w.Texture() != nil {
		t.Error("texture created before the window was shown")
	}
}

func TestWindowDamagedIsClippedAndTranslated(t *testing.T) {
	h := newHarness(t)
	id := h.scene.AddWindow(newClient(image.Rect(100, 100, 120, 120), color.RGBA{A: 0xff}))
	h.damage = region.Region{}

	if err := h.scene.WindowDamaged(id, region.Rect(image.Rect(10, 10, 40, 40))); err != nil {
		t.Fatalf("WindowDamaged() error = %v", err)
	}
	want := region.Rect(image.Rect(110, 110, 120, 120))
	if !h.damage.Equal(want) {
		t.Errorf("damage = %v, want %v", h.damage, want)
	}
	if err := h.scene.WindowDamaged(arena.Handle{Index: 42}, region.Region{}); !errors.Is(err, ErrUnknownWindow) {
		t.Errorf("WindowDamaged(stale) error = %v, want %v", err, ErrUnknownWindow)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	h := newHarness(t)
	a := h.scene.AddWindow(newClient(image.Rect(0, 0, 10, 10), color.RGBA{A: 0xff}))
	b := h.scene.AddWindow(newClient(image.Rect(0, 0, 10, 10), color.RGBA{A: 0xff}))

	snap, err := h.scene.CreateStackingOrder(h.scene.Order())
	if err != nil {
		t.Fatalf("CreateStackingOrder() error = %v", err)
	}
	h.scene.SetStackingOrder([]arena.Handle{b, a})

	if snap[0].Handle() != a || snap[1].Handle() != b {
		t.Errorf("snapshot changed after restack: %v, %v", snap[0].Handle(), snap[1].Handle())
	}
	if _, err := h.scene.CreateStackingOrder(h.scene.Order()); !errors.Is(err, ErrSnapshotInProgress) {
		t.Errorf("second CreateStackingOrder() error = %v, want %v", err, ErrSnapshotInProgress)
	}
	h.scene.ClearStackingOrder()

	if got := h.scene.Order(); got[0] != b || got[1] != a {
		t.Errorf("Order() = %v, want [%v %v]", got, b, a)
	}
}

func TestSnapshotSkipsHiddenWindows(t *testing.T) {
	h := newHarness(t)
	c := newClient(image.Rect(0, 0, 10, 10), color.RGBA{A: 0xff})
	c.visible = false
	h.scene.AddWindow(c)
	h.scene.AddWindow(newClient(image.Rect(0, 0, 10, 10), color.RGBA{A: 0xff}))

	snap, err := h.scene.CreateStackingOrder(h.scene.Order())
	if err != nil {
		t.Fatalf("CreateStackingOrder() error = %v", err)
	}
	defer h.scene.ClearStackingOrder()
	if len(snap) != 1 {
		t.Errorf("len(snapshot) = %d, want 1", len(snap))
	}
}

func TestRetentionPolicy(t *testing.T) {
	h := newHarness(t, WithRetention(RetentionPolicy{HiddenFrames: 2}))
	c := newClient(image.Rect(0, 0, 10, 10), color.RGBA{A: 0xff})
	id := h.scene.AddWindow(c)
	w, _ := h.scene.Window(id)

	h.frame(t)
	if w.Texture() == nil {
		t.Fatal("texture not created for shown window")
	}
	tex := w.Texture()

	c.visible = false
	for i := 1; i <= 2; i++ {
		h.frame(t)
		if w.Texture() == nil {
			t.Fatalf("texture released after %d hidden frames, want kept", i)
		}
	}
	h.frame(t)
	if w.Texture() != nil {
		t.Error("texture kept after 3 hidden frames, want released")
	}
	if pt, ok := tex.(*render.PixmapTexture); !ok || !pt.Destroyed() {
		t.Error("released texture was not destroyed")
	}
}

func TestRetentionCountsSceneFrames(t *testing.T) {
	h := newHarness(t, WithRetention(RetentionPolicy{HiddenFrames: 1}))
	c := newClient(image.Rect(0, 0, 10, 10), color.RGBA{A: 0xff})
	id := h.scene.AddWindow(c)
	w, _ := h.scene.Window(id)
	h.frame(t)

	c.visible = false
	h.scene.NextFrame()
	for range 3 {
		if _, err := h.scene.CreateStackingOrder(h.scene.Order()); err != nil {
			t.Fatalf("CreateStackingOrder() error = %v", err)
		}
		h.scene.ClearStackingOrder()
	}
	if got := w.HiddenFrames(); got != 1 {
		t.Errorf("HiddenFrames() = %d, want 1 after three stacking orders in one frame", got)
	}
	if w.Texture() == nil {
		t.Fatal("texture released within the first hidden frame")
	}
	h.frame(t)
	if w.Texture() != nil {
		t.Error("texture kept after 2 hidden frames, want released")
	}
}

func TestPinKeepsTexture(t *testing.T) {
	h := newHarness(t, WithRetention(RetentionPolicy{}))
	c := newClient(image.Rect(0, 0, 10, 10), color.RGBA{A: 0xff})
	id := h.scene.AddWindow(c)
	w, _ := h.scene.Window(id)
	h.frame(t)

	h.scene.Pin(id)
	c.visible = false
	for range 5 {
		h.frame(t)
	}
	if w.Texture() == nil {
		t.Fatal("pinned texture released")
	}
	h.scene.Unpin(id)
	h.frame(t)
	if w.Texture() != nil {
		t.Error("texture kept after Unpin")
	}
}

func TestTextureUploadsDamage(t *testing.T) {
	h := newHarness(t)
	c := newClient(image.Rect(0, 0, 4, 4), color.RGBA{R: 0xff, A: 0xff})
	id := h.scene.AddWindow(c)
	w, _ := h.scene.Window(id)
	h.frame(t)

	blue := color.RGBA{B: 0xff, A: 0xff}
	c.img.SetRGBA(1, 1, blue)
	c.img.SetRGBA(3, 3, blue)
	if err := h.scene.WindowDamaged(id, region.Rect(image.Rect(1, 1, 2, 2))); err != nil {
		t.Fatalf("WindowDamaged() error = %v", err)
	}
	h.frame(t)

	img := w.Texture().Image()
	if got := img.RGBAAt(1, 1); got != blue {
		t.Errorf("damaged pixel = %v, want %v", got, blue)
	}
	if got := img.RGBAAt(3, 3); got == blue {
		t.Error("undamaged pixel was uploaded")
	}
}

func TestDestroyWindowWithoutInterest(t *testing.T) {
	h := newHarness(t)
	cl := &closer{}
	if err := h.registry.Register(cl, 0); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	r := image.Rect(0, 0, 20, 20)
	id := h.scene.AddWindow(newClient(r, color.RGBA{A: 0xff}))
	h.damage = region.Region{}

	if err := h.scene.DestroyWindow(id); err != nil {
		t.Fatalf("DestroyWindow() error = %v", err)
	}
	if len(cl.closed) != 1 || cl.closed[0].Remnant() == nil {
		t.Fatal("effect was not handed the remnant")
	}
	if _, ok := h.scene.Window(id); ok {
		t.Error("unreferenced remnant still in scene")
	}
	if !h.damage.Equal(region.Rect(r)) {
		t.Errorf("damage = %v, want %v", h.damage, region.Rect(r))
	}
	if err := h.scene.DestroyWindow(id); !errors.Is(err, ErrUnknownWindow) {
		t.Errorf("second DestroyWindow() error = %v, want %v", err, ErrUnknownWindow)
	}
}

func TestRemnantLifetime(t *testing.T) {
	h := newHarness(t)
	cl := &closer{keep: true}
	if err := h.registry.Register(cl, 0); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	c := newClient(image.Rect(5, 5, 25, 25), color.RGBA{G: 0xff, A: 0xff})
	c.caption = "editor"
	id := h.scene.AddWindow(c)

	if err := h.scene.DestroyWindow(id); err != nil {
		t.Fatalf("DestroyWindow() error = %v", err)
	}
	w, ok := h.scene.Window(id)
	if !ok {
		t.Fatal("referenced remnant left the scene")
	}
	if !w.IsRemnant() || w.Caption() != "editor" || w.Geometry() != c.geom {
		t.Errorf("remnant lost client state: remnant=%v caption=%q geometry=%v", w.IsRemnant(), w.Caption(), w.Geometry())
	}
	rem := w.Remnant()
	if got := rem.Refs(); got != 1 {
		t.Errorf("Refs() = %d, want 1", got)
	}
	if w.Texture() == nil {
		t.Fatal("remnant has no texture")
	}
	if err := h.scene.WindowDamaged(id, region.Region{}); !errors.Is(err, ErrUnknownWindow) {
		t.Errorf("WindowDamaged(remnant) error = %v, want %v", err, ErrUnknownWindow)
	}

	// Release during a frame keeps the texture until the frame ends.
	snap, err := h.scene.CreateStackingOrder(h.scene.Order())
	if err != nil {
		t.Fatalf("CreateStackingOrder() error = %v", err)
	}
	if len(snap) != 1 {
		t.Fatalf("len(snapshot) = %d, want 1", len(snap))
	}
	tex := w.Texture()
	rem.Unref()
	if _, ok := h.scene.Window(id); !ok {
		t.Error("window released before the frame ended")
	}
	if tex.(*render.PixmapTexture).Destroyed() {
		t.Error("texture destroyed during the frame")
	}
	h.scene.ClearStackingOrder()

	if _, ok := h.scene.Window(id); ok {
		t.Error("remnant still in scene after the frame")
	}
	if !tex.(*render.PixmapTexture).Destroyed() {
		t.Error("texture not destroyed after the frame")
	}
	if !w.remnant.Discarded() {
		t.Error("Discarded() = false, want true")
	}
}

func TestRemnantKeepsStackingPosition(t *testing.T) {
	h := newHarness(t)
	if err := h.registry.Register(&closer{keep: true}, 0); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	a := h.scene.AddWindow(newClient(image.Rect(0, 0, 10, 10), color.RGBA{A: 0xff}))
	b := h.scene.AddWindow(newClient(image.Rect(0, 0, 10, 10), color.RGBA{A: 0xff}))
	c := h.scene.AddWindow(newClient(image.Rect(0, 0, 10, 10), color.RGBA{A: 0xff}))

	if err := h.scene.DestroyWindow(b); err != nil {
		t.Fatalf("DestroyWindow() error = %v", err)
	}
	h.scene.SetStackingOrder([]arena.Handle{c, a})

	got := h.scene.Order()
	want := []arena.Handle{c, b, a}
	if len(got) != len(want) {
		t.Fatalf("Order() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Order()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCloseReportsReferencedRemnants(t *testing.T) {
	h := newHarness(t)
	if err := h.registry.Register(&closer{keep: true}, 0); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	id := h.scene.AddWindow(newClient(image.Rect(0, 0, 10, 10), color.RGBA{A: 0xff}))
	h.scene.AddWindow(newClient(image.Rect(0, 0, 10, 10), color.RGBA{A: 0xff}))
	if err := h.scene.DestroyWindow(id); err != nil {
		t.Fatalf("DestroyWindow() error = %v", err)
	}

	if err := h.scene.Close(); !errors.Is(err, ErrRemnantReferenced) {
		t.Errorf("Close() error = %v, want %v", err, ErrRemnantReferenced)
	}
	if h.scene.Len() != 0 {
		t.Errorf("Len() = %d after Close, want 0", h.scene.Len())
	}
}

func TestPaintOutputRequiresSnapshot(t *testing.T) {
	h := newHarness(t)
	_, err := h.scene.PaintOutput(outputFrame(image.Rect(0, 0, 10, 10), &recPainter{}))
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("PaintOutput() error = %v, want %v", err, ErrNoSnapshot)
	}
}

func TestPaintOutputOcclusion(t *testing.T) {
	h := newHarness(t)
	r := image.Rect(0, 0, 100, 100)
	h.scene.AddWindow(newClient(r, color.RGBA{R: 0xff, A: 0xff}))
	h.scene.AddWindow(newClient(r, color.RGBA{G: 0xff, A: 0xff}))

	p := &recPainter{}
	f := outputFrame(image.Rect(0, 0, 200, 100), p)
	f.Pending = region.Rect(r)
	res := h.paint(t, f)

	if len(p.draws) != 1 {
		t.Fatalf("draws = %d, want 1 (bottom window occluded)", len(p.draws))
	}
	if !p.draws[0].clip.Equal(region.Rect(r)) {
		t.Errorf("draw clip = %v, want %v", p.draws[0].clip, region.Rect(r))
	}
	if len(p.fills) != 1 || !p.fills[0].IsEmpty() {
		t.Errorf("background fills = %v, want one empty fill", p.fills)
	}
	if !res.Damaged.Equal(region.Rect(r)) {
		t.Errorf("Damaged = %v, want %v", res.Damaged, region.Rect(r))
	}
}

func TestPaintOutputTranslucentShowsBelow(t *testing.T) {
	h := newHarness(t)
	r := image.Rect(0, 0, 50, 50)
	h.scene.AddWindow(newClient(r, color.RGBA{R: 0xff, A: 0xff}))
	top := newClient(r, color.RGBA{G: 0xff, A: 0xff})
	top.opacity = 0.5
	h.scene.AddWindow(top)

	p := &recPainter{}
	f := outputFrame(r, p)
	f.Pending = region.Rect(r)
	h.paint(t, f)

	if len(p.draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(p.draws))
	}
	if got := p.draws[1].opts.Opacity; got != 0.5 {
		t.Errorf("top window opacity = %v, want 0.5", got)
	}
}

func TestPaintOutputRegions(t *testing.T) {
	h := newHarness(t)
	geom := image.Rect(0, 0, 100, 100)

	p := &recPainter{}
	f := outputFrame(geom, p)
	f.Pending = region.Rect(image.Rect(50, 50, 60, 60))
	f.Repair = region.Rect(image.Rect(0, 0, 10, 10))
	res := h.paint(t, f)

	wantRendered := f.Pending.Union(f.Repair)
	if !res.Rendered.Equal(wantRendered) {
		t.Errorf("Rendered = %v, want %v", res.Rendered, wantRendered)
	}
	if !res.Damaged.Equal(f.Pending) {
		t.Errorf("Damaged = %v, want %v", res.Damaged, f.Pending)
	}
	if !res.Mask.Has(effect.PaintScreenRegion) {
		t.Errorf("Mask = %v, want region painting", res.Mask)
	}
}

func TestPaintOutputGenericPath(t *testing.T) {
	h := newHarness(t)
	if err := h.registry.Register(backgroundFirst{}, 0); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	geom := image.Rect(0, 0, 100, 100)
	h.scene.AddWindow(newClient(image.Rect(0, 0, 100, 100), color.RGBA{A: 0xff}))

	p := &recPainter{}
	f := outputFrame(geom, p)
	f.Pending = region.Rect(image.Rect(0, 0, 5, 5))
	res := h.paint(t, f)

	full := region.Rect(geom)
	if !res.Rendered.Equal(full) || !res.Damaged.Equal(full) {
		t.Errorf("Rendered = %v, Damaged = %v, want full output", res.Rendered, res.Damaged)
	}
	if len(p.fills) != 1 || !p.fills[0].Equal(full) {
		t.Errorf("background fills = %v, want one full fill", p.fills)
	}
	if len(p.draws) != 1 {
		t.Errorf("draws = %d, want 1", len(p.draws))
	}
}

func TestPaintOutputDesktopFilter(t *testing.T) {
	h := newHarness(t)
	h.scene.SetDesktops(2)
	r := image.Rect(0, 0, 10, 10)
	other := newClient(r, color.RGBA{A: 0xff})
	other.desktop = 2
	h.scene.AddWindow(other)
	sticky := newClient(r, color.RGBA{A: 0xff})
	sticky.opaque = false
	h.scene.AddWindow(sticky)

	p := &recPainter{}
	f := outputFrame(r, p)
	f.Pending = region.Rect(r)
	h.paint(t, f)

	if len(p.draws) != 1 {
		t.Errorf("draws = %d, want 1 (window of desktop 2 skipped)", len(p.draws))
	}
}

func TestPaintOutputPixels(t *testing.T) {
	h := newHarness(t, WithBackground(color.RGBA{B: 0xff, A: 0xff}))
	red := color.RGBA{R: 0xff, A: 0xff}
	h.scene.AddWindow(newClient(image.Rect(10, 10, 20, 20), red))

	geom := image.Rect(0, 0, 40, 30)
	target := render.NewPixmapTarget(geom.Dx(), geom.Dy())
	stack := render.NewTargetStack()
	stack.Push(target, geom)
	f := outputFrame(geom, render.NewSoftwarePainter(stack))
	f.Stack = stack
	f.Pending = region.Rect(geom)
	h.paint(t, f)
	if _, err := stack.Pop(); err != nil {
		t.Fatalf("Pop() error = %v", err)
	}

	img := target.Image()
	tests := []struct {
		p    image.Point
		want color.RGBA
	}{
		{image.Pt(15, 15), red},
		{image.Pt(10, 10), red},
		{image.Pt(5, 5), color.RGBA{B: 0xff, A: 0xff}},
		{image.Pt(20, 20), color.RGBA{B: 0xff, A: 0xff}},
	}
	for _, tt := range tests {
		if got := img.RGBAAt(tt.p.X, tt.p.Y); got != tt.want {
			t.Errorf("pixel %v = %v, want %v", tt.p, got, tt.want)
		}
	}
}
