// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package tty

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/output"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

func newScreen(t *testing.T, cols, rows int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	if err := s.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	s.SetSize(cols, rows)
	t.Cleanup(s.Fini)
	return s
}

func style(fg, bg color.RGBA) tcell.Style {
	return tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(int32(fg.R), int32(fg.G), int32(fg.B))).
		Background(tcell.NewRGBColor(int32(bg.R), int32(bg.G), int32(bg.B)))
}

var (
	red   = color.RGBA{R: 0xff, A: 0xff}
	green = color.RGBA{G: 0xff, A: 0xff}
	blue  = color.RGBA{B: 0xff, A: 0xff}
)

func paint(t *testing.T, b backend.Backend, o *output.Output, fills map[image.Rectangle]color.RGBA, damaged region.Region) {
	t.Helper()
	f, err := b.BeginFrame(o)
	if err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if err := f.Draw(); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	for r, c := range fills {
		if err := f.Painter.Fill(region.Rect(r), c); err != nil {
			t.Fatalf("Fill() error = %v", err)
		}
	}
	if res, err := b.EndFrame(f, region.Rect(o.Geometry()), damaged); err != nil || !res.Presented {
		t.Fatalf("EndFrame() = %+v, %v; want presented", res, err)
	}
}

func TestHalfBlocks(t *testing.T) {
	screen := newScreen(t, 10, 4)
	b := New(screen, Options{PixelsPerCell: 2}, backend.Options{})
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer b.Close()

	m := output.NewManager()
	left := m.Add(output.Config{Name: "A", Geometry: image.Rect(0, 0, 8, 8), Enabled: true})
	right := m.Add(output.Config{Name: "B", Geometry: image.Rect(8, 0, 16, 8), Enabled: true})

	paint(t, b, left, map[image.Rectangle]color.RGBA{
		image.Rect(0, 0, 8, 2): red,
		image.Rect(0, 2, 8, 4): green,
		image.Rect(0, 4, 8, 8): blue,
	}, region.Rect(left.Geometry()))
	paint(t, b, right, map[image.Rectangle]color.RGBA{
		image.Rect(8, 0, 16, 8): green,
	}, region.Rect(right.Geometry()))

	tests := []struct {
		x, y int
		want tcell.Style
	}{
		{0, 0, style(red, green)},
		{3, 1, style(blue, blue)},
		{4, 0, style(green, green)},
		{7, 1, style(green, green)},
	}
	for _, tt := range tests {
		r, _, st, _ := screen.GetContent(tt.x, tt.y)
		if r != upperHalf {
			t.Errorf("cell (%d,%d) rune = %q, want %q", tt.x, tt.y, r, upperHalf)
		}
		if st != tt.want {
			t.Errorf("cell (%d,%d) style = %v, want %v", tt.x, tt.y, st, tt.want)
		}
	}
	if r, _, _, _ := screen.GetContent(9, 0); r == upperHalf {
		t.Error("cell outside every output was drawn")
	}
}

func TestDamageLimitsCells(t *testing.T) {
	screen := newScreen(t, 4, 2)
	d := NewDisplay(screen, Options{PixelsPerCell: 2})
	c := &Connector{display: d, name: "A"}
	cfg := output.Config{Name: "A", Geometry: image.Rect(0, 0, 8, 8), Enabled: true}

	buf := render.NewPixmapTarget(8, 8)
	buf.Clear(red)
	if err := c.Commit(backend.State{Config: cfg, Buffer: buf}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	buf.Clear(blue)
	dmg := region.Rect(image.Rect(0, 0, 2, 4))
	if err := c.Commit(backend.State{Config: cfg, Buffer: buf, Damage: dmg}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, _, st, _ := screen.GetContent(0, 0); st != style(blue, blue) {
		t.Errorf("damaged cell style = %v, want blue", st)
	}
	if _, _, st, _ := screen.GetContent(1, 0); st != style(red, red) {
		t.Errorf("undamaged cell style = %v, want red", st)
	}
	if d.Shows() != 2 {
		t.Errorf("Shows() = %d, want 2", d.Shows())
	}
}

// viewOnly is a target without CPU pixels.
type viewOnly struct{}

func (viewOnly) Width() int                      { return 64 }
func (viewOnly) Height() int                     { return 64 }
func (viewOnly) Format() gputypes.TextureFormat  { return gputypes.TextureFormatBGRA8Unorm }
func (viewOnly) TextureView() render.TextureView { return nil }
func (viewOnly) Pixels() []byte                  { return nil }
func (viewOnly) Stride() int                     { return 0 }

func TestConnectorTest(t *testing.T) {
	screen := newScreen(t, 4, 2)
	c := &Connector{display: NewDisplay(screen, Options{}), name: "A"}
	small := output.Config{Geometry: image.Rect(0, 0, 4, 4), Enabled: true}
	if err := c.Test(backend.State{Config: small}); !errors.Is(err, ErrModeTooSmall) {
		t.Errorf("Test(small) error = %v, want %v", err, ErrModeTooSmall)
	}
	ok := output.Config{Geometry: image.Rect(0, 0, 64, 64), Enabled: true}
	view := render.NewTextureTarget(nil, 64, 64, gputypes.TextureFormatBGRA8Unorm)
	if err := c.Test(backend.State{Config: ok, Buffer: view}); err != nil {
		t.Errorf("Test(texture target) error = %v", err)
	}
	if err := c.Test(backend.State{Config: ok, Buffer: viewOnly{}}); !errors.Is(err, ErrUnsupportedBuffer) {
		t.Errorf("Test(view only) error = %v, want %v", err, ErrUnsupportedBuffer)
	}
}
