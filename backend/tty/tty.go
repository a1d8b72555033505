// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package tty previews outputs on a terminal.
//
// Every terminal cell shows two vertically stacked samples of the
// backbuffer using the upper half block character: the foreground is the
// upper sample and the background the lower one. All outputs share one
// screen and are placed by their global geometry.
package tty

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/backend/software"
	"github.com/gogpu/compositor/output"
	"github.com/gogpu/compositor/render"
)

// DefaultPixelsPerCell is the horizontal number of pixels per cell.
const DefaultPixelsPerCell = 8

const upperHalf = '▀'

// Errors returned by the terminal connector.
var (
	// ErrUnsupportedBuffer is returned for buffers without CPU pixels.
	ErrUnsupportedBuffer = errors.New("tty: buffer has no readable pixels")

	// ErrModeTooSmall is returned for modes smaller than one cell.
	ErrModeTooSmall = errors.New("tty: mode smaller than one cell")
)

// Options configure the terminal preview.
type Options struct {
	// PixelsPerCell is the number of buffer pixels per cell column. Rows
	// cover twice as many pixels. Defaults to DefaultPixelsPerCell.
	PixelsPerCell int
}

func (o Options) scale() int {
	if o.PixelsPerCell <= 0 {
		return DefaultPixelsPerCell
	}
	return o.PixelsPerCell
}

// Display draws outputs onto a shared tcell screen.
type Display struct {
	mu     sync.Mutex
	screen tcell.Screen
	scale  int
	shows  int
}

// NewDisplay wraps an initialized screen.
func NewDisplay(screen tcell.Screen, opts Options) *Display {
	return &Display{screen: screen, scale: opts.scale()}
}

// Connectors returns a connector factory placing outputs on the display.
func (d *Display) Connectors() backend.ConnectorFactory {
	return func(o *output.Output) (backend.Connector, error) {
		return &Connector{display: d, name: o.Name()}, nil
	}
}

// Shows returns how many times the screen was updated.
func (d *Display) Shows() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shows
}

// New creates a software backend presenting to screen.
func New(screen tcell.Screen, opts Options, bopts backend.Options) *software.Backend {
	bopts.Connectors = NewDisplay(screen, opts).Connectors()
	return software.New(bopts)
}

// Connector presents one output on a Display.
type Connector struct {
	display *Display
	name    string

	mu      sync.Mutex
	current backend.State
}

// Test checks that s can be shown.
func (c *Connector) Test(s backend.State) error {
	if s.Buffer != nil {
		if _, ok := s.Buffer.(render.ImageTarget); !ok {
			return fmt.Errorf("%s: %w", c.name, ErrUnsupportedBuffer)
		}
	}
	size := s.Config.Geometry.Size()
	k := c.display.scale
	if s.Config.Enabled && (size.X < k || size.Y < 2*k) {
		return fmt.Errorf("%s: %v: %w", c.name, size, ErrModeTooSmall)
	}
	return nil
}

// Commit draws the damaged cells of s and shows the screen.
func (c *Connector) Commit(s backend.State) error {
	if err := c.Test(s); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := s.Buffer.(render.ImageTarget); ok {
		full := c.current.Buffer == nil ||
			c.current.Config.Geometry != s.Config.Geometry
		c.display.draw(it.Image(), s.Config.Geometry.Min, s.Damage.Rects(), full)
	}
	c.current = s
	return nil
}

// Current returns the last committed state.
func (c *Connector) Current() backend.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// draw samples img, positioned at origin in global coordinates, into the
// cells covering damage.
func (d *Display) draw(img *image.RGBA, origin image.Point, damage []image.Rectangle, full bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := d.scale
	b := img.Bounds()
	if full {
		damage = []image.Rectangle{b}
	}
	cols, rows := d.screen.Size()
	for _, r := range damage {
		r = r.Intersect(b)
		cells := image.Rect(
			floorDiv(origin.X+r.Min.X, k), floorDiv(origin.Y+r.Min.Y, 2*k),
			ceilDiv(origin.X+r.Max.X, k), ceilDiv(origin.Y+r.Max.Y, 2*k),
		).Intersect(image.Rect(0, 0, cols, rows))
		for cy := cells.Min.Y; cy < cells.Max.Y; cy++ {
			for cx := cells.Min.X; cx < cells.Max.X; cx++ {
				x := cx*k - origin.X
				top := image.Pt(x, 2*cy*k-origin.Y)
				bottom := image.Pt(x, (2*cy+1)*k-origin.Y)
				if !top.In(b) {
					continue
				}
				fg := cellColor(img, top)
				bg := fg
				if bottom.In(b) {
					bg = cellColor(img, bottom)
				}
				d.screen.SetContent(cx, cy, upperHalf, nil, tcell.StyleDefault.Foreground(fg).Background(bg))
			}
		}
	}
	d.screen.Show()
	d.shows++
}

func cellColor(img *image.RGBA, p image.Point) tcell.Color {
	c := img.RGBAAt(p.X, p.Y)
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func floorDiv(a, b int) int {
	if a < 0 {
		return -((-a + b - 1) / b)
	}
	return a / b
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}

var _ backend.Connector = (*Connector)(nil)
