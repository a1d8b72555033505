// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"errors"
	"fmt"
	"image"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/compositor/output"
	"github.com/gogpu/compositor/render"
)

// Errors reported by HeadlessConnector.
var (
	ErrInjected     = errors.New("backend: injected failure")
	ErrModeTooLarge = errors.New("backend: mode exceeds display limits")
)

// HeadlessConnector is an in-memory display. Committed buffers are copied
// into a screen image inside their damage. Failures can be injected for
// testing.
//
// HeadlessConnector is safe for concurrent use.
type HeadlessConnector struct {
	mu sync.Mutex

	name    string
	maxSize image.Point
	screen  *image.RGBA
	current State

	failTests   int
	failCommits int
	tests       int
	commits     int
}

// NewHeadlessConnector creates a display accepting modes up to maxSize.
// A zero maxSize accepts any mode.
func NewHeadlessConnector(name string, maxSize image.Point) *HeadlessConnector {
	return &HeadlessConnector{name: name, maxSize: maxSize, screen: image.NewRGBA(image.Rectangle{})}
}

// HeadlessConnectors is the default ConnectorFactory.
func HeadlessConnectors(o *output.Output) (Connector, error) {
	return NewHeadlessConnector(o.Name(), image.Point{}), nil
}

// FailTests makes the next n tests fail.
func (c *HeadlessConnector) FailTests(n int) {
	c.mu.Lock()
	c.failTests = n
	c.mu.Unlock()
}

// FailCommits makes the next n commits fail.
func (c *HeadlessConnector) FailCommits(n int) {
	c.mu.Lock()
	c.failCommits = n
	c.mu.Unlock()
}

// Test validates s.
func (c *HeadlessConnector) Test(s State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tests++
	return c.test(s)
}

func (c *HeadlessConnector) test(s State) error {
	if c.failTests > 0 {
		c.failTests--
		return fmt.Errorf("%s: test: %w", c.name, ErrInjected)
	}
	size := s.Config.Geometry.Size()
	if c.maxSize != (image.Point{}) && (size.X > c.maxSize.X || size.Y > c.maxSize.Y) {
		return fmt.Errorf("%s: %v: %w", c.name, size, ErrModeTooLarge)
	}
	return nil
}

// Commit applies s and copies the damaged part of its buffer to the screen.
func (c *HeadlessConnector) Commit(s State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.test(s); err != nil {
		return err
	}
	if c.failCommits > 0 {
		c.failCommits--
		return fmt.Errorf("%s: commit: %w", c.name, ErrInjected)
	}
	if it, ok := s.Buffer.(render.ImageTarget); ok {
		src := it.Image()
		if c.screen.Bounds() != src.Bounds() {
			c.screen = image.NewRGBA(src.Bounds())
			xdraw.Draw(c.screen, src.Bounds(), src, src.Bounds().Min, xdraw.Src)
		} else {
			for _, r := range s.Damage.Rects() {
				xdraw.Draw(c.screen, r, src, r.Min, xdraw.Src)
			}
		}
	}
	c.current = s
	c.commits++
	return nil
}

// Current returns the last committed state.
func (c *HeadlessConnector) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Screen returns a copy of what the display shows.
func (c *HeadlessConnector) Screen() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := image.NewRGBA(c.screen.Bounds())
	copy(out.Pix, c.screen.Pix)
	return out
}

// Counts returns the number of tests attempted and commits applied.
func (c *HeadlessConnector) Counts() (tests, commits int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tests, c.commits
}

var _ Connector = (*HeadlessConnector)(nil)
