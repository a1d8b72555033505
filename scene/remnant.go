// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"image"

	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/region"
)

// Remnant is the frozen state of a closed window. It keeps the last
// texture of the window alive for outgoing animations.
//
// A remnant starts with one reference owned by the scene, which is
// dropped right after effects were notified of the close. Effects that
// animate the close take their own reference. The remnant is discarded
// when the count reaches zero.
type Remnant struct {
	window *Window

	geometry image.Rectangle
	opaque   region.Region
	opacity  float64
	desktop  int
	caption  string
	active   bool

	refs      int
	discarded bool
}

var _ effect.Remnant = (*Remnant)(nil)

func newRemnant(w *Window) *Remnant {
	c := w.client
	return &Remnant{
		window:   w,
		geometry: c.Geometry(),
		opaque:   c.OpaqueRegion(),
		opacity:  c.Opacity(),
		desktop:  c.Desktop(),
		caption:  c.Caption(),
		active:   c.IsActive(),
		refs:     1,
	}
}

// Ref takes a reference.
func (r *Remnant) Ref() { r.refs++ }

// Unref drops a reference and discards the remnant on the last one.
func (r *Remnant) Unref() {
	if r.refs <= 0 {
		logging.Logger().Error("remnant released too often", "window", r.window.handle)
		return
	}
	r.refs--
	if r.refs == 0 {
		r.window.scene.discard(r.window)
	}
}

// Refs returns the reference count.
func (r *Remnant) Refs() int { return r.refs }

// Discarded reports whether the remnant left the scene.
func (r *Remnant) Discarded() bool { return r.discarded }
