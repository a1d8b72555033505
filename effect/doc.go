// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package effect implements the effect chain: an ordered, re-entrant
// pipeline of visual transforms wrapping the base window renderer.
//
// Effects are loaded into a Registry with a chain position. Each frame the
// Chain snapshots the active effects and walks them once per pass. Every
// hook receives a continuation; calling it runs the rest of the chain,
// omitting it consumes the pass for that call:
//
//	func (d *Dim) PaintWindow(w effect.Window, mask effect.PaintMask, r region.Region,
//		data *effect.WindowPaintData, next effect.WindowPaintFunc) {
//		if !w.IsActive() {
//			data.Brightness *= 0.6
//		}
//		next(w, mask, r, data)
//	}
//
// The Registry also arbitrates exclusive resources: the keyboard grab,
// pointer interception and per-window data slots.
package effect
