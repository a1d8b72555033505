// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"github.com/gogpu/compositor/arena"
	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/internal/logging"
)

// Snapshot is the paintable stacking order of one frame, bottom to top.
// It is a copy: restacking during the frame does not change it.
type Snapshot []*Window

// Windows returns the snapshot as effect windows.
func (s Snapshot) Windows() []effect.Window {
	out := make([]effect.Window, len(s))
	for i, w := range s {
		out[i] = w
	}
	return out
}

// CreateStackingOrder builds the snapshot of the windows in order that
// are visible, and applies the retention policy. Shown windows get their
// texture created and updated. The snapshot lasts until
// ClearStackingOrder; windows discarded in between keep their resources
// until then.
func (s *Scene) CreateStackingOrder(order []arena.Handle) (Snapshot, error) {
	if s.bracketed {
		return nil, ErrSnapshotInProgress
	}
	snap := make(Snapshot, 0, len(order))
	for _, h := range order {
		w, ok := s.windows.Get(h)
		if !ok || !w.IsVisible() {
			continue
		}
		snap = append(snap, w)
	}

	for _, w := range s.windows.All() {
		if w.IsVisible() && w.OnDesktop(s.desktop) {
			w.hidden = 0
			if err := s.prepare(w); err != nil {
				logging.Logger().Warn("window texture unavailable", "window", w.handle, "err", err)
			}
			continue
		}
		if w.counted != s.frame {
			w.counted = s.frame
			w.hidden++
		}
		if w.texture != nil && w.pins == 0 && w.hidden > s.retention.HiddenFrames {
			logging.Logger().Debug("releasing hidden window texture", "window", w.handle, "hidden_frames", w.hidden)
			w.texture.Destroy()
			w.texture = nil
		}
	}

	s.snapshot = snap
	s.bracketed = true
	return snap, nil
}

// ClearStackingOrder ends the frame started by CreateStackingOrder and
// releases the windows discarded during it.
func (s *Scene) ClearStackingOrder() {
	s.snapshot = nil
	s.bracketed = false
	for _, w := range s.teardown {
		s.release(w)
	}
	s.teardown = s.teardown[:0]
}

// Stacking returns the current snapshot, nil outside a frame.
func (s *Scene) Stacking() Snapshot { return s.snapshot }
