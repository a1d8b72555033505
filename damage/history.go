// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package damage

import (
	"image"

	"github.com/gogpu/compositor/region"
)

// MaxHistory is the number of presented damage regions kept per output.
const MaxHistory = 10

// History is the buffer-age history of one output: the damage of each
// presented frame, newest first.
//
// History is not safe for concurrent use; it is only touched by the
// rendering goroutine.
type History struct {
	entries []region.Region
}

// Push records the damage of a presented frame as the newest entry.
// At capacity the oldest entry is evicted.
func (h *History) Push(r region.Region) {
	if len(h.entries) == MaxHistory {
		h.entries = h.entries[:MaxHistory-1]
	}
	h.entries = append(h.entries, region.Region{})
	copy(h.entries[1:], h.entries)
	h.entries[0] = r
}

// Len returns the number of recorded entries.
func (h *History) Len() int { return len(h.entries) }

// At returns entry i, where 0 is the newest.
func (h *History) At(i int) region.Region { return h.entries[i] }

// Entries returns a copy of all entries, newest first.
func (h *History) Entries() []region.Region {
	out := make([]region.Region, len(h.entries))
	copy(out, h.entries)
	return out
}

// Clear drops every entry. Disabling an output clears its history.
func (h *History) Clear() { h.entries = h.entries[:0] }

// Newest returns the union of the newest n entries.
func (h *History) Newest(n int) region.Region {
	var out region.Region
	for i := 0; i < n && i < len(h.entries); i++ {
		out = out.Union(h.entries[i])
	}
	return out
}

// RepaintRegion returns the area of a recycled backbuffer that is stale
// with respect to the newest presented frame.
//
// A backbuffer of age N shows the frame presented N frames ago, so the
// newest N-1 history entries describe everything that changed since. The
// whole geometry is stale when buffer age is unsupported, when age is 0
// (undefined contents) or when age exceeds the history length.
func RepaintRegion(supportsAge bool, age int, h *History, geometry image.Rectangle) region.Region {
	full := region.Rect(geometry)
	if !supportsAge || age <= 0 || h == nil || age > h.Len() {
		return full
	}
	return h.Newest(age - 1).IntersectRect(geometry)
}

// PaintRegion combines the stale repair area with the freshly collected
// damage, clipped to geometry. fullRepaint forces the whole geometry.
func PaintRegion(repair, pending region.Region, geometry image.Rectangle, fullRepaint bool) region.Region {
	if fullRepaint {
		return region.Rect(geometry)
	}
	return repair.Union(pending).IntersectRect(geometry)
}
