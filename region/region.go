// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package region implements pixel regions as sets of non-overlapping
// rectangles.
//
// Region is a value type: every operation returns a new Region and never
// modifies its receiver, so a Region may be shared between frames and
// goroutines without copying. The zero value is the empty region.
//
// Regions are used for damage, valid and update regions, and render clips.
//
// Example:
//
//	damage := region.Rect(image.Rect(0, 0, 100, 100))
//	damage = damage.UnionRect(image.Rect(50, 50, 200, 200))
//	visible := damage.IntersectRect(output.Geometry)
package region

import (
	"fmt"
	"image"
	"slices"
	"strings"
)

// Region is an immutable set of pixels described by non-overlapping,
// non-empty rectangles.
type Region struct {
	rects []image.Rectangle
}

// Rect returns a region covering r. An empty r yields the empty region.
func Rect(r image.Rectangle) Region {
	r = r.Canon()
	if r.Empty() {
		return Region{}
	}
	return Region{rects: []image.Rectangle{r}}
}

// FromRects returns the union of the given rectangles.
func FromRects(rs ...image.Rectangle) Region {
	var out Region
	for _, r := range rs {
		out = out.UnionRect(r)
	}
	return out
}

// IsEmpty reports whether the region contains no pixels.
func (g Region) IsEmpty() bool { return len(g.rects) == 0 }

// Rects returns the rectangles of the region sorted top-to-bottom,
// left-to-right. The returned slice is a copy.
func (g Region) Rects() []image.Rectangle {
	out := slices.Clone(g.rects)
	slices.SortFunc(out, func(a, b image.Rectangle) int {
		if a.Min.Y != b.Min.Y {
			return a.Min.Y - b.Min.Y
		}
		return a.Min.X - b.Min.X
	})
	return out
}

// Len returns the number of rectangles in the region.
func (g Region) Len() int { return len(g.rects) }

// Bounds returns the smallest rectangle containing the region.
func (g Region) Bounds() image.Rectangle {
	var b image.Rectangle
	for _, r := range g.rects {
		b = b.Union(r)
	}
	return b
}

// Area returns the number of pixels in the region.
func (g Region) Area() int {
	n := 0
	for _, r := range g.rects {
		n += r.Dx() * r.Dy()
	}
	return n
}

// Contains reports whether the pixel at p is in the region.
func (g Region) Contains(p image.Point) bool {
	for _, r := range g.rects {
		if p.In(r) {
			return true
		}
	}
	return false
}

// ContainsRect reports whether every pixel of r is in the region.
func (g Region) ContainsRect(r image.Rectangle) bool {
	return Rect(r).Subtract(g).IsEmpty()
}

// Overlaps reports whether the region and r share at least one pixel.
func (g Region) Overlaps(r image.Rectangle) bool {
	for _, q := range g.rects {
		if q.Overlaps(r) {
			return true
		}
	}
	return false
}

// UnionRect returns g ∪ r.
func (g Region) UnionRect(r image.Rectangle) Region {
	r = r.Canon()
	if r.Empty() {
		return g
	}
	pieces := []image.Rectangle{r}
	for _, q := range g.rects {
		pieces = subtractAll(pieces, q)
		if len(pieces) == 0 {
			return g
		}
	}
	out := make([]image.Rectangle, 0, len(g.rects)+len(pieces))
	out = append(out, g.rects...)
	out = append(out, pieces...)
	return Region{rects: coalesce(out)}
}

// Union returns g ∪ o.
func (g Region) Union(o Region) Region {
	if g.IsEmpty() {
		return o
	}
	out := g
	for _, r := range o.rects {
		out = out.UnionRect(r)
	}
	return out
}

// IntersectRect returns g ∩ r.
func (g Region) IntersectRect(r image.Rectangle) Region {
	var out []image.Rectangle
	for _, q := range g.rects {
		if i := q.Intersect(r); !i.Empty() {
			out = append(out, i)
		}
	}
	return Region{rects: out}
}

// Intersect returns g ∩ o.
func (g Region) Intersect(o Region) Region {
	var out []image.Rectangle
	for _, a := range g.rects {
		for _, b := range o.rects {
			if i := a.Intersect(b); !i.Empty() {
				out = append(out, i)
			}
		}
	}
	return Region{rects: coalesce(out)}
}

// SubtractRect returns g minus r.
func (g Region) SubtractRect(r image.Rectangle) Region {
	if r.Empty() {
		return g
	}
	return Region{rects: coalesce(subtractAll(slices.Clone(g.rects), r))}
}

// Subtract returns g minus o.
func (g Region) Subtract(o Region) Region {
	rects := slices.Clone(g.rects)
	for _, r := range o.rects {
		rects = subtractAll(rects, r)
		if len(rects) == 0 {
			return Region{}
		}
	}
	return Region{rects: coalesce(rects)}
}

// Translate returns the region moved by d.
func (g Region) Translate(d image.Point) Region {
	if len(g.rects) == 0 {
		return g
	}
	out := make([]image.Rectangle, len(g.rects))
	for i, r := range g.rects {
		out[i] = r.Add(d)
	}
	return Region{rects: out}
}

// Equal reports whether g and o cover the same pixels.
func (g Region) Equal(o Region) bool {
	if g.Area() != o.Area() {
		return false
	}
	return g.Subtract(o).IsEmpty()
}

// String formats the region as a list of rectangles.
func (g Region) String() string {
	if g.IsEmpty() {
		return "{}"
	}
	parts := make([]string, 0, len(g.rects))
	for _, r := range g.Rects() {
		parts = append(parts, r.String())
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, " "))
}

// subtractAll removes cut from every rectangle in rs.
func subtractAll(rs []image.Rectangle, cut image.Rectangle) []image.Rectangle {
	out := rs[:0:0]
	for _, r := range rs {
		out = appendDifference(out, r, cut)
	}
	return out
}

// appendDifference appends r minus cut as at most four bands: above,
// below, left and right of the overlap.
func appendDifference(dst []image.Rectangle, r, cut image.Rectangle) []image.Rectangle {
	i := r.Intersect(cut)
	if i.Empty() {
		return append(dst, r)
	}
	if r.Min.Y < i.Min.Y {
		dst = append(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, i.Min.Y))
	}
	if i.Max.Y < r.Max.Y {
		dst = append(dst, image.Rect(r.Min.X, i.Max.Y, r.Max.X, r.Max.Y))
	}
	if r.Min.X < i.Min.X {
		dst = append(dst, image.Rect(r.Min.X, i.Min.Y, i.Min.X, i.Max.Y))
	}
	if i.Max.X < r.Max.X {
		dst = append(dst, image.Rect(i.Max.X, i.Min.Y, r.Max.X, i.Max.Y))
	}
	return dst
}

// coalesce merges rectangles that share a full edge. It keeps rectangle
// counts low for the common case of repeated damage of adjacent areas.
func coalesce(rs []image.Rectangle) []image.Rectangle {
	for merged := true; merged && len(rs) > 1; {
		merged = false
		for i := 0; i < len(rs) && !merged; i++ {
			for j := i + 1; j < len(rs); j++ {
				if m, ok := joinEdge(rs[i], rs[j]); ok {
					rs[i] = m
					rs = slices.Delete(rs, j, j+1)
					merged = true
					break
				}
			}
		}
	}
	return rs
}

func joinEdge(a, b image.Rectangle) (image.Rectangle, bool) {
	switch {
	case a.Min.Y == b.Min.Y && a.Max.Y == b.Max.Y && (a.Max.X == b.Min.X || b.Max.X == a.Min.X):
		return a.Union(b), true
	case a.Min.X == b.Min.X && a.Max.X == b.Max.X && (a.Max.Y == b.Min.Y || b.Max.Y == a.Min.Y):
		return a.Union(b), true
	}
	return image.Rectangle{}, false
}
