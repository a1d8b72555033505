// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"
	"math"

	"golang.org/x/image/math/f64"
)

// Matrix is a 2D affine transform in row-major order:
//
//	| a  b  c |
//	| d  e  f |
//
// which maps (x, y) to (a*x + b*y + c, d*x + e*y + f).
type Matrix struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{A: 1, E: 1}
}

// Translate returns a translation.
func Translate(x, y float64) Matrix {
	return Matrix{A: 1, C: x, E: 1, F: y}
}

// Scale returns a scale about the origin.
func Scale(x, y float64) Matrix {
	return Matrix{A: x, E: y}
}

// Multiply returns m * other, which applies other first.
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		A: m.A*other.A + m.B*other.D,
		B: m.A*other.B + m.B*other.E,
		C: m.A*other.C + m.B*other.F + m.C,
		D: m.D*other.A + m.E*other.D,
		E: m.D*other.B + m.E*other.E,
		F: m.D*other.C + m.E*other.F + m.F,
	}
}

// Apply transforms the point (x, y).
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.B*y + m.C, m.D*x + m.E*y + m.F
}

// Invert returns the inverse transform. A singular matrix inverts to the
// identity.
func (m Matrix) Invert() Matrix {
	det := m.A*m.E - m.B*m.D
	if math.Abs(det) < 1e-10 {
		return Identity()
	}
	inv := 1.0 / det
	return Matrix{
		A: m.E * inv,
		B: -m.B * inv,
		C: (m.B*m.F - m.C*m.E) * inv,
		D: -m.D * inv,
		E: m.A * inv,
		F: (m.C*m.D - m.A*m.F) * inv,
	}
}

// IsIdentity reports whether m is the identity.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// IsIntegerTranslation reports whether m only moves by whole pixels.
func (m Matrix) IsIntegerTranslation() bool {
	return m.A == 1 && m.B == 0 && m.D == 0 && m.E == 1 &&
		m.C == math.Trunc(m.C) && m.F == math.Trunc(m.F)
}

// TransformRect returns the integer bounding box of r under m.
func (m Matrix) TransformRect(r image.Rectangle) image.Rectangle {
	if m.IsIntegerTranslation() {
		return r.Add(image.Pt(int(m.C), int(m.F)))
	}
	xs := [4]float64{}
	ys := [4]float64{}
	xs[0], ys[0] = m.Apply(float64(r.Min.X), float64(r.Min.Y))
	xs[1], ys[1] = m.Apply(float64(r.Max.X), float64(r.Min.Y))
	xs[2], ys[2] = m.Apply(float64(r.Min.X), float64(r.Max.Y))
	xs[3], ys[3] = m.Apply(float64(r.Max.X), float64(r.Max.Y))
	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 1; i < 4; i++ {
		minX, maxX = math.Min(minX, xs[i]), math.Max(maxX, xs[i])
		minY, maxY = math.Min(minY, ys[i]), math.Max(maxY, ys[i])
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

// Aff3 converts m to the matrix type used by golang.org/x/image/draw.
func (m Matrix) Aff3() f64.Aff3 {
	return f64.Aff3{m.A, m.B, m.C, m.D, m.E, m.F}
}
