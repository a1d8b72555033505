// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/compositor/region"
)

// SoftwarePainter is a CPU painter built on golang.org/x/image/draw.
//
// Integer translations take the image/draw fast path; scaled or otherwise
// transformed sources are resampled with the interpolator selected by
// DrawOptions.Filter.
//
// Example:
//
//	stack := render.NewTargetStack()
//	stack.Push(render.NewPixmapTarget(1920, 1080), output.Geometry)
//	p := render.NewSoftwarePainter(stack)
//	p.Fill(region.Rect(output.Geometry), color.Black)
type SoftwarePainter struct {
	stack *TargetStack
	draws int
}

// NewSoftwarePainter creates a painter drawing into stack's top target.
func NewSoftwarePainter(stack *TargetStack) *SoftwarePainter {
	return &SoftwarePainter{stack: stack}
}

// Stack returns the target stack the painter draws into.
func (p *SoftwarePainter) Stack() *TargetStack { return p.stack }

// Draws returns the number of draw calls that touched pixels.
func (p *SoftwarePainter) Draws() int { return p.draws }

// Fill replaces the pixels inside clip with c.
func (p *SoftwarePainter) Fill(clip region.Region, c color.Color) error {
	img, toTarget, err := p.current()
	if err != nil {
		return err
	}
	src := image.NewUniform(c)
	for _, r := range clip.Rects() {
		dr := toTarget.TransformRect(r).Intersect(img.Bounds())
		if dr.Empty() {
			continue
		}
		xdraw.Draw(img, dr, src, image.Point{}, xdraw.Src)
		p.draws++
	}
	return nil
}

// DrawTexture composites the CPU copy of a texture.
func (p *SoftwarePainter) DrawTexture(tex Texture, clip region.Region, opts DrawOptions) error {
	return p.DrawImage(tex.Image(), clip, opts)
}

// DrawImage composites src over the current target.
func (p *SoftwarePainter) DrawImage(src image.Image, clip region.Region, opts DrawOptions) error {
	if src == nil || clip.IsEmpty() || opts.Opacity <= 0 {
		return nil
	}
	img, toTarget, err := p.current()
	if err != nil {
		return err
	}
	sb := src.Bounds()
	src = adjustColors(src, opts.Brightness, opts.Saturation)

	// Source coordinates are relative to the source bounds origin.
	m := toTarget.Multiply(opts.Transform).Multiply(Translate(-float64(sb.Min.X), -float64(sb.Min.Y)))
	var mask image.Image
	if opts.Opacity < 1 {
		//nolint:gosec // G115: opacity clamped to [0,1)
		mask = image.NewUniform(color.Alpha16{A: uint16(opts.Opacity * 0xffff)})
	}
	covered := m.TransformRect(sb)

	for _, r := range clip.Rects() {
		dr := toTarget.TransformRect(r).Intersect(img.Bounds()).Intersect(covered)
		if dr.Empty() {
			continue
		}
		dst, ok := img.SubImage(dr).(*image.RGBA)
		if !ok {
			continue
		}
		if m.IsIntegerTranslation() {
			off := image.Pt(int(m.C), int(m.F))
			xdraw.DrawMask(dst, dr, src, dr.Min.Sub(off), mask, image.Point{}, xdraw.Over)
		} else {
			interpolator(opts.Filter).Transform(dst, m.Aff3(), src, sb, xdraw.Over, &xdraw.Options{SrcMask: mask})
		}
		p.draws++
	}
	return nil
}

// Flush is a no-op; software drawing is synchronous.
func (p *SoftwarePainter) Flush() error { return nil }

func (p *SoftwarePainter) current() (*image.RGBA, Matrix, error) {
	b, ok := p.stack.Top()
	if !ok {
		return nil, Matrix{}, ErrNoTarget
	}
	it, ok := b.Target.(ImageTarget)
	if !ok {
		return nil, Matrix{}, ErrUnsupportedTarget
	}
	return it.Image(), b.Transform(), nil
}

func interpolator(f Filter) xdraw.Interpolator {
	switch f {
	case FilterBilinear:
		return xdraw.ApproxBiLinear
	case FilterSmooth:
		return xdraw.CatmullRom
	default:
		return xdraw.NearestNeighbor
	}
}

// adjustColors returns src with brightness and saturation applied.
// Neutral settings (1 or unset) return src unchanged.
func adjustColors(src image.Image, brightness, saturation float64) image.Image {
	if brightness == 0 {
		brightness = 1
	}
	if saturation == 0 {
		saturation = 1
	}
	if brightness == 1 && saturation == 1 {
		return src
	}
	b := src.Bounds()
	out := image.NewRGBA(b)
	xdraw.Draw(out, b, src, b.Min, xdraw.Src)
	for i := 0; i+3 < len(out.Pix); i += 4 {
		r, g, bl, a := float64(out.Pix[i]), float64(out.Pix[i+1]), float64(out.Pix[i+2]), float64(out.Pix[i+3])
		if saturation != 1 {
			lum := 0.2126*r + 0.7152*g + 0.0722*bl
			r = lum + (r-lum)*saturation
			g = lum + (g-lum)*saturation
			bl = lum + (bl-lum)*saturation
		}
		out.Pix[i] = clampChannel(r*brightness, a)
		out.Pix[i+1] = clampChannel(g*brightness, a)
		out.Pix[i+2] = clampChannel(bl*brightness, a)
	}
	return out
}

// clampChannel keeps a premultiplied channel within [0, alpha].
func clampChannel(v, alpha float64) uint8 {
	v = math.Round(math.Max(0, math.Min(v, alpha)))
	//nolint:gosec // G115: clamped to [0,255]
	return uint8(v)
}

var _ Painter = (*SoftwarePainter)(nil)
