// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

func toRGBA(img image.Image) *image.RGBA {
	if img == nil || img.Bounds().Empty() {
		return nil
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func rgba(c [4]uint8) color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// sample reads src bilinearly along direction d. Longitude wraps; latitude
// clamps at the poles.
func sample(src *image.RGBA, d vec) [4]uint8 {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	u, v := texcoord(d)

	fx := u*float64(w) - 0.5
	fy := v*float64(h) - 0.5
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	x1 := wrap(x0+1, w)
	x0 = wrap(x0, w)
	y1 := clampInt(y0+1, h)
	y0 = clampInt(y0, h)

	p00 := px(src, b.Min.X+x0, b.Min.Y+y0)
	p10 := px(src, b.Min.X+x1, b.Min.Y+y0)
	p01 := px(src, b.Min.X+x0, b.Min.Y+y1)
	p11 := px(src, b.Min.X+x1, b.Min.Y+y1)

	var out [4]uint8
	for i := 0; i < 4; i++ {
		top := float64(p00[i])*(1-tx) + float64(p10[i])*tx
		bot := float64(p01[i])*(1-tx) + float64(p11[i])*tx
		out[i] = uint8(math.Round(top*(1-ty) + bot*ty))
	}
	return out
}

func px(src *image.RGBA, x, y int) [4]uint8 {
	i := src.PixOffset(x, y)
	s := src.Pix[i : i+4 : i+4]
	return [4]uint8{s[0], s[1], s[2], s[3]}
}

func wrap(x, n int) int {
	x %= n
	if x < 0 {
		x += n
	}
	return x
}

func clampInt(y, n int) int {
	if y < 0 {
		return 0
	}
	if y >= n {
		return n - 1
	}
	return y
}
