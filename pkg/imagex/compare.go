package imagex

import (
	"bytes"
	"image"
	"image/color"
)

// Equal reports whether a and b have the same bounds and the same
// non-premultiplied pixel values.
func Equal(a, b image.Image) bool {
	r := a.Bounds()
	if r != b.Bounds() {
		return false
	}
	if na, ok := a.(*image.NRGBA); ok {
		if nb, ok := b.(*image.NRGBA); ok {
			return equalRows(na.Pix, nb.Pix, na.Stride, nb.Stride, r.Dx()*4, r.Dy())
		}
	}
	if ga, ok := a.(*image.Gray); ok {
		if gb, ok := b.(*image.Gray); ok {
			return equalRows(ga.Pix, gb.Pix, ga.Stride, gb.Stride, r.Dx(), r.Dy())
		}
	}

	model := color.NRGBAModel
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if model.Convert(a.At(x, y)) != model.Convert(b.At(x, y)) {
				return false
			}
		}
	}
	return true
}

func equalRows(pa, pb []byte, sa, sb, width, height int) bool {
	for y := 0; y < height; y++ {
		if !bytes.Equal(pa[y*sa:y*sa+width], pb[y*sb:y*sb+width]) {
			return false
		}
	}
	return true
}
