package payload

import (
	"image"
	"io"
)

// Raster is a figure that renders at its own resolution.
type Raster interface {
	Render() (image.Image, error)
}

// Vector is a figure that can be rasterized at any size. Size is in
// inches; the pixel size is Size times the requested DPI.
type Vector interface {
	Size() (width, height float64)
	RenderSize(width, height int) (image.Image, error)
}

// HTMLer writes a self-contained interactive document.
type HTMLer interface {
	WriteHTML(w io.Writer) error
}

// Animation yields the frames of a rotating view.
type Animation interface {
	Frames() int
	Frame(i int) (image.Image, error)
}

// Releaser is implemented by figures holding resources that should be
// freed once written.
type Releaser interface {
	Release()
}

// Release frees v if it holds resources.
func Release(v interface{}) {
	if r, ok := v.(Releaser); ok {
		r.Release()
	}
}
