package imagex

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 7, A: 255})
		}
	}
	return img
}

func TestEqual(t *testing.T) {
	a, b := gradient(4, 3), gradient(4, 3)
	assert.True(t, Equal(a, b))

	b.SetNRGBA(1, 1, color.NRGBA{A: 255})
	assert.False(t, Equal(a, b))
	assert.False(t, Equal(a, gradient(3, 3)))

	// sub images share a stride larger than their width
	big := gradient(8, 8)
	sub := big.SubImage(image.Rect(0, 0, 4, 3))
	assert.True(t, Equal(a, sub))

	rgba := image.NewRGBA(a.Bounds())
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			rgba.Set(x, y, a.At(x, y))
		}
	}
	assert.True(t, Equal(a, rgba))
}

type collecting struct {
	io.Reader
	Chunks
}

func TestDecodeRegisteredFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(2, 2)))

	RegisterFormat("fake-png", "\x89P?G", func(r io.Reader) (MetaReader, error) {
		return collecting{Reader: r, Chunks: Chunks{XMP: []byte("<x/>")}}, nil
	}, png.Decode)

	img, name, meta, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "fake-png", name)
	assert.True(t, Equal(gradient(2, 2), img))
	assert.Equal(t, []byte("<x/>"), meta.Get(XMP))
	assert.False(t, meta.Empty())
}

func TestNoMeta(t *testing.T) {
	assert.True(t, NoMeta.Empty())
	assert.Nil(t, NoMeta.Get(ICCP))
}
