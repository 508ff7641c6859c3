package payload

import (
	"bufio"
	"github.com/mocukie/mngs/pkg/imagex"
	"github.com/pkg/errors"
	"image"
	"os"
)

// Image is an opened but not yet decoded image file. Only the header is
// read on open; pixels are decoded on demand.
type Image struct {
	Path   string
	Format string
	Config image.Config
	meta   imagex.Meta
}

func OpenImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "[Image] read header of <%s> failed", path)
	}
	return &Image{Path: path, Format: format, Config: cfg}, nil
}

func (im *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, im.Config.Width, im.Config.Height)
}

// Decode reads the pixel data. Metadata chunks found while decoding are
// available from Meta afterwards.
func (im *Image) Decode() (image.Image, error) {
	f, err := os.Open(im.Path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	img, _, meta, err := imagex.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "[Image] decode <%s> failed", im.Path)
	}
	im.meta = meta
	return img, nil
}

func (im *Image) Meta() imagex.Meta {
	if im.meta == nil {
		return imagex.NoMeta
	}
	return im.meta
}
