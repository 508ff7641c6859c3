package coder

import (
	"bufio"
	"github.com/mocukie/mngs/pkg/imagex"
	_ "github.com/mocukie/mngs/pkg/imagex/pngx"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/mocukie/webp-go/webp"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"
)

var webpDecodeOpts = webp.NewDecOptions()

func init() {
	webpDecodeOpts.ImageType = webp.TypeNRGBA
}

// Image opens raster files lazily and writes images and rendered figures.
type Image struct{}

func (*Image) Name() string { return "Image" }
func (*Image) Extensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp", ".webp"}
}

func (*Image) Decode(path string, _ *Options) (interface{}, error) {
	return payload.OpenImage(path)
}

func (*Image) Encode(v interface{}, path string, opts *Options) (err error) {
	img, meta, err := rasterize(v, opts)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = errors.WithStack(e)
		}
	}()
	w := bufio.NewWriter(f)

	switch ext := extOf(path); ext {
	case ".png":
		err = errors.Wrap(png.Encode(w, img), "[PNG] encode failed")
	case ".jpg", ".jpeg":
		err = errors.Wrap(jpeg.Encode(w, img, &jpeg.Options{Quality: int(opts.Quality)}), "[JPEG] encode failed")
	case ".tiff", ".tif":
		err = errors.Wrap(tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}), "[TIFF] encode failed")
	case ".bmp":
		err = errors.Wrap(bmp.Encode(w, img), "[BMP] encode failed")
	case ".webp":
		err = encodeWebP(w, img, meta, opts)
	default:
		err = errors.Errorf("[Image] no encoder for %s", ext)
	}
	if err != nil {
		return err
	}
	return errors.Wrap(w.Flush(), "[Image] flush output failed")
}

// rasterize resolves the payload to pixels. Vector figures are rendered at
// opts.DPI.
func rasterize(v interface{}, opts *Options) (image.Image, imagex.Meta, error) {
	switch val := v.(type) {
	case *payload.Image:
		img, err := val.Decode()
		return img, val.Meta(), err
	case image.Image:
		return val, imagex.NoMeta, nil
	case payload.Vector:
		w, h := val.Size()
		img, err := val.RenderSize(int(w*float64(opts.DPI)), int(h*float64(opts.DPI)))
		return img, imagex.NoMeta, errors.Wrap(err, "[Image] render vector figure failed")
	case payload.Raster:
		img, err := val.Render()
		return img, imagex.NoMeta, errors.Wrap(err, "[Image] render figure failed")
	}
	return nil, nil, errors.Errorf("[Image] unsupported payload %T", v)
}

func encodeWebP(out io.Writer, img image.Image, meta imagex.Meta, opts *Options) error {
	wo, err := webp.NewEncOptionsByPreset(webp.PresetDefault, opts.Quality)
	if err != nil {
		return errors.Wrapf(err, "[WebP] invalid quality %v", opts.Quality)
	}
	wo.Lossless = opts.Lossless

	data, err := webp.EncodeSlice(img, wo)
	if err != nil {
		return errors.Wrap(err, "[WebP] encode failed")
	}

	if wo.Lossless {
		decoded, e := webp.DecodeSlice(data, webpDecodeOpts)
		if e != nil {
			opts.notify("[WebP] decode failed when compare lossless image: %v", e)
		} else if !imagex.Equal(img, decoded) {
			opts.notify("[WebP] lossless options on, but image not equal")
		}
	}

	if !meta.Empty() {
		for _, cc := range [...]webp.FourCC{webp.ICCP, webp.EXIF, webp.XMP} {
			chunk := meta.Get(strings.TrimRight(string(cc[:4:4]), " "))
			if chunk == nil {
				continue
			}
			if tmp, e := webp.SetMetadata(data, cc, chunk); e != nil {
				opts.notify("[WebP] set %s failed: %v", cc, e)
			} else {
				data = tmp
			}
		}
	}

	_, err = out.Write(data)
	return errors.Wrap(err, "[WebP] write to output failed")
}

func init() {
	Register(&Image{})
}
