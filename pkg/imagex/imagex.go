// Package imagex decodes images together with their embedded metadata
// chunks (ICC profile, EXIF, XMP).
package imagex

import (
	"bufio"
	"image"
	"io"
	"sync"
	"sync/atomic"
)

// Chunk tags
const (
	ICCP = "ICCP"
	EXIF = "EXIF"
	XMP  = "XMP"
)

type Meta interface {
	Get(tag string) []byte
	Empty() bool
}

// Chunks is a Meta keyed by chunk tag.
type Chunks map[string][]byte

func (c Chunks) Get(tag string) []byte {
	return c[tag]
}

func (c Chunks) Empty() bool {
	return len(c) == 0
}

// NoMeta is the Meta of formats without a metadata reader.
var NoMeta Meta = Chunks(nil)

// MetaReader passes the image stream through and collects metadata on the
// way. Its Meta is complete once the stream is fully read.
type MetaReader interface {
	io.Reader
	Meta
}

type format struct {
	name, magic string
	newReader   func(io.Reader) (MetaReader, error)
	decode      func(io.Reader) (image.Image, error)
}

var (
	formats     atomic.Value
	formatsLock sync.Mutex
)

// RegisterFormat adds a metadata aware decoder for images starting with
// magic. A "?" in magic matches any byte.
func RegisterFormat(name, magic string, newReader func(io.Reader) (MetaReader, error), decode func(io.Reader) (image.Image, error)) {
	formatsLock.Lock()
	defer formatsLock.Unlock()
	old, _ := formats.Load().([]format)
	formats.Store(append(append([]format{}, old...), format{name, magic, newReader, decode}))
}

type peeker interface {
	io.Reader
	Peek(int) ([]byte, error)
}

func match(header []byte, magic string) bool {
	if len(header) != len(magic) {
		return false
	}
	for i, b := range header {
		if magic[i] != b && magic[i] != '?' {
			return false
		}
	}
	return true
}

// Decode decodes r with a registered metadata reader when one matches and
// falls back to the image package otherwise.
func Decode(r io.Reader) (image.Image, string, Meta, error) {
	p, ok := r.(peeker)
	if !ok {
		p = bufio.NewReader(r)
	}
	registered, _ := formats.Load().([]format)
	for _, f := range registered {
		header, err := p.Peek(len(f.magic))
		if err != nil || !match(header, f.magic) {
			continue
		}
		mr, err := f.newReader(p)
		if err != nil {
			return nil, f.name, NoMeta, err
		}
		img, err := f.decode(mr)
		return img, f.name, mr, err
	}
	img, name, err := image.Decode(p)
	return img, name, NoMeta, err
}
