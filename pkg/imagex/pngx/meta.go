// Package pngx reads the ICC profile, EXIF and XMP chunks of PNG files.
// Importing it registers the reader with imagex.
package pngx

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image/png"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/mocukie/mngs/pkg/imagex"
)

const (
	Magic   = "\x89PNG\r\n\x1a\n"
	xmpKey  = "XML:com.adobe.xmp"
	maxName = 79
)

type metaReader struct {
	io.Reader
	imagex.Chunks
}

// NewMetaReader buffers the PNG stream r and collects its metadata chunks.
func NewMetaReader(r io.Reader) (imagex.MetaReader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, []byte(Magic)) {
		return nil, png.FormatError("not a PNG file")
	}
	chunks, err := ReadChunks(data[len(Magic):])
	if err != nil {
		return nil, err
	}
	return &metaReader{Reader: bytes.NewReader(data), Chunks: chunks}, nil
}

// ReadChunks walks the chunk stream following the PNG signature. Only the
// first chunk of each tag is kept.
func ReadChunks(data []byte) (imagex.Chunks, error) {
	chunks := imagex.Chunks{}
	for len(data) >= 12 {
		size := int(binary.BigEndian.Uint32(data[:4]))
		if size < 0 || len(data) < 12+size {
			return nil, png.FormatError("truncated chunk")
		}
		typ, body := string(data[4:8]), data[8:8+size]
		sum := binary.BigEndian.Uint32(data[8+size : 12+size])
		if crc32.ChecksumIEEE(data[4:8+size]) != sum {
			return nil, png.FormatError("invalid checksum")
		}
		data = data[12+size:]

		var (
			tag   string
			value []byte
			err   error
		)
		switch typ {
		case "iCCP":
			tag = imagex.ICCP
			value, err = parseICCP(body)
		case "eXIf":
			tag, value = imagex.EXIF, append([]byte{}, body...)
		case "iTXt":
			tag = imagex.XMP
			value, err = parseXMP(body)
		case "IEND":
			return chunks, nil
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(value) > 0 && chunks[tag] == nil {
			chunks[tag] = value
		}
	}
	return chunks, nil
}

// cstr splits a NUL terminated string of at most limit bytes off b.
func cstr(b []byte, limit int) (string, []byte, error) {
	i := bytes.IndexByte(b, 0)
	if i < 0 || (limit > 0 && i > limit) {
		return "", nil, png.FormatError("bad text field")
	}
	return string(b[:i]), b[i+1:], nil
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func parseICCP(body []byte) ([]byte, error) {
	_, rest, err := cstr(body, maxName)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 || rest[0] != 0 {
		return nil, png.FormatError("unknown compression method")
	}
	return inflate(rest[1:])
}

func parseXMP(body []byte) ([]byte, error) {
	key, rest, err := cstr(body, maxName)
	if err != nil {
		return nil, err
	}
	if key != xmpKey {
		return nil, nil
	}
	if len(rest) < 2 {
		return nil, png.FormatError("truncated iTXt chunk")
	}
	compressed := rest[0] == 1
	if compressed && rest[1] != 0 {
		return nil, png.FormatError("unknown compression method")
	}
	rest = rest[2:]
	if _, rest, err = cstr(rest, 0); err != nil { // language tag
		return nil, err
	}
	if _, rest, err = cstr(rest, 0); err != nil { // translated keyword
		return nil, err
	}
	if compressed {
		return inflate(rest)
	}
	return append([]byte{}, rest...), nil
}

func init() {
	imagex.RegisterFormat("png", Magic, NewMetaReader, png.Decode)
}
