// Package npy reads and writes the NumPy .npy array format.
package npy

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/pkg/errors"
	"io"
	"regexp"
	"strconv"
	"strings"
)

const Magic = "\x93NUMPY"

var (
	ErrFormat = errors.New("npy: invalid format")

	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([<>|=])([a-zA-Z])(\d+)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

type Header struct {
	Major, Minor byte
	Order        binary.ByteOrder
	DType        payload.DType
	Fortran      bool
	Shape        []int
}

func ReadHeader(r io.Reader) (*Header, error) {
	pre := make([]byte, len(Magic)+2)
	if _, err := io.ReadFull(r, pre); err != nil {
		return nil, errors.Wrap(err, "[NPY] read magic failed")
	}
	if string(pre[:len(Magic)]) != Magic {
		return nil, errors.Wrap(ErrFormat, "[NPY] bad magic")
	}
	h := &Header{Major: pre[6], Minor: pre[7]}

	var size int
	switch h.Major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, errors.Wrap(err, "[NPY] read header length failed")
		}
		size = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, errors.Wrap(err, "[NPY] read header length failed")
		}
		size = int(n)
	default:
		return nil, errors.Wrapf(ErrFormat, "[NPY] unknown version %d.%d", h.Major, h.Minor)
	}

	dict := make([]byte, size)
	if _, err := io.ReadFull(r, dict); err != nil {
		return nil, errors.Wrap(err, "[NPY] read header failed")
	}
	if err := h.parse(string(dict)); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Header) parse(dict string) error {
	m := descrRe.FindStringSubmatch(dict)
	if m == nil {
		return errors.Wrapf(ErrFormat, "[NPY] unsupported descr in header %q", strings.TrimSpace(dict))
	}
	switch m[1] {
	case ">":
		h.Order = binary.BigEndian
	default:
		h.Order = binary.LittleEndian
	}
	dt, err := dtypeFromDescr(m[2], m[3])
	if err != nil {
		return err
	}
	h.DType = dt

	if m = fortranRe.FindStringSubmatch(dict); m != nil {
		h.Fortran = m[1] == "True"
	}

	m = shapeRe.FindStringSubmatch(dict)
	if m == nil {
		return errors.Wrap(ErrFormat, "[NPY] header has no shape")
	}
	h.Shape = []int{}
	for _, s := range strings.Split(m[1], ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		s = strings.TrimSuffix(s, "L")
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return errors.Wrapf(ErrFormat, "[NPY] bad shape entry %q", s)
		}
		h.Shape = append(h.Shape, n)
	}
	return nil
}

func dtypeFromDescr(kind, size string) (payload.DType, error) {
	switch kind + size {
	case "f8":
		return payload.Float64, nil
	case "f4":
		return payload.Float32, nil
	case "i8":
		return payload.Int64, nil
	case "i4":
		return payload.Int32, nil
	case "i2":
		return payload.Int16, nil
	case "i1":
		return payload.Int8, nil
	case "u8":
		return payload.Uint64, nil
	case "u4":
		return payload.Uint32, nil
	case "u2":
		return payload.Uint16, nil
	case "u1":
		return payload.Uint8, nil
	case "b1":
		return payload.Bool, nil
	}
	return "", errors.Wrapf(ErrFormat, "[NPY] unsupported dtype %s%s", kind, size)
}

func descr(dt payload.DType) (string, error) {
	switch dt {
	case payload.Float64:
		return "<f8", nil
	case payload.Float32:
		return "<f4", nil
	case payload.Int64:
		return "<i8", nil
	case payload.Int32:
		return "<i4", nil
	case payload.Int16:
		return "<i2", nil
	case payload.Int8:
		return "|i1", nil
	case payload.Uint64:
		return "<u8", nil
	case payload.Uint32:
		return "<u4", nil
	case payload.Uint16:
		return "<u2", nil
	case payload.Uint8:
		return "|u1", nil
	case payload.Bool:
		return "|b1", nil
	}
	return "", errors.Errorf("[NPY] unsupported dtype %q", dt)
}

// Read decodes a whole .npy stream into a row-major array.
func Read(r io.Reader) (*payload.Array, error) {
	br := bufio.NewReader(r)
	h, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}
	size, err := payload.NumBytes(h.DType, h.Shape)
	if err != nil {
		return nil, errors.Wrapf(ErrFormat, "[NPY] %v", err)
	}
	raw, err := io.ReadAll(io.LimitReader(br, int64(size)))
	if err != nil {
		return nil, errors.Wrap(err, "[NPY] read data failed")
	}
	if len(raw) != size {
		return nil, errors.Wrapf(ErrFormat, "[NPY] shape %v needs %d bytes, got %d", h.Shape, size, len(raw))
	}
	arr, err := payload.MakeArray(h.DType, h.Shape...)
	if err != nil {
		return nil, errors.Wrap(err, "[NPY] allocate array failed")
	}
	if err = binary.Read(bytes.NewReader(raw), h.Order, arr.Data); err != nil {
		return nil, errors.Wrap(err, "[NPY] read data failed")
	}
	if h.Fortran && len(h.Shape) > 1 {
		arr.Data = payload.FromColumnMajor(arr.Data, h.Shape)
	}
	return arr, nil
}

// Write encodes arr as a version 1.0 little-endian, C-ordered .npy stream.
func Write(w io.Writer, arr *payload.Array) error {
	d, err := descr(arr.DType)
	if err != nil {
		return err
	}
	if n, err := payload.NumElements(arr.Shape); err != nil || n != arr.Len() {
		return errors.Errorf("[NPY] shape %v does not match %d elements", arr.Shape, arr.Len())
	}

	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", d, shapeTuple(arr.Shape))
	total := len(Magic) + 2 + 2 + len(dict) + 1
	if pad := (64 - total%64) % 64; pad > 0 {
		dict += strings.Repeat(" ", pad)
	}
	dict += "\n"

	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(dict)))
	buf.WriteString(dict)

	bw := bufio.NewWriter(w)
	if _, err = bw.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, "[NPY] write header failed")
	}
	if err = binary.Write(bw, binary.LittleEndian, arr.Data); err != nil {
		return errors.Wrap(err, "[NPY] write data failed")
	}
	return errors.Wrap(bw.Flush(), "[NPY] flush output failed")
}

func shapeTuple(shape []int) string {
	switch len(shape) {
	case 0:
		return "()"
	case 1:
		return fmt.Sprintf("(%d,)", shape[0])
	}
	s := make([]string, len(shape))
	for i, n := range shape {
		s[i] = strconv.Itoa(n)
	}
	return "(" + strings.Join(s, ", ") + ")"
}
