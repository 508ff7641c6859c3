// Package matfile reads and writes level 5 MATLAB MAT-files.
//
// Numeric and logical matrices and char arrays are supported. Cell, struct,
// sparse and object variables are skipped on read.
package matfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"github.com/klauspost/compress/zlib"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/pkg/errors"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf16"
)

const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
	miUTF8       = 16
	miUTF16      = 17

	mxCHAR   = 4
	mxDOUBLE = 6
	mxSINGLE = 7
	mxINT8   = 8
	mxUINT8  = 9
	mxINT16  = 10
	mxUINT16 = 11
	mxINT32  = 12
	mxUINT32 = 13
	mxINT64  = 14
	mxUINT64 = 15

	flagComplex = 0x0800
	flagLogical = 0x0200

	headerSize = 128
)

var ErrFormat = errors.New("matfile: invalid format")

var classDType = map[uint32]payload.DType{
	mxDOUBLE: payload.Float64,
	mxSINGLE: payload.Float32,
	mxINT8:   payload.Int8,
	mxUINT8:  payload.Uint8,
	mxINT16:  payload.Int16,
	mxUINT16: payload.Uint16,
	mxINT32:  payload.Int32,
	mxUINT32: payload.Uint32,
	mxINT64:  payload.Int64,
	mxUINT64: payload.Uint64,
}

type storage struct {
	class uint32
	mi    uint32
}

var dtypeStorage = map[payload.DType]storage{
	payload.Float64: {mxDOUBLE, miDOUBLE},
	payload.Float32: {mxSINGLE, miSINGLE},
	payload.Int8:    {mxINT8, miINT8},
	payload.Uint8:   {mxUINT8, miUINT8},
	payload.Int16:   {mxINT16, miINT16},
	payload.Uint16:  {mxUINT16, miUINT16},
	payload.Int32:   {mxINT32, miINT32},
	payload.Uint32:  {mxUINT32, miUINT32},
	payload.Int64:   {mxINT64, miINT64},
	payload.Uint64:  {mxUINT64, miUINT64},
	payload.Bool:    {mxUINT8, miUINT8},
}

// Variables maps variable names to *payload.Array or string (char arrays).
type Variables map[string]interface{}

func ReadFile(path string) (Variables, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}

func Read(r io.Reader) (Variables, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrap(err, "[MAT] read header failed")
	}
	var order binary.ByteOrder
	switch string(header[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, errors.Wrap(ErrFormat, "[MAT] missing endian indicator, not a level 5 MAT-file")
	}

	vars := Variables{}
	for {
		typ, data, err := readElement(r, order)
		if err == io.EOF {
			return vars, nil
		} else if err != nil {
			return nil, err
		}
		if err = decodeTop(vars, typ, data, order); err != nil {
			return nil, err
		}
	}
}

func decodeTop(vars Variables, typ uint32, data []byte, order binary.ByteOrder) error {
	switch typ {
	case miCOMPRESSED:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return errors.Wrap(err, "[MAT] open compressed element failed")
		}
		defer zr.Close()
		inner := bufio.NewReader(zr)
		for {
			t, d, err := readElement(inner, order)
			if err == io.EOF {
				return nil
			} else if err != nil {
				return err
			}
			if err = decodeTop(vars, t, d, order); err != nil {
				return err
			}
		}
	case miMATRIX:
		name, v, err := decodeMatrix(data, order)
		if err != nil {
			return err
		}
		if v != nil {
			vars[name] = v
		}
	}
	return nil
}

// readElement returns io.EOF only when no byte of a new element was read.
func readElement(r io.Reader, order binary.ByteOrder) (uint32, []byte, error) {
	tag := make([]byte, 8)
	if n, err := io.ReadFull(r, tag); err != nil {
		if n == 0 && err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, errors.Wrap(err, "[MAT] read element tag failed")
	}
	first := order.Uint32(tag[:4])
	if first>>16 != 0 {
		size := first >> 16
		if size > 4 {
			return 0, nil, errors.Wrapf(ErrFormat, "[MAT] small element of %d bytes", size)
		}
		return first & 0xffff, tag[4 : 4+size], nil
	}
	size := order.Uint32(tag[4:])
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return 0, nil, errors.Wrap(err, "[MAT] read element data failed")
	}
	if first != miCOMPRESSED {
		if pad := (8 - size%8) % 8; pad > 0 {
			if _, err := io.CopyN(io.Discard, r, int64(pad)); err != nil && err != io.EOF {
				return 0, nil, errors.Wrap(err, "[MAT] skip padding failed")
			}
		}
	}
	return first, data, nil
}

func decodeMatrix(data []byte, order binary.ByteOrder) (string, interface{}, error) {
	r := bytes.NewReader(data)
	_, flags, err := readElement(r, order)
	if err != nil {
		return "", nil, err
	}
	if len(flags) < 4 {
		return "", nil, errors.Wrap(ErrFormat, "[MAT] short array flags")
	}
	word := order.Uint32(flags[:4])
	class := word & 0xff

	dimType, dimData, err := readElement(r, order)
	if err != nil {
		return "", nil, err
	}
	dimsF, err := numbers(dimType, dimData, order)
	if err != nil {
		return "", nil, err
	}
	dims := make([]int, len(dimsF))
	for i, d := range dimsF {
		dims[i] = int(d)
	}

	_, nameData, err := readElement(r, order)
	if err != nil {
		return "", nil, err
	}
	name := string(nameData)

	if class == mxCHAR {
		t, d, err := readElement(r, order)
		if err != nil {
			return "", nil, err
		}
		text, err := decodeChars(t, d, dims, order)
		if err != nil {
			return "", nil, errors.WithMessagef(err, "variable %s", name)
		}
		return name, text, nil
	}
	dt, ok := classDType[class]
	if !ok {
		return name, nil, nil
	}

	realType, realData, err := readElement(r, order)
	if err != nil {
		return "", nil, err
	}
	vals, err := numbers(realType, realData, order)
	if err != nil {
		return "", nil, errors.WithMessagef(err, "variable %s", name)
	}
	if word&flagLogical != 0 {
		dt = payload.Bool
	}
	if n, err := payload.NumElements(dims); err != nil || n != len(vals) {
		return "", nil, errors.Wrapf(ErrFormat, "[MAT] %s has %d values for dims %v", name, len(vals), dims)
	}
	col, err := payload.FromFloat64s(dt, vals, dims...)
	if err != nil {
		return "", nil, errors.WithStack(err)
	}
	col.Data = payload.FromColumnMajor(col.Data, dims)
	return name, col, nil
}

func decodeChars(typ uint32, data []byte, dims []int, order binary.ByteOrder) (string, error) {
	if typ == miUTF8 || typ == miINT8 || typ == miUINT8 {
		return string(data), nil
	}
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = order.Uint16(data[2*i:])
	}
	if len(dims) == 2 && dims[0] > 1 {
		if n, err := payload.NumElements(dims); err != nil || n != len(units) {
			return "", errors.Wrapf(ErrFormat, "[MAT] %d chars for dims %v", len(units), dims)
		}
		// char matrices are stored column-major; rows are joined by newlines
		rows := make([]string, dims[0])
		for i := 0; i < dims[0]; i++ {
			row := make([]uint16, dims[1])
			for j := 0; j < dims[1]; j++ {
				row[j] = units[j*dims[0]+i]
			}
			rows[i] = string(utf16.Decode(row))
		}
		return strings.Join(rows, "\n"), nil
	}
	return string(utf16.Decode(units)), nil
}

func numbers(typ uint32, data []byte, order binary.ByteOrder) ([]float64, error) {
	var width int
	switch typ {
	case miINT8, miUINT8:
		width = 1
	case miINT16, miUINT16:
		width = 2
	case miINT32, miUINT32, miSINGLE:
		width = 4
	case miDOUBLE, miINT64, miUINT64:
		width = 8
	default:
		return nil, errors.Wrapf(ErrFormat, "[MAT] unsupported storage type %d", typ)
	}
	out := make([]float64, len(data)/width)
	for i := range out {
		b := data[i*width:]
		switch typ {
		case miINT8:
			out[i] = float64(int8(b[0]))
		case miUINT8:
			out[i] = float64(b[0])
		case miINT16:
			out[i] = float64(int16(order.Uint16(b)))
		case miUINT16:
			out[i] = float64(order.Uint16(b))
		case miINT32:
			out[i] = float64(int32(order.Uint32(b)))
		case miUINT32:
			out[i] = float64(order.Uint32(b))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(order.Uint32(b)))
		case miDOUBLE:
			out[i] = math.Float64frombits(order.Uint64(b))
		case miINT64:
			out[i] = float64(int64(order.Uint64(b)))
		case miUINT64:
			out[i] = float64(order.Uint64(b))
		}
	}
	return out, nil
}

func WriteFile(path string, vars Variables) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = errors.WithStack(e)
		}
	}()
	bw := bufio.NewWriter(f)
	if err = Write(bw, vars); err != nil {
		return err
	}
	return errors.Wrap(bw.Flush(), "[MAT] flush output failed")
}

// Write emits an uncompressed little-endian MAT-file with variables in name
// order. One dimensional arrays become 1xN row vectors.
func Write(w io.Writer, vars Variables) error {
	text := fmt.Sprintf("MATLAB 5.0 MAT-file, Platform: GLNXA64, Created on: %s", time.Now().Format(time.ANSIC))
	header := make([]byte, headerSize)
	copy(header, text+strings.Repeat(" ", 116))
	for i := 116; i < 124; i++ {
		header[i] = 0
	}
	binary.LittleEndian.PutUint16(header[124:], 0x0100)
	copy(header[126:], "IM")
	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, "[MAT] write header failed")
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := encodeVar(name, vars[name])
		if err != nil {
			return err
		}
		if err = writeElement(w, miMATRIX, body); err != nil {
			return err
		}
	}
	return nil
}

func encodeVar(name string, v interface{}) ([]byte, error) {
	var body bytes.Buffer
	switch val := v.(type) {
	case string:
		units := utf16.Encode([]rune(val))
		_ = writeElement(&body, miUINT32, u32s(mxCHAR, 0))
		_ = writeElement(&body, miINT32, i32s(1, len(units)))
		_ = writeElement(&body, miINT8, []byte(name))
		var data bytes.Buffer
		_ = binary.Write(&data, binary.LittleEndian, units)
		_ = writeElement(&body, miUINT16, data.Bytes())
	case *payload.Array:
		st, ok := dtypeStorage[val.DType]
		if !ok {
			return nil, errors.Errorf("[MAT] %s has unsupported dtype %q", name, val.DType)
		}
		dims := val.Shape
		switch len(dims) {
		case 0:
			dims = []int{1, 1}
		case 1:
			dims = []int{1, dims[0]}
		}
		if n, err := payload.NumElements(dims); err != nil || n != val.Len() {
			return nil, errors.Errorf("[MAT] %s shape %v does not match %d elements", name, val.Shape, val.Len())
		}
		flags := st.class
		if val.DType == payload.Bool {
			flags |= flagLogical
		}
		_ = writeElement(&body, miUINT32, u32s(flags, 0))
		_ = writeElement(&body, miINT32, i32s(dims...))
		_ = writeElement(&body, miINT8, []byte(name))

		data := payload.ToColumnMajor(val.Data, dims)
		if b, ok := data.([]bool); ok {
			u := make([]uint8, len(b))
			for i := range b {
				if b[i] {
					u[i] = 1
				}
			}
			data = u
		}
		var raw bytes.Buffer
		if err := binary.Write(&raw, binary.LittleEndian, data); err != nil {
			return nil, errors.Wrapf(err, "[MAT] encode %s failed", name)
		}
		_ = writeElement(&body, st.mi, raw.Bytes())
	default:
		return nil, errors.Errorf("[MAT] %s: unsupported value %T", name, v)
	}
	return body.Bytes(), nil
}

func writeElement(w io.Writer, typ uint32, data []byte) error {
	tag := make([]byte, 8)
	binary.LittleEndian.PutUint32(tag, typ)
	binary.LittleEndian.PutUint32(tag[4:], uint32(len(data)))
	if _, err := w.Write(tag); err != nil {
		return errors.Wrap(err, "[MAT] write element failed")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "[MAT] write element failed")
	}
	if pad := (8 - len(data)%8) % 8; pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return errors.Wrap(err, "[MAT] write element failed")
		}
	}
	return nil
}

func u32s(vals ...uint32) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[4*i:], v)
	}
	return b
}

func i32s(vals ...int) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[4*i:], uint32(int32(v)))
	}
	return b
}
