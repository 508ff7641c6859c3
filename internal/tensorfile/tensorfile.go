// Package tensorfile stores named tensors in the safetensors layout:
//
//	[8 bytes: header size, uint64 LE]
//	[header: JSON {name: {dtype, shape, data_offsets}, "__metadata__": {...}}]
//	[tensor data, little-endian, row-major]
package tensorfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/pkg/errors"
	"io"
	"os"
	"sort"
)

const (
	metadataKey   = "__metadata__"
	maxHeaderSize = 100 << 20

	// SingleKey names the entry used when a lone tensor is saved.
	SingleKey = "tensor"
)

var ErrFormat = errors.New("tensorfile: invalid format")

type entry struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

var dtypeNames = map[payload.DType]string{
	payload.Float64: "F64",
	payload.Float32: "F32",
	payload.Int64:   "I64",
	payload.Int32:   "I32",
	payload.Int16:   "I16",
	payload.Int8:    "I8",
	payload.Uint64:  "U64",
	payload.Uint32:  "U32",
	payload.Uint16:  "U16",
	payload.Uint8:   "U8",
	payload.Bool:    "BOOL",
}

func dtypeFromName(s string) (payload.DType, bool) {
	for dt, name := range dtypeNames {
		if name == s {
			return dt, true
		}
	}
	return "", false
}

// File is the decoded content of a tensor file.
type File struct {
	Tensors  map[string]*payload.Array
	Metadata map[string]string
}

// Names returns the tensor names in data order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}

func Read(r io.Reader) (*File, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, errors.Wrap(err, "[Tensor] read header size failed")
	}
	if headerSize > maxHeaderSize {
		return nil, errors.Wrapf(ErrFormat, "[Tensor] header size %d too large", headerSize)
	}

	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrap(err, "[Tensor] read header failed")
	}
	var header map[string]json.RawMessage
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, errors.Wrap(ErrFormat, "[Tensor] parse header failed: "+err.Error())
	}

	out := &File{Tensors: map[string]*payload.Array{}}
	type located struct {
		name string
		e    entry
	}
	var entries []located
	for name, msg := range header {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &out.Metadata); err != nil {
				return nil, errors.Wrap(ErrFormat, "[Tensor] parse metadata failed: "+err.Error())
			}
			continue
		}
		var e entry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, errors.Wrapf(ErrFormat, "[Tensor] parse entry %s failed: %v", name, err)
		}
		entries = append(entries, located{name, e})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].e.DataOffsets[0] < entries[j].e.DataOffsets[0]
	})

	var pos int64
	for _, l := range entries {
		dt, ok := dtypeFromName(l.e.DType)
		if !ok {
			return nil, errors.Wrapf(ErrFormat, "[Tensor] %s has unsupported dtype %s", l.name, l.e.DType)
		}
		size, err := payload.NumBytes(dt, l.e.Shape)
		if err != nil {
			return nil, errors.Wrapf(ErrFormat, "[Tensor] %s: %v", l.name, err)
		}
		start, end := l.e.DataOffsets[0], l.e.DataOffsets[1]
		if start < pos || end < start || end-start != int64(size) {
			return nil, errors.Wrapf(ErrFormat, "[Tensor] %s has invalid data offsets [%d, %d]", l.name, start, end)
		}
		if _, err = io.CopyN(io.Discard, r, start-pos); err != nil {
			return nil, errors.Wrapf(ErrFormat, "[Tensor] seek to %s failed: %v", l.name, err)
		}
		raw, err := io.ReadAll(io.LimitReader(r, int64(size)))
		if err != nil {
			return nil, errors.Wrapf(err, "[Tensor] read %s failed", l.name)
		}
		if len(raw) != size {
			return nil, errors.Wrapf(ErrFormat, "[Tensor] %s needs %d bytes, got %d", l.name, size, len(raw))
		}
		arr, err := payload.MakeArray(dt, l.e.Shape...)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if err = binary.Read(bytes.NewReader(raw), binary.LittleEndian, arr.Data); err != nil {
			return nil, errors.Wrapf(err, "[Tensor] read %s failed", l.name)
		}
		out.Tensors[l.name] = arr
		pos = end
	}
	return out, nil
}

func WriteFile(path string, f *File) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if e := out.Close(); e != nil && err == nil {
			err = errors.WithStack(e)
		}
	}()
	bw := bufio.NewWriter(out)
	if err = Write(bw, f); err != nil {
		return err
	}
	return errors.Wrap(bw.Flush(), "[Tensor] flush output failed")
}

// Write emits tensors in name order. The header is space padded to an
// 8-byte boundary.
func Write(w io.Writer, f *File) error {
	names := f.Names()
	header := make(map[string]interface{}, len(names)+1)
	if len(f.Metadata) > 0 {
		header[metadataKey] = f.Metadata
	}

	var offset int64
	for _, name := range names {
		arr := f.Tensors[name]
		dt, ok := dtypeNames[arr.DType]
		if !ok {
			return errors.Errorf("[Tensor] %s has unsupported dtype %q", name, arr.DType)
		}
		if n, err := payload.NumElements(arr.Shape); err != nil || n != arr.Len() {
			return errors.Errorf("[Tensor] %s shape %v does not match %d elements", name, arr.Shape, arr.Len())
		}
		size := int64(arr.Len() * arr.DType.Size())
		shape := arr.Shape
		if shape == nil {
			shape = []int{}
		}
		header[name] = entry{DType: dt, Shape: shape, DataOffsets: [2]int64{offset, offset + size}}
		offset += size
	}

	raw, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "[Tensor] marshal header failed")
	}
	for len(raw)%8 != 0 {
		raw = append(raw, ' ')
	}
	if err = binary.Write(w, binary.LittleEndian, uint64(len(raw))); err != nil {
		return errors.Wrap(err, "[Tensor] write header size failed")
	}
	if _, err = w.Write(raw); err != nil {
		return errors.Wrap(err, "[Tensor] write header failed")
	}
	for _, name := range names {
		if err = binary.Write(w, binary.LittleEndian, f.Tensors[name].Data); err != nil {
			return errors.Wrapf(err, "[Tensor] write %s failed", name)
		}
	}
	return nil
}
