package coder

import (
	"archive/zip"
	"bufio"
	"fmt"
	"github.com/mocukie/mngs/internal/npy"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/mocukie/mngs/pkg/zipx"
	"github.com/pkg/errors"
	"os"
	"sort"
	"strings"
)

type NPY struct{}

func (*NPY) Name() string         { return "NPY" }
func (*NPY) Extensions() []string { return []string{".npy"} }

func (*NPY) Decode(path string, _ *Options) (interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return npy.Read(f)
}

func (*NPY) Encode(v interface{}, path string, _ *Options) (err error) {
	arr, err := arrayOf(v)
	if err != nil {
		return errors.WithMessage(err, "[NPY]")
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
	return npy.Write(f, arr)
}

// NPZ reads an archive of .npy members. Loading returns the arrays in the
// order they are stored, without their names.
type NPZ struct{}

func (*NPZ) Name() string         { return "NPZ" }
func (*NPZ) Extensions() []string { return []string{".npz"} }

func (*NPZ) Decode(path string, _ *Options) (interface{}, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "[NPZ] open archive failed")
	}
	defer zr.Close()

	arrays := make([]*payload.Array, 0, len(zr.File))
	for _, fh := range zr.File {
		name, _ := zipx.EntryName(&fh.FileHeader)
		if fh.FileInfo().IsDir() || !strings.HasSuffix(name, ".npy") {
			continue
		}
		arr, err := readMember(fh)
		if err != nil {
			return nil, errors.WithMessagef(err, "[NPZ] member %s", name)
		}
		arrays = append(arrays, arr)
	}
	return arrays, nil
}

func readMember(fh *zip.File) (*payload.Array, error) {
	rc, err := fh.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rc.Close()
	return npy.Read(rc)
}

// Encode accepts a name to array mapping, stored in key order, or a list
// stored as arr_0, arr_1, ...
func (*NPZ) Encode(v interface{}, path string, _ *Options) (err error) {
	var names []string
	var arrays []*payload.Array
	switch val := v.(type) {
	case map[string]*payload.Array:
		for name := range val {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			arrays = append(arrays, val[name])
		}
	case []*payload.Array:
		arrays = val
		for i := range val {
			names = append(names, fmt.Sprintf("arr_%d", i))
		}
	default:
		return errors.Errorf("[NPZ] unsupported payload %T", v)
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
	bw := bufio.NewWriter(f)
	zw := zip.NewWriter(bw)
	for i, arr := range arrays {
		w, err := zw.Create(names[i] + ".npy")
		if err != nil {
			return errors.Wrap(err, "[NPZ] create member failed")
		}
		if err = npy.Write(w, arr); err != nil {
			return errors.WithMessagef(err, "[NPZ] member %s", names[i])
		}
	}
	if err = zw.Close(); err != nil {
		return errors.Wrap(err, "[NPZ] close archive failed")
	}
	return errors.Wrap(bw.Flush(), "[NPZ] flush output failed")
}

// arrayOf accepts arrays and flat numeric slices.
func arrayOf(v interface{}) (*payload.Array, error) {
	switch val := v.(type) {
	case *payload.Array:
		return val, nil
	case payload.Array:
		return &val, nil
	case []int:
		data := make([]int64, len(val))
		for i, x := range val {
			data[i] = int64(x)
		}
		return payload.NewArray(data)
	}
	return payload.NewArray(v)
}

func init() {
	Register(&NPY{})
	Register(&NPZ{})
}
