package coder

import (
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/pkg/errors"
	"gonum.org/v1/hdf5"
	"sort"
)

// nativeTypes lists the memory types tried, in order, when matching a
// dataset's stored type.
var nativeTypes = []struct {
	dt    *hdf5.Datatype
	dtype payload.DType
}{
	{hdf5.T_NATIVE_DOUBLE, payload.Float64},
	{hdf5.T_NATIVE_FLOAT, payload.Float32},
	{hdf5.T_NATIVE_INT64, payload.Int64},
	{hdf5.T_NATIVE_INT32, payload.Int32},
	{hdf5.T_NATIVE_INT16, payload.Int16},
	{hdf5.T_NATIVE_INT8, payload.Int8},
	{hdf5.T_NATIVE_UINT64, payload.Uint64},
	{hdf5.T_NATIVE_UINT32, payload.Uint32},
	{hdf5.T_NATIVE_UINT16, payload.Uint16},
	{hdf5.T_NATIVE_UINT8, payload.Uint8},
}

type HDF5 struct{}

func (*HDF5) Name() string         { return "HDF5" }
func (*HDF5) Extensions() []string { return []string{".hdf5", ".h5"} }

// Decode reads every top level dataset eagerly. Groups are skipped.
func (*HDF5) Decode(path string, _ *Options) (interface{}, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, errors.Wrap(err, "[HDF5] open file failed")
	}
	defer f.Close()

	n, err := f.NumObjects()
	if err != nil {
		return nil, errors.Wrap(err, "[HDF5] count objects failed")
	}
	out := make(map[string]*payload.Array, n)
	for i := uint(0); i < n; i++ {
		typ, err := f.ObjectTypeByIndex(i)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if typ != hdf5.H5G_DATASET {
			continue
		}
		name, err := f.ObjectNameByIndex(i)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		arr, err := readDataset(f, name)
		if err != nil {
			return nil, errors.WithMessagef(err, "[HDF5] dataset %s", name)
		}
		out[name] = arr
	}
	return out, nil
}

func readDataset(f *hdf5.File, name string) (*payload.Array, error) {
	ds, err := f.OpenDataset(name)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer ds.Close()

	space := ds.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = int(d)
	}

	stored, err := ds.Datatype()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer stored.Close()
	dtype := payload.Float64
	for _, nt := range nativeTypes {
		if stored.Equal(nt.dt) {
			dtype = nt.dtype
			break
		}
	}

	arr, err := payload.MakeArray(dtype, shape...)
	if err != nil {
		return nil, err
	}
	if arr.Len() == 0 {
		return arr, nil
	}
	if err = ds.Read(arr.Data); err != nil {
		return nil, errors.Wrap(err, "read failed")
	}
	return arr, nil
}

// Encode writes one dataset per mapping entry.
func (*HDF5) Encode(v interface{}, path string, _ *Options) error {
	arrays, err := arrayMap(v)
	if err != nil {
		return errors.WithMessage(err, "[HDF5]")
	}
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return errors.Wrap(err, "[HDF5] create file failed")
	}
	defer f.Close()

	names := make([]string, 0, len(arrays))
	for name := range arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err = writeDataset(f, name, arrays[name]); err != nil {
			return errors.WithMessagef(err, "[HDF5] dataset %s", name)
		}
	}
	return errors.Wrap(f.Flush(hdf5.F_SCOPE_GLOBAL), "[HDF5] flush failed")
}

func writeDataset(f *hdf5.File, name string, arr *payload.Array) error {
	if arr.DType == payload.Bool {
		return errors.New("bool arrays are not supported")
	}
	dims := make([]uint, len(arr.Shape))
	for i, d := range arr.Shape {
		dims[i] = uint(d)
	}
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	defer space.Close()

	var dtype *hdf5.Datatype
	for _, nt := range nativeTypes {
		if nt.dtype == arr.DType {
			dtype = nt.dt
		}
	}
	ds, err := f.CreateDataset(name, dtype, space)
	if err != nil {
		return errors.WithStack(err)
	}
	defer ds.Close()
	if arr.Len() == 0 {
		return nil
	}
	return errors.Wrap(ds.Write(arr.Data), "write failed")
}

// arrayMap accepts name to array mappings, converting slice values.
func arrayMap(v interface{}) (map[string]*payload.Array, error) {
	switch val := v.(type) {
	case map[string]*payload.Array:
		return val, nil
	case map[string]interface{}:
		out := make(map[string]*payload.Array, len(val))
		for name, x := range val {
			arr, err := arrayOf(x)
			if err != nil {
				return nil, errors.WithMessagef(err, "entry %s", name)
			}
			out[name] = arr
		}
		return out, nil
	}
	return nil, errors.Errorf("unsupported payload %T", v)
}

func init() {
	Register(&HDF5{})
}
