package payload

import (
	"fmt"
	"github.com/pkg/errors"
	"math"
)

// ErrShape reports a shape with a negative dimension or an element count
// that does not fit in an int.
var ErrShape = errors.New("invalid shape")

type DType string

const (
	Float64 DType = "float64"
	Float32 DType = "float32"
	Int64   DType = "int64"
	Int32   DType = "int32"
	Int16   DType = "int16"
	Int8    DType = "int8"
	Uint64  DType = "uint64"
	Uint32  DType = "uint32"
	Uint16  DType = "uint16"
	Uint8   DType = "uint8"
	Bool    DType = "bool"
)

// Size returns the element width in bytes.
func (d DType) Size() int {
	switch d {
	case Float64, Int64, Uint64:
		return 8
	case Float32, Int32, Uint32:
		return 4
	case Int16, Uint16:
		return 2
	case Int8, Uint8, Bool:
		return 1
	}
	return 0
}

// Array is an n-dimensional array stored flat in row-major order.
type Array struct {
	Shape []int
	DType DType
	Data  interface{}
}

// NewArray wraps a flat typed slice. Without a shape the array is one
// dimensional.
func NewArray(data interface{}, shape ...int) (*Array, error) {
	dt, n, err := DTypeOf(data)
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		shape = []int{n}
	}
	if m, err := NumElements(shape); err != nil {
		return nil, err
	} else if m != n {
		return nil, errors.Errorf("shape %v does not match %d elements", shape, n)
	}
	return &Array{Shape: append([]int(nil), shape...), DType: dt, Data: data}, nil
}

// MustArray is NewArray for literals in tests and examples.
func MustArray(data interface{}, shape ...int) *Array {
	a, err := NewArray(data, shape...)
	if err != nil {
		panic(err)
	}
	return a
}

// MakeArray allocates a zeroed array. Shapes read from files should be
// checked against the bytes available with NumBytes first.
func MakeArray(dt DType, shape ...int) (*Array, error) {
	if _, err := NumBytes(dt, shape); err != nil {
		return nil, err
	}
	n, _ := NumElements(shape)
	var data interface{}
	switch dt {
	case Float64:
		data = make([]float64, n)
	case Float32:
		data = make([]float32, n)
	case Int64:
		data = make([]int64, n)
	case Int32:
		data = make([]int32, n)
	case Int16:
		data = make([]int16, n)
	case Int8:
		data = make([]int8, n)
	case Uint64:
		data = make([]uint64, n)
	case Uint32:
		data = make([]uint32, n)
	case Uint16:
		data = make([]uint16, n)
	case Uint8:
		data = make([]uint8, n)
	case Bool:
		data = make([]bool, n)
	default:
		return nil, errors.Errorf("unsupported dtype %q", dt)
	}
	return &Array{Shape: append([]int(nil), shape...), DType: dt, Data: data}, nil
}

func DTypeOf(data interface{}) (DType, int, error) {
	switch d := data.(type) {
	case []float64:
		return Float64, len(d), nil
	case []float32:
		return Float32, len(d), nil
	case []int64:
		return Int64, len(d), nil
	case []int32:
		return Int32, len(d), nil
	case []int16:
		return Int16, len(d), nil
	case []int8:
		return Int8, len(d), nil
	case []uint64:
		return Uint64, len(d), nil
	case []uint32:
		return Uint32, len(d), nil
	case []uint16:
		return Uint16, len(d), nil
	case []uint8:
		return Uint8, len(d), nil
	case []bool:
		return Bool, len(d), nil
	}
	return "", 0, errors.Errorf("unsupported array data %T", data)
}

// NumElements returns the product of shape.
func NumElements(shape []int) (int, error) {
	n := 1
	for _, s := range shape {
		if s < 0 {
			return 0, errors.Wrapf(ErrShape, "negative dimension in %v", shape)
		}
		if s != 0 && n > math.MaxInt/s {
			return 0, errors.Wrapf(ErrShape, "%v overflows", shape)
		}
		n *= s
	}
	return n, nil
}

// NumBytes returns the storage size of an array of dt with shape.
func NumBytes(dt DType, shape []int) (int, error) {
	n, err := NumElements(shape)
	if err != nil {
		return 0, err
	}
	size := dt.Size()
	if size == 0 {
		return 0, errors.Errorf("unsupported dtype %q", dt)
	}
	if n > math.MaxInt/size {
		return 0, errors.Wrapf(ErrShape, "%v of %s overflows", shape, dt)
	}
	return n * size, nil
}

func (a *Array) Len() int {
	_, n, _ := DTypeOf(a.Data)
	return n
}

func (a *Array) NDim() int {
	return len(a.Shape)
}

// Float64s returns the elements converted to float64. Bools map to 0 and 1.
func (a *Array) Float64s() []float64 {
	switch d := a.Data.(type) {
	case []float64:
		return d
	case []float32:
		return convert(d)
	case []int64:
		return convert(d)
	case []int32:
		return convert(d)
	case []int16:
		return convert(d)
	case []int8:
		return convert(d)
	case []uint64:
		return convert(d)
	case []uint32:
		return convert(d)
	case []uint16:
		return convert(d)
	case []uint8:
		return convert(d)
	case []bool:
		out := make([]float64, len(d))
		for i, b := range d {
			if b {
				out[i] = 1
			}
		}
		return out
	}
	return nil
}

func (a *Array) String() string {
	return fmt.Sprintf("Array(shape=%v, dtype=%s)", a.Shape, a.DType)
}

type number interface {
	~float32 | ~float64 | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func convert[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
