package payload

import (
	"github.com/pkg/errors"
	"reflect"
)

// FromColumnMajor returns a row-major copy of column-major data.
func FromColumnMajor(data interface{}, shape []int) interface{} {
	return reorder(data, shape, false)
}

// ToColumnMajor returns a column-major copy of row-major data.
func ToColumnMajor(data interface{}, shape []int) interface{} {
	return reorder(data, shape, true)
}

func reorder(data interface{}, shape []int, toColumn bool) interface{} {
	src := reflect.ValueOf(data)
	n := src.Len()
	dst := reflect.MakeSlice(src.Type(), n, n)
	if len(shape) < 2 {
		reflect.Copy(dst, src)
		return dst.Interface()
	}

	idx := make([]int, len(shape))
	for i := 0; i < n; i++ {
		// idx is the multi-index of row-major position i
		f, stride := 0, 1
		for d := 0; d < len(shape); d++ {
			f += idx[d] * stride
			stride *= shape[d]
		}
		if toColumn {
			dst.Index(f).Set(src.Index(i))
		} else {
			dst.Index(i).Set(src.Index(f))
		}
		for d := len(shape) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return dst.Interface()
}

// FromFloat64s builds an array of dtype dt from float64 values.
func FromFloat64s(dt DType, vals []float64, shape ...int) (*Array, error) {
	arr, err := MakeArray(dt, shape...)
	if err != nil {
		return nil, err
	}
	if arr.Len() != len(vals) {
		return nil, errors.Errorf("shape %v does not match %d elements", shape, len(vals))
	}
	switch d := arr.Data.(type) {
	case []float64:
		copy(d, vals)
	case []float32:
		fill(d, vals)
	case []int64:
		fill(d, vals)
	case []int32:
		fill(d, vals)
	case []int16:
		fill(d, vals)
	case []int8:
		fill(d, vals)
	case []uint64:
		fill(d, vals)
	case []uint32:
		fill(d, vals)
	case []uint16:
		fill(d, vals)
	case []uint8:
		fill(d, vals)
	case []bool:
		for i, v := range vals {
			d[i] = v != 0
		}
	}
	return arr, nil
}

func fill[T number](dst []T, vals []float64) {
	for i, v := range vals {
		dst[i] = T(v)
	}
}
