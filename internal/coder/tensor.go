package coder

import (
	"github.com/mocukie/mngs/internal/matfile"
	"github.com/mocukie/mngs/internal/tensorfile"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/pkg/errors"
)

// Tensor handles model state files in the safetensors layout. A file
// holding only the lone tensor entry loads as that *payload.Array.
type Tensor struct{}

func (*Tensor) Name() string         { return "Tensor" }
func (*Tensor) Extensions() []string { return []string{".pth", ".pt", ".safetensors"} }

func (*Tensor) Decode(path string, _ *Options) (interface{}, error) {
	f, err := tensorfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if arr, ok := f.Tensors[tensorfile.SingleKey]; ok && len(f.Tensors) == 1 {
		return arr, nil
	}
	return f.Tensors, nil
}

func (*Tensor) Encode(v interface{}, path string, _ *Options) error {
	var tensors map[string]*payload.Array
	if arr, err := arrayOf(v); err == nil {
		tensors = map[string]*payload.Array{tensorfile.SingleKey: arr}
	} else if tensors, err = arrayMap(v); err != nil {
		return errors.WithMessage(err, "[Tensor]")
	}
	return tensorfile.WriteFile(path, &tensorfile.File{Tensors: tensors})
}

// MAT handles MATLAB level 5 files. Variables load as *payload.Array, or
// string for char arrays.
type MAT struct{}

func (*MAT) Name() string         { return "MAT" }
func (*MAT) Extensions() []string { return []string{".mat"} }

func (*MAT) Decode(path string, _ *Options) (interface{}, error) {
	vars, err := matfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}(vars), nil
}

func (*MAT) Encode(v interface{}, path string, _ *Options) error {
	vars := matfile.Variables{}
	switch val := v.(type) {
	case map[string]*payload.Array:
		for name, arr := range val {
			vars[name] = arr
		}
	case map[string]interface{}:
		for name, x := range val {
			if s, ok := x.(string); ok {
				vars[name] = s
				continue
			}
			arr, err := arrayOf(x)
			if err != nil {
				return errors.WithMessagef(err, "[MAT] variable %s", name)
			}
			vars[name] = arr
		}
	case matfile.Variables:
		vars = val
	default:
		return errors.Errorf("[MAT] unsupported payload %T", v)
	}
	return matfile.WriteFile(path, vars)
}

func init() {
	Register(&Tensor{})
	Register(&MAT{})
}
