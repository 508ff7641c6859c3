package coder

import (
	"bufio"
	"github.com/kisielk/og-rek"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
	"io"
	"os"
)

// Pickle handles .pkl files and the zlib compressed .joblib variant.
type Pickle struct {
	name       string
	exts       []string
	compressed bool
}

func (p *Pickle) Name() string         { return p.name }
func (p *Pickle) Extensions() []string { return p.exts }

func (p *Pickle) Decode(path string, _ *Options) (interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if p.compressed {
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "[%s] open zlib stream failed", p.name)
		}
		defer zr.Close()
		r = zr
	}
	v, err := ogórek.NewDecoder(r).Decode()
	if err != nil {
		return nil, errors.Wrapf(err, "[%s] unpickle failed", p.name)
	}
	return plainObject(v), nil
}

func (p *Pickle) Encode(v interface{}, path string, opts *Options) (err error) {
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
	var w io.Writer = bw
	var zw *zlib.Writer
	if p.compressed {
		if zw, err = zlib.NewWriterLevel(bw, opts.Compress); err != nil {
			return errors.Wrapf(err, "[%s] bad compression level %d", p.name, opts.Compress)
		}
		w = zw
	}
	if err = ogórek.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrapf(err, "[%s] pickle failed", p.name)
	}
	if zw != nil {
		if err = zw.Close(); err != nil {
			return errors.Wrapf(err, "[%s] close zlib stream failed", p.name)
		}
	}
	return errors.Wrapf(bw.Flush(), "[%s] flush output failed", p.name)
}

// plainObject turns string keyed dicts into map[string]interface{} and
// tuples into slices.
func plainObject(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, x := range val {
			s, ok := k.(string)
			if !ok {
				return val
			}
			out[s] = plainObject(x)
		}
		return out
	case ogórek.Tuple:
		out := make([]interface{}, len(val))
		for i, x := range val {
			out[i] = plainObject(x)
		}
		return out
	case []interface{}:
		for i, x := range val {
			val[i] = plainObject(x)
		}
		return val
	}
	return v
}

func init() {
	Register(&Pickle{name: "Pickle", exts: []string{".pkl"}})
	Register(&Pickle{name: "Joblib", exts: []string{".joblib"}, compressed: true})
}
