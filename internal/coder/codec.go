package coder

import (
	"bufio"
	"github.com/mocukie/mngs/internal/pathx"
	"github.com/pkg/errors"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Codec is a format handler registered under one or more extensions. It
// implements Decoder, Encoder or both.
type Codec interface {
	Name() string
	Extensions() []string
}

type Decoder interface {
	Codec
	Decode(path string, opts *Options) (interface{}, error)
}

type Encoder interface {
	Codec
	Encode(v interface{}, path string, opts *Options) error
}

// Copy is the byte-for-byte converter used when a payload names files.
type Copy struct{}

func (*Copy) Convert(in io.Reader, out io.Writer) (error, []error) {
	var r, w = bufio.NewReader(in), bufio.NewWriter(out)

	if _, err := io.Copy(w, r); err != nil {
		return errors.Wrap(err, "[Copy] copy failed"), nil
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "[Copy] flush output failed"), nil
	}

	return nil, nil
}

// Registry maps dispatch keys (".csv") to codecs. Lookups are lock free;
// registration copies the table.
type Registry struct {
	codecs atomic.Value
	lock   sync.Mutex
}

func NewRegistry() *Registry {
	r := new(Registry)
	r.codecs.Store(map[string]Codec{})
	return r
}

// Register adds c under each of its extensions, replacing earlier codecs.
func (r *Registry) Register(c Codec) {
	r.lock.Lock()
	old, _ := r.codecs.Load().(map[string]Codec)
	tmp := make(map[string]Codec, len(old)+len(c.Extensions()))
	for k, v := range old {
		tmp[k] = v
	}
	for _, ext := range c.Extensions() {
		tmp[ext] = c
	}
	r.codecs.Store(tmp)
	r.lock.Unlock()
}

func (r *Registry) Lookup(ext string) (Codec, bool) {
	tmp, _ := r.codecs.Load().(map[string]Codec)
	c, ok := tmp[ext]
	return c, ok
}

func (r *Registry) Decoder(ext string) (Decoder, bool) {
	c, ok := r.Lookup(ext)
	if !ok {
		return nil, false
	}
	d, ok := c.(Decoder)
	return d, ok
}

func (r *Registry) Encoder(ext string) (Encoder, bool) {
	c, ok := r.Lookup(ext)
	if !ok {
		return nil, false
	}
	e, ok := c.(Encoder)
	return e, ok
}

// Extensions lists every registered key in sorted order.
func (r *Registry) Extensions() []string {
	tmp, _ := r.codecs.Load().(map[string]Codec)
	exts := make([]string, 0, len(tmp))
	for ext := range tmp {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Clone returns an independent registry with the same codecs.
func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	tmp, _ := r.codecs.Load().(map[string]Codec)
	cp := make(map[string]Codec, len(tmp))
	for k, v := range tmp {
		cp[k] = v
	}
	c.codecs.Store(cp)
	return c
}

var defaultRegistry = NewRegistry()

// Default is the registry every built-in format registers with.
func Default() *Registry {
	return defaultRegistry
}

func Register(c Codec) {
	defaultRegistry.Register(c)
}

func extOf(path string) string {
	return strings.ToLower(pathx.Ext(path))
}
