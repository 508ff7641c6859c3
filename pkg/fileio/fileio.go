// Package fileio loads and saves research data files. The file extension
// alone selects the codec; see Extensions for the registered formats.
package fileio

import (
	"context"
	"github.com/mocukie/mngs/internal/coder"
	"github.com/mocukie/mngs/internal/parallel"
	"github.com/mocukie/mngs/internal/pathx"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/pkg/errors"
	"github.com/zoobzio/capitan"
	"os"
	"time"
)

type (
	Codec        = coder.Codec
	Decoder      = coder.Decoder
	Encoder      = coder.Encoder
	CodecOptions = coder.Options
	Registry     = coder.Registry
)

// NewRegistry returns a copy of the built-in registry. Codecs registered
// on it are seen only by calls given WithRegistry.
func NewRegistry() *Registry {
	return coder.Default().Clone()
}

// DefaultRegistry is the registry calls use unless WithRegistry is given.
func DefaultRegistry() *Registry {
	return coder.Default()
}

// Register adds c to the built-in registry, replacing the codecs of its
// extensions.
func Register(c Codec) {
	coder.Register(c)
}

// Extensions lists the dispatch keys of the built-in registry.
func Extensions() []string {
	return coder.Default().Extensions()
}

// Load decodes the file at path. An extension without a decoder returns a
// nil payload and a nil error unless Strict is given.
func Load(path string, opts ...Option) (interface{}, error) {
	return load(context.Background(), path, newSettings(opts, false))
}

// MustLoad is Load for tests and scripts: any error or empty result panics.
func MustLoad(path string, opts ...Option) interface{} {
	v, err := Load(path, append(opts, Strict())...)
	if err != nil {
		panic(err)
	}
	return v
}

// LoadAll loads paths concurrently and returns the payloads in path order.
// The first failure is returned after every load has finished.
func LoadAll(ctx context.Context, paths []string, opts ...Option) ([]interface{}, error) {
	s := newSettings(opts, false)
	return parallel.Run(ctx, paths, s.workers, func(ctx context.Context, p string) (interface{}, error) {
		return load(ctx, p, s)
	})
}

func load(ctx context.Context, path string, s *settings) (interface{}, error) {
	path = pathx.Normalize(path)
	ext := pathx.Ext(path)
	if path == "" {
		return nil, &CodecError{Op: OpLoad, Ext: ext, Err: errors.WithMessage(ErrUnsupportedFormat, "empty path")}
	}

	dec, ok := s.registry.Decoder(ext)
	if !ok {
		capitan.Emit(ctx, LoadSkipped, s.fields(path, ext)...)
		if s.strict {
			return nil, &CodecError{Op: OpLoad, Path: path, Ext: ext, Err: ErrUnsupportedFormat}
		}
		s.logger.Warn("Not loaded from: "+path, "ext", ext)
		return nil, nil
	}

	start := time.Now()
	var v interface{}
	err := guard(func() (err error) {
		v, err = dec.Decode(path, s.codec)
		return err
	})
	if err != nil {
		ce := &CodecError{Op: OpLoad, Path: path, Ext: ext, Err: err}
		capitan.Error(ctx, LoadFailed, append(s.fields(path, ext), FieldCodec.Field(dec.Name()), FieldError.Field(ce))...)
		if s.lenient {
			s.logger.Error(path+" was not loaded", "error", err)
			return nil, nil
		}
		return nil, ce
	}

	capitan.Emit(ctx, LoadCompleted, append(s.fields(path, ext),
		FieldCodec.Field(dec.Name()), FieldDuration.Field(time.Since(start)))...)
	if s.show || s.verbose {
		s.logger.Info("Loaded from: " + path)
	}
	return v, nil
}

// Save writes v to dest in the format named by the extension of dest. When
// v names existing files (a path or a list of paths) they are copied to
// dest instead.
func Save(v interface{}, dest string, opts ...Option) error {
	return save(context.Background(), v, dest, newSettings(opts, true))
}

func save(ctx context.Context, v interface{}, dest string, s *settings) error {
	path := pathx.ResolveDest(dest, s.outDir, s.scriptRelative)
	ext := pathx.Ext(path)
	if path == "" {
		return &CodecError{Op: OpSave, Ext: ext, Err: errors.WithMessage(ErrNotSaved, "empty destination")}
	}

	if srcs, ok := copySources(v); ok {
		if err := copyFiles(srcs, path, s.makedirs); err != nil {
			ce := &CodecError{Op: OpCopy, Path: path, Ext: ext, Err: err}
			capitan.Error(ctx, SaveFailed, append(s.fields(path, ext), FieldError.Field(ce))...)
			if s.lenient {
				s.logger.Error(path+" was not copied", "error", err)
				return nil
			}
			return ce
		}
		capitan.Emit(ctx, SaveCompleted, append(s.fields(path, ext), FieldCodec.Field("Copy"))...)
		return nil
	}

	enc, ok := s.registry.Encoder(ext)
	if !ok {
		ce := &CodecError{Op: OpSave, Path: path, Ext: ext, Err: errors.WithMessagef(ErrNotSaved, "no encoder for %q", ext)}
		capitan.Error(ctx, SaveFailed, append(s.fields(path, ext), FieldError.Field(ce))...)
		s.logger.Error(ce.Error())
		return ce
	}
	defer payload.Release(v)

	if s.makedirs {
		if err := pathx.EnsureDir(path); err != nil {
			ce := &CodecError{Op: OpSave, Path: path, Ext: ext, Err: err}
			capitan.Error(ctx, SaveFailed, append(s.fields(path, ext), FieldCodec.Field(enc.Name()), FieldError.Field(ce))...)
			return ce
		}
	}

	start := time.Now()
	if err := guard(func() error { return enc.Encode(v, path, s.codec) }); err != nil {
		ce := &CodecError{Op: OpSave, Path: path, Ext: ext, Err: err}
		capitan.Error(ctx, SaveFailed, append(s.fields(path, ext), FieldCodec.Field(enc.Name()), FieldError.Field(ce))...)
		if s.lenient {
			s.logger.Error(path+" was not saved", "error", err)
			return nil
		}
		return ce
	}

	capitan.Emit(ctx, SaveCompleted, append(s.fields(path, ext),
		FieldCodec.Field(enc.Name()), FieldDuration.Field(time.Since(start)))...)
	if s.verbose {
		if info, err := os.Stat(path); err == nil {
			s.logger.Info("Saved to: "+path, "size", info.Size())
		} else {
			s.logger.Info("Saved to: " + path)
		}
	}
	return nil
}

// guard runs a codec call, reporting a panic as an error.
func guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("codec panic: %v", p)
		}
	}()
	return fn()
}

func (s *settings) fields(path, ext string) []capitan.Field {
	fields := []capitan.Field{FieldPath.Field(path), FieldExt.Field(ext)}
	if s.traceID != "" {
		fields = append(fields, FieldTraceID.Field(s.traceID))
	}
	return fields
}
