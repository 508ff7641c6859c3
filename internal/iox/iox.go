// Package iox moves bytes between files through a Converter.
package iox

import (
	"github.com/pkg/errors"
	"io"
	"os"
)

type Input interface {
	io.Reader
	Path() string
	Info() (os.FileInfo, error)
	Open() error
	Close() error
}

type Output interface {
	io.Writer
	Path() string
	Open(info os.FileInfo) error
	Close() error
}

type Converter interface {
	Convert(in io.Reader, out io.Writer) (err error, warnings []error)
}

// Pipe opens in and out, runs conv between them and closes both. With
// keepMeta the output gets the mode and modification time of the input.
func Pipe(in Input, out Output, conv Converter, keepMeta bool) (err error, warnings []error) {
	var info os.FileInfo

	defer func() {
		if e := in.Close(); e != nil && err == nil {
			err = errors.WithStack(e)
		}
		if e := out.Close(); e != nil && err == nil {
			err = errors.WithStack(e)
		}
	}()

	if err = in.Open(); err != nil {
		return errors.WithStack(err), nil
	}
	if keepMeta {
		var e error
		if info, e = in.Info(); e != nil {
			warnings = append(warnings, errors.WithStack(e))
		}
	}
	if err = out.Open(info); err != nil {
		return errors.WithStack(err), warnings
	}

	e, w := conv.Convert(in, out)
	warnings = append(warnings, w...)
	if e != nil {
		err = errors.WithStack(e)
	}
	return err, warnings
}
