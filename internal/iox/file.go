package iox

import (
	"github.com/mocukie/mngs/internal/pathx"
	"github.com/pkg/errors"
	"os"
	"time"
)

type FileInput struct {
	*os.File
	path string
	info os.FileInfo
}

// NewFileInput reads path. info may be nil; it is looked up on demand.
func NewFileInput(path string, info os.FileInfo) *FileInput {
	return &FileInput{path: path, info: info}
}

func (fi *FileInput) Path() string {
	return fi.path
}

func (fi *FileInput) Open() error {
	var err error
	fi.File, err = os.Open(fi.path)
	return err
}

func (fi *FileInput) Info() (os.FileInfo, error) {
	var err error
	if fi.info == nil {
		fi.info, err = os.Stat(fi.path)
	}
	return fi.info, err
}

func (fi *FileInput) Close() error {
	if fi.File == nil {
		return nil
	}
	err := fi.File.Close()
	fi.File = nil
	return err
}

// FileOutput creates path. The info passed to Open, when not nil, is applied
// on Close.
type FileOutput struct {
	*os.File
	path string
	info os.FileInfo
	// MakeDirs creates missing parent directories on Open.
	MakeDirs bool
}

func NewFileOutput(path string) *FileOutput {
	return &FileOutput{path: path, MakeDirs: true}
}

func (fo *FileOutput) Path() string {
	return fo.path
}

func (fo *FileOutput) Open(info os.FileInfo) error {
	if fo.MakeDirs {
		if err := pathx.EnsureDir(fo.path); err != nil {
			return err
		}
	}
	var err error
	fo.File, err = os.Create(fo.path)
	fo.info = info
	return err
}

func (fo *FileOutput) Close() error {
	if fo.File != nil {
		if err := fo.File.Close(); err != nil {
			return errors.WithStack(err)
		}
		fo.File = nil
	}
	if fo.info == nil {
		return nil
	}

	i, p := fo.info, fo.path
	fo.info = nil
	if err := os.Chmod(p, i.Mode()); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Chtimes(p, time.Now(), i.ModTime()))
}

// CopyFile copies src to dst byte for byte through conv. Without makedirs
// the parent directory of dst must exist.
func CopyFile(src, dst string, conv Converter, keepMeta, makedirs bool) error {
	out := NewFileOutput(dst)
	out.MakeDirs = makedirs
	err, _ := Pipe(NewFileInput(src, nil), out, conv, keepMeta)
	return err
}
