package fileio

import (
	"fmt"
	"github.com/mocukie/mngs/internal/eeg"
	"github.com/pkg/errors"
)

// Dispatch errors
var (
	ErrUnsupportedFormat = errors.New("fileio: unsupported format")
	ErrNotSaved          = errors.New("fileio: object was not saved")
	// ErrAmbiguousCompanion belongs to the unsupported format class:
	// errors.Is(err, ErrUnsupportedFormat) holds for it as well.
	ErrAmbiguousCompanion = eeg.ErrAmbiguousCompanion
)

// Codec errors
var (
	ErrCodec = errors.New("fileio: codec failure")
)

type Kind int

const (
	KindNone Kind = iota
	KindUnsupportedFormat
	KindCodecFailure
	KindAmbiguousCompanion
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindCodecFailure:
		return "CodecFailure"
	case KindAmbiguousCompanion:
		return "AmbiguousCompanion"
	}
	return "None"
}

const (
	OpLoad = "load"
	OpSave = "save"
	OpCopy = "copy"
)

// CodecError records the operation and file a failure happened on.
type CodecError struct {
	Op   string
	Path string
	Ext  string
	Err  error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s <%s>: %v", e.Op, e.Path, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

func (e *CodecError) Is(target error) bool {
	switch target {
	case ErrCodec:
		return e.Kind() == KindCodecFailure
	case ErrUnsupportedFormat:
		k := e.Kind()
		return k == KindUnsupportedFormat || k == KindAmbiguousCompanion
	}
	return false
}

func (e *CodecError) Kind() Kind {
	switch {
	case errors.Is(e.Err, ErrAmbiguousCompanion):
		return KindAmbiguousCompanion
	case errors.Is(e.Err, ErrUnsupportedFormat), errors.Is(e.Err, ErrNotSaved):
		return KindUnsupportedFormat
	}
	return KindCodecFailure
}

// KindOf classifies err. Errors not produced by this package are codec
// failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Kind()
	}
	switch {
	case errors.Is(err, ErrAmbiguousCompanion):
		return KindAmbiguousCompanion
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrNotSaved):
		return KindUnsupportedFormat
	}
	return KindCodecFailure
}
