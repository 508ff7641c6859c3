package fileio

import (
	"github.com/mocukie/mngs/internal/coder"
	"github.com/mocukie/mngs/internal/iox"
	"github.com/mocukie/mngs/internal/pathx"
	"github.com/pkg/errors"
	"path/filepath"
)

// copySources reports the files v names when every entry is an existing
// regular file. Other strings are payloads and go through an encoder.
func copySources(v interface{}) ([]string, bool) {
	var srcs []string
	switch p := v.(type) {
	case string:
		srcs = []string{p}
	case []string:
		srcs = p
	default:
		return nil, false
	}
	if len(srcs) == 0 {
		return nil, false
	}
	for _, src := range srcs {
		if !pathx.Exists(src) {
			return nil, false
		}
	}
	return srcs, true
}

// copyFiles copies a single source to dst. Several sources are copied into
// dst as a directory, keeping their base names. Missing directories are
// created only when makedirs is set.
func copyFiles(srcs []string, dst string, makedirs bool) error {
	if len(srcs) == 1 {
		return iox.CopyFile(srcs[0], dst, &coder.Copy{}, false, makedirs)
	}
	for _, src := range srcs {
		if err := iox.CopyFile(src, filepath.Join(dst, filepath.Base(src)), &coder.Copy{}, false, makedirs); err != nil {
			return errors.WithMessagef(err, "copy <%s>", src)
		}
	}
	return nil
}
