package component

import (
	"github.com/mocukie/mngs/pkg/fileio"
	"github.com/pkg/errors"
	"path"
	"path/filepath"
	"strings"
)

// PathMatcher selects the files a batch run picks up.
type PathMatcher func(pathname string) bool

type Config struct {
	Src         string
	Dest        string
	Recursively bool
	Match       PathMatcher
	// To is the extension files are converted to. Empty keeps the source
	// extension, which turns the job into a plain copy.
	To       string
	CopyMeta bool
	MaxGo    int
	LogPath  string
	BatchID  string
	Opts     []fileio.Option
	JobQueue chan *Job
}

// NewGlobMatcher matches base names against "|" separated glob patterns,
// like "*.npy|*.mat".
func NewGlobMatcher(pattern string) (PathMatcher, error) {
	patterns := strings.Split(pattern, "|")
	for _, s := range patterns {
		if _, err := path.Match(s, "foobar"); err != nil {
			return nil, errors.Wrapf(err, "invalid pattern %q", s)
		}
	}

	return func(pathname string) bool {
		name := filepath.Base(pathname)
		for _, s := range patterns {
			if ok, _ := path.Match(s, name); ok {
				return true
			}
		}
		return false
	}, nil
}

// Target returns where the job for src writes, given the output path its
// relative location maps to.
func (c *Config) Target(out string) (string, bool) {
	ext := filepath.Ext(out)
	if c.To == "" || c.To == ext {
		return out, true
	}
	return out[:len(out)-len(ext)] + c.To, false
}
