package fileio

import (
	"facette.io/natsort"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// Glob returns the files matching pattern in natural order, so "f2" sorts
// before "f10". Patterns support "**" and brace alternatives like "{a,b}".
func Glob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "bad glob pattern %q", pattern)
	}
	natsort.Sort(matches)
	return matches, nil
}

// GlobOne is Glob for patterns that must match exactly one file.
func GlobOne(pattern string) (string, error) {
	matches, err := Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) != 1 {
		return "", errors.Errorf("%q matched %d files, want 1", pattern, len(matches))
	}
	return matches[0], nil
}
