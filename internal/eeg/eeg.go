// Package eeg reads continuous electrophysiology recordings into
// payload.Raw.
package eeg

import (
	"github.com/karrick/godirwalk"
	"github.com/mocukie/mngs/internal/pathx"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/pkg/errors"
	"path/filepath"
	"strings"
)

var (
	ErrNoReader           = errors.New("eeg: no reader for this recording format")
	ErrAmbiguousCompanion = errors.New("eeg: no companion files identify the .eeg recording")
	ErrFormat             = errors.New("eeg: invalid recording")
)

type Kind int

const (
	Unknown Kind = iota
	BrainVision
	NihonKohden
)

func (k Kind) String() string {
	switch k {
	case BrainVision:
		return "brainvision"
	case NihonKohden:
		return "nihon_kohden"
	}
	return "unknown"
}

// companion extensions in priority order
var companions = []struct {
	kind Kind
	exts []string
}{
	{BrainVision, []string{".vhdr", ".vmrk"}},
	{NihonKohden, []string{".21e", ".pnt", ".log"}},
}

// Sniff decides how to read a ".eeg" file from the files next to it and
// returns the path of the companion that decided it. Names match without
// regard to case. When several companion sets are present the first in
// priority order wins: BrainVision, then Nihon Kohden.
func Sniff(path string) (Kind, string, error) {
	dir := filepath.Dir(path)
	names, err := godirwalk.ReadDirnames(dir, nil)
	if err != nil {
		return Unknown, "", errors.Wrapf(err, "can not list directory <%s>", dir)
	}
	stem := filepath.Base(pathx.TrimExt(path))
	present := make(map[string]string, len(names))
	for _, n := range names {
		key := strings.ToLower(n)
		// an exact stem match beats other spellings
		if _, ok := present[key]; !ok || strings.HasPrefix(n, stem+".") {
			present[key] = n
		}
	}

	lower := strings.ToLower(stem)
	for _, c := range companions {
		for _, ext := range c.exts {
			if name, ok := present[lower+ext]; ok {
				return c.kind, filepath.Join(dir, name), nil
			}
		}
	}
	return Unknown, "", errors.Wrapf(ErrAmbiguousCompanion, "<%s>", path)
}

// Read loads the recording at path, choosing the reader by extension.
func Read(path string) (*payload.Raw, error) {
	switch ext := pathx.Ext(path); ext {
	case ".vhdr":
		return ReadBrainVision(path)
	case ".vmrk":
		return ReadBrainVision(pathx.TrimExt(path) + ".vhdr")
	case ".edf", ".bdf":
		return ReadEDF(path)
	case ".eeg":
		kind, companion, err := Sniff(path)
		if err != nil {
			return nil, err
		}
		if kind == BrainVision {
			if strings.EqualFold(filepath.Ext(companion), ".vmrk") {
				companion = pathx.TrimExt(companion) + ".vhdr"
			}
			return ReadBrainVision(companion)
		}
		return nil, errors.Wrapf(ErrNoReader, "%s recording <%s>", kind, path)
	case ".gdf", ".cnt", ".egi", ".set":
		return nil, errors.Wrapf(ErrNoReader, "%s recording <%s>", strings.TrimPrefix(ext, "."), path)
	default:
		return nil, errors.Wrapf(ErrFormat, "unsupported extension %q", ext)
	}
}
