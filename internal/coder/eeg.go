package coder

import (
	"github.com/mocukie/mngs/internal/eeg"
)

// EEG reads raw signal recordings. ".eeg" files are routed by their
// companion files.
type EEG struct{}

func (*EEG) Name() string { return "EEG" }
func (*EEG) Extensions() []string {
	return []string{".vhdr", ".vmrk", ".edf", ".bdf", ".gdf", ".cnt", ".egi", ".eeg", ".set"}
}

func (*EEG) Decode(path string, _ *Options) (interface{}, error) {
	return eeg.Read(path)
}

func init() {
	Register(&EEG{})
}
