package payload

import "time"

type Marker struct {
	Type        string
	Description string
	Onset       int // sample index
	Duration    int // samples
	Channel     int // 0 means all channels
}

// Raw is a continuous multi-channel recording with samples already scaled
// to physical units.
type Raw struct {
	Format   string
	Channels []string
	Units    []string
	SFreq    float64
	Data     [][]float64
	Markers  []Marker
	Start    time.Time
}

func (r *Raw) NumChannels() int {
	return len(r.Channels)
}

func (r *Raw) NumSamples() int {
	if len(r.Data) == 0 {
		return 0
	}
	return len(r.Data[0])
}

func (r *Raw) Duration() time.Duration {
	if r.SFreq <= 0 {
		return 0
	}
	return time.Duration(float64(r.NumSamples()) / r.SFreq * float64(time.Second))
}

func (r *Raw) Channel(name string) ([]float64, bool) {
	for i, ch := range r.Channels {
		if ch == name {
			return r.Data[i], true
		}
	}
	return nil, false
}
