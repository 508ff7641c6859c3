package eeg

import (
	"bufio"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/pkg/errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

type edfSignal struct {
	label      string
	unit       string
	physMin    float64
	physMax    float64
	digMin     float64
	digMax     float64
	nsamples   int
	annotation bool
}

func (s *edfSignal) scale(d float64) float64 {
	if s.digMax == s.digMin {
		return d
	}
	return (d-s.digMin)*(s.physMax-s.physMin)/(s.digMax-s.digMin) + s.physMin
}

// ReadEDF reads EDF, EDF+ and BioSemi BDF recordings. EDF+ annotation
// signals become markers.
func ReadEDF(path string) (*payload.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	fixed := make([]byte, 256)
	if _, err = io.ReadFull(r, fixed); err != nil {
		return nil, errors.Wrap(err, "[EDF] read header failed")
	}
	width, format := 2, "edf"
	if fixed[0] == 0xff && string(fixed[1:8]) == "BIOSEMI" {
		width, format = 3, "bdf"
	} else if field(fixed, 0, 8) != "0" {
		return nil, errors.Wrapf(ErrFormat, "[EDF] <%s> has unknown version %q", path, field(fixed, 0, 8))
	}

	nrec, err := atoi(field(fixed, 236, 8))
	if err != nil {
		return nil, errors.Wrap(ErrFormat, "[EDF] bad record count")
	}
	recDur, err := strconv.ParseFloat(field(fixed, 244, 8), 64)
	if err != nil || recDur < 0 {
		return nil, errors.Wrap(ErrFormat, "[EDF] bad record duration")
	}
	ns, err := atoi(field(fixed, 252, 4))
	if err != nil || ns <= 0 {
		return nil, errors.Wrap(ErrFormat, "[EDF] bad signal count")
	}

	sigHdr := make([]byte, 256*ns)
	if _, err = io.ReadFull(r, sigHdr); err != nil {
		return nil, errors.Wrap(err, "[EDF] read signal headers failed")
	}
	signals, err := parseSignals(sigHdr, ns)
	if err != nil {
		return nil, err
	}

	raw := &payload.Raw{Format: format, Start: parseStart(field(fixed, 168, 8), field(fixed, 176, 8))}
	var dataIdx []int
	for i, s := range signals {
		if s.annotation {
			continue
		}
		dataIdx = append(dataIdx, i)
		raw.Channels = append(raw.Channels, s.label)
		raw.Units = append(raw.Units, s.unit)
		if raw.SFreq == 0 && recDur > 0 {
			raw.SFreq = float64(s.nsamples) / recDur
		}
	}
	raw.Data = make([][]float64, len(dataIdx))

	recBytes := 0
	for _, s := range signals {
		recBytes += s.nsamples * width
	}
	rec := make([]byte, recBytes)
	for n := 0; nrec < 0 || n < nrec; n++ {
		if _, err = io.ReadFull(r, rec); err != nil {
			if nrec < 0 && err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "[EDF] read record %d failed", n)
		}
		off, k := 0, 0
		for _, s := range signals {
			chunk := rec[off : off+s.nsamples*width]
			off += len(chunk)
			if s.annotation {
				raw.Markers = append(raw.Markers, parseTAL(chunk, raw.SFreq)...)
				continue
			}
			for j := 0; j < s.nsamples; j++ {
				raw.Data[k] = append(raw.Data[k], s.scale(sample(chunk[j*width:], width)))
			}
			k++
		}
	}
	return raw, nil
}

func parseSignals(h []byte, ns int) ([]*edfSignal, error) {
	signals := make([]*edfSignal, ns)
	pos := 0
	text := func(w int) []string {
		out := make([]string, ns)
		for i := range out {
			out[i] = field(h, pos+i*w, w)
		}
		pos += ns * w
		return out
	}
	num := func(w int) ([]float64, error) {
		out := make([]float64, ns)
		for i, s := range text(w) {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrFormat, "[EDF] bad numeric field %q", s)
			}
			out[i] = v
		}
		return out, nil
	}

	labels := text(16)
	text(80) // transducer
	units := text(8)
	pmin, err := num(8)
	if err != nil {
		return nil, err
	}
	pmax, err := num(8)
	if err != nil {
		return nil, err
	}
	dmin, err := num(8)
	if err != nil {
		return nil, err
	}
	dmax, err := num(8)
	if err != nil {
		return nil, err
	}
	text(80) // prefiltering
	nsamp, err := num(8)
	if err != nil {
		return nil, err
	}

	for i := range signals {
		signals[i] = &edfSignal{
			label:      labels[i],
			unit:       units[i],
			physMin:    pmin[i],
			physMax:    pmax[i],
			digMin:     dmin[i],
			digMax:     dmax[i],
			nsamples:   int(nsamp[i]),
			annotation: strings.HasSuffix(labels[i], "DF Annotations"),
		}
	}
	return signals, nil
}

func sample(b []byte, width int) float64 {
	if width == 2 {
		return float64(int16(uint16(b[0]) | uint16(b[1])<<8))
	}
	v := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16)
	if v&0x800000 != 0 {
		v -= 1 << 24
	}
	return float64(v)
}

// parseTAL extracts time-stamped annotation lists:
// +onset[\x15duration]\x14text\x14...\x14\x00
func parseTAL(b []byte, sfreq float64) []payload.Marker {
	var out []payload.Marker
	for _, tal := range strings.Split(string(b), "\x00") {
		parts := strings.Split(tal, "\x14")
		if len(parts) < 2 {
			continue
		}
		timing := strings.SplitN(parts[0], "\x15", 2)
		onset, err := strconv.ParseFloat(timing[0], 64)
		if err != nil {
			continue
		}
		var dur float64
		if len(timing) == 2 {
			dur, _ = strconv.ParseFloat(timing[1], 64)
		}
		for _, text := range parts[1:] {
			if text == "" {
				continue
			}
			out = append(out, payload.Marker{
				Type:        "Annotation",
				Description: text,
				Onset:       int(math.Round(onset * sfreq)),
				Duration:    int(math.Round(dur * sfreq)),
			})
		}
	}
	return out
}

func parseStart(date, clock string) time.Time {
	t, err := time.Parse("02.01.06 15.04.05", date+" "+clock)
	if err != nil {
		return time.Time{}
	}
	return t
}

func field(b []byte, off, n int) string {
	return strings.TrimSpace(string(b[off : off+n]))
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
