package eeg

import (
	"bufio"
	"encoding/binary"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var iniOpts = ini.LoadOptions{
	AllowBooleanKeys:        true,
	IgnoreInlineComment:     true,
	SkipUnrecognizableLines: true,
}

func ReadBrainVision(vhdr string) (*payload.Raw, error) {
	hdr, err := ini.LoadSources(iniOpts, vhdr)
	if err != nil {
		return nil, errors.Wrapf(err, "[BrainVision] parse header <%s> failed", vhdr)
	}
	common := hdr.Section("Common Infos")
	dir := filepath.Dir(vhdr)

	nch := common.Key("NumberOfChannels").MustInt(0)
	interval := common.Key("SamplingInterval").MustFloat64(0)
	if nch <= 0 || interval <= 0 {
		return nil, errors.Wrapf(ErrFormat, "[BrainVision] <%s> lacks channel count or sampling interval", vhdr)
	}
	if f := common.Key("DataFormat").MustString("BINARY"); !strings.EqualFold(f, "BINARY") {
		return nil, errors.Wrapf(ErrNoReader, "[BrainVision] data format %s", f)
	}

	raw := &payload.Raw{
		Format:   "brainvision",
		SFreq:    1e6 / interval,
		Channels: make([]string, nch),
		Units:    make([]string, nch),
	}
	scale := make([]float64, nch)
	chans := hdr.Section("Channel Infos")
	for i := 0; i < nch; i++ {
		raw.Channels[i] = "Ch" + strconv.Itoa(i+1)
		raw.Units[i] = "µV"
		scale[i] = 1
		fields := strings.Split(chans.Key("Ch"+strconv.Itoa(i+1)).String(), ",")
		if len(fields) > 0 && fields[0] != "" {
			raw.Channels[i] = strings.ReplaceAll(fields[0], `\1`, ",")
		}
		if len(fields) > 2 && fields[2] != "" {
			if v, err := strconv.ParseFloat(fields[2], 64); err == nil {
				scale[i] = v
			}
		}
		if len(fields) > 3 && fields[3] != "" {
			raw.Units[i] = fields[3]
		}
	}

	dataFile := common.Key("DataFile").String()
	if dataFile == "" {
		return nil, errors.Wrapf(ErrFormat, "[BrainVision] <%s> names no data file", vhdr)
	}
	format := hdr.Section("Binary Infos").Key("BinaryFormat").MustString("INT_16")
	vectorized := strings.EqualFold(common.Key("DataOrientation").MustString("MULTIPLEXED"), "VECTORIZED")
	if raw.Data, err = readBinary(filepath.Join(dir, dataFile), format, nch, vectorized, scale); err != nil {
		return nil, err
	}

	if mk := common.Key("MarkerFile").String(); mk != "" {
		if raw.Markers, raw.Start, err = readMarkers(filepath.Join(dir, mk)); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func readBinary(path, format string, nch int, vectorized bool, scale []float64) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "[BrainVision] open data <%s> failed", path)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var width int
	switch strings.ToUpper(format) {
	case "INT_16":
		width = 2
	case "INT_32", "IEEE_FLOAT_32":
		width = 4
	default:
		return nil, errors.Wrapf(ErrNoReader, "[BrainVision] binary format %s", format)
	}
	nsamp := int(info.Size()) / (width * nch)
	data := make([][]float64, nch)
	for i := range data {
		data[i] = make([]float64, nsamp)
	}

	r := bufio.NewReader(f)
	buf := make([]byte, width)
	for k := 0; k < nsamp*nch; k++ {
		if _, err = io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrapf(err, "[BrainVision] read data <%s> failed", path)
		}
		var v float64
		switch width {
		case 2:
			v = float64(int16(binary.LittleEndian.Uint16(buf)))
		default:
			u := binary.LittleEndian.Uint32(buf)
			if strings.EqualFold(format, "IEEE_FLOAT_32") {
				v = float64(math.Float32frombits(u))
			} else {
				v = float64(int32(u))
			}
		}
		ch, s := k%nch, k/nch
		if vectorized {
			ch, s = k/nsamp, k%nsamp
		}
		data[ch][s] = v * scale[ch]
	}
	return data, nil
}

func readMarkers(path string) ([]payload.Marker, time.Time, error) {
	var start time.Time
	mrk, err := ini.LoadSources(iniOpts, path)
	if err != nil {
		return nil, start, errors.Wrapf(err, "[BrainVision] parse markers <%s> failed", path)
	}
	var markers []payload.Marker
	for _, key := range mrk.Section("Marker Infos").Keys() {
		fields := strings.Split(key.Value(), ",")
		if len(fields) < 5 {
			continue
		}
		pos, _ := strconv.Atoi(strings.TrimSpace(fields[2]))
		size, _ := strconv.Atoi(strings.TrimSpace(fields[3]))
		ch, _ := strconv.Atoi(strings.TrimSpace(fields[4]))
		m := payload.Marker{
			Type:        fields[0],
			Description: strings.ReplaceAll(fields[1], `\1`, ","),
			Onset:       pos - 1,
			Duration:    size,
			Channel:     ch,
		}
		if strings.EqualFold(m.Type, "New Segment") && len(fields) > 5 && len(fields[5]) >= 14 {
			if t, err := time.Parse("20060102150405", fields[5][:14]); err == nil {
				start = t
			}
		}
		markers = append(markers, m)
	}
	return markers, start, nil
}
