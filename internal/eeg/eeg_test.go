package eeg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vhdr = `Brain Vision Data Exchange Header File Version 1.0
; Data created by a test

[Common Infos]
Codepage=UTF-8
DataFile=rec.eeg
MarkerFile=rec.vmrk
DataFormat=BINARY
DataOrientation=MULTIPLEXED
NumberOfChannels=2
SamplingInterval=2000

[Binary Infos]
BinaryFormat=INT_16

[Channel Infos]
; Each entry: Ch<Channel number>=<Name>,<Reference channel name>,<Resolution in "Unit">,<Unit>
Ch1=Fp1,,0.5,µV
Ch2=Fp2,,2,µV
`

const vmrk = `Brain Vision Data Exchange Marker File, Version 1.0

[Common Infos]
Codepage=UTF-8
DataFile=rec.eeg

[Marker Infos]
Mk1=New Segment,,1,1,0,20240102030405000000
Mk2=Stimulus,S  1,3,1,0
`

func writeBrainVision(t *testing.T, dir string, withMarkers bool) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec.vhdr"), []byte(vhdr), 0o644))
	if withMarkers {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "rec.vmrk"), []byte(vmrk), 0o644))
	}
	var buf bytes.Buffer
	// 3 samples, multiplexed
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, []int16{2, 10, 4, 20, 6, 30}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec.eeg"), buf.Bytes(), 0o644))
}

func TestReadBrainVision(t *testing.T) {
	dir := t.TempDir()
	writeBrainVision(t, dir, true)

	for _, name := range []string{"rec.vhdr", "rec.vmrk", "rec.eeg"} {
		raw, err := Read(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Equal(t, "brainvision", raw.Format)
		assert.Equal(t, []string{"Fp1", "Fp2"}, raw.Channels)
		assert.Equal(t, 500.0, raw.SFreq)
		assert.Equal(t, []float64{1, 2, 3}, raw.Data[0])
		assert.Equal(t, []float64{20, 40, 60}, raw.Data[1])
		require.Len(t, raw.Markers, 2)
		assert.Equal(t, "Stimulus", raw.Markers[1].Type)
		assert.Equal(t, 2, raw.Markers[1].Onset)
		assert.Equal(t, 2024, raw.Start.Year())
	}
}

func TestSniffPriority(t *testing.T) {
	dir := t.TempDir()
	eeg := filepath.Join(dir, "rec.eeg")
	require.NoError(t, os.WriteFile(eeg, nil, 0o644))

	_, _, err := Sniff(eeg)
	assert.ErrorIs(t, err, ErrAmbiguousCompanion)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "REC.21E"), nil, 0o644))
	kind, companion, err := Sniff(eeg)
	require.NoError(t, err)
	assert.Equal(t, NihonKohden, kind)
	assert.Equal(t, filepath.Join(dir, "REC.21E"), companion)

	_, err = Read(eeg)
	assert.ErrorIs(t, err, ErrNoReader)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec.vmrk"), nil, 0o644))
	kind, _, err = Sniff(eeg)
	require.NoError(t, err)
	assert.Equal(t, BrainVision, kind)
}

func TestReadCompanionCase(t *testing.T) {
	dir := t.TempDir()
	header := strings.Replace(vhdr, "MarkerFile=rec.vmrk\n", "", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "REC.VHDR"), []byte(header), 0o644))
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, []int16{2, 10, 4, 20}))
	eeg := filepath.Join(dir, "rec.eeg")
	require.NoError(t, os.WriteFile(eeg, buf.Bytes(), 0o644))

	kind, companion, err := Sniff(eeg)
	require.NoError(t, err)
	assert.Equal(t, BrainVision, kind)
	assert.Equal(t, "REC.VHDR", filepath.Base(companion))

	raw, err := Read(eeg)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fp1", "Fp2"}, raw.Channels)
	assert.Equal(t, []float64{1, 2}, raw.Data[0])
}

func TestReadUnsupportedSignalFormats(t *testing.T) {
	for _, ext := range []string{".gdf", ".cnt", ".egi", ".set"} {
		_, err := Read("x" + ext)
		assert.ErrorIs(t, err, ErrNoReader, ext)
	}
}

func pad(s string, n int) string {
	return s + strings.Repeat(" ", n-len(s))
}

func writeEDF(t *testing.T, path string) {
	t.Helper()
	var b bytes.Buffer
	b.WriteString(pad("0", 8))
	b.WriteString(pad("patient", 80))
	b.WriteString(pad("recording", 80))
	b.WriteString("02.01.24")
	b.WriteString("03.04.05")
	b.WriteString(pad(fmt.Sprint(256*3), 8))
	b.WriteString(pad("EDF+C", 44))
	b.WriteString(pad("2", 8)) // records
	b.WriteString(pad("1", 8)) // seconds per record
	b.WriteString(pad("2", 4)) // signals

	each := func(vals ...string) {
		for _, v := range vals {
			b.WriteString(v)
		}
	}
	each(pad("C3", 16), pad("EDF Annotations", 16))
	each(pad("", 80), pad("", 80))
	each(pad("uV", 8), pad("", 8))
	each(pad("-100", 8), pad("-1", 8))
	each(pad("100", 8), pad("1", 8))
	each(pad("-1000", 8), pad("-32768", 8))
	each(pad("1000", 8), pad("32767", 8))
	each(pad("", 80), pad("", 80))
	each(pad("4", 8), pad("16", 8))
	each(pad("", 32), pad("", 32))

	for rec := 0; rec < 2; rec++ {
		require.NoError(t, binary.Write(&b, binary.LittleEndian, []int16{0, 500, -500, 1000}))
		tal := fmt.Sprintf("+%d\x14\x14\x00", rec)
		if rec == 1 {
			tal += "+1.5\x150.5\x14blink\x14\x00"
		}
		ann := make([]byte, 32)
		copy(ann, tal)
		b.Write(ann)
	}
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
}

func TestReadEDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.edf")
	writeEDF(t, path)

	raw, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "edf", raw.Format)
	assert.Equal(t, []string{"C3"}, raw.Channels)
	assert.Equal(t, 4.0, raw.SFreq)
	assert.Equal(t, []float64{0, 50, -50, 100, 0, 50, -50, 100}, raw.Data[0])
	require.Len(t, raw.Markers, 1)
	assert.Equal(t, "blink", raw.Markers[0].Description)
	assert.Equal(t, 6, raw.Markers[0].Onset)
	assert.Equal(t, 2, raw.Markers[0].Duration)
	assert.Equal(t, 2024, raw.Start.Year())
}

func TestReadBDFSample(t *testing.T) {
	assert.Equal(t, -1.0, sample([]byte{0xff, 0xff, 0xff}, 3))
	assert.Equal(t, 8388607.0, sample([]byte{0xff, 0xff, 0x7f}, 3))
	assert.Equal(t, -2.0, sample([]byte{0xfe, 0xff}, 2))
}
