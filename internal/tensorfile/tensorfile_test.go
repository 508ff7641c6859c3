package tensorfile

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/mocukie/mngs/pkg/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.pth")
	want := &File{
		Tensors: map[string]*payload.Array{
			"layer.0.weight": payload.MustArray([]float32{1, 2, 3, 4, 5, 6}, 2, 3),
			"layer.0.bias":   payload.MustArray([]float32{0.5, -0.5}),
			"steps":          payload.MustArray([]int64{42}, 1),
			"mask":           payload.MustArray([]bool{true, false}),
		},
		Metadata: map[string]string{"format": "pt"},
	}
	require.NoError(t, WriteFile(path, want))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want.Metadata, got.Metadata)
	require.Len(t, got.Tensors, len(want.Tensors))
	for name, arr := range want.Tensors {
		assert.Equal(t, arr.Shape, got.Tensors[name].Shape, name)
		assert.Equal(t, arr.Data, got.Tensors[name].Data, name)
	}
	assert.Equal(t, []string{"layer.0.bias", "layer.0.weight", "mask", "steps"}, got.Names())
}

func TestHeaderAligned(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &File{Tensors: map[string]*payload.Array{
		"x": payload.MustArray([]float64{1}),
	}}))
	var size uint64
	require.NoError(t, binary.Read(bytes.NewReader(buf.Bytes()[:8]), binary.LittleEndian, &size))
	assert.Zero(t, size%8)
}

func TestReadRejectsBadOffsets(t *testing.T) {
	header := []byte(`{"x":{"dtype":"F64","shape":[2],"data_offsets":[0,8]}}`)
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(header))))
	buf.Write(header)
	buf.Write(make([]byte, 16))

	_, err := Read(&buf)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReadRejectsHugeHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(1<<40)))
	_, err := Read(&buf)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReadRejectsBadShapes(t *testing.T) {
	cases := []struct {
		name   string
		header string
		data   int
	}{
		{"negative dimension", `{"x":{"dtype":"F32","shape":[-1],"data_offsets":[8,0]}}`, 0},
		{"overflowing shape", `{"x":{"dtype":"F64","shape":[4611686018427387904,4],"data_offsets":[0,0]}}`, 0},
		{"end before start", `{"x":{"dtype":"U8","shape":[0],"data_offsets":[4,0]}}`, 8},
		{"truncated data", `{"x":{"dtype":"F64","shape":[4],"data_offsets":[0,32]}}`, 8},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(c.header))))
			buf.WriteString(c.header)
			buf.Write(make([]byte, c.data))
			require.NotPanics(t, func() {
				f, err := Read(&buf)
				assert.Nil(t, f)
				assert.ErrorIs(t, err, ErrFormat)
			})
		})
	}
}
