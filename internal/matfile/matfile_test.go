package matfile

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.mat")
	want := Variables{
		"x":     payload.MustArray([]float64{1, 2, 3, 4, 5, 6}, 2, 3),
		"count": payload.MustArray([]int32{-3, 9}, 1, 2),
		"mask":  payload.MustArray([]bool{true, false, true, true}, 2, 2),
		"label": "alpha",
	}
	require.NoError(t, WriteFile(path, want))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for _, name := range []string{"x", "count", "mask"} {
		w, g := want[name].(*payload.Array), got[name].(*payload.Array)
		assert.Equal(t, w.Shape, g.Shape, name)
		assert.Equal(t, w.DType, g.DType, name)
		assert.Equal(t, w.Data, g.Data, name)
	}
	assert.Equal(t, "alpha", got["label"])
}

func TestOneDimensionalBecomesRowVector(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Variables{"v": payload.MustArray([]float64{1, 2, 3})}))
	got, err := Read(&buf)
	require.NoError(t, err)
	v := got["v"].(*payload.Array)
	assert.Equal(t, []int{1, 3}, v.Shape)
	assert.Equal(t, []float64{1, 2, 3}, v.Data)
}

func TestReadCompressed(t *testing.T) {
	body, err := encodeVar("z", payload.MustArray([]float64{0.5, 1.5}, 2, 1))
	require.NoError(t, err)
	var matrix bytes.Buffer
	require.NoError(t, writeElement(&matrix, miMATRIX, body))

	var packed bytes.Buffer
	zw := zlib.NewWriter(&packed)
	_, err = zw.Write(matrix.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var file bytes.Buffer
	require.NoError(t, Write(&file, Variables{}))
	tag := make([]byte, 8)
	binary.LittleEndian.PutUint32(tag, miCOMPRESSED)
	binary.LittleEndian.PutUint32(tag[4:], uint32(packed.Len()))
	file.Write(tag)
	file.Write(packed.Bytes())

	got, err := Read(&file)
	require.NoError(t, err)
	z := got["z"].(*payload.Array)
	assert.Equal(t, []int{2, 1}, z.Shape)
	assert.Equal(t, []float64{0.5, 1.5}, z.Data)
}

func TestReadRejectsNonMat(t *testing.T) {
	_, err := Read(bytes.NewReader(make([]byte, 128)))
	assert.ErrorIs(t, err, ErrFormat)
}

// matrix builds a file holding one miMATRIX element.
func matrix(t *testing.T, class uint32, dims []int, dataType uint32, data []byte) *bytes.Buffer {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Variables{}))
	var body bytes.Buffer
	require.NoError(t, writeElement(&body, miUINT32, u32s(class, 0)))
	require.NoError(t, writeElement(&body, miINT32, i32s(dims...)))
	require.NoError(t, writeElement(&body, miINT8, []byte("v")))
	require.NoError(t, writeElement(&body, dataType, data))
	require.NoError(t, writeElement(&buf, miMATRIX, body.Bytes()))
	return &buf
}

func TestReadRejectsBadDims(t *testing.T) {
	cases := []struct {
		name string
		buf  *bytes.Buffer
	}{
		{"char dims beyond data", matrix(t, mxCHAR, []int{3, 5}, miUINT16, []byte{'a', 0})},
		{"char dims short of data", matrix(t, mxCHAR, []int{2, 2}, miUINT16, []byte{'a', 0, 'b', 0, 'c', 0})},
		{"negative dimension", matrix(t, mxDOUBLE, []int{-1, 2}, miDOUBLE, make([]byte, 16))},
		{"value count mismatch", matrix(t, mxDOUBLE, []int{3, 3}, miDOUBLE, make([]byte, 16))},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				vars, err := Read(c.buf)
				assert.Nil(t, vars)
				assert.ErrorIs(t, err, ErrFormat)
			})
		})
	}
}

func TestReadCharMatrix(t *testing.T) {
	// column-major ["ab", "cd"]
	got, err := Read(matrix(t, mxCHAR, []int{2, 2}, miUINT16, []byte{'a', 0, 'c', 0, 'b', 0, 'd', 0}))
	require.NoError(t, err)
	assert.Equal(t, "ab\ncd", got["v"])
}

func TestWriteRejectsShapeMismatch(t *testing.T) {
	bad := &payload.Array{Shape: []int{2, 2}, DType: payload.Float64, Data: []float64{1}}
	assert.Error(t, Write(&bytes.Buffer{}, Variables{"v": bad}))
}
