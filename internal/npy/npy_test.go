package npy

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/mocukie/mngs/pkg/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	arrays := []*payload.Array{
		payload.MustArray([]float64{1, 2, 3, 4, 5, 6}, 2, 3),
		payload.MustArray([]float32{1.5, -2.5}),
		payload.MustArray([]int64{7}, 1, 1, 1),
		payload.MustArray([]uint8{1, 2, 3, 4}, 4),
		payload.MustArray([]bool{true, false, true}),
		payload.MustArray([]int16{-1, 0, 1, 2}, 2, 2),
	}
	for _, want := range arrays {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, want))
		assert.Zero(t, (buf.Len()-want.Len()*want.DType.Size())%64, "header must be 64-byte aligned")

		got, err := Read(&buf)
		require.NoError(t, err)
		assert.Equal(t, want.Shape, got.Shape)
		assert.Equal(t, want.DType, got.DType)
		assert.Equal(t, want.Data, got.Data)
	}
}

func TestReadFortranOrder(t *testing.T) {
	// column-major [[1, 2, 3], [4, 5, 6]]
	dict := "{'descr': '<i4', 'fortran_order': True, 'shape': (2, 3), }\n"
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.Write([]byte{1, 0})
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(dict))))
	buf.WriteString(dict)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, []int32{1, 4, 2, 5, 3, 6}))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, got.Shape)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6}, got.Data)
}

func TestReadBigEndianVersion2(t *testing.T) {
	dict := "{'descr': '>f8', 'fortran_order': False, 'shape': (2,), }\n"
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.Write([]byte{2, 0})
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(dict))))
	buf.WriteString(dict)
	require.NoError(t, binary.Write(&buf, binary.BigEndian, []float64{0.5, 8}))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 8}, got.Data)
}

func TestReadScalarShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &payload.Array{Shape: []int{}, DType: payload.Float64, Data: []float64{3.25}}))
	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Empty(t, got.Shape)
	assert.Equal(t, []float64{3.25}, got.Data)
}

func TestReadRejects(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not an npy file at all")))
	assert.ErrorIs(t, err, ErrFormat)

	dict := "{'descr': '|O', 'fortran_order': False, 'shape': (1,), }\n"
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.Write([]byte{1, 0})
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(dict))))
	buf.WriteString(dict)
	_, err = Read(&buf)
	assert.ErrorIs(t, err, ErrFormat)
}

func header(dict string) *bytes.Buffer {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(dict)))
	buf.WriteString(dict)
	return &buf
}

func TestReadRejectsBadShapes(t *testing.T) {
	cases := []struct {
		name  string
		shape string
		data  int
	}{
		{"overflow", "(9223372036854775807, 2)", 0},
		{"wraps to zero", "(4611686018427387904, 4)", 0},
		{"byte size overflows", "(2305843009213693952,)", 0},
		{"truncated data", "(4,)", 8},
		{"empty data", "(2, 2)", 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			buf := header("{'descr': '<f8', 'fortran_order': False, 'shape': " + c.shape + ", }\n")
			buf.Write(make([]byte, c.data))
			require.NotPanics(t, func() {
				arr, err := Read(buf)
				assert.Nil(t, arr)
				assert.ErrorIs(t, err, ErrFormat)
			})
		})
	}
}

func TestReadZeroSizedArray(t *testing.T) {
	got, err := Read(header("{'descr': '<f8', 'fortran_order': False, 'shape': (0, 3), }\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, got.Shape)
	assert.Equal(t, 0, got.Len())
}
