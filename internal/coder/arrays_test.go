package coder

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/mocukie/mngs/internal/npy"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNPYRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := payload.MustArray([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	assert.Equal(t, want, roundTrip(t, want, filepath.Join(dir, "a.npy"), nil))

	got := roundTrip(t, []int{4, 5}, filepath.Join(dir, "ints.npy"), nil)
	assert.Equal(t, payload.MustArray([]int64{4, 5}), got)
}

func TestNPZKeepsStoredOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ab.npz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	b := payload.MustArray([]int32{9, 8})
	a := payload.MustArray([]float32{0.5})
	for _, m := range []struct {
		name string
		arr  *payload.Array
	}{{"b.npy", b}, {"a.npy", a}} {
		w, err := zw.Create(m.name)
		require.NoError(t, err)
		require.NoError(t, npy.Write(w, m.arr))
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	got, err := decodeFile(t, path, nil)
	require.NoError(t, err)
	assert.Equal(t, []*payload.Array{b, a}, got)
}

func TestNPZRoundTrip(t *testing.T) {
	dir := t.TempDir()
	x := payload.MustArray([]uint8{1, 2, 3})
	y := payload.MustArray([]bool{true, false}, 1, 2)

	got := roundTrip(t, map[string]*payload.Array{"y": y, "x": x}, filepath.Join(dir, "m.npz"), nil)
	assert.Equal(t, []*payload.Array{x, y}, got, "mappings are stored in key order")

	got = roundTrip(t, []*payload.Array{y, x}, filepath.Join(dir, "l.npz"), nil)
	assert.Equal(t, []*payload.Array{y, x}, got)
}

func TestPickleRoundTrip(t *testing.T) {
	want := map[string]interface{}{
		"name": "trial",
		"n":    int64(3),
		"vals": []interface{}{1.5, 2.5},
	}
	dir := t.TempDir()
	assert.Equal(t, want, roundTrip(t, want, filepath.Join(dir, "obj.pkl"), nil))

	opts := DefaultOptions()
	opts.Compress = 9
	path := filepath.Join(dir, "obj.joblib")
	assert.Equal(t, want, roundTrip(t, want, path, opts))

	head := make([]byte, 1)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Read(head)
	require.NoError(t, err)
	assert.Equal(t, byte(0x78), head[0], "joblib files are zlib streams")
}

func TestJoblibRejectsBadLevel(t *testing.T) {
	enc, _ := Default().Encoder(".joblib")
	opts := DefaultOptions()
	opts.Compress = 42
	assert.Error(t, enc.Encode("x", filepath.Join(t.TempDir(), "x.joblib"), opts))
}

func TestHDF5RoundTrip(t *testing.T) {
	want := map[string]*payload.Array{
		"signal": payload.MustArray([]float64{1, 2, 3, 4, 5, 6}, 2, 3),
		"labels": payload.MustArray([]int32{0, 1, 1}),
	}
	got := roundTrip(t, want, filepath.Join(t.TempDir(), "d.hdf5"), nil)
	assert.Equal(t, want, got)
}

func TestTensorRoundTrip(t *testing.T) {
	dir := t.TempDir()
	single := payload.MustArray([]float32{1, 2, 3, 4}, 2, 2)
	assert.Equal(t, single, roundTrip(t, single, filepath.Join(dir, "w.pth"), nil))

	state := map[string]*payload.Array{
		"fc.weight": payload.MustArray([]float32{1, 2}, 1, 2),
		"fc.bias":   payload.MustArray([]float32{0.5}),
	}
	assert.Equal(t, state, roundTrip(t, state, filepath.Join(dir, "state.pt"), nil))
}

func TestMATRoundTrip(t *testing.T) {
	want := map[string]interface{}{
		"x":     payload.MustArray([]float64{1, 2, 3, 4, 5, 6}, 2, 3),
		"label": "trial",
	}
	got := roundTrip(t, want, filepath.Join(t.TempDir(), "v.mat"), nil)
	assert.Equal(t, want, got)
}
