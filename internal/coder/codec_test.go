package coder

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mocukie/mngs/pkg/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v interface{}, path string, opts *Options) interface{} {
	t.Helper()
	if opts == nil {
		opts = DefaultOptions()
	}
	ext := extOf(path)
	enc, ok := Default().Encoder(ext)
	require.True(t, ok, "no encoder for %s", ext)
	require.NoError(t, enc.Encode(v, path, opts))

	dec, ok := Default().Decoder(ext)
	require.True(t, ok, "no decoder for %s", ext)
	got, err := dec.Decode(path, opts)
	require.NoError(t, err)
	return got
}

func decodeFile(t *testing.T, path string, opts *Options) (interface{}, error) {
	t.Helper()
	if opts == nil {
		opts = DefaultOptions()
	}
	dec, ok := Default().Decoder(extOf(path))
	require.True(t, ok)
	return dec.Decode(path, opts)
}

type fakeCodec struct{ exts []string }

func (f *fakeCodec) Name() string         { return "fake" }
func (f *fakeCodec) Extensions() []string { return f.exts }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup(".foo")
	assert.False(t, ok)

	r.Register(&fakeCodec{exts: []string{".foo", ".bar"}})
	c, ok := r.Lookup(".foo")
	require.True(t, ok)
	assert.Equal(t, "fake", c.Name())
	assert.Equal(t, []string{".bar", ".foo"}, r.Extensions())

	_, ok = r.Decoder(".foo")
	assert.False(t, ok, "codec without Decode is not a decoder")

	clone := r.Clone()
	clone.Register(&fakeCodec{exts: []string{".baz"}})
	_, ok = r.Lookup(".baz")
	assert.False(t, ok, "clone must not leak into the source registry")
	_, ok = clone.Lookup(".foo")
	assert.True(t, ok)
}

func TestDefaultRegistryCoversFormats(t *testing.T) {
	for _, ext := range []string{
		".csv", ".tsv", ".xlsx", ".xls", ".parquet", ".npy", ".npz", ".pkl", ".joblib",
		".hdf5", ".h5", ".json", ".yaml", ".yml", ".txt", ".log", ".event", ".md", ".pth",
		".pt", ".mat", ".xml", ".jpg", ".png", ".tiff", ".tif", ".cbm", ".html", ".mp4",
		".db", ".vhdr", ".edf", ".eeg", ".msgpack",
	} {
		_, ok := Default().Lookup(ext)
		assert.True(t, ok, ext)
	}
	_, ok := Default().Lookup(".CSV")
	assert.False(t, ok, "dispatch is case sensitive")
}

func TestCopy(t *testing.T) {
	var out bytes.Buffer
	err, warnings := new(Copy).Convert(strings.NewReader("payload"), &out)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "payload", out.String())
}

func sampleTable() *payload.Table {
	t := payload.NewTable("a", "b")
	t.AddRow("1", "x")
	t.AddRow("2", "y")
	return t
}

func TestCSVRoundTripDropsUnnamedIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	got := roundTrip(t, sampleTable(), path, nil)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ",a,b\n0,1,x\n1,2,y\n", string(raw))
	assert.Equal(t, sampleTable(), got)
}

func TestCSVIndexCol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,v\nr1,1\nr2,2\n"), 0o644))

	opts := DefaultOptions()
	opts.IndexCol = 0
	got, err := decodeFile(t, path, opts)
	require.NoError(t, err)
	tbl := got.(*payload.Table)
	assert.Equal(t, "id", tbl.IndexName)
	assert.Equal(t, []string{"r1", "r2"}, tbl.Index)
	assert.Equal(t, []string{"v"}, tbl.Columns)
	assert.Equal(t, [][]string{{"1"}, {"2"}}, tbl.Rows)
}

func TestTSVKeepsEveryColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.tsv")
	got := roundTrip(t, sampleTable(), path, nil)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\ta\tb\n0\t1\tx\n1\t2\ty\n", string(raw))
	assert.Equal(t, []string{"", "a", "b"}, got.(*payload.Table).Columns)
}

func TestCSVListedScalars(t *testing.T) {
	dir := t.TempDir()
	enc, _ := Default().Encoder(".csv")

	path := filepath.Join(dir, "s.csv")
	require.NoError(t, enc.Encode([]float64{1, 2.34567}, path, DefaultOptions()))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ",_\n0,1.000\n1,2.346\n", string(raw))

	opts := DefaultOptions()
	opts.ColumnName = "score"
	opts.Round = 1
	opts.Suffixes = []string{"a", "b", "c"}
	path = filepath.Join(dir, "named.csv")
	require.NoError(t, enc.Encode([]int{1, 2, 3}, path, opts))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ",score\na,1.0\nb,2.0\nc,3.0\n", string(raw))

	opts.Suffixes = []string{"only-one"}
	assert.Error(t, enc.Encode([]int{1, 2}, path, opts))
}

func TestCSVListedTablesAppendAndOverwrite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	path := filepath.Join(dir, "out", "tables.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	one := payload.NewTable("x")
	one.AddRow("1")
	two := payload.NewTable("y")
	two.AddRow("2")
	enc, _ := Default().Encoder(".csv")

	require.NoError(t, enc.Encode([]*payload.Table{one, two}, path, DefaultOptions()))
	want := "0\n,x\n0,1\n\n1\n,y\n0,2\n\n"
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(raw))

	// without overwrite the tables are appended
	require.NoError(t, enc.Encode([]*payload.Table{one}, path, DefaultOptions()))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want+"0\n,x\n0,1\n\n", string(raw))

	var notices []string
	opts := DefaultOptions()
	opts.Overwrite = true
	opts.Notify = func(format string, args ...interface{}) {
		notices = append(notices, fmt.Sprintf(format, args...))
	}
	require.NoError(t, enc.Encode([]*payload.Table{one}, path, opts))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0\n,x\n0,1\n\n", string(raw))
	require.Len(t, notices, 1)
	assert.True(t, strings.HasPrefix(notices[0], "Moved to: "))

	moved := strings.TrimPrefix(notices[0], "Moved to: ")
	old, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, want+"0\n,x\n0,1\n\n", string(old))
}

func TestCSVRejectsUnknownPayload(t *testing.T) {
	enc, _ := Default().Encoder(".csv")
	err := enc.Encode(struct{}{}, filepath.Join(t.TempDir(), "x.csv"), DefaultOptions())
	assert.Error(t, err)
}

func TestExcelRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	opts.IndexCol = 0
	opts.Sheet = "results"
	got := roundTrip(t, sampleTable(), filepath.Join(t.TempDir(), "t.xlsx"), opts)

	tbl := got.(*payload.Table)
	assert.Equal(t, []string{"a", "b"}, tbl.Columns)
	assert.Equal(t, []string{"0", "1"}, tbl.Index)
	assert.Equal(t, sampleTable().Rows, tbl.Rows)
}

func TestExcelLegacyWorkbooksFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.xls")
	require.NoError(t, os.WriteFile(path, []byte("legacy"), 0o644))
	_, err := decodeFile(t, path, nil)
	assert.Error(t, err)
}

func TestParquetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	got := roundTrip(t, sampleTable(), filepath.Join(dir, "plain.parquet"), nil)
	assert.Equal(t, sampleTable(), got)

	indexed := payload.NewTable("zeta", "alpha")
	indexed.IndexName = "id"
	indexed.Index = []string{"r1", "r2"}
	indexed.AddRow("1", "2")
	indexed.AddRow("3", "4")
	got = roundTrip(t, indexed, filepath.Join(dir, "indexed.parquet"), nil)
	assert.Equal(t, indexed, got, "column order and index survive")
}
