package pathx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"a/./b.csv":       "a/b.csv",
		"a/././b.csv":     "a/b.csv",
		"/x/./y/./z.npy":  "/x/y/z.npy",
		"plain.json":      "plain.json",
		"./rel/data.yaml": "./rel/data.yaml",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestExt(t *testing.T) {
	cases := map[string]string{
		"data.csv":           ".csv",
		"a/b/archive.tar.gz": ".gz",
		"dir.v1/file":        "",
		"dir.v1/file.NPY":    ".NPY",
		"noext":              "",
		"trailing.":          ".",
	}
	for in, want := range cases {
		assert.Equal(t, want, Ext(in), in)
	}
	assert.Equal(t, "a/b", TrimExt("a/b.csv"))
}

func TestEnsureDirIdempotent(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x", "y", "z.csv")
	require.NoError(t, EnsureDir(p))
	require.NoError(t, EnsureDir(p))
	info, err := os.Stat(filepath.Dir(p))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.NoError(t, EnsureDir("bare.csv"))
}

func TestResolveDest(t *testing.T) {
	assert.Equal(t, "out/a.csv", ResolveDest("out/./a.csv", "ignored", true))
	assert.Equal(t, filepath.Join("results", "a.csv"), ResolveDest("a.csv", "results", false))
	assert.Equal(t, "a.csv", ResolveDest("a.csv", "", false))
	assert.Equal(t, filepath.Join(ScriptOutDir(), "a.csv"), ResolveDest("a.csv", "", true))
}

func TestMoveToTemp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "movetotemp-case")
	require.NoError(t, os.MkdirAll(dir, os.ModePerm))
	src := filepath.Join(dir, "victim.csv")
	require.NoError(t, os.WriteFile(src, []byte("a\n"), 0o644))

	dst, err := MoveToTemp(src, 2)
	require.NoError(t, err)
	defer os.Remove(dst)
	assert.Equal(t, filepath.Join(os.TempDir(), "movetotemp-case-victim.csv"), dst)
	assert.False(t, Exists(src))
	assert.True(t, Exists(dst))

	_, err = MoveToTemp(src, 2)
	assert.Error(t, err)
}
