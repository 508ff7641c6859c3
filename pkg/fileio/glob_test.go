package fileio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestGlobNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"file10.txt", "file2.txt", "file1.txt", "skip.csv"} {
		touch(t, filepath.Join(dir, name))
	}

	got, err := Glob(filepath.Join(dir, "*.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "file1.txt"),
		filepath.Join(dir, "file2.txt"),
		filepath.Join(dir, "file10.txt"),
	}, got)
}

func TestGlobBracesAndRecursion(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a", "x.txt"))
	touch(t, filepath.Join(dir, "b", "x.txt"))
	touch(t, filepath.Join(dir, "c", "x.txt"))
	touch(t, filepath.Join(dir, "a", "deep", "y.txt"))

	got, err := Glob(filepath.Join(dir, "{a,b}", "*.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a", "x.txt"), filepath.Join(dir, "b", "x.txt")}, got)

	got, err = Glob(filepath.Join(dir, "a", "**", "*.txt"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a", "x.txt"), filepath.Join(dir, "a", "deep", "y.txt")}, got)
}

func TestGlobOne(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "only.json"))
	touch(t, filepath.Join(dir, "one.txt"))
	touch(t, filepath.Join(dir, "two.txt"))

	got, err := GlobOne(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "only.json"), got)

	_, err = GlobOne(filepath.Join(dir, "*.txt"))
	assert.Error(t, err)
	_, err = GlobOne(filepath.Join(dir, "*.none"))
	assert.Error(t, err)
}
