package fileio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestLoadConfigsMerge(t *testing.T) {
	t.Setenv("CI", "")
	dir := writeConfigs(t, map[string]string{
		"PATH.yaml":  "DATA: /data\nDEBUG_DATA: /tmp/data\n",
		"MODEL.yaml": "EPOCHS: 100\nDEBUG_EPOCHS: 1\n",
		"notes.txt":  "ignored",
	})

	off := false
	got, err := LoadConfigs(dir, &off, quiet())
	require.NoError(t, err)
	assert.Equal(t, "/data", got["DATA"])
	assert.Equal(t, 100, got["EPOCHS"])
	assert.Equal(t, "/tmp/data", got["DEBUG_DATA"])

	on := true
	got, err = LoadConfigs(dir, &on, quiet())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/data", got["DATA"])
	assert.Equal(t, 1, got["EPOCHS"])
}

func TestLoadConfigsDebugFile(t *testing.T) {
	t.Setenv("CI", "")
	dir := writeConfigs(t, map[string]string{
		"IS_DEBUG.yaml": "IS_DEBUG: true\n",
		"RUN.yaml":      "SEED: 42\nDEBUG_SEED: 0\n",
	})

	got, err := LoadConfigs(dir, nil, quiet())
	require.NoError(t, err)
	assert.Equal(t, 0, got["SEED"])
	assert.Equal(t, true, got["IS_DEBUG"])
}

func TestLoadConfigsCI(t *testing.T) {
	t.Setenv("CI", "True")
	dir := writeConfigs(t, map[string]string{"RUN.yaml": "SEED: 42\nDEBUG_SEED: 0\n"})

	off := false
	got, err := LoadConfigs(dir, &off, quiet())
	require.NoError(t, err)
	assert.Equal(t, 0, got["SEED"])
}

func TestLoadConfigsRejectsLists(t *testing.T) {
	t.Setenv("CI", "")
	dir := writeConfigs(t, map[string]string{"LIST.yaml": "- a\n- b\n"})

	off := false
	_, err := LoadConfigs(dir, &off, quiet())
	assert.Error(t, err)
}
