package fileio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, false)

	l.Info("Saved to: a.csv", "size", 12)
	l.Error("a.npy was not loaded", "error")
	l.Debug("hidden")
	l.Debugging = true
	l.Debug("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if assert.Len(t, lines, 3) {
		assert.True(t, strings.HasPrefix(lines[0], "[INFO ] "))
		assert.True(t, strings.HasSuffix(lines[0], "Saved to: a.csv size=12"))
		assert.True(t, strings.HasPrefix(lines[1], "[ERROR] "))
		assert.True(t, strings.HasSuffix(lines[1], "a.npy was not loaded error"))
		assert.True(t, strings.HasSuffix(lines[2], "shown"))
	}
}

func TestConsoleLoggerColor(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleLogger(&buf, true).Warn("Not loaded from: x.foo")
	assert.Contains(t, buf.String(), colorYellow+"Not loaded from: x.foo"+colorReset)
}
