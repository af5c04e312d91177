package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetupWritesComponentAndFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "gonetwatch.log")
	require.NoError(t, Setup(Options{Level: LevelDebug, File: path, Output: &buf}))
	defer Close()

	Logger("monitor").Info("tick", "target", "1.1.1.1")

	assert.Contains(t, buf.String(), "component=monitor")
	assert.Contains(t, buf.String(), "target=1.1.1.1")

	Close()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=tick")
}

func TestSetupRespectsLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	require.NoError(t, Setup(Options{Level: LevelWarn, Output: &buf}))

	Logger("x").Debug("hidden")
	Logger("x").Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
