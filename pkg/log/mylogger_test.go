// SPDX-License-Identifier: GPL-3.0-only
package log

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureMyLogger(t *testing.T) {
	defer log.SetOutput(io.Discard)

	t.Run("levels", func(t *testing.T) {
		tests := []struct {
			levelStr string
			expected int
		}{
			{"TRACE", LevelTrace},
			{"debug", LevelDebug},
			{"INFO", LevelInfo},
			{"WARN", LevelWarn},
			{"ERROR", LevelError},
			{"UNKNOWN", LevelInfo},
		}

		for _, tt := range tests {
			require.NoError(t, ConfigureMyLogger(&MyLoggerOptions{Level: tt.levelStr}))
			assert.Equal(t, int32(tt.expected), currentLevel.Load(), tt.levelStr)
		}
	})

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "viewer.log")
		require.NoError(t, ConfigureMyLogger(&MyLoggerOptions{Path: path, Level: "DEBUG"}))
		Debug("fetch started pid=%d", 42)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "[DEBUG] fetch started pid=42")
	})

	t.Run("unwritable path", func(t *testing.T) {
		err := ConfigureMyLogger(&MyLoggerOptions{Path: filepath.Join(t.TempDir(), "missing", "x.log")})
		assert.Error(t, err)
	})

	t.Run("filtering", func(t *testing.T) {
		var buf bytes.Buffer
		log.SetOutput(&buf)
		currentLevel.Store(LevelDebug)

		Trace("trace msg")
		Debug("debug msg")
		Warn("warn msg")

		assert.NotContains(t, buf.String(), "trace msg")
		assert.Contains(t, buf.String(), "debug msg")
		assert.Contains(t, buf.String(), "warn msg")

		buf.Reset()
		currentLevel.Store(LevelError)
		Debug("debug msg")
		Warn("warn msg")
		Error("error msg")

		assert.NotContains(t, buf.String(), "debug msg")
		assert.NotContains(t, buf.String(), "warn msg")
		assert.Contains(t, buf.String(), "[ERROR] error msg")
		assert.True(t, Enabled(LevelError))
		assert.False(t, Enabled(LevelInfo))
	})
}
