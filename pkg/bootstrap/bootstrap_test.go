package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/sareesanskriti/storefront/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_toLevel(t *testing.T) {
	testCases := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, toLevel(tc.in))
		})
	}
}

func Test_NewLoggerTo_JSONAndLevel(t *testing.T) {
	// given
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn")

	// when
	logger.InfoContext(context.Background(), "dropped")
	logger.WarnContext(context.Background(), "kept", "key", "value")

	// then
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "value", rec["key"])
}

func Test_NewLoggerFromConfig_WithFile(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "app.log")

	// when
	logger, closer := NewLoggerFromConfig(config.LogConfig{Level: "info", File: path, MaxSizeMB: 1})
	logger.Info("to file")

	// then
	require.NoError(t, closer.Close())
	assert.FileExists(t, path)
}
