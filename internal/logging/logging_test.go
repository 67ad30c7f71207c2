package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
		err  bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.err, err != nil, tt.in)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(Config{Level: "info", JSON: true}, &buf)
	require.NoError(t, err)

	logger.Named("receiver").Info("message received", zap.String("text", "HI"))
	logger.Debug("dropped")
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "message received", entry["msg"])
	assert.Equal(t, "receiver", entry["logger"])
	assert.Equal(t, "HI", entry["text"])
	assert.Equal(t, "info", entry["level"])
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "soundchat.log")
	var buf bytes.Buffer
	logger, err := NewWithWriter(Config{Level: "debug", File: path}, &buf)
	require.NoError(t, err)

	logger.Debug("chunk", zap.Int("index", 3))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"index":3`)
	assert.Contains(t, buf.String(), "chunk")
}

func TestInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	assert.Error(t, err)
}
