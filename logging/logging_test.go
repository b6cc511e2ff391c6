package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillip/campus-pay-go/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LogConfig{Level: "warn", Format: "json"})

	logger.Info("dropped")
	logger.Warn("kept", "group_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "abc", line["group_id"])
}

func TestNewTextHasNoColorOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, config.LogConfig{Level: "info"}).Info("hello", "k", "v")

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "k=v")
	assert.NotContains(t, buf.String(), "\x1b[")
}
