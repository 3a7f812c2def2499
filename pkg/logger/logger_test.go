package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonmq/broker5/internal/config"
)

func TestColoredHandlerFormatsLevelAndMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	log := slog.New(&ColoredHandler{writer: buf})

	log.Info("broker started", "port", 1883)
	output := buf.String()

	assert.Contains(t, output, "INF")
	assert.Contains(t, output, "broker started")
	assert.Contains(t, output, "port=1883")
}

func TestColoredHandlerRespectsMinLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := slog.New(&ColoredHandler{writer: buf, minLevel: slog.LevelWarn})

	log.Info("should be suppressed")
	log.Warn("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be suppressed")
	assert.Contains(t, output, "should appear")
}

func TestNewSelectsJSONFormat(t *testing.T) {
	log, err := New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNewSelectsTextFormat(t *testing.T) {
	log, err := New(config.LoggingConfig{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
