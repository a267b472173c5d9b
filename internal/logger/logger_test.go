package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/muuzika/internal/config"
)

// Not parallel: these tests swap the global logger.

func TestInitWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(config.LogConfig{Level: "info", Format: "json"}, &buf))
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.DebugLevel) })

	log.Debug().Msg("hidden")
	log.Info().Str("room", "123456").Msg("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "123456", entry["room"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestInitWithWriter_Invalid(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, InitWithWriter(config.LogConfig{Level: "loud", Format: "json"}, &buf))
	assert.Error(t, InitWithWriter(config.LogConfig{Level: "info", Format: "xml"}, &buf))
}

func TestLogPanic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(config.LogConfig{Level: "debug", Format: "json"}, &buf))

	LogPanic("boom")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "stack")
}
