package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", "json", &buf)
	log.Debug().Str("component", "chat").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "chat", line["component"])
	assert.Equal(t, "hello", line["message"])
}

func TestNew_LevelFilterAndDefault(t *testing.T) {
	var buf bytes.Buffer
	log := New("bogus", "json", &buf)
	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "console", &buf)
	log.Warn().Msg("careful")
	assert.Contains(t, buf.String(), "careful")
	assert.Contains(t, buf.String(), "WRN")
}
