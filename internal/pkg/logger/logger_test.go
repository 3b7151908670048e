package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, WarnLevel, ParseLevel("warn"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func TestConfigureJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: InfoLevel, Output: &buf})
	t.Cleanup(func() { Configure(Config{Level: InfoLevel, Pretty: true}) })

	lgr := ForComponent("enrollment")
	lgr.Info().Int64("studentId", 7).Msg("enrolled")
	Debug().Msg("hidden below info")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "enrollment", entry["component"])
	assert.Equal(t, float64(7), entry["studentId"])
	assert.Equal(t, "enrolled", entry["message"])
	assert.Contains(t, entry, "time")
}
