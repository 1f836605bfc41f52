package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	h, err := newHandler(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)

	slog.New(h).Info("batch distributed", "processed", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "batch distributed", rec["message"])
	assert.Equal(t, "INFO", rec["severity"])
	assert.Contains(t, rec, "timestamp")
	assert.EqualValues(t, 3, rec["processed"])
	assert.NotContains(t, rec, "msg")
	assert.NotContains(t, rec, "level")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	h, err := newHandler(&buf, slog.LevelWarn, "text")
	require.NoError(t, err)
	l := slog.New(h)
	l.Info("hidden")
	assert.Zero(t, buf.Len())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "severity=WARN")
	assert.Contains(t, buf.String(), "message=shown")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)

	_, err = newHandler(&bytes.Buffer{}, slog.LevelInfo, "xml")
	assert.Error(t, err)
}

func TestLogf(t *testing.T) {
	var buf bytes.Buffer
	h, err := newHandler(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)

	Logf(slog.New(h))("distributed %d tokens to %s", 2, "0xabc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "distributed 2 tokens to 0xabc", rec["message"])
}
