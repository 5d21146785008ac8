package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Options{Output: &buf, Level: level, AddCaller: false}), &buf
}

func decodeEntries(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_JSONOutput(t *testing.T) {
	log, buf := newBufferLogger(LevelInfo)

	log.Info("award applied", UserID("user-1"), XPAmount(25))

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "award applied", entries[0].Message)
	assert.Equal(t, "user-1", entries[0].Fields["user_id"])
	assert.Equal(t, float64(25), entries[0].Fields["xp_amount"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	log, buf := newBufferLogger(LevelWarn)

	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept")
	log.Error("kept", Err(errors.New("boom")))

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, "boom", entries[1].Fields["error"])
}

func TestLogger_WithFields(t *testing.T) {
	log, buf := newBufferLogger(LevelInfo)

	scoped := log.With(Component("orchestrator")).WithEventID("evt-1")
	scoped.Info("processing")
	// The parent logger is untouched.
	log.Info("bare")

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "orchestrator", entries[0].Fields["component"])
	assert.Equal(t, "evt-1", entries[0].Fields["event_id"])
	assert.Empty(t, entries[1].Fields)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" WARNING "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	// Unknown values default to info.
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestSlogHandler(t *testing.T) {
	log, buf := newBufferLogger(LevelInfo)
	sl := slog.New(NewSlogHandler(log))

	sl.Debug("dropped")
	sl.With(slog.String("component", "worker")).
		WithGroup("job").
		Info("completed", slog.String("name", "streak_rollover"), slog.Bool("success", true))

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "completed", entries[0].Message)
	assert.Equal(t, "worker", entries[0].Fields["component"])
	assert.Equal(t, "streak_rollover", entries[0].Fields["job.name"])
	assert.Equal(t, true, entries[0].Fields["job.success"])
}
