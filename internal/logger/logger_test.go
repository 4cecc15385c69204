package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger_parseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"debug uppercase", "DEBUG", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"unknown defaults to info", "whatever", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, LevelDebug, EnvProduction)

	log.With("component", "transport").Info("request completed", "status", 200)

	var record map[string]any
	err := json.Unmarshal(buf.Bytes(), &record)
	require.NoError(t, err, "production logger should emit one JSON record per line")

	require.Equal(t, "request completed", record["msg"])
	require.Equal(t, "transport", record["component"])
	require.EqualValues(t, 200, record["status"])

	source, ok := record["source"].(map[string]any)
	require.True(t, ok, "record should carry source info")
	require.Equal(t, "logger_test.go", source["file"], "source file should be trimmed to its base name")
}

func TestLogger_TextOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, LevelInfo, EnvDevelopment)

	log.WithGroup("auth").Warn("refresh failed", "reason", "expired")

	out := buf.String()
	require.Contains(t, out, "level=WARN")
	require.Contains(t, out, "refresh failed")
	require.Contains(t, out, "auth.reason=expired")
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, LevelWarn, EnvDevelopment)

	log.Debug("dropped")
	log.Info("dropped too")
	log.Error("kept")

	out := buf.String()
	require.NotContains(t, out, "dropped")
	require.Equal(t, 1, strings.Count(out, "\n"), "only one record should be written")
	require.Contains(t, out, "kept")
}

func TestLogger_NoOp(t *testing.T) {
	require.NotPanics(t, func() {
		log := NewNoOp()
		log.Info("ignored")
		log.With("k", "v").WithGroup("g").Error("ignored too")
	})
}
