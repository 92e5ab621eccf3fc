package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func resetLogging(t *testing.T) {
	t.Cleanup(func() {
		require.NoError(t, Setup(os.Stdout, FormatJSON, "info"))
		SetLevel(zerolog.DebugLevel)
	})
}

func TestSetupJSONUsesCloudLoggingFields(t *testing.T) {
	resetLogging(t)

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, FormatJSON, "info"))

	Info("listening")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "listening", line["message"])
	require.Contains(t, line, "time")
}

func TestSetupFiltersBelowLevel(t *testing.T) {
	resetLogging(t)

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, FormatJSON, "warn"))

	Debug("hidden")
	Info("hidden")
	Warn("shown")
	Error("shown too")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"severity":"WARN"`)
	require.Contains(t, lines[1], `"severity":"ERROR"`)
}

func TestSetupConsoleFormat(t *testing.T) {
	resetLogging(t)

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, FormatConsole, "debug"))

	Debug("bridge disabled")

	require.Contains(t, buf.String(), "bridge disabled")
	require.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestSetupRejectsBadInput(t *testing.T) {
	resetLogging(t)

	for _, tt := range []struct {
		name   string
		format string
		level  string
	}{
		{name: "format", format: "xml", level: "info"},
		{name: "level", format: FormatJSON, level: "loud"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, Setup(os.Stdout, tt.format, tt.level))
		})
	}
}

func TestLoggerIsInjectable(t *testing.T) {
	resetLogging(t)

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, FormatJSON, "info"))

	l := Logger()
	l.Info().Str("component", "test").Msg("hello")

	require.Contains(t, buf.String(), `"component":"test"`)
}
