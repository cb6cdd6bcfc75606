package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/config"
)

func lastEntry(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInitializeLogger_File(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	logger, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "file", FilePath: logFile})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Info("dataset loaded", "dataset", "primary")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	entry := lastEntry(t, content)
	assert.Equal(t, "dataset loaded", entry["msg"])
	assert.Equal(t, "primary", entry["dataset"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInitializeLogger_OnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(DefaultConfig())
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug"})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestTraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug", &buf)

	ctx := WithTraceID(context.Background(), "trace-123")
	logger.InfoContext(ctx, "chart built")

	assert.Equal(t, "trace-123", lastEntry(t, buf.Bytes())["trace_id"])

	buf.Reset()
	logger.With("component", "charts").WithGroup("chart").InfoContext(ctx, "grouped", "id", "revenue")
	entry := lastEntry(t, buf.Bytes())
	assert.Equal(t, "charts", entry["component"])
	assert.NotNil(t, entry["chart"])
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    string
		debugOut bool
		warnOut  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warning", false, true},
		{"error", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug line")
			assert.Equal(t, tt.debugOut, strings.Contains(buf.String(), "debug line"))

			logger.Warn("warn line")
			assert.Equal(t, tt.warnOut, strings.Contains(buf.String(), "warn line"))
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	require.NotEmpty(t, id)
	assert.Len(t, id, 36)
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)), "an existing id is kept")

	var buf bytes.Buffer
	logger := WithComponent(NewLogger("info", &buf), "loader")
	WithError(logger, assert.AnError).Info("fallback")
	entry := lastEntry(t, buf.Bytes())
	assert.Equal(t, "loader", entry["component"])
	assert.Equal(t, assert.AnError.Error(), entry["error"])

	assert.Same(t, logger, WithError(logger, nil))
}
