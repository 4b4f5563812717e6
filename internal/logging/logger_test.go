package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogrusLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"trace", logrus.TraceLevel},
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"unknown", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogrusLevel(tt.input))
		})
	}
}

func TestNewLoggerWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("debug", "json", &buf)

	Component(logger, "correlation").WithField("coefficient", 0.42).Info("computed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "computed", entry["msg"])
	assert.Equal(t, "correlation", entry["component"])
	assert.Equal(t, 0.42, entry["coefficient"])
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestNewLoggerWithOutput_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("warn", "text", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestComponent_NilLogger(t *testing.T) {
	entry := Component(nil, "cache")
	assert.Equal(t, "cache", entry.Data["component"])
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() { logger.Error("nothing") })
}
