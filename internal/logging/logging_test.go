package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "info", Output: &buf})

	logger.With("agent", "scholar", "run_id", "run-1").Info("node finished")

	out := buf.String()
	assert.Contains(t, out, "node finished")
	assert.Contains(t, out, "scholar")
	assert.Contains(t, out, "run-1")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "warn", Output: &buf})

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("visible warning")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warning")
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{JSON: true, Output: &buf})

	logger.Error("semantic review unparseable", "code", "COMPLIANCE_001")

	assert.Contains(t, buf.String(), `"msg":"semantic review unparseable"`)
	assert.Contains(t, buf.String(), `"code":"COMPLIANCE_001"`)
}
