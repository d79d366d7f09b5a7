package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerDefaults(t *testing.T) {
	logger := NewLogger(nil)
	require.NotNil(t, logger)
	assert.Equal(t, "text", logger.format)
}

func TestLoggerWithContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	progLogger := logger.WithProgram("traffic")
	progLogger.Info("started")
	assert.Contains(t, buf.String(), "program=traffic")

	buf.Reset()
	ssLogger := progLogger.WithStateSet("ss0")
	ssLogger.Info("entering state")
	out := buf.String()
	assert.Contains(t, out, "program=traffic")
	assert.Contains(t, out, "ss=ss0")
}

func TestLoggerWithChannel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})
	chLogger := logger.WithChannel("x")
	chLogger.Debug("get complete", "value", 7)
	out := buf.String()
	assert.Contains(t, out, "chan=x")
	assert.Contains(t, out, "value=7")
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})
	errLogger := logger.WithError(errors.New("disconnected"))
	errLogger.Error("pvGet failed")
	assert.Contains(t, buf.String(), "err=disconnected")
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})
	logger.Debug("hidden")
	logger.Info("also hidden")
	assert.Empty(t, buf.String())
	logger.Warn("visible")
	assert.True(t, strings.Contains(buf.String(), "visible"))
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelInfo, Format: "json", Output: &buf})
	logger.Info("hello", "k", "v")
	out := buf.String()
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))

	Debug("debug message", "key", "value")
	assert.Contains(t, buf.String(), "debug message")
	assert.Contains(t, buf.String(), "key=value")

	buf.Reset()
	Info("info message")
	assert.Contains(t, buf.String(), "info message")

	buf.Reset()
	Warn("warning message")
	assert.Contains(t, buf.String(), "warning message")

	buf.Reset()
	Error("error message")
	assert.Contains(t, buf.String(), "error message")
}
