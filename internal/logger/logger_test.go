package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/iliyamo/visitor-tracker/internal/logger"
)

func TestLogI(t *testing.T) {
	buf := new(bytes.Buffer)
	logger.InitZap(logger.OptionSetWriter(buf))
	defer logger.InitZap()

	logger.LogI("server started")

	assert.Contains(t, buf.String(), `"message":"server started"`)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestLogWithField(t *testing.T) {
	buf := new(bytes.Buffer)
	logger.InitZap(logger.OptionSetWriter(buf))
	defer logger.InitZap()

	logger.LogWithField(zapcore.InfoLevel, map[string]interface{}{
		"message":  "New visitor tracked",
		"browser":  "Chrome",
		"location": "NYC, US",
	})

	out := buf.String()
	assert.Contains(t, out, `"message":"New visitor tracked"`)
	assert.Contains(t, out, `"browser":"Chrome"`)
	assert.Contains(t, out, `"location":"NYC, US"`)
}

func TestDebugSuppressedByDefault(t *testing.T) {
	buf := new(bytes.Buffer)
	logger.InitZap(logger.OptionSetWriter(buf))
	defer logger.InitZap()

	logger.LogD("hidden")
	assert.Empty(t, buf.String())

	logger.InitZap(logger.OptionSetWriter(buf), logger.OptionDebug(true))
	logger.LogD("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogEf(t *testing.T) {
	buf := new(bytes.Buffer)
	logger.InitZap(logger.OptionSetWriter(buf))
	defer logger.InitZap()

	logger.LogEf("write failed: %v", "disk full")

	assert.Contains(t, buf.String(), "write failed: disk full")
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}
