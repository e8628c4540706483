package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		environment string
	}{
		{name: "production JSON logger", level: "info", environment: "production"},
		{name: "development console logger", level: "debug", environment: "development"},
		{name: "unknown level defaults to info", level: "verbose", environment: "test"},
		{name: "empty level and environment", level: "", environment: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.level, tt.environment)
			require.NoError(t, err)
			require.NotNil(t, log)
			assert.NotNil(t, log.Logger)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, zapcore.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("nonsense"))
}

func TestWithHelpersReturnNewLoggers(t *testing.T) {
	log := NewNop()

	assert.NotSame(t, log, log.Named("sub"))
	assert.NotSame(t, log, log.WithField("key", "value"))
	assert.NotSame(t, log, log.WithFields(map[string]interface{}{"a": 1, "b": 2}))
	assert.NotSame(t, log, log.WithError(errors.New("boom")))
}
