package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_RedactsSecrets(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)

	log.Info("Starting client", "openai_api_key", "sk-123", "model", "gpt-4o-mini")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["openai_api_key"])
	assert.Equal(t, "gpt-4o-mini", fields["model"])
}

func TestLogger_WithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core).With("service", "Test")

	log.Warn("Something odd", "count", 3)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "Test", entry.ContextMap()["service"])
	assert.EqualValues(t, 3, entry.ContextMap()["count"])
}

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"development", "production", "prod", ""} {
		log, err := New(mode)
		require.NoError(t, err, mode)
		require.NotNil(t, log.SugaredLogger)
	}
}
