package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNamedChildCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := New(zap.New(core)).Named("pipeline").With("request_id", "abc")

	logger.Infow("stage complete", "stage", "extract_audio")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "pipeline", entries[0].LoggerName)
	assert.Equal(t, "stage complete", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["request_id"])
	assert.Equal(t, "extract_audio", fields["stage"])
}

func TestNilLoggerHelpers(t *testing.T) {
	var logger *Logger
	assert.NotNil(t, logger.Named("x"))
	assert.NotNil(t, logger.With("k", "v"))
	assert.NotNil(t, New(nil))
}

func TestNewLoggerLevels(t *testing.T) {
	assert.True(t, NewLogger(true).Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.False(t, NewLogger(false).Desugar().Core().Enabled(zapcore.DebugLevel))
}
