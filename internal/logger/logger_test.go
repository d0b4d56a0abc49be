package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_IsNop(t *testing.T) {
	l := New()
	require.NotNil(t, l.Log)
	assert.False(t, l.Log.Core().Enabled(zap.ErrorLevel))
}

func TestInit(t *testing.T) {
	l := New()
	require.NoError(t, l.Init("Info"))
	assert.True(t, l.Log.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Log.Core().Enabled(zap.DebugLevel))

	require.NoError(t, l.Init("debug"))
	assert.True(t, l.Log.Core().Enabled(zap.DebugLevel))
}

func TestInit_BadLevel(t *testing.T) {
	l := New()
	assert.Error(t, l.Init("loud"))
}
