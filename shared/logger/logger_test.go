package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "loud", Encoding: "console"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
}

func TestNew_WritesServiceFieldToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")

	log, err := New(Config{Level: "debug", Encoding: "json", OutputPath: path, Service: "story-engine"})
	require.NoError(t, err)
	log.Debug("node entered", zap.String("node", "p1"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"story-engine"`)
	assert.Contains(t, string(data), `"node":"p1"`)
	assert.Contains(t, string(data), `"level":"DEBUG"`)
}
