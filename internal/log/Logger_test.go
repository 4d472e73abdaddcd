package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_WritesToOutputPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")

	logger, err := NewLogger(false, false, path)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Infof("user %s created", "dave")
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "user dave created")
	assert.NotContains(t, string(content), "hidden")
}

func TestNewLogger_Debug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")

	logger, err := NewLogger(true, true, path)
	require.NoError(t, err)

	logger.Debug("cache hit")
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "cache hit")
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Info("discarded")
	assert.NoError(t, logger.Sync())
}
