package logger

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/gestorventas/deposito/internal/config"
)

func TestBuildWritesJSONToConfiguredOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deposito.log")

	logger, err := Build(config.Observability{
		ServiceName: "deposito",
		Environment: "test",
		LogLevel:    "warn",
		LogEncoding: "json",
		LogOutput:   path,
	})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	logger.Info("dropped")
	logger.Warn("order gross total drift detected")
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dropped")
	assert.Contains(t, string(raw), `"msg":"order gross total drift detected"`)
	assert.Contains(t, string(raw), `"service":"deposito"`)
	assert.Contains(t, string(raw), `"level":"warn"`)
}

func TestBuildFallsBackToInfo(t *testing.T) {
	logger, err := Build(config.Observability{LogLevel: "loud", LogOutput: filepath.Join(t.TempDir(), "x.log")})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestIgnoreSyncOnTTY(t *testing.T) {
	assert.NoError(t, ignoreSyncOnTTY(nil))
	assert.NoError(t, ignoreSyncOnTTY(&os.PathError{Op: "sync", Path: "/dev/stderr", Err: syscall.EINVAL}))
	assert.Error(t, ignoreSyncOnTTY(os.ErrClosed))
}
