package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Read(""))

	assert.Equal(t, 600, cfg.Resize.Width)
	assert.Equal(t, 14*time.Second, cfg.Resize.Timeout)
	assert.Equal(t, "vips", cfg.Resize.Engine)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, 100*time.Millisecond, cfg.Driver.Delay)
	assert.False(t, cfg.FailureLog.Enabled())
	assert.Equal(t, "-processed", cfg.Resize.DestBucketSuffix)
}

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv("RESIZE_WIDTH", "300")
	t.Setenv("REGION", "eu-west-1")
	t.Setenv("FAILURE_LOG", "/tmp/failed-out.txt")
	t.Setenv("DRIVER_DELAY", "250ms")

	cfg := NewConfig()
	require.NoError(t, cfg.Read(""))

	assert.Equal(t, 300, cfg.Resize.Width)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.True(t, cfg.FailureLog.Enabled())
	assert.Equal(t, 250*time.Millisecond, cfg.Driver.Delay)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"resize":{"width":1200,"engine":"native"},"failure_log":{"stream":"failed"}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg := NewConfig()
	require.NoError(t, cfg.Read(path))

	assert.Equal(t, 1200, cfg.Resize.Width)
	assert.Equal(t, "native", cfg.Resize.Engine)
	assert.Equal(t, "failed", cfg.FailureLog.Stream)
	assert.Equal(t, 80, cfg.Resize.Quality)
}

func TestReadRejectsInvalid(t *testing.T) {
	t.Setenv("TRANSCODE_ENGINE", "imagemagick")

	err := NewConfig().Read("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
