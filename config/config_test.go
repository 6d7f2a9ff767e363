package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babelcloud/vlm-bridge/config"
)

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir()) // no config.yaml in the working directory

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Reasoning.MaxRetries)
	assert.Equal(t, time.Second, cfg.Reasoning.InitialDelay)
	assert.Equal(t, 10*time.Second, cfg.Reasoning.MaxDelay)
	assert.Equal(t, 30*time.Second, cfg.Reasoning.Timeout)
	assert.False(t, cfg.Reasoning.Debug)
	assert.NotEmpty(t, cfg.Reasoning.Endpoint)
	assert.NotEmpty(t, cfg.Debug.Dir)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleThreshold)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("VLM_ENDPOINT", "http://vlm.internal:9000/query")
	t.Setenv("VLM_MAX_RETRIES", "5")
	t.Setenv("VLM_INITIAL_DELAY", "250ms")
	t.Setenv("VLM_TIMEOUT", "2s")
	t.Setenv("VLM_DEBUG", "true")
	t.Setenv("BROWSER_WS_ENDPOINT", "ws://localhost:3000")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://vlm.internal:9000/query", cfg.Reasoning.Endpoint)
	assert.Equal(t, 5, cfg.Reasoning.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Reasoning.InitialDelay)
	assert.Equal(t, 2*time.Second, cfg.Reasoning.Timeout)
	assert.True(t, cfg.Reasoning.Debug)
	assert.Equal(t, "ws://localhost:3000", cfg.Browser.WSEndpoint)
}
