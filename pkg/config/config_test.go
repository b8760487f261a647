package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10, cfg.Dispatch.MaxConcurrency)
	assert.Equal(t, 1000, cfg.Dispatch.MaxQueueSize)
	assert.Equal(t, 45*time.Second, cfg.Timeouts.Login)
	assert.Equal(t, 15*time.Minute, cfg.Health.RateWindow)
}

func TestLoadFromEnv(t *testing.T) {
	env := map[string]string{
		"MAX_CONCURRENCY":   "25",
		"MAX_QUEUE_SIZE":    "500",
		"TIMEOUT_LOGIN":     "1000",
		"ACCOUNTS_TXT_PATH": "/tmp/accounts.txt",
		"PROXIES_TXT_PATH":  "/tmp/proxies.txt",
		"COOKIES_JSON_PATH": "/tmp/cookies.json",
		"LOG_LEVEL":         "debug",
	}
	for k, v := range env {
		os.Setenv(k, v)
	}
	defer func() {
		for k := range env {
			os.Unsetenv(k)
		}
	}()

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 25, cfg.Dispatch.MaxConcurrency)
	assert.Equal(t, 500, cfg.Dispatch.MaxQueueSize)
	assert.Equal(t, 1000*time.Millisecond, cfg.Timeouts.Login)
	assert.Equal(t, "/tmp/accounts.txt", cfg.Paths.AccountsTxt)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("dispatch:\n  max_concurrency: 42\n  max_queue_size: 2000\nlogging:\n  level: warn\n")
	require.NoError(t, os.WriteFile(path, content, 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 42, cfg.Dispatch.MaxConcurrency)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Dispatch.MaxConcurrency = 0
	assert.Error(t, cfg.Validate())
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"concurrency": 7,
		"accounts":    "/custom/accounts.txt",
		"log-level":   "error",
	})

	assert.Equal(t, 7, cfg.Dispatch.MaxConcurrency)
	assert.Equal(t, "/custom/accounts.txt", cfg.Paths.AccountsTxt)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")

	cfg := DefaultConfig()
	cfg.Dispatch.MaxConcurrency = 99
	require.NoError(t, cfg.Save(path))

	reloaded := DefaultConfig()
	require.NoError(t, reloaded.LoadFromFile(path))
	assert.Equal(t, 99, reloaded.Dispatch.MaxConcurrency)
}
