package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "docstore", cfg.Telemetry.ServiceName)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "", cfg.Admin.Addr)
	assert.Greater(t, cfg.Lock.WriteSessionIdleTimeout.Seconds(), 0.0)
}

func TestLoadWithNoConfigFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "logging:\n  level: DEBUG\nadmin:\n  addr: \":9090\"\nlock:\n  write_session_idle_timeout: 30s\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, ":9090", cfg.Admin.Addr)
	assert.Equal(t, "30s", cfg.Lock.WriteSessionIdleTimeout.String())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DOCSTORE_LOGGING_LEVEL", "ERROR")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}
