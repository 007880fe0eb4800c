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
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 6*time.Hour, cfg.Interval)
	assert.Equal(t, "./data.json", cfg.DataFile)
	assert.Equal(t, "./data.json.lock", cfg.LockFile())
	assert.Equal(t, "20201005215809", cfg.Discovery.FirstBuildID)
	assert.Equal(t, "jsonl", cfg.Storage.Backend)
	assert.True(t, cfg.Publish.Git)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	content := `
source_dir: /srv/mozilla-central
data_file: /srv/arewegleanyet/data.json
interval: 30m
discovery:
  timeout: 5s
storage:
  secondary: sqlite
publish:
  git: false
  otlp_endpoint: collector:4317
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/mozilla-central", cfg.SourceDir)
	assert.Equal(t, 30*time.Minute, cfg.Interval)
	assert.Equal(t, 5*time.Second, cfg.Discovery.Timeout)
	assert.Equal(t, "sqlite", cfg.Storage.Secondary)
	assert.False(t, cfg.Publish.Git)
	assert.Equal(t, "collector:4317", cfg.Publish.OTLPEndpoint)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched keys keep their defaults.
	assert.Equal(t, "nightlywin64", cfg.Discovery.Marker)
	assert.Equal(t, "grpc", cfg.Publish.OTLPProtocol)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval: soon\n"), 0644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_file: /from/file.json\napi_addr: :9000\n"), 0644))

	t.Setenv(EnvConfigFile, path)
	t.Setenv("TRACKER_DATA_FILE", "/from/env.json")
	t.Setenv("TRACKER_INTERVAL", "1h")
	t.Setenv("TRACKER_GIT_PUBLISH", "false")
	t.Setenv("TRACKER_STORAGE_BACKEND", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/from/env.json", cfg.DataFile)
	assert.Equal(t, ":9000", cfg.APIAddr)
	assert.Equal(t, time.Hour, cfg.Interval)
	assert.False(t, cfg.Publish.Git)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	t.Setenv("TRACKER_GIT_PUBLISH", "perhaps")
	_, err := Load()
	assert.ErrorContains(t, err, "TRACKER_GIT_PUBLISH")

	t.Setenv("TRACKER_GIT_PUBLISH", "")
	t.Setenv("TRACKER_INTERVAL", "-1h")
	_, err = Load()
	assert.ErrorContains(t, err, "interval must be positive")
}
