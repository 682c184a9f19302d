package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		configContent := `
server:
  listen: ":9090"
  timeout: 45s

remote:
  endpoint: https://reader.example.com/api/graphql
  token: secret-token
  username: reader
  timeout: 15s

fetch:
  max_attempts: 5
  backoff_base: 1s
  pdf_timeout: 30s
  prefetch_on_start: true
  prefetch_limit: 25
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, ":9090", cfg.Server.Listen)
		assert.Equal(t, 45*time.Second, cfg.Server.Timeout)

		assert.Equal(t, "https://reader.example.com/api/graphql", cfg.Remote.Endpoint)
		assert.Equal(t, "secret-token", cfg.Remote.Token)
		assert.Equal(t, "reader", cfg.Remote.Username)
		assert.Equal(t, 15*time.Second, cfg.Remote.Timeout)

		assert.Equal(t, 5, cfg.Fetch.MaxAttempts)
		assert.Equal(t, time.Second, cfg.Fetch.BackoffBase)
		assert.Equal(t, 30*time.Second, cfg.Fetch.PDFTimeout)
		assert.True(t, cfg.Fetch.PrefetchOnStart)
		assert.Equal(t, 25, cfg.Fetch.PrefetchLimit)
	})

	t.Run("defaults", func(t *testing.T) {
		configContent := `
remote:
  endpoint: https://reader.example.com/api/graphql
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// check server defaults
		assert.Equal(t, ":8080", cfg.Server.Listen)
		assert.Equal(t, 30*time.Second, cfg.Server.Timeout)

		// check database defaults
		assert.Equal(t, "file:readstash.db?cache=shared&mode=rwc&_txlock=immediate", cfg.Database.DSN)
		assert.Equal(t, 10, cfg.Database.MaxOpenConns)

		// check remote defaults
		assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)

		// check fetch defaults
		assert.Equal(t, 7, cfg.Fetch.MaxAttempts)
		assert.Equal(t, 2*time.Second, cfg.Fetch.BackoffBase)
		assert.Equal(t, 60*time.Second, cfg.Fetch.PDFTimeout)
		assert.False(t, cfg.Fetch.PrefetchOnStart)
		assert.Equal(t, 50, cfg.Fetch.PrefetchLimit)
	})

	t.Run("environment variable expansion", func(t *testing.T) {
		t.Setenv("READSTASH_TOKEN", "env-token")
		configContent := `
remote:
  endpoint: https://reader.example.com/api/graphql
  token: ${READSTASH_TOKEN}
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.NoError(t, err)
		assert.Equal(t, "env-token", cfg.Remote.Token)
	})

	t.Run("missing endpoint", func(t *testing.T) {
		configContent := `
server:
  listen: ":8080"
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "remote.endpoint is required")
	})

	t.Run("invalid max attempts", func(t *testing.T) {
		configContent := `
remote:
  endpoint: https://reader.example.com/api/graphql

fetch:
  max_attempts: -1
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "max_attempts")
	})

	t.Run("file not found", func(t *testing.T) {
		cfg, err := Load("/non/existent/file.yml")
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		configContent := `
invalid yaml content
  with bad indentation
    and no structure
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "parse config")
	})
}

func TestConfig_Getters(t *testing.T) {
	cfg := &Config{
		Remote: RemoteConfig{Endpoint: "https://reader.example.com", Username: "reader", Timeout: 10 * time.Second},
		Fetch:  FetchConfig{MaxAttempts: 3, BackoffBase: time.Second, PDFTimeout: 20 * time.Second, PrefetchLimit: 10},
	}
	cfg.Server.Listen = ":9090"
	cfg.Server.Timeout = 45 * time.Second

	listen, timeout := cfg.GetServerConfig()
	assert.Equal(t, ":9090", listen)
	assert.Equal(t, 45*time.Second, timeout)

	assert.Equal(t, cfg.Remote, cfg.GetRemoteConfig())
	assert.Equal(t, cfg.Fetch, cfg.GetFetchConfig())
}
