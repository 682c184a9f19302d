package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	cfg := &Config{
		Remote: RemoteConfig{
			Endpoint: "https://reader.example.com/api/graphql",
			Token:    "test-token",
			Username: "reader",
			Timeout:  30 * time.Second,
		},
		Fetch: FetchConfig{
			MaxAttempts:   7,
			BackoffBase:   2 * time.Second,
			PDFTimeout:    60 * time.Second,
			PrefetchLimit: 50,
		},
	}
	cfg.Server.Listen = ":8080"
	cfg.Server.Timeout = 30 * time.Second
	cfg.Database.DSN = "file:test.db"
	return cfg
}

func TestVerifyAgainstEmbeddedSchema(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:    "missing server listen",
			mutate:  func(cfg *Config) { cfg.Server.Listen = "" },
			wantErr: true,
			errMsg:  "server.listen is required",
		},
		{
			name:    "missing server timeout",
			mutate:  func(cfg *Config) { cfg.Server.Timeout = 0 },
			wantErr: true,
			errMsg:  "server.timeout is required",
		},
		{
			name:    "missing remote endpoint",
			mutate:  func(cfg *Config) { cfg.Remote.Endpoint = "" },
			wantErr: true,
			errMsg:  "remote.endpoint is required",
		},
		{
			name:    "missing remote timeout",
			mutate:  func(cfg *Config) { cfg.Remote.Timeout = 0 },
			wantErr: true,
			errMsg:  "remote.timeout is required",
		},
		{
			name:    "zero max attempts",
			mutate:  func(cfg *Config) { cfg.Fetch.MaxAttempts = 0 },
			wantErr: true,
			errMsg:  "max_attempts",
		},
		{
			name:    "tiny backoff base",
			mutate:  func(cfg *Config) { cfg.Fetch.BackoffBase = time.Microsecond },
			wantErr: true,
			errMsg:  "backoff_base",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := VerifyAgainstEmbeddedSchema(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestGenerateSchema(t *testing.T) {
	schema, err := GenerateSchema()
	require.NoError(t, err)
	require.NotNil(t, schema)

	// top-level reflection points at the Config definition
	assert.NotEmpty(t, schema.Definitions)
	_, ok := schema.Definitions["Config"]
	assert.True(t, ok, "schema should contain Config definition")
}
