package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:readstash.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Remote RemoteConfig `yaml:"remote" json:"remote" jsonschema:"description=Remote content service configuration"`

	Fetch FetchConfig `yaml:"fetch" json:"fetch" jsonschema:"description=Content fetch orchestration configuration"`
}

// RemoteConfig holds the content service connection settings
type RemoteConfig struct {
	Endpoint string        `yaml:"endpoint" json:"endpoint" jsonschema:"required,description=Article query API endpoint"`
	Token    string        `yaml:"token" json:"token" jsonschema:"description=Authorization token (can use environment variable)"`
	Username string        `yaml:"username" json:"username" jsonschema:"description=Account username used for content queries"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout per attempt"`
}

// FetchConfig holds retry and prefetch settings
type FetchConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" json:"max_attempts" jsonschema:"default=7,minimum=1,description=Polling budget while the server renders content"`
	BackoffBase     time.Duration `yaml:"backoff_base" json:"backoff_base" jsonschema:"default=2s,description=Base wait; attempt n waits n times this value"`
	PDFTimeout      time.Duration `yaml:"pdf_timeout" json:"pdf_timeout" jsonschema:"default=60s,description=Timeout for binary asset downloads"`
	PrefetchOnStart bool          `yaml:"prefetch_on_start" json:"prefetch_on_start" jsonschema:"default=false,description=Warm records without cached content on startup"`
	PrefetchLimit   int           `yaml:"prefetch_limit" json:"prefetch_limit" jsonschema:"default=50,description=Maximum items per startup sweep"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for database
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:readstash.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	// set defaults for remote
	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = 30 * time.Second
	}

	// set defaults for fetch
	if cfg.Fetch.MaxAttempts == 0 {
		cfg.Fetch.MaxAttempts = 7
	}
	if cfg.Fetch.BackoffBase == 0 {
		cfg.Fetch.BackoffBase = 2 * time.Second
	}
	if cfg.Fetch.PDFTimeout == 0 {
		cfg.Fetch.PDFTimeout = 60 * time.Second
	}
	if cfg.Fetch.PrefetchLimit == 0 {
		cfg.Fetch.PrefetchLimit = 50
	}

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Remote.Endpoint == "" {
		return fmt.Errorf("remote.endpoint is required")
	}
	if cfg.Remote.Timeout < time.Second {
		return fmt.Errorf("remote.timeout must be at least 1 second")
	}

	if cfg.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("fetch.max_attempts must be at least 1")
	}
	if cfg.Fetch.BackoffBase <= 0 {
		return fmt.Errorf("fetch.backoff_base must be positive")
	}
	if cfg.Fetch.PrefetchLimit < 1 {
		return fmt.Errorf("fetch.prefetch_limit must be at least 1")
	}

	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetRemoteConfig returns remote service configuration
func (c *Config) GetRemoteConfig() RemoteConfig {
	return c.Remote
}

// GetFetchConfig returns fetch orchestration configuration
func (c *Config) GetFetchConfig() FetchConfig {
	return c.Fetch
}
