// Package config provides configuration loading.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Schema  SchemaConfig  `yaml:"schema"`
	Store   StoreConfig   `yaml:"store"`
	Query   QueryConfig   `yaml:"query"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SchemaConfig locates the content type definitions.
type SchemaConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"` // Reload when files in Dir change
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "memory" or "sqlite"
	DSN    string `yaml:"dsn"`
}

// QueryConfig holds query defaults and limits.
type QueryConfig struct {
	Perspective string `yaml:"perspective"` // "published" or "draft"
	Depth       *int   `yaml:"depth"`       // Default: 2; 0 disables reference expansion
	MaxDepth    int    `yaml:"max_depth"`
	Limit       int    `yaml:"limit"`
	MaxLimit    int    `yaml:"max_limit"`
}

// ReferenceDepth returns the default reference depth.
func (q QueryConfig) ReferenceDepth() int {
	if q.Depth == nil {
		return 2
	}
	return *q.Depth
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// MetricsConfig configures the /metrics endpoint.
type MetricsConfig struct {
	Enabled *bool `yaml:"enabled"` // Default: true
}

// IsEnabled reports whether metrics are served.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	CONTENTGATE_SERVER_HOST      - Server host (default: 0.0.0.0)
//	CONTENTGATE_SERVER_PORT      - Server port (default: 8080)
//	CONTENTGATE_SCHEMA_DIR       - Schema directory (required)
//	CONTENTGATE_SCHEMA_WATCH     - Reload on schema file changes (default: false)
//	CONTENTGATE_STORE_DRIVER     - memory or sqlite (default: sqlite)
//	CONTENTGATE_STORE_DSN        - Database path (default: contentgate.db)
//	CONTENTGATE_QUERY_PERSPECTIVE - Default perspective (default: published)
//	CONTENTGATE_QUERY_DEPTH      - Default reference depth (default: 2)
//	CONTENTGATE_QUERY_LIMIT      - Default list limit (default: 20)
//	CONTENTGATE_LOG_LEVEL        - Log level: debug, info, warn, error (default: info)
//	CONTENTGATE_LOG_FORMAT       - Log format: json or console (default: json)
//	CONTENTGATE_METRICS_ENABLED  - Enable /metrics endpoint (default: true)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set CONTENTGATE_SCHEMA_DIR")
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("CONTENTGATE_SCHEMA_DIR") != ""
}

// applyEnvOverrides applies CONTENTGATE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("CONTENTGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	envInt("CONTENTGATE_SERVER_PORT", &cfg.Server.Port)
	envDuration("CONTENTGATE_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("CONTENTGATE_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("CONTENTGATE_SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)

	// Schema configuration
	if v := os.Getenv("CONTENTGATE_SCHEMA_DIR"); v != "" {
		cfg.Schema.Dir = v
	}
	if v := os.Getenv("CONTENTGATE_SCHEMA_WATCH"); v != "" {
		cfg.Schema.Watch = parseBool(v)
	}

	// Store configuration
	if v := os.Getenv("CONTENTGATE_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("CONTENTGATE_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}

	// Query configuration
	if v := os.Getenv("CONTENTGATE_QUERY_PERSPECTIVE"); v != "" {
		cfg.Query.Perspective = v
	}
	if v := os.Getenv("CONTENTGATE_QUERY_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Query.Depth = &n
		}
	}
	envInt("CONTENTGATE_QUERY_MAX_DEPTH", &cfg.Query.MaxDepth)
	envInt("CONTENTGATE_QUERY_LIMIT", &cfg.Query.Limit)
	envInt("CONTENTGATE_QUERY_MAX_LIMIT", &cfg.Query.MaxLimit)

	// Logging configuration
	if v := os.Getenv("CONTENTGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CONTENTGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("CONTENTGATE_METRICS_ENABLED"); v != "" {
		enabled := parseBool(v)
		cfg.Metrics.Enabled = &enabled
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.DSN == "" && cfg.Store.Driver == "sqlite" {
		cfg.Store.DSN = "contentgate.db"
	}

	if cfg.Query.Perspective == "" {
		cfg.Query.Perspective = "published"
	}
	if cfg.Query.Depth == nil {
		depth := cfg.Query.ReferenceDepth()
		cfg.Query.Depth = &depth
	}
	if cfg.Query.MaxDepth == 0 {
		cfg.Query.MaxDepth = 5
	}
	if cfg.Query.Limit == 0 {
		cfg.Query.Limit = 20
	}
	if cfg.Query.MaxLimit == 0 {
		cfg.Query.MaxLimit = 100
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Schema.Dir == "" {
		return fmt.Errorf("schema.dir is required")
	}

	validDrivers := map[string]bool{"memory": true, "sqlite": true}
	if !validDrivers[cfg.Store.Driver] {
		return fmt.Errorf("store.driver must be 'memory' or 'sqlite', got %q", cfg.Store.Driver)
	}

	validPerspectives := map[string]bool{"published": true, "draft": true}
	if !validPerspectives[cfg.Query.Perspective] {
		return fmt.Errorf("query.perspective must be 'published' or 'draft', got %q", cfg.Query.Perspective)
	}
	if depth := cfg.Query.ReferenceDepth(); depth < 0 || depth > cfg.Query.MaxDepth {
		return fmt.Errorf("query.depth must be between 0 and query.max_depth (%d), got %d", cfg.Query.MaxDepth, depth)
	}
	if cfg.Query.Limit < 1 || cfg.Query.Limit > cfg.Query.MaxLimit {
		return fmt.Errorf("query.limit must be between 1 and query.max_limit (%d), got %d", cfg.Query.MaxLimit, cfg.Query.Limit)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
